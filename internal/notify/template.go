package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/tribelabs/tribe/internal/database/types"
)

// digestUpdate is one update paired with the group context frozen into its
// delivery job.
type digestUpdate struct {
	update  *types.Update
	context types.GroupContextSnapshot
}

// digestSection groups a batch's updates under one group heading.
type digestSection struct {
	context types.GroupContextSnapshot
	updates []*types.Update
}

// buildSections sub-groups a batch's updates by the group id carried in each
// job's context snapshot, preserving first-seen group order.
func buildSections(updates []digestUpdate) []digestSection {
	index := make(map[string]int)

	var sections []digestSection

	for _, du := range updates {
		i, ok := index[du.context.GroupID]
		if !ok {
			i = len(sections)
			index[du.context.GroupID] = i
			sections = append(sections, digestSection{context: du.context})
		}

		sections[i].updates = append(sections[i].updates, du.update)
	}

	return sections
}

// digestSubject summarizes the batch: total update count and, when updates
// span more than one group, the distinct group count.
func digestSubject(totalUpdates, groupCount int) string {
	subject := fmt.Sprintf("%d new update", totalUpdates)
	if totalUpdates != 1 {
		subject += "s"
	}

	subject += " from your Tribe"

	if groupCount > 1 {
		subject += fmt.Sprintf(" (%d groups)", groupCount)
	}

	return subject
}

// preferenceLink builds the self-service preference URL for a recipient.
// Without a token the generic preferences path is used.
func preferenceLink(baseURL, preferenceToken string) string {
	if preferenceToken == "" {
		return baseURL + "/preferences"
	}

	return baseURL + "/preferences/" + preferenceToken
}

// renderDigestText renders the plain-text digest body: one block per group,
// each listing its updates with formatted dates, followed by the preference
// link.
func renderDigestText(sections []digestSection, prefLink string) string {
	var b strings.Builder

	for _, section := range sections {
		fmt.Fprintf(&b, "%s\n", section.context.GroupName)
		b.WriteString(strings.Repeat("-", len(section.context.GroupName)))
		b.WriteString("\n")

		for _, update := range section.updates {
			fmt.Fprintf(&b, "• %s (%s)\n", update.Content, update.CreatedAt.Format("Jan 2, 2006"))
		}

		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Manage your notification preferences: %s\n", prefLink)

	return b.String()
}

// renderDigestHTML renders the HTML digest body with the same structure as
// the text version.
func renderDigestHTML(sections []digestSection, prefLink string) string {
	var b strings.Builder

	b.WriteString(`<div style="font-family:sans-serif;max-width:600px;margin:0 auto;">`)

	for _, section := range sections {
		fmt.Fprintf(&b, `<h2 style="color:#444;border-bottom:1px solid #eee;padding-bottom:4px;">%s</h2>`,
			html.EscapeString(section.context.GroupName))
		b.WriteString("<ul>")

		for _, update := range section.updates {
			fmt.Fprintf(&b, `<li style="margin-bottom:8px;">%s <span style="color:#999;">%s</span></li>`,
				html.EscapeString(update.Content),
				update.CreatedAt.Format("Jan 2, 2006"))
		}

		b.WriteString("</ul>")
	}

	fmt.Fprintf(&b, `<p style="margin-top:24px;"><a href="%s">Manage your notification preferences</a></p>`,
		prefLink)
	b.WriteString("</div>")

	return b.String()
}
