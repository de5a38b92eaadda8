package notify

import (
	"slices"

	"github.com/tribelabs/tribe/internal/database/types"
)

// allowsContent reports whether the settings' content-type list covers the
// update's content type. Preference lists store plural keys while updates
// carry the singular classification, so both forms are accepted.
func allowsContent(settings types.EffectiveSettings, contentType string) bool {
	return slices.Contains(settings.ContentTypes, contentType) ||
		slices.Contains(settings.ContentTypes, types.ContentPrefFor(contentType))
}

// ShouldNotifyNow decides whether an update should generate an immediate
// notification for a recipient. Rules run in order; the first failing rule
// excludes. Digest frequencies pass only on high urgency — a false result for
// them means "deferred to the digest sweep", not "never". Unrecognized
// frequency values are treated as eligible so unexpected data never silently
// drops notifications.
func ShouldNotifyNow(settings types.EffectiveSettings, nctx types.NotificationContext) bool {
	if !allowsContent(settings, nctx.ContentType) {
		return false
	}

	if len(settings.Channels) == 0 {
		return false
	}

	switch settings.Frequency {
	case types.FrequencyMilestonesOnly:
		return nctx.ContentType == types.ContentTypeMilestone
	case types.FrequencyEveryUpdate:
		return true
	case types.FrequencyDailyDigest, types.FrequencyWeeklyDigest:
		return nctx.Urgency == types.UrgencyHigh
	default:
		return true
	}
}

// IsEligible decides whether a recipient should receive this update at all,
// immediately or via a digest. Used by the distribution pipeline to prune
// recipients before scheduling: digest frequencies stay eligible here even
// when they fail the immediate-urgency gate.
func IsEligible(settings types.EffectiveSettings, nctx types.NotificationContext) bool {
	if !allowsContent(settings, nctx.ContentType) {
		return false
	}

	if len(settings.Channels) == 0 {
		return false
	}

	if settings.Frequency == types.FrequencyMilestonesOnly {
		return nctx.ContentType == types.ContentTypeMilestone
	}

	return true
}
