package types

// Notification frequencies. Values are stored verbatim in recipient and group
// rows; unrecognized values are tolerated downstream (fail-open) rather than
// rejected at the boundary.
const (
	// FrequencyEveryUpdate delivers each update immediately.
	FrequencyEveryUpdate = "every_update"
	// FrequencyDailyDigest batches updates into one message per day.
	FrequencyDailyDigest = "daily_digest"
	// FrequencyWeeklyDigest batches updates into one message per week.
	FrequencyWeeklyDigest = "weekly_digest"
	// FrequencyMilestonesOnly delivers milestone updates only.
	FrequencyMilestonesOnly = "milestones_only"
)

// Delivery channels.
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// Update content types.
const (
	ContentTypeMilestone = "milestone"
	ContentTypeActivity  = "activity"
	ContentTypePhoto     = "photo"
	ContentTypeText      = "text"
)

// Plural content-type keys used in preference lists. The preference lists
// historically store plural forms while updates carry the singular type.
const (
	ContentPrefMilestones = "milestones"
	ContentPrefActivities = "activities"
	ContentPrefPhotos     = "photos"
	ContentPrefText       = "text"
)

// Update urgency tiers.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// ContentPrefFor maps an update's content type to the preference-list key
// that covers it.
func ContentPrefFor(contentType string) string {
	switch contentType {
	case ContentTypeMilestone:
		return ContentPrefMilestones
	case ContentTypeActivity:
		return ContentPrefActivities
	case ContentTypePhoto:
		return ContentPrefPhotos
	case ContentTypeText:
		return ContentPrefText
	default:
		return contentType
	}
}
