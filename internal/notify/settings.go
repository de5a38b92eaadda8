package notify

import (
	"slices"

	"github.com/tribelabs/tribe/internal/database/types"
)

// Platform defaults applied before any group or individual settings.
func defaultSettings() types.EffectiveSettings {
	return types.EffectiveSettings{
		Frequency:    types.FrequencyWeeklyDigest,
		Channels:     []string{types.ChannelEmail},
		ContentTypes: []string{types.ContentPrefPhotos, types.ContentPrefText, types.ContentPrefMilestones},
	}
}

// ResolveSettings computes a recipient's effective notification settings by
// layering platform defaults, the primary group's defaults and channel
// toggles, and the membership's individual overrides. Pure computation over
// the rows the caller supplies; nothing is cached or persisted.
func ResolveSettings(
	memberships []*types.GroupMembership, nctx types.NotificationContext,
) types.EffectiveSettings {
	settings := defaultSettings()

	primary := primaryMembership(memberships, nctx.TargetGroupIDs)
	if primary == nil {
		// No memberships: pure platform defaults, empty group context.
		return settings
	}

	if group := primary.Group; group != nil {
		if group.DefaultFrequency != "" {
			settings.Frequency = group.DefaultFrequency
		}

		if group.DefaultChannels != nil {
			settings.Channels = slices.Clone(group.DefaultChannels)
		}

		// Group toggles strip channels after defaults are applied. This is
		// the only point where channels are removed; individual overrides
		// below are taken verbatim even if they re-add a disabled channel.
		settings.Channels = slices.DeleteFunc(settings.Channels, func(channel string) bool {
			return !group.ChannelEnabled(channel)
		})

		settings.GroupID = group.ID
		settings.GroupName = group.Name
	} else {
		settings.GroupID = primary.GroupID
	}

	// Individual overrides replace the group-derived values wholesale.
	if primary.Frequency != "" {
		settings.Frequency = primary.Frequency
	}

	if primary.Channels != nil {
		settings.Channels = slices.Clone(primary.Channels)
	}

	if primary.ContentTypes != nil {
		settings.ContentTypes = slices.Clone(primary.ContentTypes)
	}

	settings.Role = primary.Role
	settings.JoinedAt = primary.JoinedAt

	return settings
}

// primaryMembership selects the membership that provides the group context
// for this notification: the first membership matching a target group when
// targets are given, otherwise the first membership in caller-supplied order.
func primaryMembership(
	memberships []*types.GroupMembership, targetGroupIDs []string,
) *types.GroupMembership {
	if len(memberships) == 0 {
		return nil
	}

	if len(targetGroupIDs) > 0 {
		for _, m := range memberships {
			if slices.Contains(targetGroupIDs, m.GroupID) {
				return m
			}
		}
	}

	return memberships[0]
}
