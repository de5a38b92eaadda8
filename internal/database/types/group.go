package types

import (
	"time"

	"github.com/uptrace/bun"
)

// Group is a named collection of recipients sharing default notification
// settings. The channel toggles gate delivery for every member regardless of
// the group's default channel list; a false value strips that channel during
// resolution.
type Group struct {
	bun.BaseModel `bun:"table:groups"`

	ID               string    `bun:",pk"       json:"id"`
	ParentID         string    `bun:",notnull"  json:"parentId"`
	Name             string    `bun:",notnull"  json:"name"`
	DefaultFrequency string    `bun:",nullzero" json:"defaultFrequency,omitempty"`
	DefaultChannels  []string  `bun:",array"    json:"defaultChannels,omitempty"`
	EmailEnabled     bool      `bun:",notnull"  json:"emailEnabled"`
	SmsEnabled       bool      `bun:",notnull"  json:"smsEnabled"`
	WhatsappEnabled  bool      `bun:",notnull"  json:"whatsappEnabled"`
	CreatedAt        time.Time `bun:",notnull"  json:"createdAt"`
	UpdatedAt        time.Time `bun:",notnull"  json:"updatedAt"`
}

// ChannelEnabled reports whether the group allows delivery over a channel.
// Unknown channels are allowed; only the explicit toggles can disable.
func (g *Group) ChannelEnabled(channel string) bool {
	switch channel {
	case ChannelEmail:
		return g.EmailEnabled
	case ChannelSMS:
		return g.SmsEnabled
	case ChannelWhatsApp:
		return g.WhatsappEnabled
	default:
		return true
	}
}
