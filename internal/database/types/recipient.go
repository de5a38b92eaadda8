package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

var (
	// ErrNoContactEndpoint means a recipient row has neither an email address
	// nor a phone number and can never be notified.
	ErrNoContactEndpoint = errors.New("recipient has no contact endpoint")

	// ErrChannelWithoutEndpoint means a channel was requested for a recipient
	// who lacks the contact endpoint that channel requires.
	ErrChannelWithoutEndpoint = errors.New("channel requires a contact endpoint the recipient lacks")
)

// Recipient is a family member or friend who receives update notifications.
// Email backs the email channel; Phone backs both SMS and WhatsApp.
type Recipient struct {
	bun.BaseModel `bun:"table:recipients,alias:recipient"`

	ID              string    `bun:",pk"       json:"id"`
	ParentID        string    `bun:",notnull"  json:"parentId"`
	Name            string    `bun:",notnull"  json:"name"`
	Relationship    string    `bun:",nullzero" json:"relationship,omitempty"`
	Email           string    `bun:",nullzero" json:"email,omitempty"`
	Phone           string    `bun:",nullzero" json:"phone,omitempty"`
	PreferenceToken string    `bun:",nullzero" json:"preferenceToken,omitempty"`
	IsActive        bool      `bun:",notnull"  json:"isActive"`
	CreatedAt       time.Time `bun:",notnull"  json:"createdAt"`
	UpdatedAt       time.Time `bun:",notnull"  json:"updatedAt"`

	Memberships []*GroupMembership `bun:"rel:has-many,join:id=recipient_id" json:"memberships,omitempty"`
}

// Validate checks that the recipient can actually be reached: at least one
// contact endpoint must exist, and any membership channel override must be
// backed by the matching endpoint.
func (r *Recipient) Validate() error {
	if r.Email == "" && r.Phone == "" {
		return fmt.Errorf("%w: recipient %s", ErrNoContactEndpoint, r.ID)
	}

	for _, membership := range r.Memberships {
		for _, channel := range membership.Channels {
			if !r.HasEndpointFor(channel) {
				return fmt.Errorf("%w: recipient %s, channel %s",
					ErrChannelWithoutEndpoint, r.ID, channel)
			}
		}
	}

	return nil
}

// HasEndpointFor reports whether the recipient has the contact endpoint the
// given channel delivers to.
func (r *Recipient) HasEndpointFor(channel string) bool {
	switch channel {
	case ChannelEmail:
		return r.Email != ""
	case ChannelSMS, ChannelWhatsApp:
		return r.Phone != ""
	default:
		return false
	}
}

// GroupMembership ties a recipient to a group and carries that recipient's
// individual setting overrides within it. A nil slice means no override; an
// empty non-nil slice is an explicit override to nothing.
type GroupMembership struct {
	bun.BaseModel `bun:"table:group_memberships,alias:gm"`

	ID          string `bun:",pk"      json:"id"`
	RecipientID string `bun:",notnull" json:"recipientId"`
	GroupID     string `bun:",notnull" json:"groupId"`
	Role        string `bun:",notnull" json:"role"`

	Frequency    string   `bun:",nullzero"       json:"frequency,omitempty"`
	Channels     []string `bun:",type:jsonb"     json:"channels,omitempty"`
	ContentTypes []string `bun:",type:jsonb"     json:"contentTypes,omitempty"`

	IsActive  bool      `bun:",notnull" json:"isActive"`
	JoinedAt  time.Time `bun:",notnull" json:"joinedAt"`
	CreatedAt time.Time `bun:",notnull" json:"createdAt"`

	Group *Group `bun:"rel:belongs-to,join:group_id=id" json:"group,omitempty"`
}
