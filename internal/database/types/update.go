package types

import (
	"time"

	"github.com/uptrace/bun"
)

// Update is a memory or status event a parent logs for distribution.
type Update struct {
	bun.BaseModel `bun:"table:updates"`

	ID          string    `bun:",pk"       json:"id"`
	ParentID    string    `bun:",notnull"  json:"parentId"`
	ChildID     string    `bun:",nullzero" json:"childId,omitempty"`
	ContentType string    `bun:",notnull"  json:"contentType"`
	Urgency     string    `bun:",notnull"  json:"urgency"`
	Title       string    `bun:",nullzero" json:"title,omitempty"`
	Content     string    `bun:",notnull"  json:"content"`
	CreatedAt   time.Time `bun:",notnull"  json:"createdAt"`
}

// NotificationContext is the ephemeral input to settings resolution and
// eligibility checks for one distribution attempt.
type NotificationContext struct {
	UpdateID       string   `json:"updateId"`
	ParentID       string   `json:"parentId"`
	ChildID        string   `json:"childId,omitempty"`
	ContentType    string   `json:"contentType"`
	Urgency        string   `json:"urgency"`
	TargetGroupIDs []string `json:"targetGroupIds,omitempty"`
}

// EffectiveSettings is the derived per-recipient result of merging platform
// defaults, group defaults, and individual overrides. Computed fresh per
// resolution call and never persisted.
type EffectiveSettings struct {
	Frequency    string    `json:"frequency"`
	Channels     []string  `json:"channels"`
	ContentTypes []string  `json:"contentTypes"`
	GroupID      string    `json:"groupId"`
	GroupName    string    `json:"groupName"`
	Role         string    `json:"role"`
	JoinedAt     time.Time `json:"joinedAt"`
}
