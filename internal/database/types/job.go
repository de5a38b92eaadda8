package types

import (
	"time"

	"github.com/uptrace/bun"
)

// Delivery job statuses. Jobs move queued -> processing -> sent; a failed
// batch is released back to queued and retried on the next sweep.
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusSent       = "sent"
)

// DeliveryJob is one persisted unit of work: send this update to this
// recipient over this channel. A nil ScheduledFor means the job is already
// due. GroupContext holds the JSON snapshot serialized at creation time so
// digest rendering never re-resolves group membership.
type DeliveryJob struct {
	bun.BaseModel `bun:"table:delivery_jobs"`

	ID           string     `bun:",pk"       json:"id"`
	UpdateID     string     `bun:",notnull"  json:"updateId"`
	RecipientID  string     `bun:",notnull"  json:"recipientId"`
	Channel      string     `bun:",notnull"  json:"channel"`
	Priority     int        `bun:",notnull"  json:"priority"`
	ScheduledFor *time.Time `bun:",nullzero" json:"scheduledFor,omitempty"`
	GroupContext string     `bun:",nullzero" json:"groupContext,omitempty"`
	Status       string     `bun:",notnull"  json:"status"`
	ClaimedAt    *time.Time `bun:",nullzero" json:"claimedAt,omitempty"`
	SentAt       *time.Time `bun:",nullzero" json:"sentAt,omitempty"`
	CreatedAt    time.Time  `bun:",notnull"  json:"createdAt"`
}

// GroupContextSnapshot is the group metadata frozen into a delivery job at
// creation time.
type GroupContextSnapshot struct {
	GroupID   string `json:"groupId"`
	GroupName string `json:"groupName"`
	Role      string `json:"role"`
}

// DefaultGroupContext is the silent fallback used when a stored snapshot is
// absent or unparseable.
func DefaultGroupContext() GroupContextSnapshot {
	return GroupContextSnapshot{
		GroupID:   "default",
		GroupName: "Family",
		Role:      "member",
	}
}
