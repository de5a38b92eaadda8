package types

import (
	"time"

	"github.com/uptrace/bun"
)

// DigestRun records the outcome of one digest sweep for ops visibility.
type DigestRun struct {
	bun.BaseModel `bun:"table:digest_runs"`

	ID         int64     `bun:",pk,autoincrement" json:"id"`
	DigestType string    `bun:",notnull"          json:"digestType"`
	Processed  int       `bun:",notnull"          json:"processed"`
	Errors     int       `bun:",notnull"          json:"errors"`
	StartedAt  time.Time `bun:",notnull"          json:"startedAt"`
	FinishedAt time.Time `bun:",notnull"          json:"finishedAt"`
}
