package domain

import "time"

// Idempotency records the reply of a completed chatbot request, keyed by
// (user_id, scope, key), so a retried create replays the stored reply
// instead of inserting a second record. Scope is the route the key was
// used on.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID    int64     `gorm:"type:INTEGER NOT NULL;uniqueIndex:ux_user_scope_key,priority:1"`
	Scope     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:3"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	Body      string    `gorm:"type:TEXT NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
