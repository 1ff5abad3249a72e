package domain

import "time"

// AuditRecord is the immutable history line emitted for every successful ledger mutation.
type AuditRecord struct {
	SchoolID    string     `json:"schoolID"`
	ActionType  ActionType `json:"actionType"`
	EntityID    string     `json:"entityID"`
	EntityType  string     `json:"entityType"`
	PerformedBy string     `json:"performedBy"`
	Message     string     `json:"message"`
	Timestamp   time.Time  `json:"timestamp"`
}
