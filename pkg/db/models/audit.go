package models

import (
	"time"
)

// AuditEventType names the enrichment step an event belongs to
type AuditEventType string

const (
	AuditClassification AuditEventType = "classification"
	AuditGeocoding      AuditEventType = "geocoding"
)

// AuditStatus is the outcome recorded by an audit event
type AuditStatus string

const (
	AuditEnqueued AuditStatus = "enqueued"
	AuditStart    AuditStatus = "start"
	AuditSuccess  AuditStatus = "success"
	AuditFailure  AuditStatus = "failure"
	AuditSkipped  AuditStatus = "skipped"
)

// AuditEvent is an append-only record of an enrichment attempt
type AuditEvent struct {
	ID        string         `gorm:"primaryKey;column:id;type:uuid"`
	SubjectID string         `gorm:"column:subject_id;type:uuid;not null;index:idx_audit_subject_type"`
	EventType AuditEventType `gorm:"column:event_type;not null;index:idx_audit_subject_type"`
	Status    AuditStatus    `gorm:"column:status;not null"`
	Source    string         `gorm:"column:source"`
	Details   string         `gorm:"column:details;type:text"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for the AuditEvent model
func (AuditEvent) TableName() string {
	return "audit_events"
}
