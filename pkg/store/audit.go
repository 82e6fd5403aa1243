package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lisanmuaddib/lot-ingest/pkg/db/models"
)

// RecordAudit appends an audit event for subjectID
func (s *Store) RecordAudit(ctx context.Context, subjectID string, eventType models.AuditEventType, status models.AuditStatus, source, details string) error {
	event := models.AuditEvent{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		EventType: eventType,
		Status:    status,
		Source:    source,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to record %s %s audit for %s: %w", eventType, status, subjectID, err)
	}
	return nil
}

// AuditTrail returns the events of one subject in chronological order
func (s *Store) AuditTrail(ctx context.Context, subjectID string, eventType models.AuditEventType) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	err := s.db.WithContext(ctx).
		Where("subject_id = ? AND event_type = ?", subjectID, eventType).
		Order("created_at").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail of %s: %w", subjectID, err)
	}
	return events, nil
}
