package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lisanmuaddib/lot-ingest/pkg/db/models"
)

// RecoveryCriteria selects lots that slipped through classification
type RecoveryCriteria struct {
	// Quiet excludes lots with any classification event newer than now-Quiet
	Quiet time.Duration
	// MaxFailures excludes lots with at least this many failure events
	MaxFailures int
	// Limit caps the number of lots returned
	Limit int
}

// UnclassifiedLots returns lots with a description but no categories, no
// successful classification, no recent classification activity and fewer
// than MaxFailures failed attempts, oldest first.
func (s *Store) UnclassifiedLots(ctx context.Context, criteria RecoveryCriteria) ([]models.Lot, error) {
	cutoff := time.Now().Add(-criteria.Quiet)
	eventType := models.AuditClassification

	var lots []models.Lot
	err := s.db.WithContext(ctx).
		Where("(categories IS NULL OR cardinality(categories) = 0)").
		Where("COALESCE(description, '') <> ''").
		Where(`NOT EXISTS (
			SELECT 1 FROM audit_events a
			WHERE a.subject_id = lots.id AND a.event_type = ? AND a.status = ?
		)`, eventType, models.AuditSuccess).
		Where(`NOT EXISTS (
			SELECT 1 FROM audit_events a
			WHERE a.subject_id = lots.id AND a.event_type = ? AND a.created_at > ?
		)`, eventType, cutoff).
		Where(`(
			SELECT COUNT(*) FROM audit_events a
			WHERE a.subject_id = lots.id AND a.event_type = ? AND a.status = ?
		) < ?`, eventType, models.AuditFailure, criteria.MaxFailures).
		Order("created_at").
		Limit(criteria.Limit).
		Find(&lots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select lots for recovery: %w", err)
	}
	return lots, nil
}
