package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lisanmuaddib/lot-ingest/pkg/db/models"
	"github.com/lisanmuaddib/lot-ingest/pkg/tasks"
	"github.com/sirupsen/logrus"
)

// LookupFunc resolves cadastral numbers to a point
type LookupFunc func(ctx context.Context, numbers []string) (Point, error)

// Store is the persistence the locator needs
type Store interface {
	UpdateCoordinates(ctx context.Context, lotID string, lat, lon float64) error
	RecordAudit(ctx context.Context, subjectID string, eventType models.AuditEventType, status models.AuditStatus, source, details string) error
}

// ScopedStore opens the locator's store on a job scope
type ScopedStore func(scope tasks.Scope) Store

// Locator writes parcel coordinates onto lots and audits every attempt
type Locator struct {
	lookup LookupFunc
	logger *logrus.Logger
}

// NewLocator creates a Locator using lookup
func NewLocator(lookup LookupFunc, logger *logrus.Logger) *Locator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Locator{lookup: lookup, logger: logger}
}

// Locate resolves numbers and stores the point on the lot. A parcel the map
// does not know is recorded as skipped, not failed.
func (l *Locator) Locate(ctx context.Context, st Store, lotID string, numbers []string, source string) error {
	audit := func(status models.AuditStatus, details string) {
		if err := st.RecordAudit(ctx, lotID, models.AuditGeocoding, status, source, details); err != nil {
			l.logger.WithFields(logrus.Fields{
				"lot_id": lotID,
				"status": status,
			}).WithError(err).Error("Failed to record geocoding audit event")
		}
	}

	audit(models.AuditStart, strings.Join(numbers, ","))
	point, err := l.lookup(ctx, numbers)
	switch {
	case errors.Is(err, ErrNotFound):
		audit(models.AuditSkipped, "parcel not found")
		return nil
	case err != nil:
		audit(models.AuditFailure, err.Error())
		return fmt.Errorf("failed to locate lot %s: %w", lotID, err)
	}

	if err := st.UpdateCoordinates(ctx, lotID, point.Lat, point.Lon); err != nil {
		audit(models.AuditFailure, err.Error())
		return err
	}
	audit(models.AuditSuccess, fmt.Sprintf("%.6f,%.6f", point.Lat, point.Lon))
	l.logger.WithFields(logrus.Fields{
		"lot_id": lotID,
		"lat":    point.Lat,
		"lon":    point.Lon,
	}).Debug("Lot located")
	return nil
}

// Enqueue records an enqueued audit event and schedules Locate on queue
func (l *Locator) Enqueue(ctx context.Context, queue interface{ Enqueue(tasks.Job) }, st Store, open ScopedStore, lotID string, numbers []string, source string) {
	if err := st.RecordAudit(ctx, lotID, models.AuditGeocoding, models.AuditEnqueued, source, ""); err != nil {
		l.logger.WithField("lot_id", lotID).WithError(err).Error("Failed to record geocoding audit event")
	}
	queue.Enqueue(tasks.Job{
		Name: "geocode:" + lotID,
		Run: func(ctx context.Context, scope tasks.Scope) error {
			return l.Locate(ctx, open(scope), lotID, numbers, source)
		},
	})
}
