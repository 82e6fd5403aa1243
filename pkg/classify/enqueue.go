package classify

import (
	"context"

	"github.com/lisanmuaddib/lot-ingest/pkg/db/models"
	"github.com/lisanmuaddib/lot-ingest/pkg/tasks"
)

// Enqueuer accepts deferred jobs
type Enqueuer interface {
	Enqueue(job tasks.Job)
}

// ScopedStore opens the classifier's store on a job scope
type ScopedStore func(scope tasks.Scope) Store

// Enqueue records an enqueued audit event for lotID and schedules its
// classification on queue. The job runs against a store opened on its own scope.
func (c *Classifier) Enqueue(ctx context.Context, queue Enqueuer, open ScopedStore, lotID, source string) {
	c.audit(ctx, lotID, models.AuditEnqueued, source, "")
	queue.Enqueue(tasks.Job{
		Name: "classify:" + lotID,
		Run: func(ctx context.Context, scope tasks.Scope) error {
			return c.WithStore(open(scope)).ClassifyLot(ctx, lotID, source)
		},
	})
}
