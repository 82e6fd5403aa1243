// Package classify assigns whitelisted categories and derived fields to lots
// through the shared classification guard.
package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/lisanmuaddib/lot-ingest/pkg/db/models"
	"github.com/lisanmuaddib/lot-ingest/pkg/guard"
	"github.com/lisanmuaddib/lot-ingest/pkg/llm"
	"github.com/lisanmuaddib/lot-ingest/pkg/metrics"
	"github.com/lisanmuaddib/lot-ingest/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/prompts"
)

// DefaultBatchSize is the number of lots sent in one provider call
const DefaultBatchSize = 10

// Store is the persistence the classifier needs
type Store interface {
	GetLot(ctx context.Context, id string) (*models.Lot, error)
	GetLots(ctx context.Context, ids []string) ([]models.Lot, error)
	UpdateClassification(ctx context.Context, lotID string, c store.Classification) error
	RecordAudit(ctx context.Context, subjectID string, eventType models.AuditEventType, status models.AuditStatus, source, details string) error
}

// Config holds the collaborators of a Classifier
type Config struct {
	Guard     *guard.Guard
	LLM       llm.Client
	Store     Store
	BatchSize int
	Taxonomy  []Category
	Logger    *logrus.Logger
}

// Summary counts the per-lot outcomes of a batch
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// Classifier runs classification for single lots and batches
type Classifier struct {
	guard     *guard.Guard
	llm       llm.Client
	store     Store
	batchSize int
	whitelist []string
	prompt    prompts.PromptTemplate
	logger    *logrus.Logger
}

// New creates a Classifier
func New(config Config) (*Classifier, error) {
	if config.Guard == nil {
		return nil, errors.New("classify: guard is required")
	}
	if config.LLM == nil {
		return nil, errors.New("classify: llm client is required")
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if len(config.Taxonomy) == 0 {
		config.Taxonomy = Taxonomy
	}

	whitelist := make([]string, len(config.Taxonomy))
	for i, c := range config.Taxonomy {
		whitelist[i] = c.Name
	}

	return &Classifier{
		guard:     config.Guard,
		llm:       config.LLM,
		store:     config.Store,
		batchSize: config.BatchSize,
		whitelist: whitelist,
		prompt:    NewPrompt(config.Taxonomy),
		logger:    config.Logger,
	}, nil
}

// WithStore returns a copy of the classifier bound to another store,
// typically one opened on a job scope
func (c *Classifier) WithStore(s Store) *Classifier {
	clone := *c
	clone.store = s
	return &clone
}

// ClassifyLot classifies a single lot and records its audit trail
func (c *Classifier) ClassifyLot(ctx context.Context, lotID, source string) error {
	if c.store == nil {
		return errors.New("classify: no store bound")
	}
	lot, err := c.store.GetLot(ctx, lotID)
	if err != nil {
		return err
	}
	summary := c.classifyChunk(ctx, []models.Lot{*lot}, source)
	if summary.Failed > 0 {
		return fmt.Errorf("classification of lot %s failed", lotID)
	}
	return nil
}

// ClassifyBatch classifies lots in chunks of the configured batch size, one
// provider call per chunk. Once the breaker is open every remaining lot is
// recorded as skipped without a call.
func (c *Classifier) ClassifyBatch(ctx context.Context, lotIDs []string, source string) (Summary, error) {
	var total Summary
	if c.store == nil {
		return total, errors.New("classify: no store bound")
	}
	lots, err := c.store.GetLots(ctx, lotIDs)
	if err != nil {
		return total, err
	}

	for start := 0; start < len(lots); start += c.batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		end := min(start+c.batchSize, len(lots))
		chunk := lots[start:end]

		if err := c.guard.Breaker().Allow(); err != nil {
			for _, lot := range lots[start:] {
				c.audit(ctx, lot.ID, models.AuditSkipped, source, err.Error())
			}
			total.Skipped += len(lots) - start
			c.logger.WithFields(logrus.Fields{
				"source":  source,
				"skipped": len(lots) - start,
			}).WithError(err).Warn("Classification breaker open, skipping remaining lots")
			return total, nil
		}

		summary := c.classifyChunk(ctx, chunk, source)
		total.Succeeded += summary.Succeeded
		total.Failed += summary.Failed
		total.Skipped += summary.Skipped
	}

	c.logger.WithFields(logrus.Fields{
		"source":    source,
		"succeeded": total.Succeeded,
		"failed":    total.Failed,
		"skipped":   total.Skipped,
	}).Info("Classification batch finished")
	return total, nil
}

// classifyChunk makes one provider call for lots and records one terminal
// audit status per lot
func (c *Classifier) classifyChunk(ctx context.Context, lots []models.Lot, source string) Summary {
	var summary Summary

	var eligible []models.Lot
	for _, lot := range lots {
		if lot.Description == "" {
			c.audit(ctx, lot.ID, models.AuditSkipped, source, "empty description")
			summary.Skipped++
			continue
		}
		eligible = append(eligible, lot)
	}
	if len(eligible) == 0 {
		return summary
	}

	if err := c.guard.Breaker().Allow(); err != nil {
		for _, lot := range eligible {
			c.audit(ctx, lot.ID, models.AuditSkipped, source, err.Error())
		}
		summary.Skipped += len(eligible)
		return summary
	}

	for _, lot := range eligible {
		c.audit(ctx, lot.ID, models.AuditStart, source, "")
	}

	resp, err := c.call(ctx, eligible)
	switch {
	case errors.Is(err, guard.ErrCircuitOpen):
		for _, lot := range eligible {
			c.audit(ctx, lot.ID, models.AuditSkipped, source, err.Error())
		}
		summary.Skipped += len(eligible)
		return summary
	case err != nil:
		c.logger.WithFields(logrus.Fields{
			"source": source,
			"lots":   len(eligible),
		}).WithError(err).Error("Classification call failed")
		for _, lot := range eligible {
			c.audit(ctx, lot.ID, models.AuditFailure, source, err.Error())
		}
		summary.Failed += len(eligible)
		return summary
	}

	results := resp.byID()
	for _, lot := range eligible {
		result, ok := results[lot.ID]
		if !ok && len(eligible) == 1 && len(resp.Lots) == 1 {
			result, ok = resp.Lots[0], true
		}
		if !ok {
			c.audit(ctx, lot.ID, models.AuditFailure, source, "lot missing from response")
			summary.Failed++
			continue
		}
		if err := c.apply(ctx, lot, result); err != nil {
			c.logger.WithFields(logrus.Fields{
				"lot_id": lot.ID,
				"source": source,
			}).WithError(err).Warn("Classification result rejected")
			c.audit(ctx, lot.ID, models.AuditFailure, source, err.Error())
			summary.Failed++
			continue
		}
		c.audit(ctx, lot.ID, models.AuditSuccess, source, "")
		summary.Succeeded++
	}
	return summary
}

func (c *Classifier) call(ctx context.Context, lots []models.Lot) (*Response, error) {
	rendered, err := renderLots(lots)
	if err != nil {
		return nil, err
	}
	prompt, err := c.prompt.Format(map[string]any{"lots": rendered})
	if err != nil {
		return nil, fmt.Errorf("failed to format classification prompt: %w", err)
	}

	var completion string
	err = c.guard.Do(ctx, func(ctx context.Context) error {
		var callErr error
		completion, callErr = c.llm.Complete(ctx, prompt, llm.WithJSONMode(), llm.WithTemperature(0))
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return ParseResponse(completion)
}

func (c *Classifier) apply(ctx context.Context, lot models.Lot, result Result) error {
	categories := CleanCategories(result.Categories, c.whitelist)
	if len(categories) == 0 {
		return fmt.Errorf("no valid categories in %v", result.Categories)
	}
	return c.store.UpdateClassification(ctx, lot.ID, store.Classification{
		Title:             result.Title,
		Categories:        categories,
		MarketValueMin:    result.MarketValueMin,
		MarketValueMax:    result.MarketValueMax,
		IsSharedOwnership: result.IsSharedOwnership,
		Region:            result.Region,
	})
}

func (c *Classifier) audit(ctx context.Context, lotID string, status models.AuditStatus, source, details string) {
	if status != models.AuditStart && status != models.AuditEnqueued {
		metrics.ClassificationCalls.WithLabelValues(string(status)).Inc()
	}
	if err := c.store.RecordAudit(ctx, lotID, models.AuditClassification, status, source, details); err != nil {
		c.logger.WithFields(logrus.Fields{
			"lot_id": lotID,
			"status": status,
		}).WithError(err).Error("Failed to record classification audit event")
	}
}
