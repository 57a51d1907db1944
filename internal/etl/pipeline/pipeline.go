package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AlkaloidWells/GraphWork/internal/domain"
	"github.com/AlkaloidWells/GraphWork/internal/etl/extractor"
	pkgerrors "github.com/AlkaloidWells/GraphWork/internal/pkg/errors"
	"github.com/AlkaloidWells/GraphWork/internal/pkg/logger"
)

// Extractor is the read side of a run.
type Extractor interface {
	Extract(ctx context.Context, profile extractor.Profile, scope domain.Scope) ([]extractor.Row, error)
}

// Loader is the write side of a run.
type Loader interface {
	Load(ctx context.Context, rec domain.Interaction) error
}

// Service sequences extraction, normalization and loading for one scope.
// Per-record failures are isolated: a bad row is logged, counted and
// skipped. Only extraction failures abort a run.
type Service struct {
	ex  Extractor
	ld  Loader
	log *logger.Logger
}

func NewService(ex Extractor, ld Loader, baseLog *logger.Logger) *Service {
	return &Service{
		ex:  ex,
		ld:  ld,
		log: baseLog.With("service", "Pipeline"),
	}
}

// Run executes one pipeline run over the combined profile for the given
// scope. The returned summary is valid even on error: it carries the
// partial counters accumulated before the run aborted.
func (s *Service) Run(ctx context.Context, scope domain.Scope) (domain.RunSummary, error) {
	summary := domain.RunSummary{
		RunID:     uuid.New(),
		Scope:     scope,
		StartedAt: time.Now().UTC(),
	}
	runLog := s.log.With("run_id", summary.RunID.String(), "scope", scope.String())
	runLog.Info("pipeline run started")

	rows, err := s.extractOnceRetried(ctx, scope, runLog)
	if err != nil {
		summary.FinishedAt = time.Now().UTC()
		runLog.Error("extraction failed, run aborted", "error", err)
		return summary, err
	}

	for _, row := range rows {
		summary.Attempted++

		rec, err := extractor.Normalize(row)
		if err != nil {
			summary.Failed++
			runLog.Warn("record skipped",
				"reason", err,
				"user_id", row.UserID.Int64,
				"product_id", row.ProductID.Int64,
				"action_type", row.Action,
			)
			continue
		}

		if err := s.loadOnceRetried(ctx, rec, runLog); err != nil {
			summary.Failed++
			runLog.Warn("record skipped",
				"reason", err,
				"user_id", rec.UserID,
				"action", rec.Action,
			)
			continue
		}
		summary.Succeeded++
	}

	summary.FinishedAt = time.Now().UTC()
	runLog.Info("pipeline run finished",
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
	)
	return summary, nil
}

// RunAll launches one run per scope concurrently. Scopes are expected to be
// disjoint; node upsert idempotency at the store keeps concurrent writers
// safe regardless.
func (s *Service) RunAll(ctx context.Context, scopes []domain.Scope) ([]domain.RunSummary, error) {
	summaries := make([]domain.RunSummary, len(scopes))
	g, gctx := errgroup.WithContext(ctx)
	for i, scope := range scopes {
		g.Go(func() error {
			summary, err := s.Run(gctx, scope)
			summaries[i] = summary
			return err
		})
	}
	err := g.Wait()
	return summaries, err
}

// extractOnceRetried retries a timed-out extraction exactly once.
func (s *Service) extractOnceRetried(ctx context.Context, scope domain.Scope, runLog *logger.Logger) ([]extractor.Row, error) {
	rows, err := s.ex.Extract(ctx, extractor.ProfileCombined, scope)
	if err != nil && pkgerrors.IsTimeout(err) && ctx.Err() == nil {
		runLog.Warn("extraction timed out, retrying once", "error", err)
		rows, err = s.ex.Extract(ctx, extractor.ProfileCombined, scope)
	}
	return rows, err
}

// loadOnceRetried retries a timed-out record load exactly once.
func (s *Service) loadOnceRetried(ctx context.Context, rec domain.Interaction, runLog *logger.Logger) error {
	err := s.ld.Load(ctx, rec)
	if err != nil && pkgerrors.IsTimeout(err) && ctx.Err() == nil {
		runLog.Warn("record load timed out, retrying once", "user_id", rec.UserID, "action", rec.Action)
		err = s.ld.Load(ctx, rec)
	}
	return err
}
