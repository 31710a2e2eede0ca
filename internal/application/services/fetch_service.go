package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tjg323/recdotgov/internal/domain/entities"
	"github.com/tjg323/recdotgov/internal/domain/providers"
)

const availFilePrefix = "avail_"

// ClientFactory creates an availability client. Clients are not shared across
// concurrent workers, so the parallel runner calls this once per worker.
type ClientFactory func() providers.AvailabilityClient

// FetchService drives per-facility availability fetches either sequentially
// with human-like pacing and fail-fast semantics, or through a bounded worker
// pool that counts failures without cancelling in-flight work.
type FetchService struct {
	newClient ClientFactory
	outputDir string
	workers   int
	baseDelay time.Duration
	logger    zerolog.Logger
	sleep     func(time.Duration)
}

// NewFetchService creates a fetch service writing per-facility files under
// outputDir.
func NewFetchService(newClient ClientFactory, outputDir string, workers int, baseDelay time.Duration, logger zerolog.Logger) *FetchService {
	if workers <= 0 {
		workers = 1
	}
	return &FetchService{
		newClient: newClient,
		outputDir: outputDir,
		workers:   workers,
		baseDelay: baseDelay,
		logger:    logger,
		sleep:     time.Sleep,
	}
}

// runner is one orchestration strategy over a candidate id list.
type runner interface {
	runAll(ctx context.Context, ids []string, month, runID string) entities.FetchSummary
}

// Run fetches availability for every candidate id using the selected
// strategy. The returned summary reports partial success; only the
// sequential strategy aborts early.
func (s *FetchService) Run(ctx context.Context, ids []string, month string, parallel bool) (entities.FetchSummary, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return entities.FetchSummary{}, fmt.Errorf("failed to create output dir %s: %w", s.outputDir, err)
	}

	runID := uuid.New().String()
	var r runner
	if parallel {
		r = &parallelRunner{svc: s}
	} else {
		r = &sequentialRunner{svc: s}
	}

	start := time.Now()
	summary := r.runAll(ctx, ids, month, runID)
	summary.RunID = runID
	summary.Month = month
	summary.Elapsed = time.Since(start)

	s.logger.Info().
		Str("run_id", runID).
		Str("month", month).
		Bool("parallel", parallel).
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Bool("aborted", summary.Aborted).
		Dur("elapsed", summary.Elapsed).
		Msg("fetch run finished")
	return summary, nil
}

// OutputPath returns the final per-facility file path for a facility id.
func (s *FetchService) OutputPath(facilityID string) string {
	return filepath.Join(s.outputDir, availFilePrefix+facilityID+".json")
}

// fetchOne fetches a single facility's month, persisting atomically. An
// existing non-empty output file satisfies the call without any network I/O.
func (s *FetchService) fetchOne(ctx context.Context, client providers.AvailabilityClient, facilityID, month string) error {
	final := s.OutputPath(facilityID)
	tmp := final + ".tmp"

	if info, err := os.Stat(final); err == nil && info.Size() > 0 {
		s.logger.Debug().Str("facility", facilityID).Msg("already fetched, skipping")
		return nil
	}

	payload, err := client.FetchMonth(ctx, facilityID, month)
	if err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize %s: %w", final, err)
	}
	return nil
}

// sequentialRunner walks the ids in list order over one shared client,
// sleeping a jittered delay between requests and aborting the whole run on
// the first failure. A failure here usually means a rate-limit or block
// event that continued traffic would only worsen.
type sequentialRunner struct {
	svc *FetchService
}

func (r *sequentialRunner) runAll(ctx context.Context, ids []string, month, runID string) entities.FetchSummary {
	s := r.svc
	summary := entities.FetchSummary{Total: len(ids)}
	client := s.newClient()

	for i, id := range ids {
		if ctx.Err() != nil {
			summary.Aborted = true
			summary.AbortedAt = id
			return summary
		}

		err := s.fetchOne(ctx, client, id, month)
		if err != nil {
			summary.Failed++
			summary.Aborted = true
			summary.AbortedAt = id
			event := s.logger.Error().Err(err).Str("run_id", runID).Str("facility", id)
			if errors.Is(err, entities.ErrRateLimited) {
				event.Msg("rate limited, aborting sequential run")
			} else {
				event.Msg("fetch failed, aborting sequential run")
			}
			return summary
		}
		summary.Succeeded++
		s.logger.Info().
			Str("run_id", runID).
			Str("facility", id).
			Str("progress", fmt.Sprintf("%d/%d", i+1, len(ids))).
			Msg("fetched")

		if i < len(ids)-1 {
			s.sleep(jitteredDelay(s.baseDelay))
		}
	}
	return summary
}

// parallelRunner fans the ids out to a bounded pool where every worker owns
// its own client. Failures are counted, never fatal: with many sessions in
// flight a single 429 is much less diagnostic than in sequential mode.
type parallelRunner struct {
	svc *FetchService
}

func (r *parallelRunner) runAll(ctx context.Context, ids []string, month, runID string) entities.FetchSummary {
	s := r.svc
	var succeeded, failed, done int64

	idChan := make(chan string, len(ids))
	for _, id := range ids {
		idChan <- id
	}
	close(idChan)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := s.newClient()
			for id := range idChan {
				err := s.fetchOne(ctx, client, id, month)
				n := atomic.AddInt64(&done, 1)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					s.logger.Error().Err(err).
						Str("run_id", runID).
						Str("facility", id).
						Str("progress", fmt.Sprintf("%d/%d", n, len(ids))).
						Msg("fetch failed")
					continue
				}
				atomic.AddInt64(&succeeded, 1)
				s.logger.Info().
					Str("run_id", runID).
					Str("facility", id).
					Str("progress", fmt.Sprintf("%d/%d", n, len(ids))).
					Msg("fetched")
			}
		}()
	}
	wg.Wait()

	summary := entities.FetchSummary{
		Total:     len(ids),
		Succeeded: int(succeeded),
		Failed:    int(failed),
	}
	if summary.Failed > 0 {
		s.logger.Warn().
			Str("run_id", runID).
			Int("failed", summary.Failed).
			Msg("some downloads failed")
	}
	return summary
}
