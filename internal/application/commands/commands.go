package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/tjg323/recdotgov/internal/application/services"
)

// Result is the structured outcome every pipeline command returns to its
// caller. Partial success is representable: a fetch that lost some
// facilities still reports success with the summary in Data.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

const (
	// StatusSuccess marks a command that produced its artifact.
	StatusSuccess = "success"
	// StatusError marks a command that failed outright.
	StatusError = "error"
)

func errorResult(format string, args ...any) Result {
	return Result{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// Options bounds command execution and carries the defaults applied when a
// caller omits parameters.
type Options struct {
	ListPath        string
	DefaultLocation string
	DefaultDistance float64
	BuildTimeout    time.Duration
	FetchTimeout    time.Duration
}

// Pipeline is the command surface over the acquisition pipeline. External
// layers (CLI, agents) call it and consume its file outputs.
type Pipeline struct {
	candidates *services.CandidateService
	fetcher    *services.FetchService
	merger     *services.MergeService
	tracker    *services.CacheTracker
	opts       Options
	logger     zerolog.Logger
}

// NewPipeline wires the command surface from its services.
func NewPipeline(
	candidates *services.CandidateService,
	fetcher *services.FetchService,
	merger *services.MergeService,
	tracker *services.CacheTracker,
	opts Options,
	logger zerolog.Logger,
) *Pipeline {
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = 5 * time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Minute
	}
	return &Pipeline{
		candidates: candidates,
		fetcher:    fetcher,
		merger:     merger,
		tracker:    tracker,
		opts:       opts,
		logger:     logger,
	}
}

// BuildCandidateList builds and persists the candidate list unless a fresh
// one already exists for the same parameters.
func (p *Pipeline) BuildCandidateList(ctx context.Context, location string, maxDistance float64) Result {
	if maxDistance <= 0 {
		maxDistance = p.opts.DefaultDistance
	}
	trackedLocation := p.trackedLocation(location)

	if p.tracker.IsCandidateListFresh(trackedLocation, maxDistance) && fileExists(p.opts.ListPath) {
		return Result{
			Status:  StatusSuccess,
			Message: fmt.Sprintf("candidate list for %s within %.0f miles is fresh, skipping rebuild", trackedLocation, maxDistance),
			Data:    map[string]any{"path": p.opts.ListPath, "cached": true},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.BuildTimeout)
	defer cancel()

	list, err := p.candidates.Build(ctx, location, maxDistance)
	if err != nil {
		return errorResult("failed to build candidate list: %v", err)
	}
	if err := p.tracker.MarkCandidateListCached(trackedLocation, maxDistance); err != nil {
		p.logger.Warn().Err(err).Msg("failed to record candidate list in cache")
	}

	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("built candidate list with %d facilities", len(list.Records)),
		Data:    list,
	}
}

// FetchAvailability fetches the month for every candidate facility and
// merges the results. A fresh availability cache short-circuits the fetch.
func (p *Pipeline) FetchAvailability(ctx context.Context, month string, parallel bool) Result {
	if err := validateMonth(month); err != nil {
		return errorResult("%v", err)
	}

	if p.tracker.IsAvailabilityFresh(month) {
		return Result{
			Status:  StatusSuccess,
			Message: fmt.Sprintf("availability for %s is fresh, skipping fetch", month),
			Data:    map[string]any{"cached": true, "merged_path": p.merger.MergedPath(month)},
		}
	}

	if !fileExists(p.opts.ListPath) {
		p.logger.Info().Str("path", p.opts.ListPath).Msg("candidate list missing, building with defaults")
		if res := p.BuildCandidateList(ctx, "", p.opts.DefaultDistance); res.Status == StatusError {
			return res
		}
	}

	ids, err := services.LoadCandidateIDs(p.opts.ListPath)
	if err != nil {
		return errorResult("failed to read candidate list: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()

	summary, err := p.fetcher.Run(ctx, ids, month, parallel)
	if err != nil {
		return errorResult("fetch run failed: %v", err)
	}
	if summary.Aborted {
		return Result{
			Status:  StatusError,
			Message: fmt.Sprintf("fetch aborted at facility %s after %d of %d succeeded", summary.AbortedAt, summary.Succeeded, summary.Total),
			Data:    summary,
		}
	}

	mergeSummary, err := p.merger.Merge(month)
	if err != nil {
		return errorResult("merge failed: %v", err)
	}

	if summary.Failed == 0 {
		if err := p.tracker.MarkAvailabilityCached(month); err != nil {
			p.logger.Warn().Err(err).Msg("failed to record availability in cache")
		}
	}

	message := fmt.Sprintf("fetched %d of %d facilities, merged %d", summary.Succeeded, summary.Total, mergeSummary.Merged)
	if summary.Failed > 0 {
		message += fmt.Sprintf(" (%d downloads failed)", summary.Failed)
	}
	return Result{
		Status:  StatusSuccess,
		Message: message,
		Data: map[string]any{
			"fetch": summary,
			"merge": mergeSummary,
		},
	}
}

// CheckCacheStatus reports freshness for both artifact kinds.
func (p *Pipeline) CheckCacheStatus(ctx context.Context, location string, distance float64, month string) Result {
	if month != "" {
		if err := validateMonth(month); err != nil {
			return errorResult("%v", err)
		}
	}
	if distance <= 0 {
		distance = p.opts.DefaultDistance
	}
	trackedLocation := p.trackedLocation(location)

	data := map[string]any{
		"candidate_list_fresh": p.tracker.IsCandidateListFresh(trackedLocation, distance),
	}
	if month != "" {
		data["availability_fresh"] = p.tracker.IsAvailabilityFresh(month)
	}
	return Result{
		Status:  StatusSuccess,
		Message: p.tracker.Summary(trackedLocation, distance, month),
		Data:    data,
	}
}

// MergeAvailability re-runs the merge reducer for a month without fetching.
func (p *Pipeline) MergeAvailability(ctx context.Context, month string) Result {
	if err := validateMonth(month); err != nil {
		return errorResult("%v", err)
	}
	summary, err := p.merger.Merge(month)
	if err != nil {
		return errorResult("merge failed: %v", err)
	}
	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("merged %d of %d files for %s", summary.Merged, summary.Files, month),
		Data:    summary,
	}
}

func (p *Pipeline) trackedLocation(location string) string {
	if location == "" {
		return p.opts.DefaultLocation
	}
	return location
}

func validateMonth(month string) error {
	if _, err := time.Parse("2006-01", month); err != nil {
		return fmt.Errorf("invalid month %q, expected YYYY-MM", month)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
