package entities

import (
	"encoding/json"
	"time"
)

// AvailabilityPayload is the raw per-facility, per-month response body.
// The pipeline treats it as opaque beyond requiring valid JSON.
type AvailabilityPayload = json.RawMessage

// MergedAvailability maps facility id to that facility's availability payload
// for a single month.
type MergedAvailability map[string]AvailabilityPayload

// FetchSummary is the aggregate outcome of one fetch run.
type FetchSummary struct {
	RunID     string        `json:"run_id"`
	Month     string        `json:"month"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Aborted   bool          `json:"aborted"`
	AbortedAt string        `json:"aborted_at,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// MergeSummary reports what the merge reducer did with the per-facility files
// it found.
type MergeSummary struct {
	Month      string `json:"month"`
	Files      int    `json:"files"`
	Merged     int    `json:"merged"`
	Skipped    int    `json:"skipped"`
	OutputPath string `json:"output_path"`
}
