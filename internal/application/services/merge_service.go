package services

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tjg323/recdotgov/internal/domain/entities"
)

const mergedFilePrefix = "all_avail_"

// MergeService consolidates the per-facility availability files of a month
// into one mapping artifact. Unreadable entries are skipped and counted,
// never fatal.
type MergeService struct {
	outputDir string
	destDir   string
	logger    zerolog.Logger
}

// NewMergeService creates a merger scanning outputDir and writing the merged
// artifact under destDir.
func NewMergeService(outputDir, destDir string, logger zerolog.Logger) *MergeService {
	return &MergeService{outputDir: outputDir, destDir: destDir, logger: logger}
}

// MergedPath returns the merged artifact path for a month.
func (s *MergeService) MergedPath(month string) string {
	return filepath.Join(s.destDir, mergedFilePrefix+month+".json")
}

// Merge scans, validates and consolidates the per-facility files. Zero files
// produce an empty mapping, which is valid: it distinguishes "nothing fetched
// yet" from a failed fetch.
func (s *MergeService) Merge(month string) (entities.MergeSummary, error) {
	summary := entities.MergeSummary{Month: month, OutputPath: s.MergedPath(month)}

	files, err := filepath.Glob(filepath.Join(s.outputDir, availFilePrefix+"*.json"))
	if err != nil {
		return summary, fmt.Errorf("failed to scan %s: %w", s.outputDir, err)
	}
	sort.Strings(files)
	summary.Files = len(files)

	merged := entities.MergedAvailability{}
	for _, path := range files {
		name := filepath.Base(path)

		info, err := os.Stat(path)
		if err != nil {
			summary.Skipped++
			s.logger.Warn().Err(err).Str("file", name).Msg("skipping unreadable file during merge")
			continue
		}
		if info.Size() == 0 {
			summary.Skipped++
			s.logger.Warn().Str("file", name).Msg("skipping empty file during merge")
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			summary.Skipped++
			s.logger.Warn().Err(err).Str("file", name).Msg("skipping unreadable file during merge")
			continue
		}
		if !json.Valid(data) {
			summary.Skipped++
			s.logger.Warn().Str("file", name).Msg("skipping invalid JSON file during merge")
			continue
		}

		facilityID := strings.TrimSuffix(strings.TrimPrefix(name, availFilePrefix), ".json")
		merged[facilityID] = entities.AvailabilityPayload(data)
	}
	summary.Merged = len(merged)

	err = writeFileAtomic(summary.OutputPath, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(merged)
	})
	if err != nil {
		return summary, err
	}

	s.logger.Info().
		Str("month", month).
		Int("files", summary.Files).
		Int("merged", summary.Merged).
		Int("skipped", summary.Skipped).
		Str("path", summary.OutputPath).
		Msg("merged availability written")
	return summary, nil
}
