package services_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tjg323/recdotgov/internal/application/services"
	"github.com/tjg323/recdotgov/internal/domain/entities"
	"github.com/tjg323/recdotgov/internal/domain/providers"
)

// fakeAvailabilityClient serves canned payloads and records call counts.
type fakeAvailabilityClient struct {
	mu        sync.Mutex
	calls     map[string]int
	responses map[string]error
}

func newFakeClient(failures map[string]error) *fakeAvailabilityClient {
	return &fakeAvailabilityClient{calls: map[string]int{}, responses: failures}
}

func (f *fakeAvailabilityClient) FetchMonth(ctx context.Context, facilityID, month string) (entities.AvailabilityPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[facilityID]++
	if err, ok := f.responses[facilityID]; ok {
		return nil, err
	}
	return entities.AvailabilityPayload(fmt.Sprintf(`{"facility":%q}`, facilityID)), nil
}

func (f *fakeAvailabilityClient) callCount(facilityID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[facilityID]
}

func newFetchService(dir string, client providers.AvailabilityClient, workers int) *services.FetchService {
	factory := func() providers.AvailabilityClient { return client }
	return services.NewFetchService(factory, dir, workers, 0, zerolog.Nop())
}

func TestRun_SequentialFetchesAll(t *testing.T) {
	dir := t.TempDir()
	client := newFakeClient(nil)
	svc := newFetchService(dir, client, 1)

	summary, err := svc.Run(context.Background(), []string{"A", "B"}, "2025-08", false)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Zero(t, summary.Failed)
	assert.False(t, summary.Aborted)
	assert.FileExists(t, filepath.Join(dir, "avail_A.json"))
	assert.FileExists(t, filepath.Join(dir, "avail_B.json"))
}

func TestRun_IdempotentSkipMakesNoNetworkCall(t *testing.T) {
	dir := t.TempDir()
	existing := []byte(`{"cached":true}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "avail_A.json"), existing, 0o644))

	client := newFakeClient(nil)
	svc := newFetchService(dir, client, 1)

	summary, err := svc.Run(context.Background(), []string{"A"}, "2025-08", false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Zero(t, client.callCount("A"))

	content, err := os.ReadFile(filepath.Join(dir, "avail_A.json"))
	require.NoError(t, err)
	assert.Equal(t, existing, content)
}

func TestRun_SequentialAbortsOnRateLimit(t *testing.T) {
	dir := t.TempDir()
	client := newFakeClient(map[string]error{"B": entities.ErrRateLimited})
	svc := newFetchService(dir, client, 1)

	summary, err := svc.Run(context.Background(), []string{"A", "B", "C"}, "2025-08", false)
	require.NoError(t, err)

	assert.True(t, summary.Aborted)
	assert.Equal(t, "B", summary.AbortedAt)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	// A was persisted before the abort; C was never attempted.
	assert.FileExists(t, filepath.Join(dir, "avail_A.json"))
	assert.NoFileExists(t, filepath.Join(dir, "avail_C.json"))
	assert.Zero(t, client.callCount("C"))
}

func TestRun_ParallelCountsFailuresWithoutAborting(t *testing.T) {
	dir := t.TempDir()
	client := newFakeClient(map[string]error{
		"B": entities.ErrRateLimited,
		"D": &entities.UpstreamError{Op: "availability", Err: fmt.Errorf("status 500")},
	})
	svc := newFetchService(dir, client, 4)

	summary, err := svc.Run(context.Background(), []string{"A", "B", "C", "D", "E"}, "2025-08", true)
	require.NoError(t, err)

	assert.False(t, summary.Aborted)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.FileExists(t, filepath.Join(dir, "avail_A.json"))
	assert.FileExists(t, filepath.Join(dir, "avail_C.json"))
	assert.FileExists(t, filepath.Join(dir, "avail_E.json"))
	assert.NoFileExists(t, filepath.Join(dir, "avail_B.json"))
}

func TestRun_LeavesNoTempFilesOnSuccess(t *testing.T) {
	dir := t.TempDir()
	client := newFakeClient(nil)
	svc := newFetchService(dir, client, 1)

	_, err := svc.Run(context.Background(), []string{"A", "B"}, "2025-08", false)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestRun_ResumesPartialRun(t *testing.T) {
	dir := t.TempDir()
	client := newFakeClient(nil)
	svc := newFetchService(dir, client, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "avail_A.json"), []byte(`{"done":1}`), 0o644))

	summary, err := svc.Run(context.Background(), []string{"A", "B"}, "2025-08", false)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Zero(t, client.callCount("A"))
	assert.Equal(t, 1, client.callCount("B"))
}
