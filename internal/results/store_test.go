package results

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/arterialgo/internal/config"
	"github.com/vk/arterialgo/internal/debugtap"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(freq float64) *Run {
	settings := config.DefaultSettings().WithFrequency(freq)
	return &Run{
		Settings: settings,
		Time:     []float64{0, 0.001, 0.002},
		Series: map[string][]float64{
			"P":           {80, 81.5, 83},
			"Q":           {0, -0.25, -0.5},
			"debug_2_Pi":  {1, 2, 3},
			"debug_2_-Fi": {-1, -2, -3},
		},
		Probes: []debugtap.Probe{
			{Segment: 2, Port: "Pi", Sink: "debug_2_Pi", Output: 0},
			{Segment: 2, Port: "-Fi", Sink: "debug_2_-Fi", Output: 3},
		},
	}
}

func TestStore_SaveAssignsSequentialLabels(t *testing.T) {
	s := newTestStore(t, MemoryPath)
	ctx := context.Background()

	first, second := sampleRun(1), sampleRun(2)
	require.NoError(t, s.Save(ctx, first))
	require.NoError(t, s.Save(ctx, second))

	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, "simulation_output_001", first.Label)
	assert.Equal(t, 2, second.Seq)
	assert.Equal(t, "simulation_output_002", second.Label)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEmpty(t, first.ID)
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t, MemoryPath)
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	in := sampleRun(1.5)
	require.NoError(t, s.Save(ctx, in))

	got, err := s.Get(ctx, in.Seq)
	require.NoError(t, err)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.ID, latest.ID)
}

func TestStore_RunDebugDB(t *testing.T) {
	s := newTestStore(t, MemoryPath)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleRun(1)))

	run, err := s.Latest(ctx)
	require.NoError(t, err)
	db, err := run.DebugDB()
	require.NoError(t, err)
	assert.Equal(t, []int{2}, db.Segments())
	assert.Equal(t, []float64{-1, -2, -3}, db[2]["-Fi"])
}

func TestStore_NotFound(t *testing.T) {
	s := newTestStore(t, MemoryPath)
	ctx := context.Background()

	_, err := s.Latest(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, sampleRun(1)))
	_, err = s.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_List(t *testing.T) {
	s := newTestStore(t, MemoryPath)
	ctx := context.Background()

	runs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	require.NoError(t, s.Save(ctx, sampleRun(1)))
	require.NoError(t, s.Save(ctx, sampleRun(2.5)))

	runs, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "simulation_output_001", runs[0].Label)
	assert.Equal(t, 2.5, runs[1].Frequency)
	assert.Equal(t, 3, runs[1].Samples)
	assert.Equal(t, 4, runs[1].Series)
}

func TestStore_RejectsMismatchedSeries(t *testing.T) {
	s := newTestStore(t, MemoryPath)
	run := sampleRun(1)
	run.Series["P"] = []float64{1}
	assert.ErrorContains(t, s.Save(context.Background(), run), `series "P" has 1 samples, want 3`)

	assert.ErrorContains(t, s.Save(context.Background(), &Run{}), "no samples")
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleRun(1)))
	require.NoError(t, s.Close())

	reopened := newTestStore(t, path)
	run := sampleRun(2)
	require.NoError(t, reopened.Save(ctx, run))
	assert.Equal(t, "simulation_output_002", run.Label)
}

func TestSeriesCodec(t *testing.T) {
	values := []float64{0, -1.5, 3.25e-9, 1e12}
	got, err := decodeSeries(encodeSeries(values))
	require.NoError(t, err)
	assert.Equal(t, values, got)

	empty, err := decodeSeries(encodeSeries(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = decodeSeries([]byte("not snappy at all"))
	assert.Error(t, err)
}
