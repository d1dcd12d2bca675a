package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Emit(e Event) { r.events = append(r.events, e) }

func TestTrackerPercentAdvancesWithStages(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink, nil)

	assert.Equal(t, 0, tracker.Percent())

	tracker.StageStarted(StageDiscovery, "looking up hashtags")
	tracker.StageCompleted(StageDiscovery, "42 accounts")
	assert.Equal(t, 15, tracker.Percent())

	tracker.StageCompleted(StageProfiles, "")
	tracker.StageCompleted(StageExtraction, "")
	assert.Equal(t, 65, tracker.Percent())

	tracker.StageCompleted(StageInfluencerCheck, "")
	tracker.StageCompleted(StageOutreach, "")
	assert.Equal(t, 100, tracker.Percent())

	require.Len(t, sink.events, 6)
	assert.False(t, sink.events[0].Completed)
	assert.Equal(t, 0, sink.events[0].Percent)
	assert.True(t, sink.events[1].Completed)
	assert.Equal(t, 15, sink.events[1].Percent)
	assert.Equal(t, 100, sink.events[5].Percent)
}

func TestTrackerRepeatedCompletionIsIdempotent(t *testing.T) {
	tracker := NewTracker(nil, nil)
	tracker.StageCompleted(StageDiscovery, "")
	tracker.StageCompleted(StageDiscovery, "")
	assert.Equal(t, 15, tracker.Percent())
}

func TestTrackerNilSinkAndStop(t *testing.T) {
	tracker := NewTracker(nil, nil)
	tracker.StageStarted(StageDiscovery, "")
	assert.False(t, tracker.ShouldStop())
}

func TestStageWeightsCoverAllStages(t *testing.T) {
	total := 0
	for _, stage := range Stages() {
		weight, ok := stageWeights[stage]
		require.True(t, ok, "stage %s has no weight", stage)
		total += weight
	}
	assert.Equal(t, 100, total)
}

func TestFileSinkWritesStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "status.json")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	sink.Emit(Event{
		Stage:     StageExtraction,
		Detail:    "12 bios",
		Percent:   40,
		Timestamp: time.Now(),
	})

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc status
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, StageExtraction, doc.Stage)
	assert.Equal(t, "12 bios", doc.Detail)
	assert.Equal(t, 40, doc.Percent)
	assert.False(t, doc.StartedAt.IsZero())
	require.Len(t, doc.Recent, 1)
	assert.Contains(t, doc.Recent[0], "extraction: 12 bios")

	// No temp file is left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, sink.Remove())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileSinkBoundsRecentLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	for i := 0; i < recentLimit+10; i++ {
		sink.Emit(Event{
			Stage:     StageProfiles,
			Detail:    fmt.Sprintf("batch %d", i),
			Timestamp: time.Now(),
		})
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc status
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Recent, recentLimit)
	assert.Contains(t, doc.Recent[len(doc.Recent)-1], fmt.Sprintf("batch %d", recentLimit+9))
	assert.Contains(t, doc.Recent[0], "batch 10")
}

func TestControlFileStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "control.txt")
	stop := ControlFileStop(path)

	assert.False(t, stop(), "missing control file keeps running")

	require.NoError(t, os.WriteFile(path, []byte("run\n"), 0644))
	assert.False(t, stop())

	require.NoError(t, os.WriteFile(path, []byte("  STOP \n"), 0644))
	assert.True(t, stop())
}
