// Package progress tracks pipeline run state. A Tracker is an explicit
// object threaded through the pipeline stages, with an injectable sink for
// progress events and an injectable stop check for cooperative
// cancellation. No state is process-global.
package progress

import (
	"sync"
	"time"
)

// Stage identifies one pipeline stage.
type Stage string

const (
	StageDiscovery       Stage = "discovery"
	StageProfiles        Stage = "profiles"
	StageExtraction      Stage = "extraction"
	StageInfluencerCheck Stage = "influencer_check"
	StageOutreach        Stage = "outreach"
)

// stageOrder is the canonical stage sequence.
var stageOrder = []Stage{
	StageDiscovery,
	StageProfiles,
	StageExtraction,
	StageInfluencerCheck,
	StageOutreach,
}

// stageWeights maps each stage to its share of overall completion. The
// weights sum to 100.
var stageWeights = map[Stage]int{
	StageDiscovery:       15,
	StageProfiles:        25,
	StageExtraction:      25,
	StageInfluencerCheck: 20,
	StageOutreach:        15,
}

// Stages returns the canonical stage sequence.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Event is one progress report emitted by the tracker.
type Event struct {
	Stage     Stage     `json:"stage"`
	Detail    string    `json:"detail"`
	Completed bool      `json:"completed"`
	Percent   int       `json:"percent"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives progress events. Implementations must tolerate being
// called from a single goroutine only.
type Sink interface {
	Emit(Event)
}

// StopCheck reports whether the run should stop at the next stage
// boundary.
type StopCheck func() bool

// Tracker records stage transitions for one pipeline run.
type Tracker struct {
	mu        sync.Mutex
	sink      Sink
	stop      StopCheck
	completed map[Stage]bool
	now       func() time.Time
}

// NewTracker creates a Tracker. Both sink and stop may be nil; a nil sink
// discards events and a nil stop check never stops.
func NewTracker(sink Sink, stop StopCheck) *Tracker {
	return &Tracker{
		sink:      sink,
		stop:      stop,
		completed: make(map[Stage]bool, len(stageOrder)),
		now:       time.Now,
	}
}

// StageStarted reports that a stage began.
func (t *Tracker) StageStarted(stage Stage, detail string) {
	t.emit(stage, detail, false)
}

// StageCompleted reports that a stage finished and advances the overall
// completion percentage.
func (t *Tracker) StageCompleted(stage Stage, detail string) {
	t.mu.Lock()
	t.completed[stage] = true
	t.mu.Unlock()
	t.emit(stage, detail, true)
}

// Percent returns the overall completion percentage based on the weights
// of the completed stages.
func (t *Tracker) Percent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percentLocked()
}

func (t *Tracker) percentLocked() int {
	total := 0
	for stage, done := range t.completed {
		if done {
			total += stageWeights[stage]
		}
	}
	if total > 100 {
		total = 100
	}
	return total
}

// ShouldStop reports whether the injected stop check requests an exit.
// Stages call this between units of work, never mid-transaction.
func (t *Tracker) ShouldStop() bool {
	return t.stop != nil && t.stop()
}

func (t *Tracker) emit(stage Stage, detail string, completed bool) {
	if t.sink == nil {
		return
	}
	t.mu.Lock()
	event := Event{
		Stage:     stage,
		Detail:    detail,
		Completed: completed,
		Percent:   t.percentLocked(),
		Timestamp: t.now(),
	}
	t.mu.Unlock()
	t.sink.Emit(event)
}
