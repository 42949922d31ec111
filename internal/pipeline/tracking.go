package pipeline

import (
	"sync"
	"time"
)

// StageMetrics tracks one run stage
type StageMetrics struct {
	StageName  string        `json:"stage_name"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    *time.Time    `json:"end_time,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	InCount    int           `json:"in_count"`
	OutCount   int           `json:"out_count"`
	ErrorCount int           `json:"error_count"`
}

// RunMetrics tracks one generation run end to end
type RunMetrics struct {
	Generated          int                     `json:"generated"`
	Accepted           int                     `json:"accepted"`
	Rejected           int                     `json:"rejected"`
	FieldsInCatalog    int                     `json:"fields_in_catalog"`
	OperatorsInCatalog int                     `json:"operators_in_catalog"`
	ProcessingTime     time.Duration           `json:"processing_time"`
	StageMetrics       map[string]StageMetrics `json:"stage_metrics"`
}

// RunTracker accumulates metrics while a run executes. Validation
// workers can report concurrently, hence the mutex.
type RunTracker struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	Status    string

	metrics RunMetrics
	mu      sync.RWMutex
}

// NewRunTracker creates a tracker for one generation run
func NewRunTracker(runID string) *RunTracker {
	return &RunTracker{
		RunID:     runID,
		StartTime: time.Now(),
		Status:    "running",
		metrics: RunMetrics{
			StageMetrics: make(map[string]StageMetrics),
		},
	}
}

// StartStage records a stage start and returns the start time for the
// store's progress row.
func (t *RunTracker) StartStage(stage string, inCount int) time.Time {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.StageMetrics[stage] = StageMetrics{
		StageName: stage,
		StartTime: now,
		InCount:   inCount,
	}
	return now
}

// EndStage closes out a stage and returns the end time.
func (t *RunTracker) EndStage(stage string, outCount, errorCount int) time.Time {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.metrics.StageMetrics[stage]
	m.EndTime = &now
	m.Duration = now.Sub(m.StartTime)
	m.OutCount = outCount
	m.ErrorCount = errorCount
	t.metrics.StageMetrics[stage] = m
	return now
}

// SetCatalogSize records the catalog dimensions
func (t *RunTracker) SetCatalogSize(fields, operators int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.FieldsInCatalog = fields
	t.metrics.OperatorsInCatalog = operators
}

// SetGenerated records the number of generated expressions
func (t *RunTracker) SetGenerated(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.Generated = n
}

// SetAccepted records the validation outcome counts
func (t *RunTracker) SetAccepted(accepted, rejected int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.Accepted = accepted
	t.metrics.Rejected = rejected
}

// Finish stamps the run's terminal status and total duration
func (t *RunTracker) Finish(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.EndTime = time.Now()
	t.Status = status
	t.metrics.ProcessingTime = t.EndTime.Sub(t.StartTime)
}

// Snapshot returns a copy of the current metrics
func (t *RunTracker) Snapshot() RunMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snapshot := t.metrics
	snapshot.StageMetrics = make(map[string]StageMetrics, len(t.metrics.StageMetrics))
	for name, m := range t.metrics.StageMetrics {
		snapshot.StageMetrics[name] = m
	}
	return snapshot
}
