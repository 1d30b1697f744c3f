// Package metrics records request, retry and stage telemetry for a sync run.
package metrics

import "time"

// Collector receives telemetry from the fetcher and the pipeline stages.
//
// Implementations must be safe for concurrent use; enrichment workers call
// RecordRequest and RecordMiss from many goroutines.
type Collector interface {
	// RecordRequest records one HTTP attempt. code is 0 for transport errors.
	RecordRequest(op string, code int, latency time.Duration)
	// RecordRetry records a rate-limit backoff before a repeated attempt.
	RecordRetry(op string, delay time.Duration)
	// RecordMiss records an enrichment or verification omission.
	RecordMiss(stage, reason string)
	// SetStageItems reports how many items a stage produced.
	SetStageItems(stage string, n int)
	// ObserveStage records how long a stage took.
	ObserveStage(stage string, d time.Duration)
	// RecordMirror records the outcome of a post-publish mirror write.
	RecordMirror(name string, ok bool)
}

// Nop discards all telemetry.
type Nop struct{}

var _ Collector = Nop{}

// NewNop returns a collector that records nothing.
func NewNop() Nop { return Nop{} }

func (Nop) RecordRequest(string, int, time.Duration) {}
func (Nop) RecordRetry(string, time.Duration)        {}
func (Nop) RecordMiss(string, string)                {}
func (Nop) SetStageItems(string, int)                {}
func (Nop) ObserveStage(string, time.Duration)       {}
func (Nop) RecordMirror(string, bool)                {}
