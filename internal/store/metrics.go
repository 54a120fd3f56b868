package store

import "time"

// Metrics captures store-level metric sinks.
type Metrics interface {
	IncDispatch(kind, outcome string)
	ObserveResolveDuration(kind string, d time.Duration, ok bool)
	SetCollectionSize(n int)
}

type noopMetrics struct{}

func (noopMetrics) IncDispatch(string, string)                         {}
func (noopMetrics) ObserveResolveDuration(string, time.Duration, bool) {}
func (noopMetrics) SetCollectionSize(int)                              {}
