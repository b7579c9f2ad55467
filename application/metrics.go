package application

import "time"

// Metrics is the subset of the metrics provider the engine reports to.
// *observability.MetricsProvider satisfies it.
type Metrics interface {
	RecordRoundStarted()
	RecordRoundFinalized(winner string)
	RecordBetPlaced(side string, stake float64)
	RecordBetRejected(code string)
	RecordBetSettled(status string)
	RecordSettlementFailure()
	RecordSettlementDuration(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordRoundStarted()                    {}
func (noopMetrics) RecordRoundFinalized(string)            {}
func (noopMetrics) RecordBetPlaced(string, float64)        {}
func (noopMetrics) RecordBetRejected(string)               {}
func (noopMetrics) RecordBetSettled(string)                {}
func (noopMetrics) RecordSettlementFailure()               {}
func (noopMetrics) RecordSettlementDuration(time.Duration) {}
