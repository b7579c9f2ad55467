package observability

const (
	MetricPrefix = "teenpatti"
)

// Metric names
const (
	// Round metrics
	RoundsStartedTotal   = MetricPrefix + ".rounds.started_total"
	RoundsFinalizedTotal = MetricPrefix + ".rounds.finalized_total"

	// Bet metrics
	BetsPlacedTotal   = MetricPrefix + ".bets.placed_total"
	BetsRejectedTotal = MetricPrefix + ".bets.rejected_total"
	BetsSettledTotal  = MetricPrefix + ".bets.settled_total"
	StakeAmount       = MetricPrefix + ".bets.stake_amount"

	// Settlement metrics
	SettlementFailuresTotal = MetricPrefix + ".settlement.failures_total"
	SettlementDuration      = MetricPrefix + ".settlement.duration"

	// NATS metrics
	EventsPublishedTotal = MetricPrefix + ".nats.events_published_total"
)

// Label keys
const (
	LabelSide      = "side"
	LabelWinner    = "winner"
	LabelStatus    = "status"
	LabelErrorCode = "error_code"
	LabelEventType = "event_type"
)
