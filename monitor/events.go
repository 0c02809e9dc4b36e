package monitor

import (
	"github.com/michaelpento.lv/arbwatch/arbitrage"
)

// EventKind discriminates monitor events.
type EventKind int

const (
	// EventOpportunity carries a profitable cycle.
	EventOpportunity EventKind = iota
	// EventWarning carries a non-fatal data error: a pair refresh failure,
	// a path dropped for missing data, or a fee-estimate failure.
	EventWarning
)

// WarningKind classifies non-fatal errors surfaced to listeners.
type WarningKind string

const (
	WarnPairRefresh WarningKind = "pair_refresh_failed"
	WarnMissingPair WarningKind = "missing_pair_data"
	WarnFeeEstimate WarningKind = "fee_estimate_failed"
)

// Warning describes one skipped pair or path within a tick.
type Warning struct {
	Kind  WarningKind
	Pair  string
	Path  string
	Block uint64
	Err   error
}

// Event is what the monitor emits to listeners. Exactly one of Opportunity
// and Warning is set, per Kind.
type Event struct {
	Kind        EventKind
	Opportunity *arbitrage.Opportunity
	Warning     *Warning
}
