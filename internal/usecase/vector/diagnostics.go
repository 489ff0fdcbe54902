package vector

import "sync/atomic"

// VectorSearchParams records the parameters and raw scores of the most
// recent search call. The record is process-wide and overwritten on every
// call: concurrent requests may observe another request's diagnostics. It
// exists for tests and operational inspection only and is never consulted
// for a correctness decision.
type VectorSearchParams struct {
	UsedNamespaces   []string
	PlateauTriggered bool
	StdDevThreshold  float64
	SpreadThreshold  float64
	Scores           map[string]float64
}

var lastSearch atomic.Pointer[VectorSearchParams]

// LastSearchParams returns the diagnostics of the most recent search call,
// or nil before the first call.
func LastSearchParams() *VectorSearchParams {
	return lastSearch.Load()
}

func recordSearch(p *VectorSearchParams) {
	lastSearch.Store(p)
}
