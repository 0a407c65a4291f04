package models

import "errors"

// Error taxonomy for the consumed operations. Adapters wrap these so the
// orchestrator can classify failures with errors.Is.
var (
	ErrFetch     = errors.New("fetch failed")
	ErrOracle    = errors.New("decision oracle failed")
	ErrExecution = errors.New("order execution failed")
	ErrConfig    = errors.New("endpoint misconfigured")
)
