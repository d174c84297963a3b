package relay

import (
	"context"
	"time"

	paylink "github.com/paylink-foundation/paylink/go"
)

// ============================================================================
// Relay Hook Context Types
// ============================================================================

// RelayContext contains information passed to relay hooks
type RelayContext struct {
	Ctx       context.Context
	Intent    paylink.TransactionIntent
	Timestamp time.Time
}

// AttemptContext describes a single submission attempt
type AttemptContext struct {
	RelayContext
	Attempt int
	Nonce   uint64
	TxHash  string
	Error   error
}

// RelayResultContext contains the relay outcome and context
type RelayResultContext struct {
	RelayContext
	Outcome  paylink.RelayOutcome
	Attempts int
	Duration time.Duration
}

// ============================================================================
// Relay Hook Result Types
// ============================================================================

// BeforeHookResult represents the result of a "before" hook
// If Abort is true, the intent is rejected with the given Reason
type BeforeHookResult struct {
	Abort  bool
	Reason string
}

// ============================================================================
// Relay Hook Function Types
// ============================================================================

// BeforeRelayHook is called after an intent passed validation and before it is priced.
// If it returns a result with Abort=true, the intent is rejected with the provided reason
type BeforeRelayHook func(RelayContext) (*BeforeHookResult, error)

// AttemptHook is called after every submission attempt
type AttemptHook func(AttemptContext)

// AfterRelayHook is called once an outcome has been produced
// Any error returned will be logged but will not affect the outcome
type AfterRelayHook func(RelayResultContext) error
