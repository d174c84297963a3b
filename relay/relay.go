// Package relay submits pre-signed intents from a service-owned executor
// account so that clients never pay fees.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	paylink "github.com/paylink-foundation/paylink/go"
	"github.com/paylink-foundation/paylink/go/evm"
)

// DefaultMaxAttempts bounds the submission loop
const DefaultMaxAttempts = 30

// Outcome messages
const (
	MessageQueued          = "Transaction queued successfully"
	MessageExhausted       = "Failed to execute transaction. Please try again later."
	MessageEstimateFailed  = "The transaction could not be executed. Check the parameters and try again."
	messageInvalidType     = "Invalid transaction type: %s. Available options are: %s"
	messageArgumentCount   = "Incorrect argument count. Expected %d"
	messageInvalidArgument = "Invalid argument at index %d"
)

// Relay validates intents against a closed registry and submits them.
type Relay struct {
	registry    *Registry
	executor    evm.Submitter
	fees        paylink.FeeSource
	maxAttempts int
	backoff     func(attempt int) time.Duration
	dedup       *dedupStore
	logger      *zap.Logger

	beforeRelayHooks []BeforeRelayHook
	attemptHooks     []AttemptHook
	afterRelayHooks  []AfterRelayHook
}

// Option configures a Relay
type Option func(*Relay)

// WithMaxAttempts overrides the number of submission attempts
func WithMaxAttempts(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithBackoff sets a delay before each retry. attempt starts at 1 for the
// first retry. There is no delay by default.
func WithBackoff(backoff func(attempt int) time.Duration) Option {
	return func(r *Relay) {
		r.backoff = backoff
	}
}

// WithDeduplication replays successful outcomes of identical intents for ttl
// and makes concurrent duplicates wait for the first submission.
func WithDeduplication(ttl time.Duration) Option {
	return func(r *Relay) {
		r.dedup = newDedupStore(ttl)
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// New creates a relay submitting through executor with fees from fees.
func New(registry *Registry, executor evm.Submitter, fees paylink.FeeSource, opts ...Option) *Relay {
	r := &Relay{
		registry:    registry,
		executor:    executor,
		fees:        fees,
		maxAttempts: DefaultMaxAttempts,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ============================================================================
// Hook Registration Methods
// ============================================================================

// OnBeforeRelay registers a hook run after validation and before pricing
func (r *Relay) OnBeforeRelay(hook BeforeRelayHook) *Relay {
	r.beforeRelayHooks = append(r.beforeRelayHooks, hook)
	return r
}

// OnAttempt registers a hook run after every submission attempt
func (r *Relay) OnAttempt(hook AttemptHook) *Relay {
	r.attemptHooks = append(r.attemptHooks, hook)
	return r
}

// OnAfterRelay registers a hook run once an outcome is known
func (r *Relay) OnAfterRelay(hook AfterRelayHook) *Relay {
	r.afterRelayHooks = append(r.afterRelayHooks, hook)
	return r
}

// ============================================================================
// Relay
// ============================================================================

// Relay validates and submits an intent. Expected failures are reported in
// the outcome; the error is reserved for faults the caller cannot fix.
func (r *Relay) Relay(ctx context.Context, intent paylink.TransactionIntent) (paylink.RelayOutcome, error) {
	if r.registry == nil || r.executor == nil || r.fees == nil {
		return paylink.RelayOutcome{}, errors.New("relay is not configured")
	}
	if r.dedup == nil {
		return r.relay(ctx, intent)
	}

	key := IntentKey(intent)
	for {
		status, cached, done := r.dedup.checkAndMark(key)
		switch status {
		case statusCached:
			r.logger.Info("replaying outcome of identical intent", zap.String("key", key))
			return cached, nil
		case statusInFlight:
			if err := r.dedup.wait(ctx, done); err != nil {
				return paylink.RelayOutcome{}, err
			}
			continue
		}

		outcome, err := r.relay(ctx, intent)
		if err == nil && outcome.Succeeded {
			r.dedup.complete(key, outcome, done)
		} else {
			r.dedup.release(key, done)
		}
		return outcome, err
	}
}

func (r *Relay) relay(ctx context.Context, intent paylink.TransactionIntent) (paylink.RelayOutcome, error) {
	start := time.Now()
	hookCtx := RelayContext{Ctx: ctx, Intent: intent, Timestamp: start}
	logger := r.logger.With(zap.String("transactionType", intent.Type))
	attempts := 0

	finish := func(outcome paylink.RelayOutcome) (paylink.RelayOutcome, error) {
		resultCtx := RelayResultContext{RelayContext: hookCtx, Outcome: outcome, Attempts: attempts, Duration: time.Since(start)}
		for _, hook := range r.afterRelayHooks {
			if err := hook(resultCtx); err != nil {
				logger.Warn("after relay hook failed", zap.Error(err))
			}
		}
		return outcome, nil
	}

	op, calldata, rejection := r.validate(intent)
	if rejection != "" {
		logger.Info("intent rejected", zap.String("reason", rejection))
		return finish(paylink.RelayOutcome{Succeeded: false, Message: rejection})
	}

	for _, hook := range r.beforeRelayHooks {
		result, err := hook(hookCtx)
		if err != nil {
			return paylink.RelayOutcome{}, err
		}
		if result != nil && result.Abort {
			return finish(paylink.RelayOutcome{Succeeded: false, Message: result.Reason})
		}
	}

	call := evm.CallRequest{From: r.executor.Address(), To: op.Contract, Data: calldata}
	gas, err := r.executor.EstimateGas(ctx, call)
	if err != nil {
		logger.Error("gas estimation failed",
			zap.String("contract", op.Contract),
			zap.String("signature", op.Signature.Canonical()),
			zap.Error(err))
		return finish(paylink.RelayOutcome{Succeeded: false, Message: MessageEstimateFailed})
	}
	logger.Info("gas estimation completed", zap.Uint64("gas", gas))

	fees, err := r.fees.CurrentFees(ctx)
	if err != nil {
		logger.Error("failed to load fees", zap.Error(err))
		return paylink.RelayOutcome{}, err
	}

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 && r.backoff != nil {
			select {
			case <-time.After(r.backoff(attempt)):
			case <-ctx.Done():
				return paylink.RelayOutcome{}, ctx.Err()
			}
		}
		attempts++

		nonce, err := r.executor.PendingNonce(ctx)
		if err != nil {
			logger.Error("failed to read nonce", zap.Int("attempt", attempts), zap.Error(err))
			r.notifyAttempt(AttemptContext{RelayContext: hookCtx, Attempt: attempts, Error: err})
			continue
		}

		logger.Info("submitting transaction",
			zap.String("executor", r.executor.Address()),
			zap.Int("attempt", attempts),
			zap.Uint64("nonce", nonce),
			zap.String("maxFeePerGas", evm.FormatAmount(fees.MaxFeePerGas, 9)+" gwei"),
			zap.String("maxPriorityFeePerGas", evm.FormatAmount(fees.MaxPriorityFeePerGas, 9)+" gwei"))

		txHash, err := r.executor.SendTransaction(ctx, evm.TxRequest{
			To:                   op.Contract,
			Data:                 calldata,
			Nonce:                nonce,
			Gas:                  gas,
			MaxFeePerGas:         fees.MaxFeePerGas,
			MaxPriorityFeePerGas: fees.MaxPriorityFeePerGas,
		})
		r.notifyAttempt(AttemptContext{RelayContext: hookCtx, Attempt: attempts, Nonce: nonce, TxHash: txHash, Error: err})
		if err != nil {
			logger.Error("failed to send transaction", zap.Int("attempt", attempts), zap.Uint64("nonce", nonce), zap.Error(err))
			if ctx.Err() != nil {
				return paylink.RelayOutcome{}, ctx.Err()
			}
			continue
		}

		logger.Info("transaction sent", zap.String("txHash", txHash), zap.Uint64("nonce", nonce))
		return finish(paylink.RelayOutcome{Succeeded: true, Message: MessageQueued})
	}

	logger.Error("submission attempts exhausted", zap.Int("attempts", attempts))
	return finish(paylink.RelayOutcome{Succeeded: false, Message: MessageExhausted})
}

// validate checks the intent against the registry and encodes its calldata.
// A non-empty rejection is the message presented to the client.
func (r *Relay) validate(intent paylink.TransactionIntent) (Operation, []byte, string) {
	op, ok := r.registry.Lookup(intent.Type)
	if !ok {
		return Operation{}, nil, fmt.Sprintf(messageInvalidType, intent.Type, strings.Join(r.registry.Types(), ","))
	}

	if len(intent.Arguments) != len(op.Predicates) {
		return Operation{}, nil, fmt.Sprintf(messageArgumentCount, len(op.Predicates))
	}

	for i, arg := range intent.Arguments {
		if !op.Predicates[i](arg) {
			return Operation{}, nil, fmt.Sprintf(messageInvalidArgument, i)
		}
	}

	calldata, err := op.Signature.EncodeJSON(intent.Arguments)
	if err != nil {
		var argErr *evm.ArgumentError
		if errors.As(err, &argErr) {
			r.logger.Debug("argument does not fit its ABI type", zap.Int("index", argErr.Index), zap.Error(argErr.Err))
			return Operation{}, nil, fmt.Sprintf(messageInvalidArgument, argErr.Index)
		}
		r.logger.Debug("failed to encode intent", zap.Error(err))
		return Operation{}, nil, MessageEstimateFailed
	}
	return op, calldata, ""
}

func (r *Relay) notifyAttempt(ctx AttemptContext) {
	for _, hook := range r.attemptHooks {
		hook(ctx)
	}
}
