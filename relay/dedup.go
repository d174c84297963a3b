package relay

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	paylink "github.com/paylink-foundation/paylink/go"
)

// DefaultDedupTTL is how long a successful outcome is replayed for identical intents
const DefaultDedupTTL = 10 * time.Minute

// dedupStatus is the result of checking the store
type dedupStatus int

const (
	// statusNotFound means no cached outcome and no in-flight relay.
	statusNotFound dedupStatus = iota
	// statusCached means a cached outcome was found.
	statusCached
	// statusInFlight means another caller is relaying the same intent.
	statusInFlight
)

// dedupStore keeps identical intents from being submitted twice. Successful
// outcomes are cached for a TTL and concurrent duplicates wait for the first.
type dedupStore struct {
	mu       sync.Mutex
	outcomes map[string]paylink.RelayOutcome
	expiry   map[string]time.Time
	inFlight map[string]chan struct{}
	ttl      time.Duration
}

func newDedupStore(ttl time.Duration) *dedupStore {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &dedupStore{
		outcomes: make(map[string]paylink.RelayOutcome),
		expiry:   make(map[string]time.Time),
		inFlight: make(map[string]chan struct{}),
		ttl:      ttl,
	}
}

// IntentKey hashes the compacted JSON form of an intent.
func IntentKey(intent paylink.TransactionIntent) string {
	h := sha256.New()
	h.Write([]byte(intent.Type))
	for _, arg := range intent.Arguments {
		var buf bytes.Buffer
		if err := json.Compact(&buf, arg); err != nil {
			buf.Reset()
			buf.Write(arg)
		}
		h.Write([]byte{0})
		h.Write(buf.Bytes())
	}
	return hex.EncodeToString(h.Sum(nil))
}

// checkAndMark atomically checks the store and marks key as in flight when
// the caller should proceed.
func (s *dedupStore) checkAndMark(key string) (dedupStatus, paylink.RelayOutcome, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, exists := s.expiry[key]; exists {
		if time.Now().Before(expiry) {
			return statusCached, s.outcomes[key], nil
		}
		delete(s.outcomes, key)
		delete(s.expiry, key)
	}

	if done, exists := s.inFlight[key]; exists {
		return statusInFlight, paylink.RelayOutcome{}, done
	}

	done := make(chan struct{})
	s.inFlight[key] = done
	return statusNotFound, paylink.RelayOutcome{}, done
}

// wait blocks until an in-flight relay completes or ctx ends.
func (s *dedupStore) wait(ctx context.Context, done chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// complete caches a successful outcome and releases waiters.
func (s *dedupStore) complete(key string, outcome paylink.RelayOutcome, done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outcomes[key] = outcome
	s.expiry[key] = time.Now().Add(s.ttl)
	delete(s.inFlight, key)
	close(done)

	now := time.Now()
	for k, expiry := range s.expiry {
		if now.After(expiry) {
			delete(s.outcomes, k)
			delete(s.expiry, k)
		}
	}
}

// release drops the in-flight marker without caching, so waiters retry.
func (s *dedupStore) release(key string, done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, key)
	close(done)
}
