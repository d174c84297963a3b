package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleDocument = []byte(`{"paymentLink":{"evmFallbackAddress":"0x1111111111111111111111111111111111111111","chains":{}}}`)

func sampleLocator(t *testing.T) (cid.Cid, string) {
	t.Helper()
	id, err := ComputeCID(sampleDocument)
	require.NoError(t, err)
	return id, FormatLocator(id)
}

func TestParseLocator(t *testing.T) {
	id, locator := sampleLocator(t)

	got, err := ParseLocator(locator)
	require.NoError(t, err)
	assert.True(t, got.Equals(id))
	assert.True(t, IsLocator("ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"))

	for _, bad := range []string{
		"",
		id.String(),
		"https://dweb.link/ipfs/" + id.String(),
		"ipfs://",
		"ipfs://not-a-cid",
	} {
		_, err := ParseLocator(bad)
		assert.ErrorIs(t, err, ErrInvalidLocator, bad)
	}
}

func TestVerify(t *testing.T) {
	id, _ := sampleLocator(t)
	assert.NoError(t, Verify(id, sampleDocument))
	assert.ErrorIs(t, Verify(id, []byte("tampered")), ErrCIDMismatch)

	// dag-pb content is served decoded by gateways and cannot be checked byte-for-byte
	v0, err := cid.Decode("QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG")
	require.NoError(t, err)
	assert.NoError(t, Verify(v0, []byte("anything")))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.Put(ctx, sampleDocument)
	require.NoError(t, err)
	second, err := store.Put(ctx, sampleDocument)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := store.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, sampleDocument, data)

	other, err := ComputeCID([]byte("other"))
	require.NoError(t, err)
	_, err = store.Get(ctx, FormatLocator(other))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, store.Has(other))

	_, err = store.Get(ctx, "not-a-locator")
	assert.ErrorIs(t, err, ErrInvalidLocator)
}

func TestGatewayFetch(t *testing.T) {
	id, _ := sampleLocator(t)

	t.Run("retries until the content is served", func(t *testing.T) {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/ipfs/"+id.String(), r.URL.Path)
			if atomic.AddInt32(&hits, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write(sampleDocument)
		}))
		defer server.Close()

		gateway := NewGateway(server.URL+"/", WithRetryInterval(5*time.Millisecond))
		assert.Equal(t, server.URL, gateway.URL())

		data, err := gateway.Fetch(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, sampleDocument, data)
		assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	})

	t.Run("does not retry mismatching content", func(t *testing.T) {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			_, _ = w.Write([]byte("tampered"))
		}))
		defer server.Close()

		gateway := NewGateway(server.URL, WithRetryInterval(5*time.Millisecond))
		_, err := gateway.Fetch(context.Background(), id)
		assert.ErrorIs(t, err, ErrCIDMismatch)
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})

	t.Run("stops when the context ends", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		gateway := NewGateway(server.URL, WithRetryInterval(5*time.Millisecond))
		_, err := gateway.Fetch(ctx, id)
		assert.Error(t, err)
	})
}

// fakeSource answers after delay, or blocks until its context ends when delay is negative.
type fakeSource struct {
	delay time.Duration
	data  []byte
	err   error
	done  chan struct{}
}

func (f *fakeSource) Fetch(ctx context.Context, id cid.Cid) ([]byte, error) {
	if f.done != nil {
		defer close(f.done)
	}
	if f.delay < 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	select {
	case <-time.After(f.delay):
		return f.data, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRace(t *testing.T) {
	_, locator := sampleLocator(t)

	t.Run("first success wins without waiting for slow gateways", func(t *testing.T) {
		slowA := &fakeSource{delay: -1}
		slowB := &fakeSource{delay: -1}
		fast := &fakeSource{delay: 20 * time.Millisecond, data: sampleDocument}
		race := NewRace([]Fetcher{slowA, fast, slowB})

		start := time.Now()
		data, err := race.Get(context.Background(), locator)
		require.NoError(t, err)
		assert.Equal(t, sampleDocument, data)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("all sources failing", func(t *testing.T) {
		race := NewRace([]Fetcher{
			&fakeSource{err: errors.New("boom")},
			&fakeSource{err: ErrNotFound},
		})
		_, err := race.Get(context.Background(), locator)
		assert.ErrorIs(t, err, ErrAllGatewaysFailed)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("overall timeout covers all sources", func(t *testing.T) {
		race := NewRace([]Fetcher{&fakeSource{delay: -1}, &fakeSource{delay: -1}},
			WithRaceTimeout(30*time.Millisecond))
		start := time.Now()
		_, err := race.Get(context.Background(), locator)
		assert.ErrorIs(t, err, ErrAllGatewaysFailed)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("losing branches are not cancelled by the winner", func(t *testing.T) {
		loser := &fakeSource{delay: 80 * time.Millisecond, data: sampleDocument, done: make(chan struct{})}
		winner := &fakeSource{delay: 5 * time.Millisecond, data: sampleDocument}
		race := NewRace([]Fetcher{winner, loser}, WithRaceTimeout(5*time.Second))

		_, err := race.Get(context.Background(), locator)
		require.NoError(t, err)

		select {
		case <-loser.done:
		case <-time.After(2 * time.Second):
			t.Fatal("losing branch did not complete")
		}
	})

	t.Run("rejects malformed locators", func(t *testing.T) {
		race := NewRace([]Fetcher{&fakeSource{data: sampleDocument}})
		_, err := race.Get(context.Background(), "https://example.com")
		assert.ErrorIs(t, err, ErrInvalidLocator)
	})

	t.Run("over HTTP gateways", func(t *testing.T) {
		good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(sampleDocument)
		}))
		defer good.Close()
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer bad.Close()

		race := NewGatewayRace([]string{bad.URL, good.URL},
			[]GatewayOption{WithRetryInterval(10 * time.Millisecond)},
			WithRaceTimeout(2*time.Second))
		data, err := race.Get(context.Background(), locator)
		require.NoError(t, err)
		assert.Equal(t, sampleDocument, data)
	})
}

func TestPublisher(t *testing.T) {
	id, locator := sampleLocator(t)

	t.Run("uploads with bearer token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/upload", r.URL.Path)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, sampleDocument, body)

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"ok":    true,
				"value": map[string]string{"cid": id.String()},
			})
		}))
		defer server.Close()

		publisher := NewPublisher(PublisherConfig{BaseURL: server.URL, Token: "secret"})
		got, err := publisher.Put(context.Background(), sampleDocument)
		require.NoError(t, err)
		assert.Equal(t, locator, got)
	})

	t.Run("surfaces service errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"ok":false,"error":{"name":"HTTPError","message":"invalid token"}}`)
		}))
		defer server.Close()

		publisher := NewPublisher(PublisherConfig{BaseURL: server.URL})
		_, err := publisher.Put(context.Background(), sampleDocument)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "invalid token"))
	})

	t.Run("rejects a cid that does not address the upload", func(t *testing.T) {
		other, err := ComputeCID([]byte("other"))
		require.NoError(t, err)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"ok":true,"value":{"cid":%q}}`, other.String())
		}))
		defer server.Close()

		publisher := NewPublisher(PublisherConfig{BaseURL: server.URL})
		_, err = publisher.Put(context.Background(), sampleDocument)
		assert.ErrorIs(t, err, ErrCIDMismatch)
	})
}

func TestStore(t *testing.T) {
	id, locator := sampleLocator(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprintf(w, `{"ok":true,"value":{"cid":%q}}`, id.String())
			return
		}
		_, _ = w.Write(sampleDocument)
	}))
	defer server.Close()

	store := NewStore(
		NewPublisher(PublisherConfig{BaseURL: server.URL}),
		NewGatewayRace([]string{server.URL}, nil, WithRaceTimeout(2*time.Second)),
	)

	got, err := store.Put(context.Background(), sampleDocument)
	require.NoError(t, err)
	assert.Equal(t, locator, got)

	data, err := store.Get(context.Background(), got)
	require.NoError(t, err)
	assert.Equal(t, sampleDocument, data)
}
