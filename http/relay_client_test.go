package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	paylink "github.com/paylink-foundation/paylink/go"
)

type failingTokenSource struct{}

func (failingTokenSource) Token(context.Context) (string, error) {
	return "", errors.New("challenge not solved")
}

func TestRelayClientQueue(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if got := r.Header.Get(RecaptchaHeader); got != "solved" {
			t.Errorf("Expected recaptcha token 'solved', got %q", got)
		}

		var intent paylink.TransactionIntent
		if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if intent.Type != "subscribe" {
			t.Errorf("Expected transactionType subscribe, got %s", intent.Type)
		}
		if len(intent.Arguments) != 2 {
			t.Errorf("Expected 2 arguments, got %d", len(intent.Arguments))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Response{Status: true, Message: "Transaction queued successfully"})
	}))
	defer server.Close()

	client := NewRelayClient(RelayClientConfig{URL: server.URL, TokenSource: StaticToken("solved")})

	intent, err := paylink.NewIntent("subscribe", "0x01", 5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	message, err := client.Queue(ctx, intent)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if message != "Transaction queued successfully" {
		t.Errorf("Unexpected message %q", message)
	}
}

func TestRelayClientQueueRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(Response{Error: ErrorExecution, Message: "Incorrect argument count. Expected 4"})
	}))
	defer server.Close()

	client := NewRelayClient(RelayClientConfig{URL: server.URL, TokenSource: StaticToken("t")})

	_, err := client.Queue(context.Background(), paylink.TransactionIntent{Type: "register"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if err.Error() != "EXECUTION_ERROR: Incorrect argument count. Expected 4" {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestRelayClientQueueNonJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	client := NewRelayClient(RelayClientConfig{URL: server.URL})

	_, err := client.Queue(context.Background(), paylink.TransactionIntent{Type: "register"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if err.Error() != "relay failed (502): bad gateway" {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestRelayClientTokenSourceFailure(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewRelayClient(RelayClientConfig{URL: server.URL, TokenSource: failingTokenSource{}})

	if _, err := client.Queue(context.Background(), paylink.TransactionIntent{Type: "register"}); err == nil {
		t.Fatal("Expected error")
	}
	if called {
		t.Error("Expected no request without a token")
	}
}

func TestRelayClientAgainstServer(t *testing.T) {
	relayer := &fakeRelayer{outcome: paylink.RelayOutcome{Message: "Invalid transaction type: mint. Available options are: register,subscribe"}}
	server := httptest.NewServer(NewRelayServer(relayer, WithCaptcha(fakeCaptcha{valid: true})).Handler())
	defer server.Close()

	client := NewRelayClient(RelayClientConfig{URL: server.URL + "/relay", TokenSource: StaticToken("t")})

	_, err := client.Queue(context.Background(), paylink.TransactionIntent{Type: "mint"})
	if err == nil {
		t.Fatal("Expected error")
	}
	want := "EXECUTION_ERROR: Invalid transaction type: mint. Available options are: register,subscribe"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestRecaptchaVerifier(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr bool
	}{
		{name: "accepted", status: http.StatusOK, body: `{"success":true}`, want: true},
		{name: "rejected", status: http.StatusOK, body: `{"success":false,"error-codes":["invalid-input-response"]}`},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantErr: true},
		{name: "garbled", status: http.StatusOK, body: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Fatalf("Failed to parse form: %v", err)
				}
				want := url.Values{"secret": {"s3cret"}, "response": {"tok"}, "remoteip": {"10.0.0.1"}}
				for k, v := range want {
					if r.PostForm.Get(k) != v[0] {
						t.Errorf("Expected %s=%s, got %s", k, v[0], r.PostForm.Get(k))
					}
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			verifier := NewRecaptchaVerifier(RecaptchaConfig{Secret: "s3cret", URL: server.URL})
			got, err := verifier.Verify(context.Background(), "tok", "10.0.0.1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPermissiveVerifier(t *testing.T) {
	ok, err := NewPermissiveVerifier(nil).Verify(context.Background(), "", "")
	if err != nil || !ok {
		t.Errorf("Expected permissive verifier to accept, got %v, %v", ok, err)
	}
}
