package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ent0n29/salesbot/internal/sales"
)

type fakeEngines map[string]*sales.Engine

func (f fakeEngines) Engine(id string) (*sales.Engine, error) {
	e, ok := f[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	return e, nil
}

func newEngines() fakeEngines {
	return fakeEngines{"s1": sales.NewEngine(sales.WithChooser(func(int) int { return 0 }))}
}

func TestNewAdapterAutoWithoutURLUsesEngine(t *testing.T) {
	a, err := NewAdapter(Config{Mode: "auto"}, newEngines())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	resp, err := a.Complete(context.Background(), Request{SessionID: "s1", Message: "hey there"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Source != SourceEngine || resp.Reply == nil {
		t.Fatalf("resp = %+v, want engine reply", resp)
	}
	if !strings.Contains(resp.Text, "biggest bottleneck") {
		t.Fatalf("unexpected response text: %q", resp.Text)
	}
}

func TestNewAdapterModes(t *testing.T) {
	if _, err := NewAdapter(Config{Mode: "http"}, newEngines()); err == nil {
		t.Fatalf("http mode without url should fail")
	}
	if _, err := NewAdapter(Config{Mode: "gpt"}, newEngines()); err == nil {
		t.Fatalf("unknown mode should fail")
	}
	if _, err := NewAdapter(Config{Mode: "engine"}, nil); err == nil {
		t.Fatalf("missing engine source should fail")
	}
	a, err := NewAdapter(Config{Mode: "HTTP", HTTPURL: "http://example.test"}, newEngines())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	if _, ok := a.(*FallbackAdapter); !ok {
		t.Fatalf("http mode adapter = %T, want *FallbackAdapter", a)
	}
}

func TestHTTPAdapterSendsChatPayload(t *testing.T) {
	var got chatPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"from the model"}`))
	}))
	defer ts.Close()

	a := NewHTTPAdapter(ts.URL, time.Second)
	resp, err := a.Complete(context.Background(), Request{
		Message: "hi",
		History: []Message{{Role: "user", Content: "earlier"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "from the model" || resp.Source != SourceLLM {
		t.Fatalf("resp = %+v", resp)
	}
	if got.Message != "hi" || len(got.ConversationHistory) != 1 || got.ConversationHistory[0].Content != "earlier" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestFallbackOnPrimaryFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server-error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"rate-limited", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "slow down", http.StatusTooManyRequests)
		}},
		{"malformed", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>oops</html>"))
		}},
		{"empty-message", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"message":"  "}`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			var primaryErrs int
			a := NewFallbackAdapter(NewHTTPAdapter(ts.URL, 50*time.Millisecond), NewEngineAdapter(newEngines()))
			a.OnPrimaryError(func(error) { primaryErrs++ })

			resp, err := a.Complete(context.Background(), Request{SessionID: "s1", Message: "what's your pricing?"})
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if resp.Source != SourceEngine {
				t.Fatalf("Source = %q, want %q", resp.Source, SourceEngine)
			}
			if resp.Reply == nil || resp.Reply.Analysis.Intent != sales.IntentPricingInquiry {
				t.Fatalf("Reply = %+v, want pricing analysis", resp.Reply)
			}
			if primaryErrs != 1 {
				t.Fatalf("primary error hook calls = %d, want 1", primaryErrs)
			}
		})
	}
}

func TestFallbackAdapterSkipsFallbackOnCanceledContext(t *testing.T) {
	fb := &countingAdapter{text: "fallback"}
	a := NewFallbackAdapter(cancelAdapter{}, fb)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Complete(ctx, Request{Message: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if fb.calls != 0 {
		t.Fatalf("fallback should not be called, calls = %d", fb.calls)
	}
}

func TestFallbackAdapterReportsBothErrors(t *testing.T) {
	a := NewFallbackAdapter(errAdapter{}, NewEngineAdapter(fakeEngines{}))
	_, err := a.Complete(context.Background(), Request{SessionID: "missing", Message: "x"})
	if err == nil || !strings.Contains(err.Error(), "fallback adapter error") {
		t.Fatalf("error = %v, want combined error", err)
	}
}

func TestHTTPAdapterRetriesRetryableStatus(t *testing.T) {
	prevBase := retryBaseDelay
	retryBaseDelay = time.Millisecond
	defer func() { retryBaseDelay = prevBase }()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"text":"second try"}`))
	}))
	defer ts.Close()

	a := newHTTPAdapter(Config{HTTPURL: ts.URL, HTTPTimeout: time.Second, MaxRetries: 2})
	resp, err := a.Complete(context.Background(), Request{Message: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "second try" || calls.Load() != 2 {
		t.Fatalf("resp = %+v, calls = %d", resp, calls.Load())
	}
}

func TestHTTPAdapterDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer ts.Close()

	a := newHTTPAdapter(Config{HTTPURL: ts.URL, HTTPTimeout: time.Second, MaxRetries: 3})
	if _, err := a.Complete(context.Background(), Request{Message: "hi"}); err == nil {
		t.Fatalf("Complete() expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestConsumeStreamingSSE(t *testing.T) {
	stream := strings.NewReader(strings.Join([]string{
		": keepalive",
		"",
		"data: {\"delta\":\"Hel\"}",
		"",
		"data: {\"delta\":\"lo\"}",
		"",
		"data: [DONE]",
		"",
	}, "\n"))

	got, err := consumeStreaming(stream)
	if err != nil {
		t.Fatalf("consumeStreaming() error = %v", err)
	}
	if got != "Hello" {
		t.Fatalf("consumeStreaming() = %q, want %q", got, "Hello")
	}
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&statusError{code: 503}, "status_503"},
		{fmt.Errorf("send request: %w", context.DeadlineExceeded), "timeout"},
		{errEmptyReply, "empty_reply"},
		{fmt.Errorf("%w: bad json", errMalformedReply), "malformed"},
		{errors.New("connection refused"), "transport"},
	}
	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Fatalf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

type errAdapter struct{}

func (errAdapter) Complete(context.Context, Request) (Response, error) {
	return Response{}, errors.New("boom")
}

type cancelAdapter struct{}

func (cancelAdapter) Complete(context.Context, Request) (Response, error) {
	return Response{}, context.Canceled
}

type countingAdapter struct {
	text  string
	calls int
}

func (a *countingAdapter) Complete(context.Context, Request) (Response, error) {
	a.calls++
	return Response{Text: a.text}, nil
}
