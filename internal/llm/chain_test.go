package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type stubProvider struct {
	name  string
	calls int
	fn    func(call int) (string, error)
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(_ context.Context, _ Request) (string, error) {
	s.calls++
	return s.fn(s.calls)
}

func fastRetry(n int) RetryPolicy {
	return RetryPolicy{MaxAttempts: n, BaseDelay: time.Millisecond, Multiplier: 1.5}
}

func TestChain_PrimaryAnswers(t *testing.T) {
	gemini := &stubProvider{name: "gemini", fn: func(int) (string, error) { return "from gemini", nil }}
	groq := &stubProvider{name: "groq", fn: func(int) (string, error) { return "from groq", nil }}

	c := NewChain(nil, Tier{Provider: gemini, Retry: fastRetry(3)}, Tier{Provider: groq, Retry: fastRetry(3)})
	ans, err := c.Ask(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Source != "gemini" || ans.Fallback {
		t.Fatalf("expected primary answer, got %+v", ans)
	}
	if groq.calls != 0 {
		t.Fatalf("secondary tier should not be called")
	}
}

func TestChain_RetriesThenFallsBackToGroq(t *testing.T) {
	gemini := &stubProvider{name: "gemini", fn: func(int) (string, error) {
		return "", &StatusError{Provider: "gemini", StatusCode: http.StatusServiceUnavailable}
	}}
	groq := &stubProvider{name: "groq", fn: func(call int) (string, error) {
		if call == 1 {
			return "", errors.New("connection reset")
		}
		return "from groq", nil
	}}

	c := NewChain(nil, Tier{Provider: gemini, Retry: fastRetry(3)}, Tier{Provider: groq, Retry: fastRetry(3)})
	ans, err := c.Ask(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gemini.calls != 3 {
		t.Fatalf("expected gemini to be tried 3 times, got %d", gemini.calls)
	}
	if ans.Source != "groq" || !ans.Fallback {
		t.Fatalf("expected groq fallback, got %+v", ans)
	}
	if len(ans.Trace) != 2 || ans.Trace[0].Attempts != 3 || ans.Trace[1].Attempts != 2 {
		t.Fatalf("unexpected trace %+v", ans.Trace)
	}
	if ans.Trace[0].Error == "" || ans.Trace[1].Error != "" {
		t.Fatalf("expected error only on failed tier, got %+v", ans.Trace)
	}
}

func TestChain_DegradesToLocal(t *testing.T) {
	local, err := NewLocalProvider()
	if err != nil {
		t.Fatalf("load local: %v", err)
	}
	gemini := &stubProvider{name: "gemini", fn: func(int) (string, error) { return "", ErrMissingAPIKey }}
	groq := &stubProvider{name: "groq", fn: func(int) (string, error) { return "   ", nil }}

	c := NewChain(local, Tier{Provider: gemini, Retry: fastRetry(3)}, Tier{Provider: groq, Retry: fastRetry(2)})
	ans, err := c.Ask(context.Background(), Request{Question: "I have a fever", Prompt: "ignored"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Source != "local" || !ans.Fallback {
		t.Fatalf("expected local answer, got %+v", ans)
	}
	if gemini.calls != 1 {
		t.Fatalf("missing key should not be retried, got %d calls", gemini.calls)
	}
	if groq.calls != 2 {
		t.Fatalf("blank answers should be retried, got %d calls", groq.calls)
	}
	if ans.Text == "" {
		t.Fatalf("expected canned text")
	}
}

func TestChain_NoTiersUsesLastResort(t *testing.T) {
	c := NewChain(nil)
	ans, err := c.Ask(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Source != "none" || ans.Text != lastResort {
		t.Fatalf("expected last resort answer, got %+v", ans)
	}
}

func TestChain_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gemini := &stubProvider{name: "gemini", fn: func(int) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	groq := &stubProvider{name: "groq", fn: func(int) (string, error) { return "from groq", nil }}

	c := NewChain(nil, Tier{Provider: gemini, Retry: fastRetry(3)}, Tier{Provider: groq, Retry: fastRetry(3)})
	if _, err := c.Ask(ctx, Request{Question: "q"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if groq.calls != 0 {
		t.Fatalf("should not fall through after cancellation")
	}
}
