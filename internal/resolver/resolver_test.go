package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	xerrors "RICA-Assistant/internal/errors"
	"RICA-Assistant/internal/llm"
)

type stubLLM struct {
	replies []string
	err     error
	wait    time.Duration
	calls   []llm.Request
}

func (s *stubLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	idx := len(s.calls) - 1
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	return &llm.Response{Reply: s.replies[idx]}, nil
}

func TestResolveTwoStagePipeline(t *testing.T) {
	client := &stubLLM{replies: []string{"draft answer", "final answer"}}
	r := New(client)

	result, err := r.Resolve(context.Background(), "Siam", "how do I deploy?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Response != "final answer" {
		t.Fatalf("unexpected response: %q", result.Response)
	}
	if result.OriginalQuery != "how do I deploy?" {
		t.Fatalf("original query altered: %q", result.OriginalQuery)
	}
	if len(client.calls) != 2 {
		t.Fatalf("expected draft and review calls, got %d", len(client.calls))
	}
	if !strings.Contains(client.calls[1].Prompt, "draft answer") {
		t.Fatalf("review prompt must carry the draft, got %q", client.calls[1].Prompt)
	}
}

func TestResolveWithoutReviewStage(t *testing.T) {
	client := &stubLLM{replies: []string{"draft answer"}}
	r := New(client, WithReviewStage(false))

	result, err := r.Resolve(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Response != "draft answer" {
		t.Fatalf("unexpected response: %q", result.Response)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected a single draft call, got %d", len(client.calls))
	}
}

func TestResolveEmptyInquiry(t *testing.T) {
	client := &stubLLM{replies: []string{"never"}}
	r := New(client)

	_, err := r.Resolve(context.Background(), "Siam", "   ")
	if err == nil {
		t.Fatalf("expected error for empty inquiry")
	}
	if xerrors.CodeOf(err) != xerrors.CodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %s", xerrors.CodeOf(err))
	}
	if len(client.calls) != 0 {
		t.Fatalf("resolver must not be invoked for empty inquiry")
	}
}

func TestResolveDefaultInquirer(t *testing.T) {
	client := &stubLLM{replies: []string{"answer"}}
	r := New(client, WithReviewStage(false), WithDefaultInquirer("Siam"))

	if _, err := r.Resolve(context.Background(), "", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(client.calls[0].Prompt, "Siam just reached out") {
		t.Fatalf("expected default inquirer in prompt, got %q", client.calls[0].Prompt)
	}
}

func TestResolveUpstreamFailure(t *testing.T) {
	client := &stubLLM{err: errors.New("connection refused")}
	r := New(client)

	_, err := r.Resolve(context.Background(), "Siam", "hello")
	if err == nil {
		t.Fatalf("expected upstream failure")
	}
	if xerrors.CodeOf(err) != xerrors.CodeUpstreamUnavailable {
		t.Fatalf("expected UPSTREAM_UNAVAILABLE, got %s", xerrors.CodeOf(err))
	}
}

func TestResolveTimeout(t *testing.T) {
	client := &stubLLM{replies: []string{"late"}, wait: 50 * time.Millisecond}
	r := New(client, WithLLMTimeout(10*time.Millisecond))

	_, err := r.Resolve(context.Background(), "Siam", "hello")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if xerrors.CodeOf(err) != xerrors.CodeTimeout {
		t.Fatalf("expected TIMEOUT, got %s", xerrors.CodeOf(err))
	}
}
