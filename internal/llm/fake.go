package llm

import (
	"context"
	"sync"
	"time"
)

// FakeResult is one scripted Complete outcome.
type FakeResult struct {
	Text string
	Err  error
}

// FakeCall records the prompts of one Complete invocation.
type FakeCall struct {
	System string
	User   string
}

// Fake is a scripted Provider for testing without real API calls.
// Results are consumed in order; when the script is exhausted the last
// entry repeats.
type Fake struct {
	mu     sync.Mutex
	script []FakeResult
	calls  []FakeCall
	delay  time.Duration
}

// NewFake creates a Fake that plays back the given script. An empty
// script answers every call with a canned completion.
func NewFake(script ...FakeResult) *Fake {
	return &Fake{script: script}
}

// WithDelay makes every Complete call block for d before answering,
// honoring context cancellation while it waits.
func (f *Fake) WithDelay(d time.Duration) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
	return f
}

// Complete implements Provider.Complete.
func (f *Fake) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{System: systemPrompt, User: userPrompt})
	res := FakeResult{Text: "fake completion"}
	if len(f.script) > 0 {
		res = f.script[min(len(f.calls), len(f.script))-1]
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", classify(ctx.Err())
		case <-time.After(delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return "", classify(err)
	}
	return res.Text, res.Err
}

// Name implements Provider.Name.
func (f *Fake) Name() string {
	return "fake"
}

// Model implements Provider.Model.
func (f *Fake) Model() string {
	return "fake-model"
}

// Calls returns the recorded invocations.
func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall{}, f.calls...)
}

var _ Provider = (*Fake)(nil)
