package testutil

import (
	"context"
	"fmt"
	"sync"
)

// FakeRunner replays queued outputs in order and records every script it
// was given.
type FakeRunner struct {
	mu      sync.Mutex
	outputs []string
	errs    []error
	Scripts []string
}

// NewFakeRunner queues outputs to be returned by successive Run calls.
func NewFakeRunner(outputs ...string) *FakeRunner {
	r := &FakeRunner{}
	for _, o := range outputs {
		r.Queue(o)
	}
	return r
}

// Queue appends an output.
func (r *FakeRunner) Queue(out string) *FakeRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs = append(r.outputs, out)
	r.errs = append(r.errs, nil)
	return r
}

// Fail appends an error result.
func (r *FakeRunner) Fail(err error) *FakeRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs = append(r.outputs, "")
	r.errs = append(r.errs, err)
	return r
}

// Run returns the next queued result. Running past the queue is an error.
func (r *FakeRunner) Run(ctx context.Context, script string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.Scripts = append(r.Scripts, script)
	if len(r.outputs) == 0 {
		return "", fmt.Errorf("fake runner: unexpected script #%d", len(r.Scripts))
	}
	out, err := r.outputs[0], r.errs[0]
	r.outputs, r.errs = r.outputs[1:], r.errs[1:]
	return out, err
}

// LastScript returns the most recent script, or "".
func (r *FakeRunner) LastScript() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Scripts) == 0 {
		return ""
	}
	return r.Scripts[len(r.Scripts)-1]
}
