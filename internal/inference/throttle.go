package inference

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled waits on a shared limiter before every call, so backends
// sharing the limiter never exceed its rate together.
type Throttled struct {
	backend Backend
	limiter *rate.Limiter
}

func NewThrottled(backend Backend, limiter *rate.Limiter) *Throttled {
	return &Throttled{backend: backend, limiter: limiter}
}

func (t *Throttled) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", NewError(KindForTransport(err), t.backend.Name(), fmt.Errorf("limiter.Wait() > %w", err))
	}
	return t.backend.Complete(ctx, prompt)
}

func (t *Throttled) Name() string {
	return t.backend.Name()
}
