package ledger

import (
	"context"
	"sync"
)

// Recorder collects image-generation usage reported by tools during one exchange.
type Recorder struct {
	mu    sync.Mutex
	total ImageGeneration
}

func (r *Recorder) Add(g ImageGeneration) {
	r.mu.Lock()
	r.total = r.total.add(g)
	r.mu.Unlock()
}

// Drain returns the collected usage and resets the recorder.
func (r *Recorder) Drain() ImageGeneration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.total
	r.total = ImageGeneration{}
	return out
}

type recorderKey struct{}

func ContextWithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, r)
}

// RecordImageGeneration adds g to the recorder carried by ctx, if any.
func RecordImageGeneration(ctx context.Context, g ImageGeneration) {
	if r, ok := ctx.Value(recorderKey{}).(*Recorder); ok && r != nil {
		r.Add(g)
	}
}
