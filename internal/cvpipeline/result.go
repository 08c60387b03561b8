package cvpipeline

import (
	"context"
	"time"

	"nightpath/internal/cv"
)

// Result is the complete per-frame output: the mandatory brightness
// histogram and shadow report, plus the contrast map and hazard list when
// those stages are enabled and succeed. A sub-step that failed or was
// disabled leaves its field at its zero value rather than failing the
// whole frame.
type Result struct {
	Histogram      cv.BrightnessHistogram
	Shadow         cv.ShadowReport
	ContrastMap    cv.ContrastMap
	Hazards        []cv.HazardDetection
	SubmittedAt    time.Time
	CompletedAt    time.Time
	HazardFailed   bool
	ContrastFailed bool
}

// FrameFuture is a thin wrapper over a buffered result channel, returned
// by ProcessFrame when the pipeline is already busy. Exactly one value is
// ever delivered.
type FrameFuture struct {
	ch  chan Result
	err chan error
}

func newFrameFuture() *FrameFuture {
	return &FrameFuture{ch: make(chan Result, 1), err: make(chan error, 1)}
}

func (f *FrameFuture) deliver(result Result) {
	f.ch <- result
}

func (f *FrameFuture) fail(err error) {
	f.err <- err
}

// Wait blocks until the frame this future represents completes, or ctx is
// done, or a terminal pipeline error (QueueDropped, Fatal, Cancelled)
// claims the slot instead.
func (f *FrameFuture) Wait(ctx context.Context) (Result, error) {
	select {
	case r := <-f.ch:
		return r, nil
	case err := <-f.err:
		return Result{}, err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
