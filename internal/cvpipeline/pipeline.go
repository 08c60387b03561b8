package cvpipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nightpath/internal/cv"
	"nightpath/internal/monitoring"
	"nightpath/internal/nperr"
	"nightpath/internal/timeutil"
)

const component = "cvpipeline.Pipeline"

// fpsWindowSize is the number of inter-frame intervals the moving-average
// FPS estimator retains.
const fpsWindowSize = 30

// maxBacklogBeforeDrop is the queue depth that, combined with a measured
// FPS below target, triggers a freshness-preserving drop of stale frames.
const maxBacklogBeforeDrop = 2

// Config bounds a Pipeline's behavior.
type Config struct {
	TargetFPS             float64
	MaxQueueDepth         int
	ConsecutiveErrorLimit int
	EnableHazardDetection bool
	EnableContrastMap     bool
}

type queuedFrame struct {
	frame       cv.Frame
	future      *FrameFuture
	submittedAt time.Time
}

// Pipeline serializes frame processing through a single FIFO queue. There
// is no standing worker goroutine: whichever ProcessFrame call finds the
// pipeline idle becomes the drainer for itself and anything concurrently
// queued behind it, which is what makes a call "suspend" when the
// pipeline is already busy — it waits on its own future instead.
type Pipeline struct {
	mu    sync.Mutex
	state State
	cfg   Config
	clock timeutil.Clock

	queue    chan *queuedFrame
	draining bool
	shutdown bool
	fatal    error

	intervals         []time.Duration
	intervalCursor    int
	hasLastCompletion bool
	lastCompletion    time.Time

	consecutiveErrors int
}

// New builds a pipeline in the Uninitialized state.
func New(clock timeutil.Clock) *Pipeline {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Pipeline{state: StateUninitialized, clock: clock}
}

// Initialize transitions Uninitialized -> Initialized. Calling it again
// on an already-initialized pipeline is a no-op.
func (p *Pipeline) Initialize(cfg Config) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateUninitialized {
		return
	}
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = 4
	}
	if cfg.ConsecutiveErrorLimit <= 0 {
		cfg.ConsecutiveErrorLimit = 5
	}
	p.cfg = cfg
	p.queue = make(chan *queuedFrame, cfg.MaxQueueDepth*4)
	p.state = StateInitialized
}

// State reports the pipeline's current lifecycle stage.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ProcessFrame submits a frame for processing. The first caller to find
// the pipeline not already draining its queue processes every frame
// currently queued — including its own — in FIFO order and returns its
// own Result synchronously. A caller that arrives while draining is
// already underway is handed a FrameFuture instead.
func (p *Pipeline) ProcessFrame(frame cv.Frame) (*Result, *FrameFuture, error) {
	if err := frame.Validate(); err != nil {
		return nil, nil, err
	}

	p.mu.Lock()
	if p.state == StateUninitialized {
		p.mu.Unlock()
		return nil, nil, nperr.New(nperr.KindInvalidArgument, component, "processFrame called before initialize")
	}
	if p.shutdown {
		p.mu.Unlock()
		return nil, nil, nperr.New(nperr.KindCancelled, component, "pipeline has been shut down")
	}
	if p.fatal != nil {
		err := p.fatal
		p.mu.Unlock()
		return nil, nil, err
	}
	becomeDrainer := !p.draining
	if becomeDrainer {
		p.draining = true
		p.state = StateProcessing
	}
	p.mu.Unlock()

	qf := &queuedFrame{frame: frame, future: newFrameFuture(), submittedAt: p.clock.Now()}
	p.enqueue(qf)

	if !becomeDrainer {
		return nil, qf.future, nil
	}

	p.drain()

	result, err := qf.future.Wait(context.Background())
	if err != nil {
		return nil, nil, err
	}
	return &result, nil, nil
}

// drain processes every frame in the queue, in FIFO order, until the
// queue is observed empty under lock — closing the window where a
// concurrent submitter's frame would otherwise be left stranded.
func (p *Pipeline) drain() {
	for {
		p.mu.Lock()
		var qf *queuedFrame
		select {
		case qf = <-p.queue:
		default:
		}
		if qf == nil {
			p.draining = false
			if p.fatal == nil && !p.shutdown {
				p.state = StateIdle
			}
			p.mu.Unlock()
			return
		}
		fatal := p.fatal
		p.mu.Unlock()

		if fatal != nil {
			qf.future.fail(fatal)
			continue
		}

		result, err := p.processOne(qf.frame, qf.submittedAt)
		if err != nil {
			qf.future.fail(err)
		} else {
			qf.future.deliver(result)
		}
	}
}

// enqueue applies the backpressure rule before pushing qf: when the
// measured FPS is below target and more than two frames are already
// waiting, every waiting frame but the newest is dropped with
// QueueDropped so the freshest frame always wins.
func (p *Pipeline) enqueue(qf *queuedFrame) {
	measured := p.measuredFPS()
	belowTarget := measured >= 0 && measured < p.targetFPS()
	if belowTarget && len(p.queue) > maxBacklogBeforeDrop {
		var newest *queuedFrame
	drainBacklog:
		for {
			select {
			case waiting := <-p.queue:
				if newest != nil {
					newest.future.fail(nperr.New(nperr.KindQueueDropped, component, "dropped to preserve freshness under backpressure"))
				}
				newest = waiting
			default:
				break drainBacklog
			}
		}
		if newest != nil {
			p.queue <- newest
		}
	}
	p.queue <- qf
}

func (p *Pipeline) targetFPS() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.TargetFPS
}

// measuredFPS derives the current FPS from the moving-average inter-frame
// interval. With fewer than two samples, the pipeline has no evidence of
// being behind, so callers treat it as healthy rather than below target.
func (p *Pipeline) measuredFPS() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.intervals) < 2 {
		return -1
	}
	var total time.Duration
	for _, d := range p.intervals {
		total += d
	}
	mean := total / time.Duration(len(p.intervals))
	if mean <= 0 {
		return -1
	}
	return float64(time.Second) / float64(mean)
}

func (p *Pipeline) recordCompletion(at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hasLastCompletion {
		gap := at.Sub(p.lastCompletion)
		if len(p.intervals) < fpsWindowSize {
			p.intervals = append(p.intervals, gap)
		} else {
			p.intervals[p.intervalCursor] = gap
			p.intervalCursor = (p.intervalCursor + 1) % fpsWindowSize
		}
	}
	p.lastCompletion = at
	p.hasLastCompletion = true
}

// processOne runs the enabled sub-steps against frame. Hazard-classifier
// and contrast-map failures are isolated: logged, counted, and replaced
// with an empty artifact so the frame still produces a result. Reaching
// the consecutive-failure limit escalates to Fatal and poisons the
// pipeline for every subsequent frame.
func (p *Pipeline) processOne(frame cv.Frame, submittedAt time.Time) (Result, error) {
	hist, err := cv.ComputeHistogram(frame)
	if err != nil {
		return Result{}, err
	}
	shadow, err := cv.DetectShadows(frame, hist)
	if err != nil {
		return Result{}, err
	}

	result := Result{Histogram: hist, Shadow: shadow, SubmittedAt: submittedAt}

	substepFailed := false

	p.mu.Lock()
	enableContrast := p.cfg.EnableContrastMap
	enableHazard := p.cfg.EnableHazardDetection
	queueLen := len(p.queue)
	p.mu.Unlock()

	if enableContrast {
		cm, err := cv.ComputeContrastMap(frame)
		if err != nil {
			monitoring.Event(monitoring.SeverityWarning, component, "contrast map failed: %v (frame %dx%d, queue %d)", err, frame.Width, frame.Height, queueLen)
			result.ContrastFailed = true
			substepFailed = true
		} else {
			result.ContrastMap = cm
		}
	}

	if enableHazard {
		hazards, err := cv.ClassifyHazards(frame)
		if err != nil {
			monitoring.Event(monitoring.SeverityWarning, component, "hazard classification failed: %v (frame %dx%d, queue %d)", err, frame.Width, frame.Height, queueLen)
			result.HazardFailed = true
			substepFailed = true
		} else {
			result.Hazards = hazards
		}
	}

	completedAt := p.clock.Now()
	result.CompletedAt = completedAt
	p.recordCompletion(completedAt)

	p.mu.Lock()
	if substepFailed {
		p.consecutiveErrors++
		if p.consecutiveErrors >= p.cfg.ConsecutiveErrorLimit {
			fatal := nperr.New(nperr.KindFatal, component, fmt.Sprintf("%d consecutive frame failures", p.consecutiveErrors)).WithFrame(frame.Width, frame.Height, len(p.queue))
			p.fatal = fatal
			p.mu.Unlock()
			return Result{}, fatal
		}
	} else {
		p.consecutiveErrors = 0
	}
	p.mu.Unlock()

	return result, nil
}

// Shutdown rejects every queued frame with a stable Cancelled error and
// refuses further submissions. It is idempotent.
func (p *Pipeline) Shutdown() {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}
	p.shutdown = true
	p.mu.Unlock()

drainQueue:
	for {
		select {
		case qf := <-p.queue:
			qf.future.fail(nperr.New(nperr.KindCancelled, component, "pipeline shut down"))
		default:
			break drainQueue
		}
	}

	p.mu.Lock()
	p.state = StateUninitialized
	p.mu.Unlock()
}
