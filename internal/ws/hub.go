package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/shogun-panel/panel/internal/executor"
	"github.com/shogun-panel/panel/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultStopTimeout = 5 * time.Second

// Option configures a broadcaster.
type Option func(*hub)

// WithTelemetry records capture and delivery metrics and traces.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(h *hub) { h.tel = t }
}

// WithStopTimeout bounds how long Stop waits for the loop to exit.
func WithStopTimeout(d time.Duration) Option {
	return func(h *hub) {
		if d > 0 {
			h.stopTimeout = d
		}
	}
}

// BroadcasterStatus is the runtime view of one broadcaster.
type BroadcasterStatus struct {
	Name        string         `json:"name"`
	Running     bool           `json:"running"`
	Subscribers int            `json:"subscribers"`
	IntervalMS  int64          `json:"interval_ms"`
	Streak      int            `json:"no_change_streak"`
	Health      HealthSnapshot `json:"health"`
}

// hub is the machinery shared by both broadcaster variants: the subscriber
// set, the sense loop lifecycle and the capture bookkeeping. mu also guards
// the variant's snapshot so a subscription and a publish pass never
// interleave.
type hub struct {
	name        string
	exec        *executor.Executor
	poller      *Poller
	health      *captureHealth
	tel         *telemetry.Telemetry
	stopTimeout time.Duration
	now         func() time.Time

	mu   sync.Mutex
	subs map[Subscriber]struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (h *hub) init(name string, exec *executor.Executor, poller *Poller, opts []Option) {
	h.name = name
	h.exec = exec
	h.poller = poller
	h.health = newCaptureHealth()
	h.stopTimeout = defaultStopTimeout
	h.now = time.Now
	h.subs = make(map[Subscriber]struct{})
	for _, opt := range opts {
		opt(h)
	}
}

func (h *hub) Name() string { return h.name }

// Poller exposes the broadcaster's interval state.
func (h *hub) Poller() *Poller { return h.poller }

// start launches the loop. Calling it on a running hub does nothing.
func (h *hub) start(step func(context.Context) (bool, error)) {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	if h.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.run(ctx, h.done, step)
	log.Printf("%s started", h.name)
}

// Stop cancels the loop and waits for it to exit, at most stopTimeout.
// Calling it on a stopped hub does nothing.
func (h *hub) Stop() {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	if h.cancel == nil {
		return
	}
	h.cancel()
	select {
	case <-h.done:
	case <-time.After(h.stopTimeout):
		log.Printf("%s: loop did not exit within %v", h.name, h.stopTimeout)
	}
	h.cancel = nil
	h.done = nil
	log.Printf("%s stopped", h.name)
}

// Running reports whether the loop is active.
func (h *hub) Running() bool {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	return h.cancel != nil
}

func (h *hub) run(ctx context.Context, done chan struct{}, step func(context.Context) (bool, error)) {
	defer close(done)
	for {
		var wait time.Duration
		changed, err := step(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("%s loop error: %v", h.name, err)
			wait = h.poller.Base()
		} else {
			if changed {
				h.poller.OnChange()
			} else {
				h.poller.OnNoChange()
			}
			wait = h.poller.Interval()
		}
		if !sleep(ctx, wait) {
			return
		}
	}
}

// sleep waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// capture runs sample under the executor lock and records the outcome.
func capture[T any](ctx context.Context, h *hub, sample func(context.Context) (T, error)) (T, error) {
	ctx, span := h.tel.StartSpan(ctx, "capture", trace.WithAttributes(attribute.String("broadcaster", h.name)))
	defer span.End()

	start := time.Now()
	v, err := executor.RunLocked(ctx, h.exec, func() (T, error) {
		return sample(ctx)
	})
	if ctx.Err() != nil {
		return v, ctx.Err()
	}
	h.tel.MetricsOrNil().RecordCapture(ctx, h.name, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.health.recordFailure(err)
		return v, err
	}
	h.health.recordSuccess()
	return v, nil
}

// addLocked registers s. Caller must hold h.mu.
func (h *hub) addLocked(s Subscriber) int {
	h.subs[s] = struct{}{}
	return len(h.subs)
}

// subscribersLocked copies the subscriber set. Caller must hold h.mu.
func (h *hub) subscribersLocked() []Subscriber {
	out := make([]Subscriber, 0, len(h.subs))
	for s := range h.subs {
		out = append(out, s)
	}
	return out
}

func (h *hub) added(total int) {
	h.tel.MetricsOrNil().RecordSubscribers(context.Background(), h.name, 1)
	log.Printf("%s: subscriber added (total: %d)", h.name, total)
}

// Unsubscribe removes s. Removing an unknown subscriber is not an error.
func (h *hub) Unsubscribe(s Subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s]
	delete(h.subs, s)
	total := len(h.subs)
	h.mu.Unlock()

	if ok {
		h.tel.MetricsOrNil().RecordSubscribers(context.Background(), h.name, -1)
		log.Printf("%s: subscriber removed (total: %d)", h.name, total)
	}
}

// SubscriberCount returns the number of registered subscribers.
func (h *hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// publish sends data to every subscriber in subs. Subscribers whose Send
// fails are removed and closed after the pass.
func (h *hub) publish(ctx context.Context, kind MessageType, data []byte, subs []Subscriber) {
	var dead []Subscriber
	for _, s := range subs {
		if err := s.Send(data); err != nil {
			log.Printf("%s: dropping subscriber: %v", h.name, err)
			dead = append(dead, s)
		}
	}
	h.tel.MetricsOrNil().RecordBroadcast(ctx, h.name, string(kind), len(subs)-len(dead))
	if len(dead) == 0 {
		return
	}

	removed := 0
	h.mu.Lock()
	for _, s := range dead {
		if _, ok := h.subs[s]; ok {
			delete(h.subs, s)
			removed++
		}
	}
	h.mu.Unlock()

	for _, s := range dead {
		s.Close()
	}
	h.tel.MetricsOrNil().RecordDropped(ctx, h.name, removed)
	h.tel.MetricsOrNil().RecordSubscribers(ctx, h.name, -removed)
}

// status reports the loop, poller and health state.
func (h *hub) status() BroadcasterStatus {
	return BroadcasterStatus{
		Name:        h.name,
		Running:     h.Running(),
		Subscribers: h.SubscriberCount(),
		IntervalMS:  h.poller.Interval().Milliseconds(),
		Streak:      h.poller.Streak(),
		Health:      h.health.snapshot(),
	}
}
