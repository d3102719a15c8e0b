// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package intentcapture

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/nextread/nextread/pkg/prediction"
	"github.com/nextread/nextread/pkg/rankingstore"
)

// sessionQueueCap bounds the per-session backlog of unprocessed events
//.
const sessionQueueCap = 32

// sessionRateLimit/sessionRateBurst throttle how fast one session may
// enqueue events before Submit starts dropping, independent of the
// queue-full drop-oldest path below.
const (
	sessionRateLimit = 50.0 // events/sec
	sessionRateBurst = 20
)

// eventBudget is the target wall time for draining a single event
//; handlers
// that exceed it are still allowed to finish, this only bounds the
// context passed to the store calls they make.
const eventBudget = 50 * time.Millisecond

// Pipeline drains parsed hook events into Ranking Store writes and
// Prediction Engine feedback, off the HTTP request path.
type Pipeline struct {
	store   *rankingstore.Store
	engine  *prediction.Engine
	project string
	logger  *slog.Logger

	mu       sync.Mutex
	queues   map[string]chan Envelope
	limiters map[string]*rate.Limiter

	dropped uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPipeline wires a Pipeline for project over store/engine.
func NewPipeline(store *rankingstore.Store, engine *prediction.Engine, project string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		store: store, engine: engine, project: project, logger: logger,
		queues: make(map[string]chan Envelope), limiters: make(map[string]*rate.Limiter),
		ctx: ctx, cancel: cancel,
	}
}

// Stop halts every session worker and waits for them to exit.
func (p *Pipeline) Stop() {
	p.cancel()
	p.wg.Wait()
}

// Dropped reports how many events have been discarded by backpressure,
// for the `/metrics` endpoint's ingestion counters.
func (p *Pipeline) Dropped() uint64 {
	return atomic.LoadUint64(&p.dropped)
}

// ActiveSessions returns every session id with a live drain goroutine,
// the candidate set the cache-eviction background loop passes to
// rankingstore.PurgeExpiredSessions.
func (p *Pipeline) ActiveSessions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.queues))
	for session := range p.queues {
		out = append(out, session)
	}
	return out
}

// Submit enqueues e for asynchronous processing and returns immediately
//; it
// never blocks beyond acquiring its internal mutex and never returns an
// error for backpressure, only for a malformed envelope.
func (p *Pipeline) Submit(e Envelope) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if !p.limiterFor(e.SessionID).Allow() {
		atomic.AddUint64(&p.dropped, 1)
		return nil
	}

	ch := p.queueFor(e.SessionID)
	select {
	case ch <- e:
		return nil
	default:
	}

	// Queue full: drop the oldest queued event for this session, then
	// retry once ( "drops the oldest unprocessed events for a
	// session and records a counter").
	select {
	case <-ch:
		atomic.AddUint64(&p.dropped, 1)
	default:
	}
	select {
	case ch <- e:
	default:
		atomic.AddUint64(&p.dropped, 1)
	}
	return nil
}

func (p *Pipeline) limiterFor(session string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[session]
	if !ok {
		l = rate.NewLimiter(rate.Limit(sessionRateLimit), sessionRateBurst)
		p.limiters[session] = l
	}
	return l
}

func (p *Pipeline) queueFor(session string) chan Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.queues[session]
	if !ok {
		ch = make(chan Envelope, sessionQueueCap)
		p.queues[session] = ch
		p.wg.Add(1)
		go p.drain(session, ch)
	}
	return ch
}

func (p *Pipeline) drain(session string, ch chan Envelope) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case e := <-ch:
			p.process(e)
		}
	}
}

func (p *Pipeline) process(e Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), eventBudget)
	defer cancel()

	now := e.Timestamp / 1000
	var err error
	switch e.Kind() {
	case KindToolUse:
		err = p.processToolUse(ctx, e, now)
	case KindPromptSubmit:
		err = p.processPromptSubmit(ctx, e, now)
	case KindSessionStart:
		err = p.store.RecordSessionStart(ctx, e.Project, e.SessionID, now)
	}
	if err != nil {
		p.logger.Warn("intentcapture: event processing failed", "tool", e.Tool, "session", e.SessionID, "error", err)
	}
}

func (p *Pipeline) processToolUse(ctx context.Context, e Envelope, now int64) error {
	paths := e.ExtractPaths()
	tags := tagsFor(e, paths)

	for _, path := range paths {
		if err := p.store.RecordAccess(ctx, p.project, path, tags, now); err != nil {
			return err
		}

		if last, ok, err := p.store.LastInSequence(ctx, p.project, e.SessionID, now); err == nil && ok {
			if err := p.store.RecordTransition(ctx, p.project, last, path, now); err != nil {
				return err
			}
		}
		if err := p.store.AppendToSequence(ctx, p.project, e.SessionID, path, now); err != nil {
			return err
		}

		if p.engine != nil {
			if _, err := p.engine.ResolveAccess(ctx, e.SessionID, path, now); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) processPromptSubmit(ctx context.Context, e Envelope, now int64) error {
	if p.engine == nil {
		return nil
	}
	keywords := prediction.ExtractKeywords(e.Prompt)
	_, err := p.engine.Predict(ctx, prediction.Request{Keywords: keywords, Session: e.SessionID}, now)
	return err
}
