// Package arena orchestrates adversarial sessions: it drives the turn-by-
// turn attack/detect/evaluate loop between red agents, blue agents, and a
// sandboxed target, bounded by a configured maximum of concurrent sessions.
package arena

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vorion-labs/gauntlet/internal/agent"
	"github.com/vorion-labs/gauntlet/internal/intel"
	"github.com/vorion-labs/gauntlet/internal/model"
	"github.com/vorion-labs/gauntlet/internal/sandbox"
)

// ErrCapacity is returned when starting a session would exceed the
// configured maximum of concurrently running sessions.
var ErrCapacity = errors.New("session capacity reached")

// ErrNotFound is returned when operating on an unknown session id.
var ErrNotFound = errors.New("session not found")

const (
	defaultMaxConcurrent = 5
	defaultMaxTurns      = 10
	defaultTimeout       = 5 * time.Minute
	defaultTurnDelay     = 100 * time.Millisecond
)

// Factories construct agents by variant tag. Zero values use the builtin
// reference agents.
type Factories struct {
	Red    func(variant string) (agent.Red, error)
	Blue   func(variant string) (agent.Blue, error)
	Target func(variant string) agent.Target
}

// Config holds arena-wide settings.
type Config struct {
	MaxConcurrentSessions int
	TurnDelay             time.Duration
	SystemContext         string
	Factories             Factories
}

// Arena owns zero or more concurrently running sessions. One turn loop per
// session; turns within a session are strictly sequential.
type Arena struct {
	cfg       Config
	collector *intel.Collector
	events    *dispatcher

	mu        sync.Mutex
	active    map[string]*runtime
	finished  map[string]*model.ArenaSession
	sandboxes map[string]*sandbox.Sandbox
}

// runtime is the per-session mutable state owned by the arena.
type runtime struct {
	sess    *model.ArenaSession
	reds    []agent.Red
	blues   []agent.Blue
	sandbox *sandbox.Sandbox
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	unsubs  []func()
}

// New creates an arena sharing the given collector. A nil collector gets a
// fresh one (per-arena mining instead of process-wide).
func New(cfg Config, collector *intel.Collector) *Arena {
	if cfg.MaxConcurrentSessions <= 0 {
		cfg.MaxConcurrentSessions = defaultMaxConcurrent
	}
	if cfg.TurnDelay <= 0 {
		cfg.TurnDelay = defaultTurnDelay
	}
	if cfg.Factories.Red == nil {
		cfg.Factories.Red = agent.NewRed
	}
	if cfg.Factories.Blue == nil {
		cfg.Factories.Blue = agent.NewBlue
	}
	if cfg.Factories.Target == nil {
		cfg.Factories.Target = agent.NewTarget
	}
	if collector == nil {
		collector = intel.NewCollector()
	}
	return &Arena{
		cfg:       cfg,
		collector: collector,
		events:    newDispatcher(),
		active:    make(map[string]*runtime),
		finished:  make(map[string]*model.ArenaSession),
		sandboxes: make(map[string]*sandbox.Sandbox),
	}
}

// Collector returns the intelligence collector this arena feeds.
func (a *Arena) Collector() *intel.Collector { return a.collector }

// Subscribe registers a lifecycle event subscriber and returns a cancel
// func removing it.
func (a *Arena) Subscribe(fn Subscriber) func() {
	return a.events.subscribe(fn)
}

// StartSession constructs a session, instantiates its agents and sandbox,
// and begins the turn loop in the background. Returns a snapshot of the
// session record immediately; it does not wait for the loop.
//
// Optional subscribers are scoped to this session and registered before
// the loop starts, so they receive every event from session start onward.
// They are removed when the session reaches a terminal state.
func (a *Arena) StartSession(cfg model.SessionConfig, subs ...Subscriber) (*model.ArenaSession, error) {
	applyDefaults(&cfg)

	reds := make([]agent.Red, 0, len(cfg.RedAgents))
	for _, variant := range cfg.RedAgents {
		r, err := a.cfg.Factories.Red(variant)
		if err != nil {
			return nil, fmt.Errorf("instantiate red agent: %w", err)
		}
		reds = append(reds, r)
	}
	blues := make([]agent.Blue, 0, len(cfg.BlueAgents))
	for _, variant := range cfg.BlueAgents {
		b, err := a.cfg.Factories.Blue(variant)
		if err != nil {
			return nil, fmt.Errorf("instantiate blue agent: %w", err)
		}
		blues = append(blues, b)
	}

	redIDs := make([]string, len(reds))
	for i, r := range reds {
		redIDs[i] = r.ID()
	}
	blueIDs := make([]string, len(blues))
	for i, b := range blues {
		blueIDs[i] = b.ID()
	}

	sess := &model.ArenaSession{
		ID:         uuid.NewString(),
		Name:       cfg.Name,
		RedAgents:  redIDs,
		BlueAgents: blueIDs,
		Target:     cfg.Target,
		Config:     cfg,
		Status:     model.StatusPending,
	}

	sbOpts := []sandbox.Option{sandbox.WithTarget(a.cfg.Factories.Target(cfg.Target))}
	if a.cfg.SystemContext != "" {
		sbOpts = append(sbOpts, sandbox.WithSystemContext(a.cfg.SystemContext))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout+time.Minute)
	rt := &runtime{
		sess:    sess,
		reds:    reds,
		blues:   blues,
		sandbox: sandbox.New(cfg.Containment, sbOpts...),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	a.mu.Lock()
	if len(a.active) >= a.cfg.MaxConcurrentSessions {
		a.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("%w: %d sessions running", ErrCapacity, a.cfg.MaxConcurrentSessions)
	}
	sess.Status = model.StatusRunning
	sess.StartedAt = time.Now().UTC()
	a.active[sess.ID] = rt
	snapshot := cloneSession(sess)
	a.mu.Unlock()

	for _, sub := range subs {
		rt.unsubs = append(rt.unsubs, a.events.subscribe(func(ev Event) {
			if ev.SessionID == sess.ID {
				sub(ev)
			}
		}))
	}

	a.events.dispatch(Event{Type: EventSessionStart, SessionID: sess.ID, Session: sess.Name})
	go a.run(rt)

	return snapshot, nil
}

// StopSession transitions an active session to terminated and finalizes its
// metrics. It does not interrupt an in-flight turn; the loop observes the
// terminal state at its next yield point and exits.
func (a *Arena) StopSession(id, reason string) error {
	a.mu.Lock()
	rt, ok := a.active[id]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if reason != "" {
		fmt.Fprintf(os.Stderr, "arena: stopping session %s: %s\n", id, reason)
	}
	a.finalize(rt, model.StatusTerminated)
	return nil
}

// GetSession returns a snapshot of an active or finished session.
func (a *Arena) GetSession(id string) (*model.ArenaSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rt, ok := a.active[id]; ok {
		return cloneSession(rt.sess), nil
	}
	if sess, ok := a.finished[id]; ok {
		return cloneSession(sess), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// GetActiveSessions returns snapshots of all currently running sessions.
func (a *Arena) GetActiveSessions() []*model.ArenaSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*model.ArenaSession, 0, len(a.active))
	for _, rt := range a.active {
		out = append(out, cloneSession(rt.sess))
	}
	return out
}

// WaitSession blocks until the session reaches a terminal state (or ctx is
// done) and returns its final snapshot.
func (a *Arena) WaitSession(ctx context.Context, id string) (*model.ArenaSession, error) {
	a.mu.Lock()
	rt, running := a.active[id]
	sess, done := a.finished[id]
	a.mu.Unlock()

	if !running {
		if done {
			return cloneSession(sess), nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	select {
	case <-rt.done:
		return a.GetSession(id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Breaches returns the containment breaches recorded by a session's
// sandbox, for active and finished sessions alike.
func (a *Arena) Breaches(id string) ([]sandbox.Breach, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rt, ok := a.active[id]; ok {
		return rt.sandbox.Breaches(), nil
	}
	if sb, ok := a.sandboxes[id]; ok {
		return sb.Breaches(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func applyDefaults(cfg *model.SessionConfig) {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if len(cfg.RedAgents) == 0 {
		cfg.RedAgents = []string{string(agent.RedInjector), string(agent.RedJailbreaker), string(agent.RedObfuscator)}
	}
	if len(cfg.BlueAgents) == 0 {
		cfg.BlueAgents = []string{string(agent.BlueSentinel), string(agent.BlueDecoder), string(agent.BlueGuardian)}
	}
}

// cloneSession deep-copies the mutable slices so callers can read the
// snapshot while the loop keeps appending.
func cloneSession(s *model.ArenaSession) *model.ArenaSession {
	out := *s
	out.RedAgents = append([]string(nil), s.RedAgents...)
	out.BlueAgents = append([]string(nil), s.BlueAgents...)
	out.Turns = append([]model.SessionTurn(nil), s.Turns...)
	return &out
}

// selectRed picks one red agent eligible for the in-scope categories,
// uniformly at random; with no eligible agent it falls back to a uniform
// choice over all of them.
func selectRed(reds []agent.Red, categories []model.AttackCategory) agent.Red {
	if len(categories) > 0 {
		var eligible []agent.Red
		for _, r := range reds {
			for _, c := range categories {
				if r.Specialization() == c {
					eligible = append(eligible, r)
					break
				}
			}
		}
		if len(eligible) > 0 {
			return eligible[rand.IntN(len(eligible))]
		}
	}
	return reds[rand.IntN(len(reds))]
}
