// Package connectivity watches the device transport layer and the
// reachability of the alert backend.
//
// Conventions:
//   - Online reflects the transport layer only. BackendReachable additionally
//     requires a successful round-trip to the backend within the ping budget.
//   - Consumers must treat BackendReachable=false as "queue locally / mark
//     degraded", never as a hard failure.
//   - State is evaluated on a fixed schedule and on demand via CheckNow;
//     every completed evaluation is published to subscribers.
package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/guardiansafety/aegis/pkg/logger"
	"github.com/guardiansafety/aegis/pkg/metrics"
)

// Default monitor configuration constants.
const (
	defaultPollInterval     = 30 * time.Second
	defaultPingTimeout      = 5 * time.Second
	defaultPingRetries      = 1
	defaultSubscriberBuffer = 4
)

// Transport labels for the active network path.
const (
	TransportWifi     = "wifi"
	TransportEthernet = "ethernet"
	TransportCellular = "cellular"
	TransportNone     = "none"
	TransportUnknown  = "unknown"
)

// Probe reports the device's active network transport.
type Probe interface {
	ActiveTransport(ctx context.Context) (string, error)
}

// Pinger answers a lightweight round-trip against the alert backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// State is one evaluated connectivity snapshot.
type State struct {
	Online           bool      `json:"online"`
	BackendReachable bool      `json:"backend_reachable"`
	Transport        string    `json:"transport"`
	CheckedAt        time.Time `json:"checked_at"`
}

// Monitor evaluates connectivity on a schedule and publishes the result.
type Monitor struct {
	probe  Probe
	pinger Pinger

	pollInterval time.Duration
	pingTimeout  time.Duration
	pingRetries  int
	subBuffer    int

	cron *cron.Cron

	// checkMu serializes evaluations so a slow ping can never overlap
	// the next scheduled one.
	checkMu sync.Mutex

	mu        sync.RWMutex
	started   bool
	haveState bool
	state     State
	subs      map[int]chan State
	nextSub   int

	logger logger.Logger
}

// NewMonitor creates a monitor over the given transport probe and backend
// pinger. A nil pinger leaves BackendReachable false until one is wired.
func NewMonitor(probe Probe, pinger Pinger, opts ...Option) *Monitor {
	m := &Monitor{
		probe:        probe,
		pinger:       pinger,
		pollInterval: defaultPollInterval,
		pingTimeout:  defaultPingTimeout,
		pingRetries:  defaultPingRetries,
		subBuffer:    defaultSubscriberBuffer,
		subs:         make(map[int]chan State),
		logger:       logger.Get().Named("connectivity"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start runs an immediate evaluation and then schedules one per poll
// interval. It returns ErrNoProbe without a transport probe and ErrStarted
// when called twice without an intervening Stop.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.probe == nil {
		m.mu.Unlock()
		return ErrNoProbe
	}
	if m.started {
		m.mu.Unlock()
		return ErrStarted
	}
	m.started = true
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	m.cron = c
	m.mu.Unlock()

	// First evaluation is synchronous so Current is meaningful as soon as
	// Start returns; the schedule only fires after one full interval.
	m.check(ctx)

	spec := fmt.Sprintf("@every %s", m.pollInterval)
	if _, err := c.AddFunc(spec, func() { m.check(context.Background()) }); err != nil {
		m.mu.Lock()
		m.started = false
		m.cron = nil
		m.mu.Unlock()
		return fmt.Errorf("schedule connectivity poll: %w", err)
	}
	c.Start()

	m.logger.Info(ctx, "connectivity monitor started",
		logger.Duration("poll_interval", m.pollInterval),
		logger.Duration("ping_timeout", m.pingTimeout),
		logger.Int("ping_retries", m.pingRetries),
	)
	return nil
}

// Stop halts the schedule, waits for any in-flight evaluation, and closes
// all subscriber channels.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	c := m.cron
	m.cron = nil
	m.mu.Unlock()

	// Stop returns a context that is done once running jobs have drained.
	<-c.Stop().Done()

	// A CheckNow caller may still be inside an evaluation; wait it out so
	// nothing publishes into a closed channel.
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}

// Current returns the last evaluated state. ok is false before the first
// evaluation completes.
func (m *Monitor) Current() (State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.haveState
}

// CheckNow forces an immediate evaluation and returns the resulting state.
func (m *Monitor) CheckNow(ctx context.Context) (State, error) {
	m.mu.RLock()
	started := m.started
	m.mu.RUnlock()
	if !started {
		return State{}, ErrNotStarted
	}
	return m.check(ctx), nil
}

// Subscribe registers for state updates. Every completed evaluation is
// delivered; when a subscriber lags, the oldest buffered state is dropped
// first. The returned cancel is idempotent. Stop closes the channel.
func (m *Monitor) Subscribe() (<-chan State, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan State, m.subBuffer)
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// check evaluates transport and backend reachability, records the state,
// and publishes it. Evaluations are serialized by checkMu.
func (m *Monitor) check(ctx context.Context) State {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	st := State{Transport: TransportUnknown, CheckedAt: time.Now()}

	transport, err := m.probe.ActiveTransport(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("connectivity", "probe_error")
		m.logger.Warn(ctx, "transport probe failed", logger.Error(err))
		st.Online = false
	} else {
		st.Transport = transport
		st.Online = transport != TransportNone
	}

	if st.Online && m.pinger != nil {
		st.BackendReachable = m.ping(ctx)
	}

	metrics.RecordConnectivityCheck()
	metrics.UpdateConnectivityOnline(st.Online)
	metrics.UpdateBackendReachable(st.BackendReachable)

	m.mu.Lock()
	prev, had := m.state, m.haveState
	m.state = st
	m.haveState = true
	changed := !had || prev.Online != st.Online || prev.BackendReachable != st.BackendReachable
	for _, ch := range m.subs {
		publish(ch, st)
	}
	m.mu.Unlock()

	if changed {
		m.logger.Info(ctx, "connectivity state changed",
			logger.Bool("online", st.Online),
			logger.Bool("backend_reachable", st.BackendReachable),
			logger.String("transport", st.Transport),
		)
	} else {
		m.logger.Debug(ctx, "connectivity state unchanged",
			logger.Bool("online", st.Online),
			logger.Bool("backend_reachable", st.BackendReachable),
		)
	}
	return st
}

// ping runs the backend round-trip with a per-attempt timeout and the
// configured retry budget.
func (m *Monitor) ping(ctx context.Context) bool {
	var lastErr error
	for attempt := 0; attempt <= m.pingRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, m.pingTimeout)
		start := time.Now()
		err := m.pinger.Ping(attemptCtx)
		metrics.RecordPingLatency(float64(time.Since(start).Milliseconds()))
		cancel()

		if err == nil {
			return true
		}
		lastErr = err
		metrics.RecordPingFailure()
		if ctx.Err() != nil {
			// Caller is gone; retrying cannot help.
			break
		}
		m.logger.Debug(ctx, "backend ping failed",
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}

	m.logger.Warn(ctx, "backend unreachable", logger.Error(lastErr))
	return false
}

// publish delivers st without ever blocking the evaluation; the oldest
// buffered state is evicted when the subscriber is full. check holds
// checkMu, so there is exactly one publisher at a time.
func publish(ch chan State, st State) {
	select {
	case ch <- st:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}
