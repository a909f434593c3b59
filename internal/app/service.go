// Package service wires the safety engine together and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/guardiansafety/aegis/internal/adapters/advisory"
	"github.com/guardiansafety/aegis/internal/adapters/delivery"
	"github.com/guardiansafety/aegis/internal/adapters/device"
	"github.com/guardiansafety/aegis/internal/adapters/geo"
	"github.com/guardiansafety/aegis/internal/adapters/history"
	journalqueue "github.com/guardiansafety/aegis/internal/adapters/mq/queue"
	journalpool "github.com/guardiansafety/aegis/internal/adapters/mq/worker"
	"github.com/guardiansafety/aegis/internal/adapters/policy"
	"github.com/guardiansafety/aegis/internal/adapters/repository"
	"github.com/guardiansafety/aegis/internal/domain/alert"
	"github.com/guardiansafety/aegis/internal/domain/connectivity"
	"github.com/guardiansafety/aegis/internal/domain/dedupe"
	"github.com/guardiansafety/aegis/internal/domain/escalate"
	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/internal/domain/scoring"
	"github.com/guardiansafety/aegis/internal/domain/track"
	"github.com/guardiansafety/aegis/internal/domain/types"
	"github.com/guardiansafety/aegis/pkg/logger"
	"github.com/guardiansafety/aegis/pkg/metrics"
)

// journalFlushTimeout bounds how long Stop waits for buffered audit
// entries to reach the history store.
const journalFlushTimeout = 10 * time.Second

// errJournalSaturated means the audit spool refused an entry. The alert
// machine logs recorder failures without surfacing them.
var errJournalSaturated = errors.New("journal spool saturated")

// journalRecorder adapts the audit spool to the alert machine's Recorder
// port. Writes are buffered and drained asynchronously; a saturated spool
// drops the entry rather than stalling a transition.
type journalRecorder struct {
	spool journalqueue.Queue
}

func (r *journalRecorder) RecordTransition(ctx context.Context, alertID string, from, to model.AlertStatus, actorID string, at time.Time) error {
	e := history.Entry{
		Kind:       history.EntryTransition,
		AlertID:    alertID,
		OccurredAt: at,
		From:       from,
		To:         to,
		Actor:      actorID,
	}
	if !r.spool.Enqueue(ctx, e) {
		return errJournalSaturated
	}
	return nil
}

func (r *journalRecorder) RecordResponse(ctx context.Context, alertID string, resp model.Response) error {
	e := history.Entry{
		Kind:          history.EntryResponse,
		AlertID:       alertID,
		OccurredAt:    resp.Timestamp,
		ResponderID:   resp.ResponderID,
		ResponderName: resp.ResponderName,
		ResponseKind:  resp.Kind,
		Location:      resp.Location,
	}
	if !r.spool.Enqueue(ctx, e) {
		return errJournalSaturated
	}
	return nil
}

// Service implements the API dependencies for the safety engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	provider  track.Provider
	walk      *geo.SimProvider
	tracker   *track.Tracker
	engine    *scoring.Engine
	index     repository.Index
	machine   *alert.Machine
	escalator *escalate.Escalator
	monitor   *connectivity.Monitor
	channel   alert.Channel
	probe     connectivity.Probe
	verifier  *policy.Verifier
	keys      *policy.GuardianKeys
	guard     dedupe.Guard
	store     *history.Store
	spool     journalqueue.Queue
	journal   *journalpool.Pool

	// Tracking configuration
	normalInterval    time.Duration
	emergencyInterval time.Duration
	accuracyCeiling   float64

	// Scoring configuration
	scoreWeights    map[string]float64
	scoreCacheTTL   time.Duration
	stalenessWindow time.Duration
	lowConfidence   int
	areaFreshness   time.Duration

	// Advisory configuration
	advisoryAPIKey   string
	advisoryEndpoint string
	advisoryModel    string
	advisoryTimeout  time.Duration
	advisoryRetries  int

	// Notification configuration
	dedupeWindow    time.Duration
	soundThrottle   time.Duration
	highDisplay     time.Duration
	standardDisplay time.Duration
	backlogCap      int

	// Connectivity configuration
	pollInterval time.Duration
	pingTimeout  time.Duration
	pingRetries  int

	// Delivery configuration
	deliveryEndpoint string
	deliveryAttempts int
	deliveryBackoff  time.Duration
	deliveryTimeout  time.Duration

	// Alert configuration
	countdownDelay     time.Duration
	cancelPasswordHash string
	guardianKeySecret  string

	// Audit configuration
	historyPath     string
	journalCapacity int
	dedupeSize      int

	battery device.BatteryFunc

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProvider replaces the positioning source. Without it the service
// runs a simulated walk.
func WithProvider(p track.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.provider = p
		}
	}
}

// WithProbe replaces the device capability probe. Without it the system
// probe inspects host interfaces.
func WithProbe(p connectivity.Probe) Option {
	return func(s *Service) {
		if p != nil {
			s.probe = p
		}
	}
}

// WithTrackingIntervals sets the sampling cadence per tracking mode.
func WithTrackingIntervals(normal, emergency time.Duration) Option {
	return func(s *Service) {
		if normal > 0 {
			s.normalInterval = normal
		}
		if emergency > 0 {
			s.emergencyInterval = emergency
		}
	}
}

// WithAccuracyCeiling rejects fixes above the given accuracy radius.
func WithAccuracyCeiling(meters float64) Option {
	return func(s *Service) {
		if meters > 0 {
			s.accuracyCeiling = meters
		}
	}
}

// WithScoreWeights sets the factor weights for safety scoring.
func WithScoreWeights(weights map[string]float64) Option {
	return func(s *Service) {
		s.scoreWeights = weights
	}
}

// WithScoringWindows sets the reading cache TTL and the sample staleness
// window.
func WithScoringWindows(cacheTTL, staleness time.Duration) Option {
	return func(s *Service) {
		if cacheTTL > 0 {
			s.scoreCacheTTL = cacheTTL
		}
		if staleness > 0 {
			s.stalenessWindow = staleness
		}
	}
}

// WithLowConfidenceThreshold flags readings below the threshold.
func WithLowConfidenceThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.lowConfidence = n
		}
	}
}

// WithAreaFreshness bounds how long an unrefreshed area stays in the
// risk ranking. Zero keeps areas ranked indefinitely.
func WithAreaFreshness(window time.Duration) Option {
	return func(s *Service) {
		if window >= 0 {
			s.areaFreshness = window
		}
	}
}

// WithAdvisory configures the external area advisory feed. An empty API
// key selects the static feed.
func WithAdvisory(apiKey, endpoint, model string) Option {
	return func(s *Service) {
		s.advisoryAPIKey = apiKey
		s.advisoryEndpoint = endpoint
		if model != "" {
			s.advisoryModel = model
		}
	}
}

// WithAdvisoryBudget bounds each advisory call.
func WithAdvisoryBudget(timeout time.Duration, retries int) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.advisoryTimeout = timeout
		}
		if retries >= 0 {
			s.advisoryRetries = retries
		}
	}
}

// WithNotificationTuning sets the dedupe window, sound throttle and
// backlog cap of the notification center.
func WithNotificationTuning(dedupeWindow, soundThrottle time.Duration, backlogCap int) Option {
	return func(s *Service) {
		if dedupeWindow > 0 {
			s.dedupeWindow = dedupeWindow
		}
		if soundThrottle > 0 {
			s.soundThrottle = soundThrottle
		}
		if backlogCap > 0 {
			s.backlogCap = backlogCap
		}
	}
}

// WithDisplayWindows sets auto-expiry for high and medium/low priority
// notifications.
func WithDisplayWindows(high, standard time.Duration) Option {
	return func(s *Service) {
		if high > 0 {
			s.highDisplay = high
		}
		if standard > 0 {
			s.standardDisplay = standard
		}
	}
}

// WithConnectivityCadence sets the poll interval and the backend ping
// budget.
func WithConnectivityCadence(poll, pingTimeout time.Duration, pingRetries int) Option {
	return func(s *Service) {
		if poll > 0 {
			s.pollInterval = poll
		}
		if pingTimeout > 0 {
			s.pingTimeout = pingTimeout
		}
		if pingRetries >= 0 {
			s.pingRetries = pingRetries
		}
	}
}

// WithDeliveryEndpoint sets the websocket URL alert traffic is pushed
// to. Empty selects the in-memory loopback channel.
func WithDeliveryEndpoint(url string) Option {
	return func(s *Service) {
		s.deliveryEndpoint = url
	}
}

// WithDeliveryBudget sets the per-alert retry budget. Backoff doubles
// per attempt.
func WithDeliveryBudget(attempts int, backoff, timeout time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.deliveryAttempts = attempts
		}
		if backoff > 0 {
			s.deliveryBackoff = backoff
		}
		if timeout > 0 {
			s.deliveryTimeout = timeout
		}
	}
}

// WithCountdownDelay sets the grace window between arming an alert and
// triggering it.
func WithCountdownDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.countdownDelay = d
		}
	}
}

// WithCancelPasswordHash sets the bcrypt hash gating cancellation of
// password-protected alerts.
func WithCancelPasswordHash(hash string) Option {
	return func(s *Service) {
		s.cancelPasswordHash = hash
	}
}

// WithGuardianKeySecret signs issued guardian keys. Empty draws an
// ephemeral secret at startup.
func WithGuardianKeySecret(secret string) Option {
	return func(s *Service) {
		s.guardianKeySecret = secret
	}
}

// WithHistoryPath locates the SQLite audit trail. Empty disables it.
func WithHistoryPath(path string) Option {
	return func(s *Service) {
		s.historyPath = path
	}
}

// WithJournalCapacity bounds the audit spool.
func WithJournalCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.journalCapacity = n
		}
	}
}

// WithDedupeSize sets the size of the trigger replay guard.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithBatterySource supplies battery readings to the device probe and
// the scoring battery factor.
func WithBatterySource(fn device.BatteryFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.battery = fn
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		normalInterval:    30 * time.Second,
		emergencyInterval: 10 * time.Second,
		accuracyCeiling:   1000,
		scoreCacheTTL:     5 * time.Minute,
		stalenessWindow:   5 * time.Minute,
		lowConfidence:     40,
		areaFreshness:     30 * time.Minute,
		advisoryModel:     "gpt-4o-mini",
		advisoryTimeout:   5 * time.Second,
		advisoryRetries:   1,
		dedupeWindow:      2 * time.Second,
		soundThrottle:     2 * time.Second,
		highDisplay:       10 * time.Second,
		standardDisplay:   5 * time.Second,
		backlogCap:        200,
		pollInterval:      30 * time.Second,
		pingTimeout:       5 * time.Second,
		pingRetries:       1,
		deliveryAttempts:  3,
		deliveryBackoff:   time.Second,
		deliveryTimeout:   5 * time.Second,
		countdownDelay:    5 * time.Second,
		journalCapacity:   4096,
		dedupeSize:        10000,
		stopCh:            make(chan struct{}),
		logger:            nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting safety service...")

	// Positioning source. Without an injected provider a simulated walk
	// stands in for device GPS.
	if s.provider == nil {
		s.walk = geo.NewSimProvider(geo.WithPermission(track.PermissionGranted))
		s.walk.StartWalk(ctx)
		s.provider = s.walk
		s.logger.Info(ctx, "using simulated positioning")
	}

	s.tracker = track.New(s.provider,
		track.WithNormalInterval(s.normalInterval),
		track.WithEmergencyInterval(s.emergencyInterval),
		track.WithAccuracyCeiling(s.accuracyCeiling),
	)

	// Delivery channel: external websocket backend when configured,
	// in-process loopback otherwise. A failed warm-up dial is not fatal;
	// sends redial on demand and the retry budget covers the gap.
	var pinger connectivity.Pinger
	if s.deliveryEndpoint != "" {
		client := delivery.NewClient(s.deliveryEndpoint,
			delivery.WithWriteTimeout(s.deliveryTimeout),
		)
		if err := client.Connect(ctx); err != nil {
			s.logger.Warn(ctx, "delivery backend unreachable at startup",
				logger.String("endpoint", s.deliveryEndpoint),
				logger.Error(err))
		}
		s.channel, pinger = client, client
		s.logger.Info(ctx, "using websocket delivery",
			logger.String("endpoint", s.deliveryEndpoint))
	} else {
		loopback := delivery.NewLoopback()
		s.channel, pinger = loopback, loopback
		s.logger.Info(ctx, "using loopback delivery")
	}

	// Device probe feeds transport detection and the battery factor.
	if s.probe == nil {
		var probeOpts []device.Option
		if s.battery != nil {
			probeOpts = append(probeOpts, device.WithBatterySource(s.battery))
		}
		s.probe = device.NewSystemProbe(probeOpts...)
	}

	s.monitor = connectivity.NewMonitor(s.probe, pinger,
		connectivity.WithPollInterval(s.pollInterval),
		connectivity.WithPingTimeout(s.pingTimeout),
		connectivity.WithPingRetries(s.pingRetries),
	)
	if err := s.monitor.Start(ctx); err != nil {
		return fmt.Errorf("start connectivity monitor: %w", err)
	}

	// Advisory feeds: guarded external assessments when a key is
	// configured, the static table otherwise.
	fallback := advisory.NewStaticFeed()
	var primary scoring.Feed = fallback
	if s.advisoryAPIKey != "" {
		feed := advisory.NewLLMFeed(s.advisoryAPIKey, s.advisoryEndpoint,
			advisory.WithModel(s.advisoryModel),
		)
		primary = advisory.NewGuard(feed,
			advisory.WithTimeout(s.advisoryTimeout),
			advisory.WithRetries(s.advisoryRetries),
		)
		s.logger.Info(ctx, "using external advisory feed",
			logger.String("model", s.advisoryModel))
	} else {
		s.logger.Info(ctx, "using static advisory feed")
	}

	scoringOpts := []scoring.Option{
		scoring.WithWeights(s.scoreWeights),
		scoring.WithConnectivitySource(s.monitor),
		scoring.WithStalenessWindow(s.stalenessWindow),
		scoring.WithCacheTTL(s.scoreCacheTTL),
		scoring.WithLowConfidenceThreshold(s.lowConfidence),
	}
	if s.battery != nil {
		scoringOpts = append(scoringOpts, scoring.WithBatterySource(scoring.BatteryFunc(s.battery)))
	}
	s.engine = scoring.New(primary, fallback, scoringOpts...)

	// Every scored location also lands in the ranked area index, so the
	// riskiest tracked areas stay queryable between readings.
	s.index = repository.NewTreapIndex(ctx,
		repository.WithFreshnessWindow(s.areaFreshness),
	)
	s.logger.Info(ctx, "using treap area index",
		logger.Duration("freshness", s.areaFreshness))

	s.escalator = escalate.New(
		escalate.WithDedupeWindow(s.dedupeWindow),
		escalate.WithSoundThrottle(s.soundThrottle),
		escalate.WithDisplayWindows(s.highDisplay, s.standardDisplay),
		escalate.WithBacklogCap(s.backlogCap),
	)

	s.verifier = policy.NewVerifier(policy.WithPasswordHash(s.cancelPasswordHash))
	var keyOpts []policy.KeyOption
	if s.guardianKeySecret != "" {
		keyOpts = append(keyOpts, policy.WithKeySecret([]byte(s.guardianKeySecret)))
	}
	s.keys = policy.NewGuardianKeys(keyOpts...)

	s.guard = dedupe.NewInMemoryGuard(
		dedupe.WithMaxSize(s.dedupeSize),
	)

	machineOpts := []alert.Option{
		alert.WithVerifier(s.verifier),
		alert.WithNotifier(s.escalator),
		alert.WithRetrySchedule(s.retrySchedule()...),
	}

	// Audit trail: SQLite store behind an async journal spool. Disabled
	// when no path is configured.
	if s.historyPath != "" {
		store, err := history.Open(s.historyPath)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		s.store = store
		s.spool = journalqueue.NewInMemoryQueue(
			journalqueue.WithCapacity(s.journalCapacity),
			journalqueue.WithBufferSize(s.journalCapacity),
		)
		s.journal = journalpool.NewPool(1, s.spool, store)
		s.journal.Start(ctx)
		machineOpts = append(machineOpts, alert.WithRecorder(&journalRecorder{spool: s.spool}))
		s.logger.Info(ctx, "using sqlite history", logger.String("path", s.historyPath))
	}

	s.machine = alert.New(s.tracker, s.channel, machineOpts...)

	s.started = true
	s.logger.Info(ctx, "safety service started",
		logger.Duration("normalInterval", s.normalInterval),
		logger.Duration("emergencyInterval", s.emergencyInterval),
		logger.Int("deliveryAttempts", s.deliveryAttempts),
		logger.Bool("history", s.store != nil),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping safety service...")

	// Close the machine first so no new audit entries are produced
	if s.machine != nil {
		_ = s.machine.Close(ctx)
	}

	if s.monitor != nil {
		s.monitor.Stop()
	}

	if s.escalator != nil {
		s.escalator.Close()
	}

	if s.walk != nil {
		s.walk.StopWalk()
	}

	// Flush buffered audit entries into the store before closing it
	if s.journal != nil {
		flushCtx, cancel := context.WithTimeout(ctx, journalFlushTimeout)
		_ = s.journal.Shutdown(flushCtx)
		cancel()
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	if s.index != nil {
		if closer, ok := s.index.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}

	if closer, ok := s.channel.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	// Signal cleanup loop to stop
	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "safety service stopped")
}

// retrySchedule expands the delivery budget into the waits between
// attempts, doubling each retry.
func (s *Service) retrySchedule() []time.Duration {
	retries := s.deliveryAttempts - 1
	if retries <= 0 {
		return nil
	}
	schedule := make([]time.Duration, 0, retries)
	backoff := s.deliveryBackoff
	for i := 0; i < retries; i++ {
		schedule = append(schedule, backoff)
		backoff *= 2
	}
	return schedule
}

// Trigger raises an alert immediately. A non-empty requestID makes the
// call idempotent: a replay returns the originally raised alert instead
// of raising a second one.
func (s *Service) Trigger(ctx context.Context, requestID string, req alert.TriggerRequest) (model.Alert, error) {
	if requestID == "" {
		return s.machine.Trigger(ctx, req)
	}

	if alertID, seen := s.guard.SeenAndRecord(ctx, requestID); seen {
		if alertID == "" {
			// The first carrier of this ID has not finished yet.
			return model.Alert{}, dedupe.ErrInFlight
		}
		s.logger.Debug(ctx, "trigger replay detected",
			logger.String("requestID", requestID),
			logger.String("alert", alertID))
		return s.machine.Get(ctx, alertID)
	}

	a, err := s.machine.Trigger(ctx, req)
	if err != nil {
		// Free the ID so a corrected request can retry.
		s.guard.Unrecord(ctx, requestID)
		return model.Alert{}, err
	}
	s.guard.Bind(ctx, requestID, a.ID)
	return a, nil
}

// StartCountdown arms a delayed trigger with the configured grace window.
func (s *Service) StartCountdown(ctx context.Context, req alert.TriggerRequest) (alert.Countdown, error) {
	return s.machine.StartCountdown(ctx, req, s.countdownDelay)
}

// CancelCountdown aborts an armed countdown. It reports whether the
// countdown was still pending.
func (s *Service) CancelCountdown(ctx context.Context, id string) bool {
	return s.machine.CancelCountdown(ctx, id)
}

// Countdowns lists armed countdowns.
func (s *Service) Countdowns(ctx context.Context) []alert.Countdown {
	return s.machine.Countdowns(ctx)
}

// Respond records a recipient's response to an alert.
func (s *Service) Respond(ctx context.Context, alertID string, r model.Response) (model.Alert, error) {
	return s.machine.Respond(ctx, alertID, r)
}

// Cancel is the sender's false-alarm path.
func (s *Service) Cancel(ctx context.Context, alertID, actorID, password string) (model.Alert, error) {
	return s.machine.Cancel(ctx, alertID, actorID, password)
}

// Resolve marks a genuine emergency as over.
func (s *Service) Resolve(ctx context.Context, alertID, actorID string) (model.Alert, error) {
	return s.machine.Resolve(ctx, alertID, actorID)
}

// GetAlert returns a snapshot of one alert.
func (s *Service) GetAlert(ctx context.Context, alertID string) (model.Alert, error) {
	return s.machine.Get(ctx, alertID)
}

// ActiveAlerts returns snapshots of every non-terminal alert.
func (s *Service) ActiveAlerts(ctx context.Context) []model.Alert {
	return s.machine.ActiveAlerts(ctx)
}

// ReportLocation folds an externally sourced fix into an alert's trail.
func (s *Service) ReportLocation(ctx context.Context, alertID string, sample model.LocationSample) error {
	return s.machine.ReportLocation(ctx, alertID, sample)
}

// Score evaluates safety at a location. It never fails; degraded inputs
// surface inside the reading.
func (s *Service) Score(ctx context.Context, lat, lng float64) model.SafetyReading {
	sample := model.LocationSample{
		Latitude:  lat,
		Longitude: lng,
		Accuracy:  s.accuracyCeiling,
		Timestamp: time.Now().UTC(),
	}
	reading := s.engine.Score(ctx, sample)

	// Fold the reading into the ranked area index. Index trouble never
	// blocks the caller; the reading is already in hand.
	if _, err := s.index.UpdateWithMeta(ctx, scoring.AreaKey(lat, lng), reading.OverallScore, repository.Observation{
		Latitude:   lat,
		Longitude:  lng,
		RiskLevel:  string(reading.RiskLevel),
		Confidence: reading.Confidence,
		Degraded:   reading.Degraded,
		ScoredAt:   reading.Timestamp,
	}); err != nil {
		s.logger.Warn(ctx, "area index update failed",
			logger.String("area", scoring.AreaKey(lat, lng)),
			logger.Error(err))
	}

	return reading
}

// RiskiestAreas lists the lowest-scoring tracked areas, riskiest first.
func (s *Service) RiskiestAreas(ctx context.Context, n int) ([]types.AreaRank, error) {
	entries, err := s.index.Riskiest(ctx, n)
	if err != nil {
		return nil, err
	}

	// Convert to API format
	ranks := make([]types.AreaRank, len(entries))
	for i, entry := range entries {
		ranks[i] = areaRank(entry)
	}
	return ranks, nil
}

// AreaRank returns the risk ranking of the grid cell containing the
// given coordinates. Cells no reading ever scored are not tracked.
func (s *Service) AreaRank(ctx context.Context, lat, lng float64) (types.AreaRank, error) {
	entry, err := s.index.RankOf(ctx, scoring.AreaKey(lat, lng))
	if err != nil {
		return types.AreaRank{}, err
	}
	return areaRank(entry), nil
}

func areaRank(e repository.Entry) types.AreaRank {
	return types.AreaRank{
		Rank:       e.Rank,
		AreaID:     e.AreaID,
		Latitude:   e.Latitude,
		Longitude:  e.Longitude,
		Score:      e.Score,
		RiskLevel:  e.RiskLevel,
		Confidence: e.Confidence,
		Degraded:   e.Degraded,
		ScoredAt:   e.ScoredAt,
	}
}

// CurrentLocation returns the freshest accepted fix.
func (s *Service) CurrentLocation(ctx context.Context) (model.LocationSample, error) {
	return s.tracker.Current(ctx)
}

// NotificationCenter returns the pending notification set, newest first.
func (s *Service) NotificationCenter() escalate.Center {
	return s.escalator.Center()
}

// DismissNotification removes a pending notification. It reports whether
// the notification was present.
func (s *Service) DismissNotification(id string) bool {
	return s.escalator.Dismiss(id)
}

// Connectivity returns the last evaluated connectivity state. ok is
// false before the first check completes.
func (s *Service) Connectivity() (connectivity.State, bool) {
	return s.monitor.Current()
}

// CheckConnectivity forces a connectivity evaluation outside the poll
// cadence.
func (s *Service) CheckConnectivity(ctx context.Context) (connectivity.State, error) {
	return s.monitor.CheckNow(ctx)
}

// Timeline returns an alert's audit trail, oldest first.
func (s *Service) Timeline(ctx context.Context, alertID string) ([]history.Entry, error) {
	if s.store == nil {
		return nil, history.ErrDisabled
	}
	return s.store.AlertTimeline(ctx, alertID)
}

// RecentAlerts returns the alert IDs with the newest recorded activity.
func (s *Service) RecentAlerts(ctx context.Context, limit int) ([]string, error) {
	if s.store == nil {
		return nil, history.ErrDisabled
	}
	return s.store.RecentAlerts(ctx, limit)
}

// IssueGuardianKey mints a shareable key proving a guardian relationship.
func (s *Service) IssueGuardianKey(ctx context.Context, userID, name string) (string, error) {
	return s.keys.IssueKey(ctx, userID, name)
}

// ValidateGuardianKey checks a presented guardian key.
func (s *Service) ValidateGuardianKey(ctx context.Context, key string) bool {
	return s.keys.ValidateKey(ctx, key)
}

// SetCancelPassword hashes and installs the cancellation password.
func (s *Service) SetCancelPassword(ctx context.Context, password string) error {
	return s.verifier.SetPassword(ctx, password)
}

// CancelPasswordConfigured reports whether protected cancels can succeed.
func (s *Service) CancelPasswordConfigured() bool {
	return s.verifier.Configured()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started": s.started,
	}
	if !s.started {
		return stats
	}

	activeAlerts := len(s.machine.ActiveAlerts(ctx))
	activeStreams := s.tracker.ActiveStreams(ctx)
	center := s.escalator.Center()

	stats["activeAlerts"] = activeAlerts
	stats["activeStreams"] = activeStreams
	stats["armedCountdowns"] = len(s.machine.Countdowns(ctx))
	stats["pendingNotifications"] = len(center.Pending)
	stats["replayGuardSize"] = s.guard.Size()
	stats["areasTracked"] = s.index.Count(ctx)

	// The published snapshot is the cheap read path; stats polling should
	// not walk the tree.
	if pub, ok := s.index.(interface{ CurrentSnapshot() *repository.Snapshot }); ok {
		if snap := pub.CurrentSnapshot(); snap != nil && len(snap.TopCache) > 0 {
			stats["riskiestArea"] = snap.TopCache[0].AreaID
			stats["riskiestAreaScore"] = snap.TopCache[0].Score
		}
	}

	if state, ok := s.monitor.Current(); ok {
		stats["online"] = state.Online
		stats["backendReachable"] = state.BackendReachable
		stats["transport"] = state.Transport
	}
	if s.spool != nil {
		depth := s.spool.Len(ctx)
		stats["journalDepth"] = depth
		metrics.UpdateJournalDepth(depth)
	}

	// Update metrics
	metrics.UpdateActiveAlerts(activeAlerts)
	metrics.UpdateActiveStreams(activeStreams)
	metrics.UpdateCenterBacklog(center.Backlog)

	return stats
}
