// Package service wires the duel engine together and implements the
// operations exposed by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/okian/cfduel/internal/adapters/archive"
	"github.com/okian/cfduel/internal/adapters/links"
	announcequeue "github.com/okian/cfduel/internal/adapters/mq/queue"
	announceworker "github.com/okian/cfduel/internal/adapters/mq/worker"
	"github.com/okian/cfduel/internal/adapters/registry"
	"github.com/okian/cfduel/internal/adapters/teams"
	"github.com/okian/cfduel/internal/config"
	"github.com/okian/cfduel/internal/domain/model"
	"github.com/okian/cfduel/internal/domain/reconcile"
	"github.com/okian/cfduel/internal/domain/selector"
	"github.com/okian/cfduel/pkg/logger"
	"github.com/okian/cfduel/pkg/metrics"
)

// Rejection reasons recorded on duel start failures.
const (
	rejectNotLinked = "not_linked"
	rejectBadArgs   = "bad_args"
	rejectActive    = "already_active"
	rejectCapacity  = "capacity"
	rejectSelection = "selection"
	rejectSelf      = "self"
)

// Finalization triggers recorded on duel completion.
const (
	triggerReconcile = "reconcile"
	triggerTimeout   = "timeout"
	triggerManual    = "manual"
	triggerAutoCheck = "auto_check"
)

// Fetcher is the judge surface the service depends on. Satisfied by the
// judge client.
type Fetcher interface {
	Submissions(ctx context.Context, handle string) (model.SubmissionHistory, error)
	Problemset(ctx context.Context) ([]model.Problem, error)
}

// Service implements the duel engine operations.
type Service struct {
	mu sync.RWMutex

	// Core components
	fetcher   Fetcher
	registry  *registry.Registry
	selector  *selector.Selector
	engine    *reconcile.Engine
	archive   archive.Archive
	links     *links.Store
	teams     *teams.Manager
	queue     announcequeue.Queue
	pool      *announceworker.Pool
	sink      announceworker.Sink
	scheduler gocron.Scheduler

	// Configuration
	cfg *config.Config
	now func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFetcher sets the judge client.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithArchive overrides the archive backend, bypassing the configured
// driver.
func WithArchive(a archive.Archive) Option {
	return func(s *Service) {
		if a != nil {
			s.archive = a
		}
	}
}

// WithLinks overrides the handle store.
func WithLinks(l *links.Store) Option {
	return func(s *Service) {
		if l != nil {
			s.links = l
		}
	}
}

// WithSink sets the announcement destination.
func WithSink(sink announceworker.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithClock overrides the service clock, e.g. for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over cfg. Start must be called before any
// duel operation.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}

	s := &Service{
		cfg: cfg,
		now: time.Now,
	}

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

	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	s.logger.Info(ctx, "starting duel service...")

	s.registry = registry.New(registry.WithCapacity(s.cfg.MaxActiveDuels))
	s.teams = teams.New()
	s.selector = selector.New(s.fetcher)
	s.engine = reconcile.New(s.fetcher, reconcile.WithClock(s.now))

	if s.links == nil {
		store, err := links.New(s.cfg.HandlesFile, s.fetcher)
		if err != nil {
			return fmt.Errorf("open handle store: %w", err)
		}
		s.links = store
	}

	if s.archive == nil {
		a, err := s.openArchive()
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		s.archive = a
	}

	if s.sink == nil {
		s.sink = newLogSink()
	}
	s.queue = announcequeue.NewInMemoryQueue(
		announcequeue.WithCapacity(s.cfg.AnnounceQueueSize),
	)
	s.pool = announceworker.NewPool(s.cfg.AnnounceWorkers, s.queue, s.sink)
	s.pool.Start(ctx)

	if err := s.startScheduler(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "duel service started",
		logger.Int("max_active_duels", s.cfg.MaxActiveDuels),
		logger.Int("sweep_interval_s", s.cfg.SweepIntervalS),
		logger.String("archive_driver", s.cfg.ArchiveDriver),
	)
	return nil
}

func (s *Service) openArchive() (archive.Archive, error) {
	switch s.cfg.ArchiveDriver {
	case "postgres":
		return archive.NewPostgres(s.cfg.PostgresDSN, archive.WithMaxRecent(s.cfg.MaxRecent))
	default:
		return archive.NewFile(s.cfg.RecentFile, archive.WithMaxRecent(s.cfg.MaxRecent))
	}
}

// startScheduler launches the timeout sweep and, when enabled, the
// periodic auto reconciliation. Both jobs run in singleton mode so a
// slow pass is never overlapped by the next tick.
func (s *Service) startScheduler() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("new scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(time.Duration(s.cfg.SweepIntervalS)*time.Second),
		gocron.NewTask(func() { s.sweep(context.Background()) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("sweep job: %w", err)
	}

	if s.cfg.AutoCheckIntervalS > 0 {
		_, err = sched.NewJob(
			gocron.DurationJob(time.Duration(s.cfg.AutoCheckIntervalS)*time.Second),
			gocron.NewTask(func() { s.autoCheck(context.Background()) }),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("auto-check job: %w", err)
		}
	}

	sched.Start()
	s.scheduler = sched
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(ctx, "stopping duel service...")

	if s.scheduler != nil {
		if err := s.scheduler.Shutdown(); err != nil {
			s.logger.Error(ctx, "scheduler shutdown failed", logger.Error(err))
		}
	}
	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "duel service stopped")
}

// StartDuel begins a duel between requester and opponent. Both must have
// linked handles, the pair must not already be dueling, and the active
// ceiling must have room. args follows the rating grammar of
// model.RatingsFromArgs.
func (s *Service) StartDuel(ctx context.Context, requesterID, opponentID, channel string, args []int) (model.SessionSnapshot, error) {
	if err := s.ready(); err != nil {
		return model.SessionSnapshot{}, err
	}

	if requesterID == opponentID {
		metrics.RecordDuelRejected(rejectSelf)
		return model.SessionSnapshot{}, ErrSelfDuel
	}

	h1, ok := s.links.Handle(requesterID)
	if !ok {
		metrics.RecordDuelRejected(rejectNotLinked)
		return model.SessionSnapshot{}, fmt.Errorf("requester %s: %w", requesterID, ErrHandleNotLinked)
	}
	h2, ok := s.links.Handle(opponentID)
	if !ok {
		metrics.RecordDuelRejected(rejectNotLinked)
		return model.SessionSnapshot{}, fmt.Errorf("opponent %s: %w", opponentID, ErrHandleNotLinked)
	}

	ratings, timeMin, err := model.RatingsFromArgs(args, s.cfg.DefaultTimeLimitMin)
	if err != nil {
		metrics.RecordDuelRejected(rejectBadArgs)
		return model.SessionSnapshot{}, err
	}

	// cheap pre-check before the expensive selection round-trips;
	// Create below is the authoritative one
	if _, active := s.registry.Get(model.NewPairKey(requesterID, opponentID)); active {
		metrics.RecordDuelRejected(rejectActive)
		return model.SessionSnapshot{}, registry.ErrAlreadyActive
	}

	problems, err := s.selector.Select(ctx, h1, h2, ratings)
	if err != nil {
		metrics.RecordDuelRejected(rejectSelection)
		return model.SessionSnapshot{}, fmt.Errorf("select problems: %w", err)
	}

	duel := model.NewDuelSession(
		[2]string{requesterID, opponentID},
		[2]string{h1, h2},
		problems, ratings,
		time.Duration(timeMin)*time.Minute,
		channel,
	)
	if err := s.registry.Create(duel); err != nil {
		switch err {
		case registry.ErrCapacityExceeded:
			metrics.RecordDuelRejected(rejectCapacity)
		default:
			metrics.RecordDuelRejected(rejectActive)
		}
		return model.SessionSnapshot{}, err
	}

	metrics.RecordDuelStarted()
	s.logger.Info(ctx, "duel started",
		logger.String("duel_id", duel.ID),
		logger.String("requester", h1),
		logger.String("opponent", h2),
		logger.Int("problems", len(problems)),
		logger.Int("time_limit_min", timeMin),
	)

	duel.Lock()
	snap := duel.Snapshot(s.now())
	duel.Unlock()

	s.announce(ctx, model.Announcement{
		Channel:  channel,
		Kind:     model.AnnounceStarted,
		DuelID:   duel.ID,
		Handles:  duel.Handles,
		TimeLeft: snap.TimeLeft,
	})
	return snap, nil
}

// Reconcile runs an on-demand reconciliation pass for userID's duel,
// finalizing it when every problem is resolved or time ran out. It
// returns the newly resolved problems and the resulting snapshot.
func (s *Service) Reconcile(ctx context.Context, userID string) ([]model.Resolution, model.SessionSnapshot, error) {
	if err := s.ready(); err != nil {
		return nil, model.SessionSnapshot{}, err
	}

	duel, ok := s.registry.FindByUser(userID)
	if !ok {
		return nil, model.SessionSnapshot{}, ErrNotInSession
	}
	return s.reconcileSession(ctx, duel, triggerReconcile)
}

func (s *Service) reconcileSession(ctx context.Context, duel *model.DuelSession, trigger string) ([]model.Resolution, model.SessionSnapshot, error) {
	resolved, shouldFinalize, err := s.engine.Reconcile(ctx, duel)
	if err != nil {
		return nil, model.SessionSnapshot{}, fmt.Errorf("reconcile duel %s: %w", duel.ID, err)
	}

	duel.Lock()
	snap := duel.Snapshot(s.now())
	scores := snap.Scores
	duel.Unlock()

	if len(resolved) > 0 && !shouldFinalize {
		s.announce(ctx, model.Announcement{
			Channel:     duel.Channel,
			Kind:        model.AnnounceUpdate,
			DuelID:      duel.ID,
			Handles:     duel.Handles,
			Resolutions: resolved,
			Scores:      scores,
			TimeLeft:    snap.TimeLeft,
		})
	}
	if shouldFinalize {
		s.finalize(ctx, duel, trigger, resolved)
		duel.Lock()
		snap = duel.Snapshot(s.now())
		duel.Unlock()
	}
	return resolved, snap, nil
}

// Status returns the snapshot of userID's active duel.
func (s *Service) Status(_ context.Context, userID string) (model.SessionSnapshot, error) {
	if err := s.ready(); err != nil {
		return model.SessionSnapshot{}, err
	}

	duel, ok := s.registry.FindByUser(userID)
	if !ok {
		return model.SessionSnapshot{}, ErrNotInSession
	}

	duel.Lock()
	defer duel.Unlock()
	return duel.Snapshot(s.now()), nil
}

// EndDuel aborts userID's active duel immediately, finalizing with the
// scores as they stand.
func (s *Service) EndDuel(ctx context.Context, userID string) (model.SessionSnapshot, error) {
	if err := s.ready(); err != nil {
		return model.SessionSnapshot{}, err
	}

	duel, ok := s.registry.FindByUser(userID)
	if !ok {
		return model.SessionSnapshot{}, ErrNotInSession
	}

	s.finalize(ctx, duel, triggerManual, nil)

	duel.Lock()
	defer duel.Unlock()
	return duel.Snapshot(s.now()), nil
}

// Recent returns the archived finalized duels, newest first.
func (s *Service) Recent(ctx context.Context) ([]model.RecentDuelRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.archive.Recent(ctx)
}

// Active returns snapshots of every running duel.
func (s *Service) Active(_ context.Context) []model.SessionSnapshot {
	if err := s.ready(); err != nil {
		return nil
	}

	sessions := s.registry.Active()
	now := s.now()
	out := make([]model.SessionSnapshot, 0, len(sessions))
	for _, duel := range sessions {
		duel.Lock()
		out = append(out, duel.Snapshot(now))
		duel.Unlock()
	}
	return out
}

// LinkHandle claims a judge handle for userID.
func (s *Service) LinkHandle(ctx context.Context, userID, handle string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.links.Link(ctx, userID, handle)
}

// UnlinkHandle releases userID's judge handle.
func (s *Service) UnlinkHandle(ctx context.Context, userID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.links.Unlink(ctx, userID)
}

// HandleOf returns userID's linked judge handle.
func (s *Service) HandleOf(_ context.Context, userID string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}

	h, ok := s.links.Handle(userID)
	if !ok {
		return "", ErrHandleNotLinked
	}
	return h, nil
}

// CreateTeam registers a team with userID as its first member.
func (s *Service) CreateTeam(_ context.Context, name, userID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.teams.Create(name, userID)
}

// JoinTeam adds userID to an existing team.
func (s *Service) JoinTeam(_ context.Context, name, userID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.teams.Join(name, userID)
}

// LeaveTeam removes userID from their team.
func (s *Service) LeaveTeam(_ context.Context, userID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.teams.Leave(userID)
}

// MyTeam returns the team userID belongs to.
func (s *Service) MyTeam(_ context.Context, userID string) (teams.Team, error) {
	if err := s.ready(); err != nil {
		return teams.Team{}, err
	}
	return s.teams.TeamFor(userID)
}

// Teams lists all teams.
func (s *Service) Teams(_ context.Context) []teams.Team {
	if err := s.ready(); err != nil {
		return nil
	}
	return s.teams.List()
}

// finalize ends a duel exactly once: the Ended flag flips under the
// session lock, so concurrent reconcile, sweep and manual-end callers
// collapse into a single archival record and final announcement.
func (s *Service) finalize(ctx context.Context, duel *model.DuelSession, trigger string, resolved []model.Resolution) {
	duel.Lock()
	if duel.Ended {
		duel.Unlock()
		return
	}
	duel.Ended = true

	now := s.now()
	rec := model.NewRecentRecord(duel, now)
	verdict := rec.Verdict
	scores := make(map[string]int, len(duel.Scores))
	for h, sc := range duel.Scores {
		scores[h] = sc
	}
	duel.Unlock()

	s.registry.Remove(duel.Key())

	s.announce(ctx, model.Announcement{
		Channel:     duel.Channel,
		Kind:        model.AnnounceFinal,
		DuelID:      duel.ID,
		Handles:     duel.Handles,
		Resolutions: resolved,
		Scores:      scores,
		Verdict:     &verdict,
	})

	if err := s.archive.Append(ctx, rec); err != nil {
		s.logger.Error(ctx, "archiving finalized duel failed",
			logger.String("duel_id", duel.ID),
			logger.Error(err),
		)
	}

	metrics.RecordDuelFinalized(trigger)
	s.logger.Info(ctx, "duel finalized",
		logger.String("duel_id", duel.ID),
		logger.String("trigger", trigger),
		logger.String("winner", verdict.Winner),
	)
}

// sweep finalizes every expired session. Per-session failures are logged
// and skipped so one bad duel never blocks the rest.
func (s *Service) sweep(ctx context.Context) {
	now := s.now()
	for _, duel := range s.registry.Active() {
		duel.Lock()
		expired := !duel.Ended && duel.Expired(now)
		duel.Unlock()

		if expired {
			s.finalize(ctx, duel, triggerTimeout, nil)
		}
	}
}

// autoCheck reconciles every active session, used only when the periodic
// check is enabled in config.
func (s *Service) autoCheck(ctx context.Context) {
	for _, duel := range s.registry.Active() {
		if _, _, err := s.reconcileSession(ctx, duel, triggerAutoCheck); err != nil {
			s.logger.Warn(ctx, "auto reconciliation failed",
				logger.String("duel_id", duel.ID),
				logger.Error(err),
			)
		}
	}
}

// announce enqueues an announcement without ever blocking duel state.
func (s *Service) announce(ctx context.Context, a model.Announcement) {
	if !s.queue.Enqueue(ctx, a) {
		s.logger.Warn(ctx, "announcement dropped",
			logger.String("duel_id", a.DuelID),
			logger.String("kind", string(a.Kind)),
		)
	}
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}
