package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/JonMunkholm/prospector/internal/events"
	"github.com/JonMunkholm/prospector/internal/lock"
	"github.com/JonMunkholm/prospector/internal/logging"
	"github.com/JonMunkholm/prospector/internal/metrics"
	"github.com/JonMunkholm/prospector/internal/prospect"
	"github.com/google/uuid"
)

// Config tunes the import Service.
type Config struct {
	ChunkSize     int
	MaxFileSize   int64
	MaxConcurrent int
	MaxWaitTime   time.Duration
	// Timeout bounds one pass after the file has been read.
	Timeout time.Duration
	LockTTL time.Duration
	Aliases AliasDictionary
}

// Membership answers whether a user may write into a team workspace.
// *prospect.Service implements it.
type Membership interface {
	IsActiveMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
}

// Service is the entry point for uploads. Around each pipeline pass it
// checks team membership, enforces the size limit, bounds concurrency,
// serializes imports per workspace, records metrics and publishes
// import.completed.
type Service struct {
	store   Store
	members Membership
	cfg     Config
	limiter *Limiter
	locker  lock.Locker
	events  events.Publisher
}

// Option customizes a Service.
type Option func(*Service)

// WithLocker serializes imports per workspace through l.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithPublisher sends import.completed events through p.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// NewService builds a Service. Without options imports are not locked and
// no events are sent.
func NewService(store Store, members Membership, cfg Config, opts ...Option) *Service {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	if cfg.Aliases == nil {
		cfg.Aliases = DefaultAliases()
	}

	s := &Service{
		store:   store,
		members: members,
		cfg:     cfg,
		limiter: NewLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		locker:  lock.Nop{},
		events:  events.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Aliases returns the dictionary used for column mapping.
func (s *Service) Aliases() AliasDictionary {
	return s.cfg.Aliases
}

// LimiterStatus reports slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// Drain waits for running imports during shutdown.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.Drain(ctx)
}

// Import reads an uploaded file and runs one pipeline pass for the
// session's workspace.
func (s *Service) Import(ctx context.Context, sess prospect.Session, fileName string, r io.Reader) (*Report, error) {
	start := time.Now()

	scope, err := sess.Scope()
	if err != nil {
		return nil, err
	}

	importID := uuid.NewString()
	log := logging.ForImport(ctx, importID, scope.Key(), fileName)

	if err := s.authorize(ctx, sess, scope); err != nil {
		s.finish(log, metrics.OutcomeRejected, nil, start)
		log.Warn("import refused", "user_id", sess.UserID, "error", err)
		return nil, err
	}

	text, err := ReadText(r, s.cfg.MaxFileSize)
	if err != nil {
		s.finish(log, metrics.OutcomeRejected, nil, start)
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		s.finish(log, metrics.OutcomeRejected, nil, start)
		if errors.Is(err, ErrTooManyImports) {
			return nil, err
		}
		return nil, fmt.Errorf("wait for import slot: %w", err)
	}
	defer s.limiter.Release()
	metrics.ImportStarted()
	defer metrics.ImportFinished()

	lease, err := s.locker.Acquire(ctx, "import:"+scope.Key(), s.cfg.LockTTL)
	if err != nil {
		s.finish(log, metrics.OutcomeRejected, nil, start)
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrImportInProgress
		}
		return nil, fmt.Errorf("acquire import lock: %w", err)
	}
	defer func() {
		// Released on a fresh context so a cancelled request still frees it.
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := lease.Release(relCtx); err != nil {
			log.Warn("release import lock", "error", err)
		}
	}()
	defer s.keepAlive(ctx, log, lease)()

	runCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	log.Info("import started", "bytes", len(text))

	pl := Pipeline{
		ImportID:  importID,
		Aliases:   s.cfg.Aliases,
		ChunkSize: s.cfg.ChunkSize,
		Logger:    log,
	}
	report, err := pl.Run(runCtx, s.store, sess, fileName, text)

	var (
		parseErr *ParseError
		persErr  *PersistenceError
	)
	switch {
	case err == nil:
		s.finish(log, metrics.OutcomeSuccess, report, start)
		s.publish(ctx, log, sess, scope, report, false)
		return report, nil

	case errors.As(err, &parseErr):
		s.finish(log, metrics.OutcomeParseError, parseErr.Report, start)
		log.Info("import rejected", "reason", parseErr.Err)
		return nil, err

	case errors.As(err, &persErr):
		s.finish(log, metrics.OutcomePartial, persErr.Partial, start)
		log.Error("import chunk failed",
			"chunk", persErr.Chunk,
			"imported", persErr.Partial.Imported,
			"error", persErr.Err,
		)
		if persErr.Partial.Imported > 0 {
			s.publish(ctx, log, sess, scope, persErr.Partial, true)
		}
		return nil, err

	default:
		s.finish(log, metrics.OutcomeError, nil, start)
		log.Error("import failed", "error", err)
		return nil, err
	}
}

// authorize rejects team imports from anyone who is not an accepted member.
// An unknown team is reported the same way so the response does not reveal
// which team ids exist.
func (s *Service) authorize(ctx context.Context, sess prospect.Session, scope prospect.Scope) error {
	if scope.Kind != prospect.ScopeTeam {
		return nil
	}
	ok, err := s.members.IsActiveMember(ctx, scope.ID, sess.UserID)
	switch {
	case errors.Is(err, prospect.ErrTeamNotFound):
		return prospect.ErrNotTeamMember
	case err != nil:
		return fmt.Errorf("check team membership: %w", err)
	case !ok:
		return prospect.ErrNotTeamMember
	}
	return nil
}

// keepAlive extends lease every third of the lock TTL until the returned
// stop function is called, so a long pass never outlives its lock.
func (s *Service) keepAlive(ctx context.Context, log *slog.Logger, lease lock.Lease) (stop func()) {
	ttl := s.cfg.LockTTL
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lease.Extend(ctx, ttl); err != nil {
					log.Warn("extend import lock", "error", err)
					if errors.Is(err, lock.ErrNotAcquired) {
						return
					}
				}
			}
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}

func (s *Service) finish(log *slog.Logger, outcome string, r *Report, start time.Time) {
	elapsed := time.Since(start)
	var rows metrics.RowCounts
	if r != nil {
		rows = metrics.RowCounts{
			Imported:      r.Imported,
			Duplicates:    r.DuplicatesSkipped,
			SkippedNoName: r.SkippedNoName,
			Malformed:     r.MalformedRows,
		}
	}
	metrics.RecordImport(outcome, rows, elapsed)

	if outcome == metrics.OutcomeSuccess {
		log.Info("import completed",
			"total_rows", r.TotalRows,
			"imported", r.Imported,
			"duplicates", r.DuplicatesSkipped,
			"skipped_no_name", r.SkippedNoName,
			"malformed", r.MalformedRows,
			"columns_mapped", r.ColumnsMapped,
			"duration", elapsed,
		)
	}
}

// publish is best effort: the import has already committed, so a broker
// failure is logged and not returned.
func (s *Service) publish(ctx context.Context, log *slog.Logger, sess prospect.Session, scope prospect.Scope, r *Report, partial bool) {
	ev := events.ImportCompleted{
		ImportID:          r.ImportID,
		Scope:             scope.Key(),
		UserID:            sess.UserID.String(),
		FileName:          r.FileName,
		TotalRows:         r.TotalRows,
		Imported:          r.Imported,
		DuplicatesSkipped: r.DuplicatesSkipped,
		SkippedNoName:     r.SkippedNoName,
		MalformedRows:     r.MalformedRows,
		Partial:           partial,
		CompletedAt:       sess.Clock().UTC(),
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.events.PublishImportCompleted(pubCtx, ev); err != nil {
		log.Warn("publish import.completed", "error", err)
	}
}
