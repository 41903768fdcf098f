package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-transition/internal/dto"
	"github.com/noah-isme/sma-academic-transition/internal/models"
	"github.com/noah-isme/sma-academic-transition/internal/repository"
	"github.com/noah-isme/sma-academic-transition/internal/store"
	appErrors "github.com/noah-isme/sma-academic-transition/pkg/errors"
)

// DefaultTransitionTimeout bounds a run when no timeout is configured.
const DefaultTransitionTimeout = 5 * time.Minute

type transitionStudentStore interface {
	Each(ctx context.Context, pageSize int, visit repository.StudentVisitor) error
	TransitionOp(id string, t repository.StudentTransition) store.WriteOp
}

type transitionLedgerStore interface {
	ledgerReader
	SaveOp(ledger models.FeeLedger) (store.WriteOp, error)
	MergeOp(ledger models.FeeLedger) (store.WriteOp, error)
}

type yearScopedStore interface {
	Collection() string
	EachForYear(ctx context.Context, year string, pageSize int, fn func(models.YearScopedDocument) error) error
	CopyOp(doc models.YearScopedDocument, newYear string) store.WriteOp
}

type academicYearStore interface {
	Get(ctx context.Context) (*models.AcademicYearConfig, error)
	SaveOp(cfg models.AcademicYearConfig) (store.WriteOp, error)
}

type runLocker interface {
	Acquire(ctx context.Context, token string) error
	Release(ctx context.Context, token string) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string)
}

// OutcomeRecorder receives every student a run transitions.
type OutcomeRecorder func(models.StudentOutcome)

// TransitionConfig tunes a transition run.
type TransitionConfig struct {
	BatchThreshold  int
	PageSize        int
	Timeout         time.Duration
	ContinueOnError bool
}

// TransitionService drives the yearly academic transition.
type TransitionService struct {
	committer   repository.BatchCommitter
	students    transitionStudentStore
	ledgers     transitionLedgerStore
	assignments yearScopedStore
	timetables  yearScopedStore
	years       academicYearStore
	reconciler  *LedgerReconciler
	promotion   *PromotionService
	lock        runLocker
	cache       cacheInvalidator
	metrics     *MetricsService
	recorder    OutcomeRecorder
	validator   *validator.Validate
	logger      *zap.Logger
	config      TransitionConfig
	now         func() time.Time
}

// TransitionServiceOption configures the service.
type TransitionServiceOption func(*TransitionService)

// WithTransitionConfig overrides batching, paging, timeout and failure isolation.
func WithTransitionConfig(cfg TransitionConfig) TransitionServiceOption {
	return func(s *TransitionService) {
		if cfg.BatchThreshold > 0 {
			s.config.BatchThreshold = cfg.BatchThreshold
		}
		if cfg.PageSize > 0 {
			s.config.PageSize = cfg.PageSize
		}
		if cfg.Timeout > 0 {
			s.config.Timeout = cfg.Timeout
		}
		s.config.ContinueOnError = cfg.ContinueOnError
	}
}

// WithClassSequence replaces the default class sequence.
func WithClassSequence(seq *ClassSequence) TransitionServiceOption {
	return func(s *TransitionService) {
		if seq != nil {
			s.promotion = NewPromotionService(seq)
		}
	}
}

// WithRunLock prevents concurrent runs across instances.
func WithRunLock(lock runLocker) TransitionServiceOption {
	return func(s *TransitionService) {
		s.lock = lock
	}
}

// WithTransitionCache invalidates cached academic year reads after a run.
func WithTransitionCache(cache cacheInvalidator) TransitionServiceOption {
	return func(s *TransitionService) {
		s.cache = cache
	}
}

// WithTransitionMetrics records run, student and batch metrics.
func WithTransitionMetrics(metrics *MetricsService) TransitionServiceOption {
	return func(s *TransitionService) {
		s.metrics = metrics
	}
}

// WithOutcomeRecorder streams per-student outcomes to fn.
func WithOutcomeRecorder(fn OutcomeRecorder) TransitionServiceOption {
	return func(s *TransitionService) {
		s.recorder = fn
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TransitionServiceOption {
	return func(s *TransitionService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTransitionService constructs the service.
func NewTransitionService(
	committer repository.BatchCommitter,
	students transitionStudentStore,
	ledgers transitionLedgerStore,
	assignments yearScopedStore,
	timetables yearScopedStore,
	years academicYearStore,
	validate *validator.Validate,
	logger *zap.Logger,
	opts ...TransitionServiceOption,
) *TransitionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &TransitionService{
		committer:   committer,
		students:    students,
		ledgers:     ledgers,
		assignments: assignments,
		timetables:  timetables,
		years:       years,
		reconciler:  NewLedgerReconciler(ledgers, logger),
		promotion:   NewPromotionService(nil),
		validator:   validate,
		logger:      logger,
		config: TransitionConfig{
			BatchThreshold: repository.DefaultBatchThreshold,
			PageSize:       store.DefaultPageSize,
			Timeout:        DefaultTransitionTimeout,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Run transitions every active student into req.NewYear. Writes committed before
// a failure stay committed; re-running the same year skips students already moved.
func (s *TransitionService) Run(ctx context.Context, req dto.TransitionRequest, actor *models.JWTClaims) (*dto.TransitionResult, error) {
	started := s.now()

	if actor == nil {
		s.metrics.RecordTransitionRun("rejected", 0)
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if !actor.Role.IsAdministrative() {
		s.metrics.RecordTransitionRun("rejected", 0)
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can run the academic year transition")
	}

	req.NewYear = strings.TrimSpace(req.NewYear)
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordTransitionRun("rejected", 0)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition request")
	}
	if req.NewYear == models.UnknownAcademicYear {
		s.metrics.RecordTransitionRun("rejected", 0)
		return nil, appErrors.Clone(appErrors.ErrValidation, "newYear is not a valid academic year label")
	}

	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID), zap.String("to_year", req.NewYear), zap.String("actor", actor.UserID))

	if s.lock != nil {
		if err := s.lock.Acquire(ctx, runID); err != nil {
			s.metrics.RecordTransitionRun("rejected", 0)
			if errors.Is(err, repository.ErrLockHeld) {
				return nil, appErrors.ErrTransitionInProgress
			}
			return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to acquire transition lock")
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := s.lock.Release(releaseCtx, runID); err != nil {
				logger.Warn("release transition lock failed", zap.Error(err))
			}
		}()
	}

	runCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	result, err := s.run(runCtx, runID, req.NewYear, started, logger)
	elapsed := s.now().Sub(started)
	if err != nil {
		appErr := classifyRunError(err)
		if appErr.Code == appErrors.ErrValidation.Code {
			s.metrics.RecordTransitionRun("rejected", 0)
		} else {
			s.metrics.RecordTransitionRun("failed", elapsed)
			logger.Error("academic year transition aborted", zap.Error(err), zap.Duration("elapsed", elapsed))
		}
		return nil, appErr
	}

	s.metrics.RecordTransitionRun("success", elapsed)
	if s.cache != nil {
		s.cache.Invalidate(context.WithoutCancel(ctx), AcademicYearCachePattern)
	}
	logger.Info("academic year transition completed",
		zap.String("from_year", result.FromYear),
		zap.Int("promoted", result.PromotedCount),
		zap.Int("retained", result.RetainedCount),
		zap.Int("graduated", result.GraduatedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("failures", len(result.Failures)),
		zap.Int("batches", result.BatchesCommitted),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

func (s *TransitionService) run(ctx context.Context, runID, newYear string, started time.Time, logger *zap.Logger) (*dto.TransitionResult, error) {
	cfg, err := s.years.Get(ctx)
	if err != nil {
		return nil, wrapStoreError(err, "failed to load academic year config")
	}
	if cfg == nil {
		cfg = &models.AcademicYearConfig{}
	}
	if strings.TrimSpace(cfg.CurrentYear) == "" {
		cfg.CurrentYear = models.UnknownAcademicYear
	}
	currentYear := cfg.CurrentYear

	if newYear == currentYear {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("academic year %s is already the current year", newYear))
	}
	if cfg.HasArchived(newYear) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("academic year %s has already been archived", newYear))
	}

	logger = logger.With(zap.String("from_year", currentYear))
	logger.Info("academic year transition started")

	result := &dto.TransitionResult{
		RunID:     runID,
		FromYear:  currentYear,
		ToYear:    newYear,
		Warnings:  []models.DataIntegrityWarning{},
		Failures:  []models.StudentFailure{},
		StartedAt: started,
	}
	writer := repository.NewBatchWriter(s.committer, s.config.BatchThreshold,
		repository.WithBatchLogger(logger),
		repository.WithCommitObserver(s.metrics.ObserveBatchCommit),
	)

	if cfg.IsKnown() {
		if result.AssignmentsCopied, err = s.copyYearScoped(ctx, writer, s.assignments, currentYear, newYear); err != nil {
			return nil, err
		}
		if result.TimetablesCopied, err = s.copyYearScoped(ctx, writer, s.timetables, currentYear, newYear); err != nil {
			return nil, err
		}
	}

	pass := &studentPass{svc: s, writer: writer, result: result, currentYear: currentYear, newYear: newYear, logger: logger}
	err = s.students.Each(ctx, s.config.PageSize, func(id string, student *models.Student, decodeErr error) error {
		return pass.visit(ctx, id, student, decodeErr)
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to iterate students")
	}

	now := s.now()
	next := *cfg
	next.CurrentYear = newYear
	next.CurrentYearStartDate = &now
	if cfg.IsKnown() {
		next.History = archiveYear(cfg.History, models.YearHistoryEntry{
			Year:          currentYear,
			ArchivedAt:    now,
			PromotedCount: result.PromotedCount,
			ArchivedCount: result.RetainedCount,
			Stats:         result.Stats(),
		})
	}
	next.Upcoming = withoutYear(cfg.Upcoming, newYear)

	op, err := s.years.SaveOp(next)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode academic year config")
	}
	if err := writer.Stage(ctx, op); err != nil {
		return nil, wrapStoreError(err, "failed to stage academic year config")
	}
	if err := writer.FlushAll(ctx); err != nil {
		return nil, wrapStoreError(err, "failed to commit final batch")
	}

	result.BatchesCommitted = writer.Batches()
	result.OperationsCommitted = writer.Operations()
	result.CompletedAt = s.now()
	return result, nil
}

func (s *TransitionService) copyYearScoped(ctx context.Context, writer *repository.BatchWriter, repo yearScopedStore, fromYear, toYear string) (int, error) {
	copied := 0
	err := repo.EachForYear(ctx, fromYear, s.config.PageSize, func(doc models.YearScopedDocument) error {
		if err := writer.Stage(ctx, repo.CopyOp(doc, toYear)); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, wrapStoreError(err, "failed to copy "+repo.Collection())
	}
	return copied, nil
}

// studentPass holds the state of one pass over the student collection.
type studentPass struct {
	svc         *TransitionService
	writer      *repository.BatchWriter
	result      *dto.TransitionResult
	currentYear string
	newYear     string
	logger      *zap.Logger
}

func (p *studentPass) visit(ctx context.Context, id string, student *models.Student, decodeErr error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if decodeErr != nil {
		return p.fail(id, appErrors.Wrap(decodeErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read student "+id))
	}
	if student.AcademicYear == p.newYear || student.IsArchived() {
		p.result.SkippedCount++
		return nil
	}

	sourceYear := student.AcademicYear
	if sourceYear == "" {
		sourceYear = p.currentYear
	}

	balance, err := p.svc.reconciler.PendingBalance(ctx, student.SchoolID, sourceYear)
	if err != nil {
		return p.fail(id, wrapStoreError(err, "failed to reconcile ledger for student "+id))
	}
	p.result.Warnings = append(p.result.Warnings, balance.Warnings...)

	decision := p.svc.promotion.Decide(*student)
	carried := math.Max(0, balance.Pending)
	now := p.svc.now()

	ledger, existed, warnings, err := p.svc.buildLedger(ctx, student.SchoolID, sourceYear, p.newYear, carried, now)
	if err != nil {
		return p.fail(id, wrapStoreError(err, "failed to load new ledger for student "+id))
	}
	p.result.Warnings = append(p.result.Warnings, warnings...)

	encode := p.svc.ledgers.SaveOp
	if existed {
		encode = p.svc.ledgers.MergeOp
	}
	ledgerOp, err := encode(ledger)
	if err != nil {
		return p.fail(id, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode ledger for student "+id))
	}
	studentOp := p.svc.students.TransitionOp(id, repository.StudentTransition{
		AcademicYear:       p.newYear,
		ClassID:            decision.NewClassID,
		ClassName:          decision.NewClassName,
		Status:             decision.NewStatus,
		PreviousYearStatus: student.Status,
		PreviousClassID:    student.ClassID,
		TransitionedAt:     now,
	})

	// Ledger first so a student is never tagged with the new year without its ledger.
	if err := p.writer.StageGroup(ctx, ledgerOp, studentOp); err != nil {
		return wrapStoreError(err, "failed to commit transition batch")
	}

	switch decision.Outcome {
	case models.OutcomePromoted:
		p.result.PromotedCount++
	case models.OutcomeRetained:
		p.result.RetainedCount++
	case models.OutcomeGraduated:
		p.result.GraduatedCount++
	}
	p.result.LedgersWritten++
	p.result.CarriedForwardTotal += carried
	p.svc.metrics.RecordStudentOutcome(decision.Outcome)

	if p.svc.recorder != nil {
		p.svc.recorder(models.StudentOutcome{
			StudentID:      id,
			Name:           student.Name,
			FromClassID:    student.ClassID,
			ToClassID:      decision.NewClassID,
			PreviousStatus: student.Status,
			NewStatus:      decision.NewStatus,
			Outcome:        decision.Outcome,
			CarriedForward: carried,
		})
	}
	return nil
}

// fail aborts the pass or, when failures are isolated, records the student and continues.
func (p *studentPass) fail(id string, err error) error {
	if !p.svc.config.ContinueOnError || isContextError(err) {
		return err
	}
	p.logger.Error("student transition failed", zap.String("student_id", id), zap.Error(err))
	p.result.Failures = append(p.result.Failures, models.StudentFailure{StudentID: id, Message: err.Error()})
	return nil
}

// buildLedger returns the new-year ledger seeded with the carried balance and
// whether a ledger for the new year already existed. In that case its
// PREVIOUS_BALANCE item is upserted and totalFee moves by the difference,
// keeping term fees added by the fee sync. A previous balance that no longer
// carries anything is dropped unless part of it was paid.
func (s *TransitionService) buildLedger(ctx context.Context, studentID, sourceYear, newYear string, carried float64, now time.Time) (models.FeeLedger, bool, []models.DataIntegrityWarning, error) {
	existing, warnings, err := s.ledgers.Find(ctx, studentID, newYear)
	if err != nil {
		return models.FeeLedger{}, false, nil, err
	}

	item := models.LedgerItem{
		ID:      models.LedgerItemPreviousBalance,
		Type:    models.LedgerItemPreviousBalance,
		Name:    fmt.Sprintf("Previous balance (%s)", sourceYear),
		Amount:  carried,
		Status:  models.LedgerStatusPending,
		DueDate: now.Format("2006-01-02"),
	}

	if existing == nil {
		ledger := models.FeeLedger{
			StudentID:    studentID,
			AcademicYear: newYear,
			TotalFee:     carried,
			TotalPaid:    0,
			Status:       models.LedgerStatusPaid,
			Items:        []models.LedgerItem{},
			CreatedAt:    &now,
			UpdatedAt:    &now,
		}
		if carried > 0 {
			ledger.Status = models.LedgerStatusPending
			ledger.Items = append(ledger.Items, item)
		}
		return ledger, false, warnings, nil
	}

	ledger := *existing
	ledger.Items = append([]models.LedgerItem(nil), existing.Items...)
	previous := 0.0
	idx := ledger.ItemIndex(models.LedgerItemPreviousBalance)
	if idx >= 0 {
		previous = ledger.Items[idx].Amount
	}
	switch {
	case idx >= 0 && (carried > 0 || ledger.Items[idx].PaidAmount > 0):
		item.PaidAmount = ledger.Items[idx].PaidAmount
		item.Extra = ledger.Items[idx].Extra
		if item.PaidAmount >= item.Amount {
			item.Status = models.LedgerStatusPaid
		}
		ledger.Items[idx] = item
	case carried > 0:
		ledger.Items = append(ledger.Items, item)
	case idx >= 0:
		ledger.Items = append(ledger.Items[:idx], ledger.Items[idx+1:]...)
	}
	ledger.TotalFee += carried - previous
	ledger.Status = models.LedgerStatusPaid
	if ledger.Outstanding() > 0 {
		ledger.Status = models.LedgerStatusPending
	}
	ledger.UpdatedAt = &now
	return ledger, true, warnings, nil
}

// archiveYear appends entry to history, replacing an entry for the same year.
func archiveYear(history []models.YearHistoryEntry, entry models.YearHistoryEntry) []models.YearHistoryEntry {
	out := make([]models.YearHistoryEntry, 0, len(history)+1)
	for _, h := range history {
		if h.Year != entry.Year {
			out = append(out, h)
		}
	}
	return append(out, entry)
}

func withoutYear(years []string, year string) []string {
	out := make([]string, 0, len(years))
	for _, y := range years {
		if y != year {
			out = append(out, y)
		}
	}
	return out
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// wrapStoreError keeps typed errors and context errors intact and tags the rest as store failures.
func wrapStoreError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) || isContextError(err) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, message)
}

func classifyRunError(err error) *appErrors.Error {
	if isContextError(err) {
		return appErrors.Wrap(err, appErrors.ErrCanceled.Code, appErrors.ErrCanceled.Status, "academic year transition canceled")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "academic year transition aborted")
}
