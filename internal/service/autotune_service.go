package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-ops-service/internal/config"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/events"
	"github.com/spec-kit/admin-ops-service/internal/observability"
	"github.com/spec-kit/admin-ops-service/internal/repository"
	"github.com/spec-kit/admin-ops-service/internal/scheduler"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

// RollbackKind is the scheduler kind of rollback messages.
const RollbackKind scheduler.Kind = "autotune.rollback"

// maxRollbackAttempts is the initial attempt plus one retry.
const maxRollbackAttempts = 2

// AutotuneService applies balance adjustment batches and their rollbacks.
type AutotuneService struct {
	workflow
	balances BalanceStore
	reviews  ManualReviewQueue
	bounds   map[string]config.ParameterBounds
	settings config.AutotuneConfig
}

// AutotuneDependencies bundles the autotune-specific collaborators.
type AutotuneDependencies struct {
	Balances BalanceStore
	Reviews  ManualReviewQueue
	Bounds   map[string]config.ParameterBounds
	Settings config.AutotuneConfig
}

// ApplyInput is one adjustment batch.
type ApplyInput struct {
	BatchID string
	Actions []domain.AdjustmentAction
}

type rollbackRef struct {
	BatchID  string
	ActionID string
	// Outcome is set once the attempt ran and only its result is left to store.
	Outcome *rollbackOutcome
}

type rollbackOutcome struct {
	Error   string
	Unknown bool
}

// NewAutotuneService constructs the service.
func NewAutotuneService(deps Dependencies, at AutotuneDependencies) *AutotuneService {
	return &AutotuneService{
		workflow: workflow{deps},
		balances: at.Balances,
		reviews:  at.Reviews,
		bounds:   at.Bounds,
		settings: at.Settings,
	}
}

// Apply validates each action independently, applies the valid ones, and
// schedules rollbacks for those that ask for one. The batch and its action ids
// are reserved in the store before any parameter moves; if the final result
// cannot be stored the applied actions are undone.
func (s *AutotuneService) Apply(ctx context.Context, actor domain.Actor, input ApplyInput) (*domain.AutotuneResult, error) {
	if err := requireRole(actor, "apply balance adjustments", domain.StaffRoleAdmin, domain.StaffRoleSystem); err != nil {
		return nil, err
	}
	if len(input.Actions) == 0 {
		return nil, apperrors.NewValidationError("batch has no actions", map[string]any{"actions": "required"})
	}
	batchID := input.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}
	if _, _, err := s.Store.AutotuneResults.Get(ctx, batchID); err == nil {
		return nil, apperrors.NewConflict("batch already applied", map[string]any{"batch_id": batchID})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}

	now := s.Clock.Now()
	result := &domain.AutotuneResult{
		BatchID:            batchID,
		Status:             domain.AutotuneApplying,
		AppliedActions:     []domain.AppliedAction{},
		RejectedActions:    []domain.RejectedAction{},
		ScheduledRollbacks: []domain.ScheduledRollback{},
		SubmittedBy:        actor.ID,
		CreatedAt:          now,
	}

	seen := make(map[string]struct{}, len(input.Actions))
	candidates := make([]domain.AdjustmentAction, 0, len(input.Actions))
	for _, action := range input.Actions {
		if reason := s.precheck(ctx, action, seen); reason != "" {
			s.reject(result, action, reason)
			continue
		}
		seen[action.ActionID] = struct{}{}
		candidates = append(candidates, action)
	}

	if err := s.reserve(ctx, result, candidates); err != nil {
		return nil, err
	}

	for _, action := range candidates {
		bounds := s.bounds[action.Parameter]
		oldValue, newValue, err := s.balances.Adjust(ctx, action.Parameter, action.Delta, bounds)
		if err != nil {
			s.reject(result, action, adjustReason(err, action.Parameter, newValue, bounds))
			continue
		}
		observability.AutotuneActionsTotal.WithLabelValues("applied").Inc()
		result.AppliedActions = append(result.AppliedActions, domain.AppliedAction{
			Action:    action,
			OldValue:  oldValue,
			NewValue:  newValue,
			AppliedAt: now,
		})
		if secs, ok := action.RollbackAfterSeconds.Get(); ok {
			result.ScheduledRollbacks = append(result.ScheduledRollbacks, domain.ScheduledRollback{
				Action:     action,
				RollbackAt: now.Add(time.Duration(secs) * time.Second),
				State:      domain.RollbackPending,
			})
		}
	}

	switch {
	case len(result.RejectedActions) == 0:
		result.Status = domain.AutotuneAccepted
	case len(result.AppliedActions) == 0:
		result.Status = domain.AutotuneRejected
	default:
		result.Status = domain.AutotunePartiallyApplied
	}

	if err := s.finish(ctx, result); err != nil {
		s.Logger.Error("persist autotune result, undoing applied actions",
			zap.String("batch_id", batchID),
			zap.Int("applied", len(result.AppliedActions)),
			zap.Error(err))
		s.compensate(ctx, result)
		return nil, apperrors.MapError(err)
	}

	for _, rb := range result.ScheduledRollbacks {
		s.Timers.Schedule(rollbackKey(rb.Action.ActionID), rb.RollbackAt, RollbackKind,
			rollbackRef{BatchID: batchID, ActionID: rb.Action.ActionID})
	}
	s.publish(ctx, events.Event{
		Type:     events.EventAutotuneApplied,
		EntityID: batchID,
		Actor:    actor,
		Payload: events.AutotuneAppliedPayload{
			Status:   result.Status,
			Applied:  len(result.AppliedActions),
			Rejected: len(result.RejectedActions),
		},
	})
	return result, nil
}

// reserve stores the batch in the applying state together with an index row
// for every action id that passed precheck. Nothing has been applied yet, so
// a failure here leaves no trace.
func (s *AutotuneService) reserve(ctx context.Context, result *domain.AutotuneResult, candidates []domain.AdjustmentAction) error {
	resultWrite, err := s.Store.AutotuneResults.Put(result.BatchID, 0, result)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	writes := []repository.Write{resultWrite}
	for _, action := range candidates {
		idx, err := s.Store.RollbackIndex.Put(action.ActionID, 0, &domain.RollbackIndex{ActionID: action.ActionID, BatchID: result.BatchID})
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		writes = append(writes, idx)
	}
	if err := s.commit(ctx, writes); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return apperrors.NewConflict("batch or action id already used", map[string]any{"batch_id": result.BatchID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// finish replaces the reserved batch with its outcome.
func (s *AutotuneService) finish(ctx context.Context, result *domain.AutotuneResult) error {
	return s.retry(ctx, "autotune.apply", func(ctx context.Context) error {
		_, version, err := s.Store.AutotuneResults.Get(ctx, result.BatchID)
		if err != nil {
			return err
		}
		write, err := s.Store.AutotuneResults.Put(result.BatchID, version, result)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		return s.commit(ctx, []repository.Write{write})
	})
}

// compensate undoes applied actions in reverse order. An inverse that no
// longer fits goes to manual review.
func (s *AutotuneService) compensate(ctx context.Context, result *domain.AutotuneResult) {
	ctx = context.WithoutCancel(ctx)
	for i := len(result.AppliedActions) - 1; i >= 0; i-- {
		inverse := result.AppliedActions[i].Action.Inverse()
		err := s.applyInverse(ctx, inverse)
		if err == nil {
			continue
		}
		s.Logger.Error("undo applied action",
			zap.String("batch_id", result.BatchID),
			zap.String("action_id", inverse.ActionID),
			zap.Error(err))
		item := domain.ManualReviewItem{
			BatchID:     result.BatchID,
			Action:      inverse,
			Attempts:    1,
			LastError:   err.Error(),
			EscalatedAt: s.Clock.Now(),
		}
		if err := s.reviews.Push(ctx, item); err != nil {
			s.Logger.Error("push manual review item", zap.String("action_id", inverse.ActionID), zap.Error(err))
		}
	}
}

// precheck validates an action against static bounds and returns a
// rejection reason, or "" when the action may be applied.
func (s *AutotuneService) precheck(ctx context.Context, action domain.AdjustmentAction, seen map[string]struct{}) string {
	if strings.TrimSpace(action.ActionID) == "" {
		return "actionId is required"
	}
	if _, dup := seen[action.ActionID]; dup {
		return "duplicate actionId in batch"
	}
	if _, _, err := s.Store.RollbackIndex.Get(ctx, action.ActionID); err == nil {
		return "actionId already submitted in another batch"
	}
	bounds, ok := s.bounds[action.Parameter]
	if !ok {
		return fmt.Sprintf("unknown parameter %q", action.Parameter)
	}
	if math.IsNaN(action.Delta) || math.IsInf(action.Delta, 0) {
		return "delta must be finite"
	}
	if limit := s.maxDelta(bounds); math.Abs(action.Delta) > limit {
		return fmt.Sprintf("|delta| %v exceeds max delta %v", math.Abs(action.Delta), limit)
	}
	if action.RollbackAfterSeconds.IsSet() {
		secs, _ := action.RollbackAfterSeconds.Get()
		if secs <= 0 {
			return "rollbackAfterSeconds must be positive"
		}
		if s.settings.MaxRollbackSeconds > 0 && secs > s.settings.MaxRollbackSeconds {
			return fmt.Sprintf("rollbackAfterSeconds exceeds %d", s.settings.MaxRollbackSeconds)
		}
	}
	return ""
}

func (s *AutotuneService) maxDelta(bounds config.ParameterBounds) float64 {
	if bounds.MaxDelta > 0 {
		return bounds.MaxDelta
	}
	return s.settings.MaxDelta
}

func (s *AutotuneService) reject(result *domain.AutotuneResult, action domain.AdjustmentAction, reason string) {
	observability.AutotuneActionsTotal.WithLabelValues("rejected").Inc()
	result.RejectedActions = append(result.RejectedActions, domain.RejectedAction{Action: action, Reason: reason})
}

func adjustReason(err error, parameter string, next float64, bounds config.ParameterBounds) string {
	if errors.Is(err, ErrOutOfBounds) {
		return fmt.Sprintf("%s would become %v, outside [%v, %v]", parameter, next, bounds.Min, bounds.Max)
	}
	return "apply failed: " + err.Error()
}

// CancelRollback cancels a pending rollback. Canceling twice is a no-op; a
// rollback that already fired cannot be retracted.
func (s *AutotuneService) CancelRollback(ctx context.Context, actor domain.Actor, actionID string) (*domain.ScheduledRollback, error) {
	if err := requireRole(actor, "cancel rollbacks", domain.StaffRoleAdmin, domain.StaffRoleSystem); err != nil {
		return nil, err
	}
	idx, _, err := s.Store.RollbackIndex.Get(ctx, actionID)
	if err != nil {
		return nil, loadErr(err, "scheduled rollback", actionID)
	}

	// An attempt in flight has already touched the parameter; its pending
	// message only stores the outcome and must not be canceled.
	if result, _, err := s.Store.AutotuneResults.Get(ctx, idx.BatchID); err == nil {
		if i := findRollback(result, actionID); i >= 0 && result.ScheduledRollbacks[i].InFlightSince.IsSet() {
			return nil, apperrors.NewConflict("rollback already fired", map[string]any{"action_id": actionID})
		}
	}

	// Removing the timer first makes cancel and delivery mutually exclusive:
	// once the scheduler hands the message to the handler, Cancel reports false.
	timerCanceled := s.Timers.Cancel(rollbackKey(actionID))

	var out domain.ScheduledRollback
	err = s.retry(ctx, "autotune.cancel_rollback", func(ctx context.Context) error {
		result, version, err := s.Store.AutotuneResults.Get(ctx, idx.BatchID)
		if err != nil {
			return loadErr(err, "autotune result", idx.BatchID)
		}
		i := findRollback(result, actionID)
		if i < 0 {
			return apperrors.NewNotFound("scheduled rollback", map[string]any{"action_id": actionID})
		}
		rb := &result.ScheduledRollbacks[i]
		switch {
		case rb.State == domain.RollbackCanceled:
			out = *rb
			return nil
		case rb.State.IsFinal() || rb.InFlightSince.IsSet() || !timerCanceled:
			return apperrors.NewConflict("rollback already fired", map[string]any{
				"action_id": actionID,
				"state":     rb.State,
			})
		}
		rb.State = domain.RollbackCanceled
		rb.SettledAt = nullable.Of(s.Clock.Now())
		write, err := s.Store.AutotuneResults.Put(result.BatchID, version, result)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if err := s.commit(ctx, []repository.Write{write}); err != nil {
			return err
		}
		out = *rb
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &out, nil
}

// HandleRollback applies the inverse of an action when its rollback timer
// fires. A failed attempt is retried once after the retry delay; a second
// failure escalates to manual review.
//
// Each attempt is claimed in the store before the inverse is applied. A
// claim found on delivery means an earlier attempt never stored its outcome;
// that rollback is escalated instead of applied again.
func (s *AutotuneService) HandleRollback(ctx context.Context, msg scheduler.Message) error {
	ref, ok := msg.Payload.(rollbackRef)
	if !ok {
		return nil
	}
	if ref.Outcome == nil {
		rb, stale, err := s.claimRollback(ctx, ref)
		if err != nil {
			s.retryLater(ref, "claim rollback", err)
			return err
		}
		if rb == nil {
			return nil
		}
		outcome := rollbackOutcome{}
		switch {
		case stale:
			outcome.Unknown = true
			outcome.Error = "previous rollback attempt did not record its outcome"
		default:
			if err := s.applyInverse(ctx, rb.Action.Inverse()); err != nil {
				outcome.Error = err.Error()
			}
		}
		ref.Outcome = &outcome
	}
	return s.settleRollback(ctx, ref)
}

// claimRollback marks the next attempt in flight. It returns nil when the
// rollback is gone or already settled, and stale when an earlier claim is
// still open.
func (s *AutotuneService) claimRollback(ctx context.Context, ref rollbackRef) (*domain.ScheduledRollback, bool, error) {
	var (
		claimed *domain.ScheduledRollback
		stale   bool
	)
	err := s.retry(ctx, "autotune.rollback_claim", func(ctx context.Context) error {
		claimed, stale = nil, false
		result, version, err := s.Store.AutotuneResults.Get(ctx, ref.BatchID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		i := findRollback(result, ref.ActionID)
		if i < 0 || result.ScheduledRollbacks[i].State.IsFinal() {
			return nil
		}
		rb := &result.ScheduledRollbacks[i]
		if rb.InFlightSince.IsSet() {
			current := *rb
			claimed, stale = &current, true
			return nil
		}
		rb.Attempts++
		rb.InFlightSince = nullable.Of(s.Clock.Now())
		write, err := s.Store.AutotuneResults.Put(result.BatchID, version, result)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if err := s.commit(ctx, []repository.Write{write}); err != nil {
			return err
		}
		current := *rb
		claimed = &current
		return nil
	})
	return claimed, stale, err
}

// settleRollback stores the outcome of a claimed attempt and reacts to it.
func (s *AutotuneService) settleRollback(ctx context.Context, ref rollbackRef) error {
	outcome := *ref.Outcome
	now := s.Clock.Now()

	var (
		settled domain.ScheduledRollback
		stored  bool
	)
	err := s.retry(ctx, "autotune.rollback", func(ctx context.Context) error {
		stored = false
		result, version, err := s.Store.AutotuneResults.Get(ctx, ref.BatchID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		i := findRollback(result, ref.ActionID)
		if i < 0 || !result.ScheduledRollbacks[i].InFlightSince.IsSet() {
			return nil
		}
		rb := &result.ScheduledRollbacks[i]
		rb.InFlightSince = nullable.Absent[time.Time]()
		switch {
		case outcome.Error == "":
			rb.State = domain.RollbackApplied
			rb.LastError = nullable.Absent[string]()
			rb.SettledAt = nullable.Of(now)
		case !outcome.Unknown && rb.Attempts < maxRollbackAttempts:
			rb.State = domain.RollbackFailed
			rb.LastError = nullable.Of(outcome.Error)
		default:
			rb.State = domain.RollbackEscalated
			rb.LastError = nullable.Of(outcome.Error)
			rb.SettledAt = nullable.Of(now)
		}
		write, err := s.Store.AutotuneResults.Put(result.BatchID, version, result)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if err := s.commit(ctx, []repository.Write{write}); err != nil {
			return err
		}
		settled, stored = *rb, true
		return nil
	})
	if err != nil {
		s.retryLater(ref, "store rollback outcome", err)
		return err
	}
	if !stored {
		return nil
	}

	inverse := settled.Action.Inverse()
	payload := events.RollbackPayload{
		ActionID:  ref.ActionID,
		Parameter: inverse.Parameter,
		Delta:     inverse.Delta,
		Attempts:  settled.Attempts,
		Error:     settled.LastError.OrElse(""),
	}
	actor := domain.SystemActor("autotune-rollback")
	switch settled.State {
	case domain.RollbackApplied:
		observability.RollbacksTotal.WithLabelValues("applied").Inc()
		s.publish(ctx, events.Event{Type: events.EventRollbackApplied, EntityID: ref.BatchID, Actor: actor, Payload: payload})
	case domain.RollbackFailed:
		observability.RollbacksTotal.WithLabelValues("failed").Inc()
		s.Logger.Warn("rollback failed, retrying",
			zap.String("action_id", ref.ActionID),
			zap.Duration("delay", s.settings.RetryDelay()),
			zap.String("error", outcome.Error))
		s.Timers.Schedule(rollbackKey(ref.ActionID), now.Add(s.settings.RetryDelay()), RollbackKind,
			rollbackRef{BatchID: ref.BatchID, ActionID: ref.ActionID})
		s.publish(ctx, events.Event{Type: events.EventRollbackFailed, EntityID: ref.BatchID, Actor: actor, Payload: payload})
	case domain.RollbackEscalated:
		observability.RollbacksTotal.WithLabelValues("escalated").Inc()
		item := domain.ManualReviewItem{
			BatchID:     ref.BatchID,
			Action:      inverse,
			Attempts:    settled.Attempts,
			LastError:   outcome.Error,
			EscalatedAt: now,
		}
		if err := s.reviews.Push(ctx, item); err != nil {
			s.Logger.Error("push manual review item", zap.String("action_id", ref.ActionID), zap.Error(err))
		}
		s.Logger.Error("rollback escalated to manual review",
			zap.String("action_id", ref.ActionID),
			zap.Int("attempts", settled.Attempts),
			zap.String("error", outcome.Error))
		s.publish(ctx, events.Event{Type: events.EventRollbackEscalated, EntityID: ref.BatchID, Actor: actor, Payload: payload})
	}
	return nil
}

// retryLater redelivers ref after the retry delay when the store could not
// be reached. A ref that carries an outcome only stores it again.
func (s *AutotuneService) retryLater(ref rollbackRef, step string, err error) {
	delay := s.settings.RetryDelay()
	s.Logger.Error(step+", retrying",
		zap.String("action_id", ref.ActionID),
		zap.Duration("delay", delay),
		zap.Error(err))
	s.Timers.Schedule(rollbackKey(ref.ActionID), s.Clock.Now().Add(delay), RollbackKind, ref)
}

// applyInverse validates and applies a rollback adjustment.
func (s *AutotuneService) applyInverse(ctx context.Context, inverse domain.AdjustmentAction) error {
	bounds, ok := s.bounds[inverse.Parameter]
	if !ok {
		return apperrors.NewRollbackFailed("parameter no longer tunable", map[string]any{"parameter": inverse.Parameter})
	}
	if math.Abs(inverse.Delta) > s.maxDelta(bounds) {
		return apperrors.NewRollbackFailed("rollback delta exceeds max delta", map[string]any{"delta": inverse.Delta})
	}
	_, next, err := s.balances.Adjust(ctx, inverse.Parameter, inverse.Delta, bounds)
	if err != nil {
		return apperrors.NewRollbackFailed(adjustReason(err, inverse.Parameter, next, bounds), map[string]any{
			"parameter": inverse.Parameter,
			"delta":     inverse.Delta,
		})
	}
	return nil
}

// Get loads a batch result.
func (s *AutotuneService) Get(ctx context.Context, batchID string) (*domain.AutotuneResult, error) {
	result, _, err := s.Store.AutotuneResults.Get(ctx, batchID)
	if err != nil {
		return nil, loadErr(err, "autotune result", batchID)
	}
	return result, nil
}

// ManualReviews lists escalated rollbacks.
func (s *AutotuneService) ManualReviews(ctx context.Context) ([]domain.ManualReviewItem, error) {
	return s.reviews.List(ctx)
}

// Parameter returns the live value of a balance parameter.
func (s *AutotuneService) Parameter(ctx context.Context, name string) (float64, error) {
	if _, ok := s.bounds[name]; !ok {
		return 0, apperrors.NewNotFound("parameter", map[string]any{"parameter": name})
	}
	v, err := s.balances.Value(ctx, name)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return v, nil
}

func findRollback(result *domain.AutotuneResult, actionID string) int {
	for i := range result.ScheduledRollbacks {
		if result.ScheduledRollbacks[i].Action.ActionID == actionID {
			return i
		}
	}
	return -1
}

func rollbackKey(actionID string) string {
	return "autotune:rollback:" + actionID
}
