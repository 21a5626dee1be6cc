// Package approval owns the DayOverride state machine:
//
//	pending -> approved | rejected | auto_applied
//	approved | auto_applied -> undone
//
// Every transition is a compare-and-set on the current status, so concurrent
// callers cannot both win.
package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/planadapt-backend/internal/data/aggregates"
	"github.com/yungbote/planadapt-backend/internal/data/repos"
	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	domainagg "github.com/yungbote/planadapt-backend/internal/domain/aggregates"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/params"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
	"github.com/yungbote/planadapt-backend/internal/services"
)

type Workflow struct {
	log      *logger.Logger
	repos    repos.Repos
	writer   *aggregates.Writer
	clk      clock.Clock
	notifier services.Notifier
	metrics  *observability.Metrics
	cfg      params.Approval
}

func NewWorkflow(log *logger.Logger, r repos.Repos, writer *aggregates.Writer, clk clock.Clock, notifier services.Notifier, metrics *observability.Metrics, cfg params.Approval) *Workflow {
	return &Workflow{
		log:      log.With("service", "ApprovalWorkflow"),
		repos:    r,
		writer:   writer,
		clk:      clk,
		notifier: notifier,
		metrics:  metrics,
		cfg:      cfg,
	}
}

// Route returns the action configured for one trigger x domain pair.
func Route(prefs *types.AdjustmentPreferences, t adjustment.TriggerType, d adjustment.Domain) adjustment.Action {
	if prefs == nil || !prefs.DailyAdjustmentsEnabled {
		return adjustment.ActionDisable
	}
	if a, ok := prefs.TriggerActions[adjustment.PreferenceKey(t, d)]; ok && a.Valid() {
		return a
	}
	return adjustment.ActionAskMe
}

// Pair is one trigger acting on one domain.
type Pair struct {
	Trigger adjustment.TriggerType
	Domain  adjustment.Domain
}

// Decide folds the routed actions of every contributing pair. Disabled pairs
// must already be filtered out. The override auto-applies only when every
// pair is auto_apply and confidence clears the threshold.
func (w *Workflow) Decide(prefs *types.AdjustmentPreferences, pairs []Pair, confidence float64) adjustment.Action {
	if len(pairs) == 0 || prefs == nil || !prefs.DailyAdjustmentsEnabled {
		return adjustment.ActionDisable
	}
	for _, p := range pairs {
		if Route(prefs, p.Trigger, p.Domain) != adjustment.ActionAutoApply {
			return adjustment.ActionAskMe
		}
	}
	if confidence <= w.cfg.AutoApplyMinConfidence {
		return adjustment.ActionAskMe
	}
	return adjustment.ActionAutoApply
}

// Propose stores o as pending. With ActionAutoApply it gets a grace deadline
// after which the sweep applies it. A second pending override for the same
// user and date fails with ErrDuplicateOverride.
func (w *Workflow) Propose(ctx context.Context, o *types.DayOverride, prefs *types.AdjustmentPreferences, action adjustment.Action) (*types.DayOverride, error) {
	const op = "approval.propose"
	switch action {
	case adjustment.ActionDisable:
		return nil, nil
	case adjustment.ActionAutoApply, adjustment.ActionAskMe:
	default:
		return nil, aggregates.MapError(op, aggregates.ValidationError(fmt.Sprintf("unknown action %q", action)))
	}
	if o == nil || o.UserID == uuid.Nil || o.OverrideDate == "" {
		return nil, aggregates.MapError(op, aggregates.ValidationError("override requires user and date"))
	}
	now := clock.Now(w.clk)
	o.Status = adjustment.StatusPending
	o.OverrideType = adjustment.TypeFor(o.Nutrition, o.Training)
	o.CreatedAt, o.UpdatedAt = now, now
	o.GracePeriodExpiresAt = nil
	if action == adjustment.ActionAutoApply {
		expires := now.Add(prefs.GracePeriod())
		o.GracePeriodExpiresAt = &expires
	}

	err := w.writer.Write(ctx, op, func(dbc dbctx.Context) error {
		existing, err := w.repos.DayOverride.GetPendingForDate(dbc, o.UserID, o.OverrideDate)
		if err != nil {
			return err
		}
		if existing != nil {
			return domainagg.Conflict(op, adjustment.ErrDuplicateOverride, "pending override %s already exists for %s", existing.ID, o.OverrideDate)
		}
		return w.repos.DayOverride.Create(dbc, o)
	})
	if err != nil {
		return nil, err
	}
	w.metrics.IncOverrideTransition(adjustment.StatusPending)
	w.log.Info("day override proposed",
		"override_id", o.ID,
		"user_id", o.UserID,
		"date", o.OverrideDate,
		"reason", o.ReasonCode,
		"auto_apply", o.GracePeriodExpiresAt != nil,
	)

	msg := "We suggest adjusting today's plan. Review it when you have a moment."
	var expires *time.Time
	if o.GracePeriodExpiresAt != nil {
		msg = fmt.Sprintf("Today's plan will adjust automatically at %s unless you respond.", o.GracePeriodExpiresAt.Format("15:04 MST"))
		expires = o.GracePeriodExpiresAt
	}
	w.notify(ctx, o, "Plan adjustment for "+o.OverrideDate, msg, expires)
	return o, nil
}

// Approve moves a pending override to approved.
func (w *Workflow) Approve(ctx context.Context, id uuid.UUID, comment string) (*types.DayOverride, error) {
	return w.decide(ctx, "approval.approve", id, adjustment.StatusApproved, "approved_at", adjustment.FeedbackApproved, comment)
}

// Reject moves a pending override to rejected.
func (w *Workflow) Reject(ctx context.Context, id uuid.UUID, comment string) (*types.DayOverride, error) {
	return w.decide(ctx, "approval.reject", id, adjustment.StatusRejected, "rejected_at", adjustment.FeedbackRejected, comment)
}

func (w *Workflow) decide(ctx context.Context, op string, id uuid.UUID, to, stampCol, feedback, comment string) (*types.DayOverride, error) {
	now := clock.Now(w.clk)
	var out *types.DayOverride
	err := w.writer.Write(ctx, op, func(dbc dbctx.Context) error {
		o, err := w.load(dbc, op, id)
		if err != nil {
			return err
		}
		if o.Status != adjustment.StatusPending {
			return domainagg.Precondition(op, adjustment.ErrInvalidStateTransition, "override is %s, not pending", o.Status)
		}
		ok, err := w.repos.DayOverride.UpdateByStatus(dbc, id, []string{adjustment.StatusPending}, map[string]interface{}{
			"status":                  to,
			stampCol:                  now,
			"grace_period_expires_at": nil,
			"updated_at":              now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domainagg.Precondition(op, adjustment.ErrInvalidStateTransition, "override left pending concurrently")
		}
		if err := w.repos.Feedback.Create(dbc, &types.AdjustmentFeedback{
			OverrideID:            id,
			UserID:                o.UserID,
			Action:                feedback,
			ReasonCode:            o.ReasonCode,
			TimeToDecisionSeconds: int64(now.Sub(o.CreatedAt).Seconds()),
			Comment:               comment,
			CreatedAt:             now,
		}); err != nil {
			return err
		}
		out, err = w.load(dbc, op, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	w.metrics.IncOverrideTransition(to)
	w.log.Info("day override decided", "override_id", id, "user_id", out.UserID, "status", to)
	return out, nil
}

// Undo reverts an applied override inside the user's undo window, anchored at
// the moment it was applied. One second past the window fails with
// ErrUndoWindowExpired.
func (w *Workflow) Undo(ctx context.Context, id uuid.UUID, comment string) (*types.DayOverride, error) {
	const op = "approval.undo"
	now := clock.Now(w.clk)
	var out *types.DayOverride
	err := w.writer.Write(ctx, op, func(dbc dbctx.Context) error {
		o, err := w.load(dbc, op, id)
		if err != nil {
			return err
		}
		if o.Status != adjustment.StatusApproved && o.Status != adjustment.StatusAutoApplied {
			return domainagg.Precondition(op, adjustment.ErrInvalidStateTransition, "override is %s, cannot undo", o.Status)
		}
		prefs, err := w.repos.Preferences.GetOrCreate(dbc, o.UserID)
		if err != nil {
			return err
		}
		applied := o.AppliedAt()
		if deadline := applied.Add(prefs.UndoWindow()); now.After(deadline) {
			return domainagg.Precondition(op, adjustment.ErrUndoWindowExpired, "undo window closed at %s", deadline.Format(time.RFC3339))
		}
		ok, err := w.repos.DayOverride.UpdateByStatus(dbc, id, []string{adjustment.StatusApproved, adjustment.StatusAutoApplied}, map[string]interface{}{
			"status":          adjustment.StatusUndone,
			"undone_at":       now,
			"user_overridden": true,
			"updated_at":      now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domainagg.Precondition(op, adjustment.ErrInvalidStateTransition, "override changed concurrently")
		}
		if err := w.repos.Feedback.Create(dbc, &types.AdjustmentFeedback{
			OverrideID:            id,
			UserID:                o.UserID,
			Action:                adjustment.FeedbackUndone,
			ReasonCode:            o.ReasonCode,
			TimeToDecisionSeconds: int64(now.Sub(applied).Seconds()),
			Comment:               comment,
			CreatedAt:             now,
		}); err != nil {
			return err
		}
		out, err = w.load(dbc, op, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	w.metrics.IncOverrideTransition(adjustment.StatusUndone)
	w.log.Info("day override undone", "override_id", id, "user_id", out.UserID)
	return out, nil
}

// AutoApply applies a pending override whose grace period has ended. An
// override that already left pending, has no grace period, or is still inside
// it is left alone and reported as not applied; that is not an error.
func (w *Workflow) AutoApply(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "approval.auto_apply"
	now := clock.Now(w.clk)
	var applied *types.DayOverride
	err := w.writer.Write(ctx, op, func(dbc dbctx.Context) error {
		o, err := w.load(dbc, op, id)
		if err != nil {
			return err
		}
		if o.Status != adjustment.StatusPending {
			w.metrics.IncAutoApplyRace()
			w.log.Debug("auto-apply skipped, override already resolved", "override_id", id, "status", o.Status)
			return nil
		}
		if o.GracePeriodExpiresAt == nil || now.Before(*o.GracePeriodExpiresAt) {
			return nil
		}
		ok, err := w.repos.DayOverride.UpdateByStatus(dbc, id, []string{adjustment.StatusPending}, map[string]interface{}{
			"status":          adjustment.StatusAutoApplied,
			"auto_applied_at": now,
			"updated_at":      now,
		})
		if err != nil {
			return err
		}
		if !ok {
			w.metrics.IncAutoApplyRace()
			w.log.Debug("auto-apply lost race", "override_id", id)
			return nil
		}
		applied = o
		return nil
	})
	if err != nil {
		return false, err
	}
	if applied == nil {
		return false, nil
	}
	w.metrics.IncOverrideTransition(adjustment.StatusAutoApplied)
	w.log.Info("day override auto-applied", "override_id", id, "user_id", applied.UserID)
	w.notify(ctx, applied, "Plan adjusted for "+applied.OverrideDate,
		"Today's plan was adjusted automatically. You can undo this from the app.", nil)
	return true, nil
}

// ListGraceExpired returns overrides the sweep should try to auto-apply.
func (w *Workflow) ListGraceExpired(ctx context.Context) ([]*types.DayOverride, error) {
	return w.repos.DayOverride.ListGraceExpired(dbctx.Background(ctx), clock.Now(w.clk), w.cfg.SweepBatchSize)
}

// SweepGracePeriods auto-applies every expired override. One failure does not
// stop the rest.
func (w *Workflow) SweepGracePeriods(ctx context.Context) (int, error) {
	due, err := w.ListGraceExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("list grace-expired overrides: %w", err)
	}
	var applied int
	var errs []error
	for _, o := range due {
		ok, err := w.AutoApply(ctx, o.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("override %s: %w", o.ID, err))
			continue
		}
		if ok {
			applied++
		}
	}
	return applied, errors.Join(errs...)
}

// UpdatePreferences applies mutate to the stored preferences and saves them.
func (w *Workflow) UpdatePreferences(ctx context.Context, userID uuid.UUID, mutate func(p *types.AdjustmentPreferences) error) (*types.AdjustmentPreferences, error) {
	const op = "approval.update_preferences"
	var out *types.AdjustmentPreferences
	err := w.writer.Write(ctx, op, func(dbc dbctx.Context) error {
		p, err := w.repos.Preferences.GetOrCreate(dbc, userID)
		if err != nil {
			return err
		}
		if err := mutate(p); err != nil {
			return aggregates.ValidationError(err.Error())
		}
		for k, a := range p.TriggerActions {
			if !a.Valid() {
				return aggregates.ValidationError(fmt.Sprintf("invalid action %q for %s", a, k))
			}
		}
		if p.GracePeriodMinutes < 0 || p.UndoWindowHours < 0 || p.NotificationRetentionDays < 0 {
			return aggregates.ValidationError("durations must not be negative")
		}
		p.UpdatedAt = clock.Now(w.clk)
		if err := w.repos.Preferences.Save(dbc, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

func (w *Workflow) load(dbc dbctx.Context, op string, id uuid.UUID) (*types.DayOverride, error) {
	o, err := w.repos.DayOverride.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domainagg.NotFound(op, "day override %s not found", id)
	}
	return o, nil
}

func (w *Workflow) notify(ctx context.Context, o *types.DayOverride, title, message string, expires *time.Time) {
	if w.notifier == nil {
		return
	}
	ref := o.ID
	if err := w.notifier.Notify(ctx, &types.Notification{
		UserID:    o.UserID,
		Title:     title,
		Message:   message,
		RefType:   adjustment.RefTypeDayOverride,
		RefID:     &ref,
		ExpiresAt: expires,
	}); err != nil {
		w.log.Warn("override notification failed", "override_id", o.ID, "error", err)
	}
}
