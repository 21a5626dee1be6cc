package matching

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/planadapt-backend/internal/data/aggregates"
	"github.com/yungbote/planadapt-backend/internal/data/repos"
	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/adherence"
	domainagg "github.com/yungbote/planadapt-backend/internal/domain/aggregates"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

// Service turns logged items into adherence records and tags the logs.
type Service struct {
	log     *logger.Logger
	repos   repos.Repos
	writer  *aggregates.Writer
	engine  *Engine
	clock   clock.Clock
	metrics *observability.Metrics
}

func NewService(log *logger.Logger, r repos.Repos, writer *aggregates.Writer, engine *Engine, clk clock.Clock, metrics *observability.Metrics) *Service {
	return &Service{
		log:     log.With("service", "MatchingService"),
		repos:   r,
		writer:  writer,
		engine:  engine,
		clock:   clk,
		metrics: metrics,
	}
}

// RecordActivity matches one activity log. It returns nil, nil when the log
// matches nothing. Re-recording a tagged log returns the existing record.
func (s *Service) RecordActivity(ctx context.Context, logID uuid.UUID) (*types.AdherenceRecord, error) {
	dbc := dbctx.Background(ctx)
	a, err := s.repos.ActivityLog.GetByID(dbc, logID)
	if err != nil {
		return nil, fmt.Errorf("load activity log: %w", err)
	}
	if a == nil {
		return nil, domainagg.NotFound("matching.record_activity", "activity log %s not found", logID)
	}
	key := adherence.MatchDedupeKey(a.ID)
	if a.MatchedPlanItemID != nil {
		return s.repos.Adherence.GetByDedupeKey(dbc, key)
	}

	prog, day, ok, err := s.programDay(dbc, a.UserID, a.LogDate)
	if err != nil || !ok {
		return nil, err
	}
	candidates, err := s.repos.PlannedItem.ListSessionsByDay(dbc, prog.ID, day)
	if err != nil {
		return nil, fmt.Errorf("load planned sessions: %w", err)
	}
	m, ok := s.engine.MatchActivity(a, candidates)
	if !ok {
		s.metrics.IncMatch(adherence.CategoryTraining, "unmatched")
		s.log.Debug("activity unmatched", "user_id", a.UserID, "log_id", a.ID, "candidates", len(candidates))
		return nil, nil
	}

	detail, _ := json.Marshal(map[string]any{
		"program_id": prog.ID,
		"day_index":  day,
		"breakdown":  m.Breakdown,
		"exercises":  sortedNames(a.Exercises),
	})
	actualID := a.ID
	rec := &types.AdherenceRecord{
		UserID:       a.UserID,
		RecordDate:   a.LogDate,
		Category:     adherence.CategoryTraining,
		PlannedRefID: m.PlannedID,
		ActualRefID:  &actualID,
		Status:       m.Status,
		Score:        m.Score,
		Detail:       datatypes.JSON(detail),
		DedupeKey:    key,
		CreatedAt:    clock.Now(s.clock),
	}
	out, err := s.persist(ctx, "matching.record_activity", rec, func(dbc dbctx.Context) error {
		_, err := s.repos.ActivityLog.TagMatched(dbc, a.ID, m.PlannedID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncMatch(adherence.CategoryTraining, out.Status)
	return out, nil
}

// RecordMeal matches one meal log; see RecordActivity.
func (s *Service) RecordMeal(ctx context.Context, logID uuid.UUID) (*types.AdherenceRecord, error) {
	dbc := dbctx.Background(ctx)
	ml, err := s.repos.MealLog.GetByID(dbc, logID)
	if err != nil {
		return nil, fmt.Errorf("load meal log: %w", err)
	}
	if ml == nil {
		return nil, domainagg.NotFound("matching.record_meal", "meal log %s not found", logID)
	}
	key := adherence.MatchDedupeKey(ml.ID)
	if ml.MatchedPlanItemID != nil {
		return s.repos.Adherence.GetByDedupeKey(dbc, key)
	}

	prog, day, ok, err := s.programDay(dbc, ml.UserID, ml.LogDate)
	if err != nil || !ok {
		return nil, err
	}
	candidates, err := s.repos.PlannedItem.ListMealsByDay(dbc, prog.ID, day)
	if err != nil {
		return nil, fmt.Errorf("load planned meals: %w", err)
	}
	m, ok := s.engine.MatchMeal(ml, candidates)
	if !ok {
		s.metrics.IncMatch(adherence.CategoryNutrition, "unmatched")
		s.log.Debug("meal unmatched", "user_id", ml.UserID, "log_id", ml.ID, "candidates", len(candidates))
		return nil, nil
	}

	detail, _ := json.Marshal(map[string]any{
		"program_id": prog.ID,
		"day_index":  day,
		"breakdown":  m.Breakdown,
	})
	actualID := ml.ID
	rec := &types.AdherenceRecord{
		UserID:       ml.UserID,
		RecordDate:   ml.LogDate,
		Category:     adherence.CategoryNutrition,
		PlannedRefID: m.PlannedID,
		ActualRefID:  &actualID,
		Status:       m.Status,
		Score:        m.Score,
		Detail:       datatypes.JSON(detail),
		DedupeKey:    key,
		CreatedAt:    clock.Now(s.clock),
	}
	out, err := s.persist(ctx, "matching.record_meal", rec, func(dbc dbctx.Context) error {
		_, err := s.repos.MealLog.TagMatched(dbc, ml.ID, m.PlannedID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncMatch(adherence.CategoryNutrition, out.Status)
	return out, nil
}

// persist inserts rec and tags the log in one transaction. If a concurrent
// call already wrote the record, that record is returned instead.
func (s *Service) persist(ctx context.Context, op string, rec *types.AdherenceRecord, tag func(dbc dbctx.Context) error) (*types.AdherenceRecord, error) {
	out := rec
	err := s.writer.Write(ctx, op, func(dbc dbctx.Context) error {
		inserted, err := s.repos.Adherence.InsertIfAbsent(dbc, rec)
		if err != nil {
			return err
		}
		if !inserted {
			existing, err := s.repos.Adherence.GetByDedupeKey(dbc, rec.DedupeKey)
			if err != nil {
				return err
			}
			if existing != nil {
				out = existing
			}
		}
		return tag(dbc)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DetectSkipped writes a score-zero skipped (training) or off_plan (nutrition)
// record for every planned item of date that has no record yet. It is safe to
// run any number of times; it returns how many records it wrote.
func (s *Service) DetectSkipped(ctx context.Context, userID uuid.UUID, date string) (int, error) {
	dbc := dbctx.Background(ctx)
	prog, day, ok, err := s.programDay(dbc, userID, date)
	if err != nil || !ok {
		return 0, err
	}
	sessions, err := s.repos.PlannedItem.ListSessionsByDay(dbc, prog.ID, day)
	if err != nil {
		return 0, fmt.Errorf("load planned sessions: %w", err)
	}
	meals, err := s.repos.PlannedItem.ListMealsByDay(dbc, prog.ID, day)
	if err != nil {
		return 0, fmt.Errorf("load planned meals: %w", err)
	}
	if len(sessions) == 0 && len(meals) == 0 {
		return 0, nil
	}

	now := clock.Now(s.clock)
	var training, nutrition int
	err = s.writer.Write(ctx, "matching.detect_skipped", func(dbc dbctx.Context) error {
		seen, err := s.repos.Adherence.PlannedRefsOnDate(dbc, userID, date)
		if err != nil {
			return err
		}
		missed := func(plannedID uuid.UUID, category, status string) (bool, error) {
			if seen[plannedID] {
				return false, nil
			}
			detail, _ := json.Marshal(map[string]any{"program_id": prog.ID, "day_index": day, "reason": "no_log_by_end_of_day"})
			return s.repos.Adherence.InsertIfAbsent(dbc, &types.AdherenceRecord{
				UserID:       userID,
				RecordDate:   date,
				Category:     category,
				PlannedRefID: plannedID,
				Status:       status,
				Score:        0,
				Detail:       datatypes.JSON(detail),
				DedupeKey:    adherence.MissedDedupeKey(plannedID, date),
				CreatedAt:    now,
			})
		}
		for _, ps := range sessions {
			inserted, err := missed(ps.ID, adherence.CategoryTraining, adherence.StatusSkipped)
			if err != nil {
				return err
			}
			if inserted {
				training++
			}
		}
		for _, pm := range meals {
			inserted, err := missed(pm.ID, adherence.CategoryNutrition, adherence.StatusOffPlan)
			if err != nil {
				return err
			}
			if inserted {
				nutrition++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.AddSkippedRecords(adherence.CategoryTraining, training)
	s.metrics.AddSkippedRecords(adherence.CategoryNutrition, nutrition)
	if training+nutrition > 0 {
		s.log.Info("skipped items recorded", "user_id", userID, "date", date, "training", training, "nutrition", nutrition)
	}
	return training + nutrition, nil
}

func (s *Service) programDay(dbc dbctx.Context, userID uuid.UUID, date string) (*types.Program, int, bool, error) {
	prog, err := s.repos.Program.GetActive(dbc, userID)
	if err != nil {
		return nil, 0, false, fmt.Errorf("load active program: %w", err)
	}
	if prog == nil {
		return nil, 0, false, nil
	}
	day, ok := DayIndex(prog.StartDate, date)
	if !ok {
		return nil, 0, false, nil
	}
	return prog, day, true, nil
}
