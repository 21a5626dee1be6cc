// Package program issues new plan snapshots. Starting a program is the only
// path that resets controller memory.
package program

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/planadapt-backend/internal/data/aggregates"
	"github.com/yungbote/planadapt-backend/internal/data/repos"
	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	"github.com/yungbote/planadapt-backend/internal/domain/plan"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/control"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/params"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

// StartRequest describes a new program. Zero StartDate means today.
type StartRequest struct {
	UserID         uuid.UUID
	Name           string
	StartDate      string
	TDEE           int
	TargetCalories int
	ProteinG       float64
	CarbsG         float64
	FatG           float64
	VolumeByMuscle map[string]int
	Sessions       []*types.PlannedSession
	Meals          []*types.PlannedMeal
}

type Service struct {
	log    *logger.Logger
	repos  repos.Repos
	writer *aggregates.Writer
	clk    clock.Clock
	cfg    params.Params
}

func NewService(log *logger.Logger, r repos.Repos, writer *aggregates.Writer, clk clock.Clock, cfg params.Params) *Service {
	return &Service{
		log:    log.With("service", "ProgramService"),
		repos:  r,
		writer: writer,
		clk:    clk,
		cfg:    cfg,
	}
}

// Start archives the user's active program, stores the new one with its
// planned items and zeroes both controllers.
func (s *Service) Start(ctx context.Context, req StartRequest) (*types.Program, error) {
	const op = "program.start"
	if err := s.validate(req); err != nil {
		return nil, aggregates.MapError(op, err)
	}
	now := clock.Now(s.clk)
	if req.StartDate == "" {
		req.StartDate = clock.Today(s.clk)
	}
	next, err := clock.AddDays(req.StartDate, s.cfg.Reassessment.PeriodDays)
	if err != nil {
		return nil, aggregates.MapError(op, aggregates.ValidationError(err.Error()))
	}
	volume := 0
	for _, sets := range req.VolumeByMuscle {
		volume += sets
	}
	p := &types.Program{
		UserID:               req.UserID,
		Name:                 req.Name,
		Status:               plan.ProgramStatusActive,
		StartDate:            req.StartDate,
		NextReassessmentDate: next,
		LastDeloadDate:       nil,
		TDEE:                 req.TDEE,
		TargetCalories:       req.TargetCalories,
		ProteinG:             req.ProteinG,
		CarbsG:               req.CarbsG,
		FatG:                 req.FatG,
		WeeklyVolumeSets:     volume,
		VolumeByMuscle:       req.VolumeByMuscle,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	var archived int64
	err = s.writer.Write(ctx, op, func(dbc dbctx.Context) error {
		n, err := s.repos.Program.ArchiveActive(dbc, req.UserID, now)
		if err != nil {
			return err
		}
		archived = n
		if err := s.repos.Program.Create(dbc, p); err != nil {
			return err
		}
		for _, ps := range req.Sessions {
			ps.ProgramID, ps.UserID = p.ID, req.UserID
		}
		for _, pm := range req.Meals {
			pm.ProgramID, pm.UserID = p.ID, req.UserID
		}
		if err := s.repos.PlannedItem.CreateSessions(dbc, req.Sessions); err != nil {
			return err
		}
		if err := s.repos.PlannedItem.CreateMeals(dbc, req.Meals); err != nil {
			return err
		}
		for _, name := range []string{adjustment.ControllerCalorie, adjustment.ControllerVolume} {
			row := control.State{}.Record(req.UserID, p.ID, name)
			row.UpdatedAt = now
			if err := s.repos.PIDState.Upsert(dbc, row); err != nil {
				return fmt.Errorf("reset %s controller: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("program started",
		"user_id", req.UserID,
		"program_id", p.ID,
		"start_date", p.StartDate,
		"archived", archived,
		"sessions", len(req.Sessions),
		"meals", len(req.Meals),
	)
	return p, nil
}

func (s *Service) validate(req StartRequest) error {
	switch {
	case req.UserID == uuid.Nil:
		return aggregates.ValidationError("user id required")
	case req.TDEE <= 0 || req.TargetCalories <= 0:
		return aggregates.ValidationError("tdee and target calories must be positive")
	case req.TargetCalories < s.cfg.Safety.MinCalories:
		return aggregates.ValidationError(fmt.Sprintf("target calories below %d", s.cfg.Safety.MinCalories))
	case req.ProteinG < 0 || req.CarbsG < 0 || req.FatG < 0:
		return aggregates.ValidationError("macros must not be negative")
	}
	if req.StartDate != "" {
		if _, err := clock.ParseDate(req.StartDate); err != nil {
			return aggregates.ValidationError(err.Error())
		}
	}
	for _, ps := range req.Sessions {
		if ps.DayIndex < 0 || ps.DayIndex > 6 {
			return aggregates.ValidationError(fmt.Sprintf("session %q day index %d out of range", ps.Name, ps.DayIndex))
		}
	}
	for _, pm := range req.Meals {
		if pm.DayIndex < 0 || pm.DayIndex > 6 {
			return aggregates.ValidationError(fmt.Sprintf("meal %q day index %d out of range", pm.Name, pm.DayIndex))
		}
	}
	return nil
}
