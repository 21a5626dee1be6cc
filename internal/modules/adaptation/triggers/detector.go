package triggers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/planadapt-backend/internal/data/repos"
	"github.com/yungbote/planadapt-backend/internal/domain/adherence"
	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/aggregator"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/params"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type Detector struct {
	log     *logger.Logger
	repos   repos.Repos
	clk     clock.Clock
	metrics *observability.Metrics
	cfg     params.Triggers
}

func NewDetector(log *logger.Logger, r repos.Repos, clk clock.Clock, metrics *observability.Metrics, cfg params.Triggers) *Detector {
	return &Detector{
		log:     log.With("service", "TriggerDetector"),
		repos:   r,
		clk:     clk,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Detect evaluates the rule set for date. window is the trailing adherence
// snapshot; nil disables the adherence rules. Only a context log dated on the
// target day or the day before is considered.
func (d *Detector) Detect(ctx context.Context, userID uuid.UUID, date string, window *aggregator.AggregatedData) ([]adjustment.TriggerEvent, error) {
	dbc := dbctx.Background(ctx)
	yesterday, err := clock.AddDays(date, -1)
	if err != nil {
		return nil, fmt.Errorf("detect triggers: %w", err)
	}

	in := Input{Now: clock.Now(d.clk)}
	latest, err := d.repos.ContextLog.GetLatest(dbc, userID, date)
	if err != nil {
		return nil, fmt.Errorf("load context log: %w", err)
	}
	if latest != nil && latest.LogDate >= yesterday {
		in.Context = latest
	}

	records, err := d.repos.Adherence.ListByUserDateRange(dbc, userID, yesterday, yesterday, adherence.CategoryTraining)
	if err != nil {
		return nil, fmt.Errorf("load adherence: %w", err)
	}
	for _, r := range records {
		if r.Status == adherence.StatusSkipped {
			in.MissedYesterday++
		}
	}

	if window != nil {
		in.TrainingAdherence = window.TrainingAdherence
		in.TrainingScheduled = window.TrainingScheduled
		in.HasAdherenceData = window.HasAdherenceData
		in.WindowConfidence = window.Confidence
	}

	events := Evaluate(d.cfg, in)
	for _, e := range events {
		d.metrics.IncTrigger(string(e.Type))
	}
	if len(events) > 0 {
		d.log.Debug("triggers detected", "user_id", userID, "date", date, "count", len(events), "reason", ReasonCode(events))
	}
	return events, nil
}
