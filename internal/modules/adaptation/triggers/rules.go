// Package triggers detects the daily conditions that warrant a tactical
// adjustment and maps them onto nutrition and training deltas.
package triggers

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	"github.com/yungbote/planadapt-backend/internal/domain/tracking"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/params"
)

// Input is everything the rule set reads for one user and date.
type Input struct {
	Now time.Time

	// Context is the latest context log for the date, nil when none.
	Context *tracking.ContextLog

	// MissedYesterday counts skipped training records dated the day before.
	MissedYesterday int

	// Trailing training adherence. The adherence rules only run when
	// sessions were scheduled and at least one adherence record exists, so a
	// user who logged nothing is not read as a user who skipped everything.
	TrainingAdherence float64
	TrainingScheduled int
	HasAdherenceData  bool
	WindowConfidence  float64
}

// Evaluate runs the fixed rule set. Events come back in evaluation order.
func Evaluate(cfg params.Triggers, in Input) []adjustment.TriggerEvent {
	var out []adjustment.TriggerEvent
	if c := in.Context; c != nil {
		stale := 1.0
		if !in.Now.IsZero() && in.Now.Sub(c.LoggedAt).Hours() > cfg.StaleContextHours {
			stale = 0.8
		}
		if c.SleepHours != nil && *c.SleepHours < cfg.PoorSleepHours {
			sev := math.Min(10, (cfg.PoorSleepHours-*c.SleepHours)*2)
			out = append(out, contextEvent(adjustment.TriggerPoorSleep, sev, stale,
				fmt.Sprintf("slept %.1f h", *c.SleepHours)))
		}
		if c.SleepQuality != nil && *c.SleepQuality < cfg.PoorSleepQuality {
			sev := (cfg.PoorSleepQuality - *c.SleepQuality) * 2
			out = append(out, contextEvent(adjustment.TriggerPoorSleepQuality, sev, stale,
				fmt.Sprintf("sleep quality %.0f/10", *c.SleepQuality)))
		}
		if c.StressLevel != nil && *c.StressLevel > cfg.HighStress {
			out = append(out, contextEvent(adjustment.TriggerHighStress, *c.StressLevel, stale,
				fmt.Sprintf("stress %.0f/10", *c.StressLevel)))
		}
		if c.SorenessLevel != nil && *c.SorenessLevel > cfg.HighSoreness {
			out = append(out, contextEvent(adjustment.TriggerHighSoreness, *c.SorenessLevel, stale,
				fmt.Sprintf("soreness %.0f/10", *c.SorenessLevel)))
		}
		if c.Injury {
			detail := "injury reported"
			if c.InjuryNote != "" {
				detail = "injury reported: " + c.InjuryNote
			}
			out = append(out, adjustment.TriggerEvent{Type: adjustment.TriggerInjury, Severity: 9, Detail: detail, Confidence: round2(0.95 * stale)})
		}
	}
	if in.MissedYesterday > 0 {
		out = append(out, adjustment.TriggerEvent{
			Type:       adjustment.TriggerMissedWorkout,
			Severity:   6,
			Detail:     fmt.Sprintf("%d planned session(s) skipped yesterday", in.MissedYesterday),
			Confidence: 0.85,
		})
	}
	if in.TrainingScheduled > 0 && in.HasAdherenceData {
		conf := round2(0.6 + 0.3*in.WindowConfidence)
		switch {
		case in.TrainingAdherence < cfg.LowAdherence:
			out = append(out, adjustment.TriggerEvent{
				Type:       adjustment.TriggerLowAdherence,
				Severity:   round2((cfg.LowAdherence - in.TrainingAdherence) * 20),
				Detail:     fmt.Sprintf("%d-day training adherence %.0f%%", cfg.LookbackDays, in.TrainingAdherence*100),
				Confidence: conf,
			})
		case in.TrainingAdherence > cfg.HighAdherence:
			out = append(out, adjustment.TriggerEvent{
				Type:       adjustment.TriggerHighAdherence,
				Severity:   2,
				Detail:     fmt.Sprintf("%d-day training adherence %.0f%%", cfg.LookbackDays, in.TrainingAdherence*100),
				Confidence: conf,
			})
		}
	}
	return out
}

func contextEvent(t adjustment.TriggerType, severity, stale float64, detail string) adjustment.TriggerEvent {
	return adjustment.TriggerEvent{
		Type:       t,
		Severity:   round2(severity),
		Detail:     detail,
		Confidence: round2(math.Min(0.95, 0.6+severity*0.03) * stale),
	}
}

// Proposal is the combined, ungated effect of a set of events.
type Proposal struct {
	CalorieDelta   int
	CarbsDeltaG    float64
	Multiplier     float64
	IntensityDelta int
	CancelSession  bool

	Nutrition []adjustment.TriggerType
	Training  []adjustment.TriggerType
	Rationale []string
}

func (p Proposal) HasNutrition() bool { return p.CalorieDelta != 0 || p.CarbsDeltaG != 0 }

func (p Proposal) HasTraining() bool {
	return p.CancelSession || p.IntensityDelta != 0 || p.Multiplier != 1
}

// Keep reports whether a trigger may act on a domain.
type Keep func(adjustment.TriggerType, adjustment.Domain) bool

// Map combines events additively (calories, carbs, intensity) and
// multiplicatively (volume). Pairs rejected by keep contribute nothing.
func Map(cfg params.Triggers, events []adjustment.TriggerEvent, keep Keep) Proposal {
	if keep == nil {
		keep = func(adjustment.TriggerType, adjustment.Domain) bool { return true }
	}
	p := Proposal{Multiplier: 1}
	nutrition := func(t adjustment.TriggerType, kcal int, carbs float64, why string) {
		if !keep(t, adjustment.DomainNutrition) {
			return
		}
		p.CalorieDelta += kcal
		p.CarbsDeltaG += carbs
		p.Nutrition = append(p.Nutrition, t)
		p.Rationale = append(p.Rationale, why)
	}
	training := func(t adjustment.TriggerType, mult float64, intensity int, cancel bool, why string) {
		if !keep(t, adjustment.DomainTraining) {
			return
		}
		p.Multiplier *= mult
		p.IntensityDelta += intensity
		p.CancelSession = p.CancelSession || cancel
		p.Training = append(p.Training, t)
		p.Rationale = append(p.Rationale, why)
	}

	for _, e := range events {
		switch e.Type {
		case adjustment.TriggerPoorSleep, adjustment.TriggerPoorSleepQuality:
			cut := math.Min(cfg.SleepMaxVolumeCut, e.Severity/cfg.SleepVolumeDivisor)
			nutrition(e.Type, 0, 0, fmt.Sprintf("%s: calories unchanged, recovery comes first", e.Detail))
			training(e.Type, 1-cut, 0, false, fmt.Sprintf("%s: volume reduced %.0f%%", e.Detail, cut*100))
		case adjustment.TriggerMissedWorkout:
			kcal := int(math.Round(math.Min(cfg.MissedWorkoutMaxKcal, e.Severity*cfg.MissedWorkoutKcalPerSev)))
			nutrition(e.Type, -kcal, 0, fmt.Sprintf("%s: %d kcal less for the missed energy expenditure", e.Detail, kcal))
		case adjustment.TriggerHighStress:
			kcal := int(math.Round(math.Min(cfg.StressMaxKcal, e.Severity*cfg.StressKcalPerSev)))
			nutrition(e.Type, kcal, 0, fmt.Sprintf("%s: %d kcal more", e.Detail, kcal))
			training(e.Type, cfg.StressMultiplier, 0, false, fmt.Sprintf("%s: volume reduced %.0f%%", e.Detail, (1-cfg.StressMultiplier)*100))
		case adjustment.TriggerHighSoreness:
			training(e.Type, cfg.SorenessMultiplier, -1, false, fmt.Sprintf("%s: volume reduced %.0f%%, one more rep in reserve", e.Detail, (1-cfg.SorenessMultiplier)*100))
		case adjustment.TriggerInjury:
			training(e.Type, 1, 0, true, fmt.Sprintf("%s: session cancelled", e.Detail))
		case adjustment.TriggerHighAdherence:
			nutrition(e.Type, cfg.RefeedKcal, cfg.RefeedCarbsG, fmt.Sprintf("%s: refeed +%d kcal, +%.0f g carbs", e.Detail, cfg.RefeedKcal, cfg.RefeedCarbsG))
		case adjustment.TriggerLowAdherence:
			nutrition(e.Type, cfg.LowAdherenceKcal, 0, fmt.Sprintf("%s: %d kcal", e.Detail, cfg.LowAdherenceKcal))
		}
	}
	p.Multiplier = math.Round(p.Multiplier*1000) / 1000
	return p
}

// ReasonCode is the highest-severity event; ties go to evaluation order.
func ReasonCode(events []adjustment.TriggerEvent) string {
	if len(events) == 0 {
		return ""
	}
	sorted := append([]adjustment.TriggerEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Severity > sorted[j].Severity })
	return string(sorted[0].Type)
}

// Confidence is the mean confidence of the events.
func Confidence(events []adjustment.TriggerEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	var sum float64
	for _, e := range events {
		sum += e.Confidence
	}
	return round2(sum / float64(len(events)))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
