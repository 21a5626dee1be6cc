// Package control holds the bi-weekly PID controllers and the safety gates
// every proposed adjustment passes through.
package control

import (
	"math"

	"github.com/google/uuid"

	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/params"
)

// State is the memory a controller carries between steps.
type State struct {
	Integral       float64 `json:"integral"`
	PreviousError  float64 `json:"previous_error"`
	LastAdjustment float64 `json:"last_adjustment"`
	Steps          int     `json:"steps"`
}

// StateFrom converts a persisted row; nil yields the zero state.
func StateFrom(row *adjustment.PIDState) State {
	if row == nil {
		return State{}
	}
	return State{
		Integral:       row.Integral,
		PreviousError:  row.PreviousError,
		LastAdjustment: row.LastAdjustment,
		Steps:          row.Steps,
	}
}

// Record builds the row persisted for userID.
func (s State) Record(userID, programID uuid.UUID, controller string) *adjustment.PIDState {
	return &adjustment.PIDState{
		UserID:         userID,
		ProgramID:      programID,
		Controller:     controller,
		Integral:       s.Integral,
		PreviousError:  s.PreviousError,
		LastAdjustment: s.LastAdjustment,
		Steps:          s.Steps,
	}
}

// Terms exposes the individual contributions of one step.
type Terms struct {
	Error      float64 `json:"error"`
	P          float64 `json:"p"`
	I          float64 `json:"i"`
	D          float64 `json:"d"`
	Raw        float64 `json:"raw"`
	Confidence float64 `json:"confidence"`
}

type CalorieResult struct {
	Adjustment int     `json:"adjustment"`
	Proposed   int     `json:"proposed"`
	Terms      Terms   `json:"terms"`
	Confidence float64 `json:"confidence"`
}

// CaloriePID turns the gap between the target and actual rate of weight
// change into a daily calorie adjustment. Not safe for concurrent use; callers
// serialize per user.
type CaloriePID struct {
	cfg   params.CaloriePID
	state State
}

func NewCaloriePID(cfg params.CaloriePID, state State) *CaloriePID {
	return &CaloriePID{cfg: cfg, state: state}
}

func (c *CaloriePID) State() State { return c.state }

func (c *CaloriePID) Reset() { c.state = State{} }

// Step runs one control period. A positive error (losing slower than the
// target, or gaining faster) yields a calorie decrease.
func (c *CaloriePID) Step(targetRate, actualRate float64, currentCalories int, periodDays, confidence float64) CalorieResult {
	confidence = clamp(confidence, 0, 1)
	e := actualRate - targetRate

	c.state.Integral = clamp(c.state.Integral+e*periodDays, -c.cfg.WindupLimit, c.cfg.WindupLimit)
	t := Terms{
		Error:      e,
		P:          c.cfg.Kp * e,
		I:          c.cfg.Ki * c.state.Integral,
		D:          c.cfg.Kd * (e - c.state.PreviousError),
		Confidence: confidence,
	}
	t.Raw = -(t.P + t.I + t.D)

	scaled := clamp(t.Raw*confidence, -c.cfg.MaxAdjustment, c.cfg.MaxAdjustment)
	adj := int(roundTo(scaled, c.cfg.RoundTo))

	c.state.PreviousError = e
	c.state.LastAdjustment = float64(adj)
	c.state.Steps++
	return CalorieResult{Adjustment: adj, Proposed: currentCalories + adj, Terms: t, Confidence: confidence}
}

type VolumeResult struct {
	Delta      int     `json:"delta"`
	Multiplier float64 `json:"multiplier"`
	Deload     bool    `json:"deload"`
	Overload   bool    `json:"overload"`
	Terms      Terms   `json:"terms"`
}

// VolumePID adjusts weekly training volume from training adherence.
type VolumePID struct {
	cfg   params.VolumePID
	state State
}

func NewVolumePID(cfg params.VolumePID, state State) *VolumePID {
	return &VolumePID{cfg: cfg, state: state}
}

func (v *VolumePID) State() State { return v.state }

func (v *VolumePID) Reset() { v.state = State{} }

// Step proposes a change in weekly sets. A due deload short-circuits to a
// fixed cut and leaves the controller state untouched.
func (v *VolumePID) Step(currentSets int, targetAdherence, actualAdherence float64, weeksSinceDeload int, confidence float64) VolumeResult {
	confidence = clamp(confidence, 0, 1)
	if weeksSinceDeload >= v.cfg.DeloadIntervalWeeks {
		cut := int(math.Round(float64(currentSets) * v.cfg.DeloadFraction))
		return VolumeResult{
			Delta:      -cut,
			Multiplier: 1 - v.cfg.DeloadFraction,
			Deload:     true,
			Terms:      Terms{Confidence: confidence},
		}
	}

	e := actualAdherence - targetAdherence
	v.state.Integral = clamp(v.state.Integral+e, -v.cfg.WindupLimit, v.cfg.WindupLimit)
	t := Terms{
		Error:      e,
		P:          v.cfg.Kp * e,
		I:          v.cfg.Ki * v.state.Integral,
		D:          v.cfg.Kd * (e - v.state.PreviousError),
		Confidence: confidence,
	}
	t.Raw = t.P + t.I + t.D

	delta := int(roundTo(t.Raw*confidence, float64(v.cfg.RoundTo)))
	delta = clampInt(delta, v.cfg.MinDelta, v.cfg.MaxDelta)
	res := VolumeResult{Terms: t}
	if actualAdherence >= v.cfg.OverloadAdherence && delta < v.cfg.OverloadFloorSets {
		delta = v.cfg.OverloadFloorSets
		res.Overload = true
	}
	res.Delta = delta
	res.Multiplier = 1
	if currentSets > 0 {
		res.Multiplier = math.Round(float64(currentSets+delta)/float64(currentSets)*1000) / 1000
	}

	v.state.PreviousError = e
	v.state.LastAdjustment = float64(delta)
	v.state.Steps++
	return res
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func roundTo(x, step float64) float64 {
	if step <= 0 {
		return math.Round(x)
	}
	r := math.Round(x/step) * step
	if r == 0 {
		return 0
	}
	return r
}
