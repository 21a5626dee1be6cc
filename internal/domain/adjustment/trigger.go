package adjustment

// TriggerType names one detected daily condition. The set is fixed.
type TriggerType string

const (
	TriggerPoorSleep        TriggerType = "poor_sleep"
	TriggerPoorSleepQuality TriggerType = "poor_sleep_quality"
	TriggerHighStress       TriggerType = "high_stress"
	TriggerHighSoreness     TriggerType = "high_soreness"
	TriggerInjury           TriggerType = "injury"
	TriggerMissedWorkout    TriggerType = "missed_workout"
	TriggerLowAdherence     TriggerType = "low_adherence"
	TriggerHighAdherence    TriggerType = "high_adherence"
)

// AllTriggers lists every trigger in evaluation order.
var AllTriggers = []TriggerType{
	TriggerPoorSleep,
	TriggerPoorSleepQuality,
	TriggerHighStress,
	TriggerHighSoreness,
	TriggerInjury,
	TriggerMissedWorkout,
	TriggerLowAdherence,
	TriggerHighAdherence,
}

// Domain is the half of the plan an adjustment touches.
type Domain string

const (
	DomainNutrition Domain = "nutrition"
	DomainTraining  Domain = "training"
)

// TriggerEvent is computed per invocation and never persisted on its own.
type TriggerEvent struct {
	Type       TriggerType `json:"trigger_type"`
	Severity   float64     `json:"severity"`
	Detail     string      `json:"detail"`
	Confidence float64     `json:"confidence"`
}

// Action is a user's policy for one trigger x domain pair.
type Action string

const (
	ActionAutoApply Action = "auto_apply"
	ActionAskMe     Action = "ask_me"
	ActionDisable   Action = "disable"
)

func (a Action) Valid() bool {
	return a == ActionAutoApply || a == ActionAskMe || a == ActionDisable
}

// PreferenceKey is the lookup key for a trigger x domain action.
func PreferenceKey(t TriggerType, d Domain) string {
	return string(t) + ":" + string(d)
}
