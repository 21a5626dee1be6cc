// Package sweep runs scheduler jobs as Temporal workflows so a cluster
// schedule, not the process ticker, owns the cadence.
package sweep

const (
	WorkflowName   = "adaptation_sweep"
	ActivityRunJob = "adaptation_run_job"
)

type Input struct {
	Job string `json:"job"`
}
