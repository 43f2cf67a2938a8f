package pipeline

import "github.com/zulandar/foreman/internal/fault"

// Step names a pipeline stage as reported in progress events.
type Step string

const (
	StepAggregating     Step = "aggregating"
	StepGeneratingPRD   Step = "generating_prd"
	StepGeneratingTasks Step = "generating_tasks"
	StepPersisting      Step = "persisting"
	StepDone            Step = "done"
	StepFailed          Step = "failed"
)

// TotalSteps is the number of numbered steps, aggregating through done.
const TotalSteps = 5

// stepIndex numbers the steps 1..TotalSteps.
var stepIndex = map[Step]int{
	StepAggregating:     1,
	StepGeneratingPRD:   2,
	StepGeneratingTasks: 3,
	StepPersisting:      4,
	StepDone:            5,
}

// Index returns the 1-based position of s, or 0 for failed.
func (s Step) Index() int {
	return stepIndex[s]
}

// Terminal reports whether s ends a run.
func (s Step) Terminal() bool {
	return s == StepDone || s == StepFailed
}

// Event is one progress report. A failed event carries the index of the
// step that failed (0 when the run never started a step) and the error
// kind.
type Event struct {
	Step    Step       `json:"step"`
	Index   int        `json:"index"`
	Total   int        `json:"total"`
	Message string     `json:"message,omitempty"`
	Kind    fault.Kind `json:"kind,omitempty"`
}

var stepMessages = map[Step]string{
	StepAggregating:     "Aggregating notes",
	StepGeneratingPRD:   "Generating PRD",
	StepGeneratingTasks: "Generating tasks",
	StepPersisting:      "Saving PRD and tasks",
	StepDone:            "Subproject is in build",
}
