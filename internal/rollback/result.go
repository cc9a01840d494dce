package rollback

// StepStatus is the outcome of one restore step.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepFailure StepStatus = "failure"
)

// Step is one recorded step outcome inside a rollback attempt. Payload
// fields are strategy-specific and omitted when empty.
type Step struct {
	Name     string     `json:"step"`
	Required bool       `json:"required"`
	Status   StepStatus `json:"status"`
	Error    string     `json:"error,omitempty"`

	RestoredFiles      []string `json:"restored_files,omitempty"`
	RestoredVars       []string `json:"restored_vars,omitempty"`
	MissingFiles       []string `json:"missing_files,omitempty"`
	BuildOutput        string   `json:"build_output,omitempty"`
	SafetyCheckpointID string   `json:"safety_checkpoint_id,omitempty"`
	GuidePath          string   `json:"guide_path,omitempty"`
	Detail             string   `json:"detail,omitempty"`
}

// OK reports whether the step succeeded.
func (s Step) OK() bool { return s.Status == StepSuccess }

// Result records one rollback attempt, step by step, in execution order.
// It is created when the attempt starts, finalized when it ends, and
// appended to the history log exactly once, failed attempts included.
type Result struct {
	AttemptID      string   `json:"attempt_id"`
	CheckpointID   string   `json:"checkpoint_id"`
	CheckpointName string   `json:"checkpoint_name"`
	Strategy       Strategy `json:"strategy"`
	Reason         string   `json:"reason,omitempty"`
	StartedAt      string   `json:"started_at"`
	CompletedAt    string   `json:"completed_at"`
	Steps          []Step   `json:"steps"`
	Success        bool     `json:"success"`
}

// History receives finalized rollback results. Implementations must be
// append-only.
type History interface {
	Append(*Result) error
}
