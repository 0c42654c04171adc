package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// RunParams holds user-tunable pipeline parameters submitted with a run
// request. Unknown keys are carried through untouched in Job.Params.
type RunParams struct {
	Threads       int    `json:"threads,omitempty" validate:"omitempty,min=1,max=64"`
	MinReadLength int    `json:"min_read_length,omitempty" validate:"omitempty,min=0"`
	Adapter       string `json:"adapter,omitempty"`
}

// RunRequest is the body of POST /api/run.
type RunRequest struct {
	Sample Sample    `json:"sample"`
	Params RunParams `json:"params"`
}

// Validate validates the RunRequest using the validator.
func (r *RunRequest) Validate() error {
	if r.Sample.Name == "" {
		return fmt.Errorf("sample name is required")
	}
	validate := validator.New()
	return validate.Struct(&r.Params)
}
