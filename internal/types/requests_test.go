package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunRequestValidate(t *testing.T) {
	req := &RunRequest{
		Sample: Sample{Name: "patient1", Files: []string{"R1.fastq.gz"}},
		Params: RunParams{Threads: 4},
	}
	assert.NoError(t, req.Validate())
}

func TestRunRequestValidate_MissingSampleName(t *testing.T) {
	req := &RunRequest{Sample: Sample{Files: []string{"R1.fastq.gz"}}}
	assert.ErrorContains(t, req.Validate(), "sample name")
}

func TestRunRequestValidate_BadParams(t *testing.T) {
	req := &RunRequest{
		Sample: Sample{Name: "patient1"},
		Params: RunParams{Threads: 128},
	}
	assert.Error(t, req.Validate())
}
