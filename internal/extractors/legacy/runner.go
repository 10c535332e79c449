package legacy

import (
	"context"
	"os/exec"

	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
)

// Ensure ExecRunner implements the interface.
var _ driven.CommandRunner = (*ExecRunner)(nil)

// ExecRunner runs external conversion tools via os/exec.
type ExecRunner struct{}

// NewRunner creates a CommandRunner backed by the host PATH.
func NewRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and returns its stdout.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}
