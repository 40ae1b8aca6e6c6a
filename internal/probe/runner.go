// Package probe queries the operating system and attached hardware for
// capture devices, their supported formats, and the installed MediaMTX
// binary. Probing is advisory: failures degrade to empty results and a
// logged diagnostic, never to an error that aborts a request.
package probe

import (
	"context"
	"os/exec"
	"strings"
)

// Runner executes an external tool and returns its combined output.
// A narrow interface so parsers and the prober can be tested against
// captured tool output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}
