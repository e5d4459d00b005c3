package utils

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Runner executes external commands
type Runner interface {
	// Run executes name with args and returns its stdout
	Run(ctx context.Context, sudo bool, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands through os/exec
type ExecRunner struct{}

// NewExecRunner creates a new exec runner
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command, prefixed with sudo when requested
func (r *ExecRunner) Run(ctx context.Context, sudo bool, name string, args ...string) ([]byte, error) {
	if sudo {
		args = append([]string{name}, args...)
		name = "sudo"
	}

	logrus.Debugf("Running: %s %s", name, strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return stdout.Bytes(), fmt.Errorf("%s failed: %w", name, err)
	}

	return stdout.Bytes(), nil
}
