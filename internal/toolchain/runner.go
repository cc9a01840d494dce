package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/yuchenwei/rewind/internal/config"
)

// Result captures the outcome of one external command invocation. A non-zero
// exit code or a timeout is a normal Result, not a Go error; errors are
// reserved for commands that could not be started at all.
type Result struct {
	Output   string        `json:"output,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration_ns"`
	TimedOut bool          `json:"timed_out,omitempty"`
}

// OK reports whether the command completed successfully within its timeout.
func (r Result) OK() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Runner executes the project's build and dependency-install commands with
// bounded timeouts.
type Runner struct {
	dir     string
	build   config.CommandConfig
	install map[string]config.CommandConfig
}

func New(cfg *config.Config) *Runner {
	return &Runner{
		dir:     cfg.ProjectRoot,
		build:   cfg.Build,
		install: cfg.Install,
	}
}

// Build runs the configured build command.
func (r *Runner) Build(ctx context.Context) Result {
	return r.run(ctx, r.build)
}

// Install runs the dependency-install command for the given manifest kind
// (e.g. "package_json"). Unknown kinds are an error; a configured but empty
// command is a successful no-op.
func (r *Runner) Install(ctx context.Context, kind string) (Result, error) {
	cc, ok := r.install[kind]
	if !ok {
		return Result{}, fmt.Errorf("toolchain: no install command for manifest kind %q", kind)
	}
	if cc.Empty() {
		return Result{}, nil
	}
	return r.run(ctx, cc), nil
}

// Run executes an arbitrary configured command, used for the optional
// service stop/start hooks.
func (r *Runner) Run(ctx context.Context, cc config.CommandConfig) Result {
	return r.run(ctx, cc)
}

func (r *Runner) run(ctx context.Context, cc config.CommandConfig) Result {
	timeout := cc.Duration()
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cc.Command[0], cc.Command[1:]...)
	cmd.Dir = r.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := Result{
		Output:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// A timed-out command is never a success regardless of partial output.
		result.TimedOut = true
		result.ExitCode = -1
		return result
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			result.Stderr = err.Error()
		}
	}

	return result
}
