package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"cratewatch/internal/config"
	"cratewatch/internal/logging"
)

// ErrBuildFailed wraps every failed build attempt.
var ErrBuildFailed = errors.New("build failed")

// Invocation is one process to run.
type Invocation struct {
	Binary  string
	Args    []string
	Dir     string
	Env     []string
	Output  io.Writer
	Timeout time.Duration
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, inv Invocation) error
}

// Option configures the command.
type Option func(*Command)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Command) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithWorkdir sets the directory the build runs in.
func WithWorkdir(dir string) Option {
	return func(c *Command) { c.workdir = dir }
}

// WithTimeout bounds each build. Zero disables the limit.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Command) { c.timeout = timeout }
}

// WithLogDir sets where per-release output logs are written. Empty discards output.
func WithLogDir(dir string) Option {
	return func(c *Command) { c.logDir = dir }
}

// WithLogger sets the logger used for build lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Command) { c.logger = logging.NewComponentLogger(logger, "builder") }
}

// Command builds releases by running an external program.
type Command struct {
	binary  string
	args    []string
	workdir string
	timeout time.Duration
	logDir  string
	exec    Executor
	logger  *slog.Logger
}

// New constructs a Command. With no args the release name and version are passed as two arguments.
func New(binary string, args []string, opts ...Option) (*Command, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("build command required")
	}
	if len(args) == 0 {
		args = []string{"{name}", "{version}"}
	}
	cmd := &Command{
		binary: binary,
		args:   append([]string(nil), args...),
		exec:   commandExecutor{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(cmd)
	}
	return cmd, nil
}

// NewFromConfig constructs a Command from the [builder] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Command, error) {
	if err := cfg.ValidateBuilder(); err != nil {
		return nil, err
	}
	base := []Option{
		WithWorkdir(cfg.Builder.Workdir),
		WithTimeout(time.Duration(cfg.Builder.TimeoutSeconds) * time.Second),
		WithLogDir(cfg.BuildLogDir()),
		WithLogger(logger),
	}
	return New(cfg.Builder.Command, cfg.Builder.Args, append(base, opts...)...)
}

// Args returns the argument list for one release.
func (c *Command) Args(name, version string) []string {
	replacer := strings.NewReplacer("{name}", name, "{version}", version)
	out := make([]string, len(c.args))
	for i, arg := range c.args {
		out[i] = replacer.Replace(arg)
	}
	return out
}

// LogPath returns the output log for a release, or "" when output is discarded.
func (c *Command) LogPath(name, version string) string {
	if c.logDir == "" {
		return ""
	}
	return filepath.Join(c.logDir, sanitizeFileName(name)+"-"+sanitizeFileName(version)+".log")
}

// Build runs the command for one release. Re-running a build for the same
// release must be safe; the queue may retry entries that already succeeded.
func (c *Command) Build(ctx context.Context, name, version string) error {
	logger := logging.WithRelease(logging.WithContext(ctx, c.logger), name, version)

	output, closeOutput, err := c.openLog(name, version)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrBuildFailed, name, version, err)
	}
	defer closeOutput()

	inv := Invocation{
		Binary:  c.binary,
		Args:    c.Args(name, version),
		Dir:     c.workdir,
		Env:     append(os.Environ(), "CRATEWATCH_CRATE="+name, "CRATEWATCH_VERSION="+version),
		Output:  output,
		Timeout: c.timeout,
	}
	fmt.Fprintf(output, "==> %s %s %s\n", time.Now().UTC().Format(time.RFC3339), inv.Binary, strings.Join(inv.Args, " "))

	start := time.Now()
	logger.Debug("build started", logging.String("binary", c.binary), logging.String(logging.FieldEventType, "build_start"))
	runErr := c.exec.Run(ctx, inv)
	elapsed := time.Since(start)
	if runErr != nil {
		fmt.Fprintf(output, "==> failed after %s: %v\n", elapsed.Round(time.Millisecond), runErr)
		return fmt.Errorf("%w: %s %s: %w", ErrBuildFailed, name, version, runErr)
	}
	fmt.Fprintf(output, "==> succeeded after %s\n", elapsed.Round(time.Millisecond))
	logger.Debug("build finished", logging.Duration("duration", elapsed), logging.String(logging.FieldEventType, "build_finish"))
	return nil
}

func (c *Command) openLog(name, version string) (io.Writer, func(), error) {
	path := c.LogPath(name, version)
	if path == "" {
		return io.Discard, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create build log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open build log: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}

func sanitizeFileName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.', r == '+':
			return r
		default:
			return '_'
		}
	}, strings.ReplaceAll(value, "..", "__"))
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, inv Invocation) error {
	runCtx := ctx
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, inv.Binary, inv.Args...) //nolint:gosec
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	out := inv.Output
	if out == nil {
		out = io.Discard
	}
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("timed out after %s: %w", inv.Timeout, context.DeadlineExceeded)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("canceled: %w", ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("exit status %d", exitErr.ExitCode())
	}
	return fmt.Errorf("run %s: %w", inv.Binary, err)
}
