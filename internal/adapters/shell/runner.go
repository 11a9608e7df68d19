// Package shell runs external tools such as the script linter and image optimizers.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/creack/pty"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/core/ports"
	"go.trai.ch/zerr"
)

// Runner implements ports.CommandRunner using os/exec and a pty, so tools
// keep their colored output.
type Runner struct {
	logger  ports.Logger
	environ func() []string
}

// NewRunner creates a new Runner. A nil logger disables line logging.
func NewRunner(logger ports.Logger) *Runner {
	return &Runner{logger: logger, environ: os.Environ}
}

// Available reports whether name resolves to an executable on PATH.
func (r *Runner) Available(name string) bool {
	if filepath.IsAbs(name) {
		return findExecutable(name) == nil
	}
	_, err := lookPath(name, r.environ())
	return err == nil
}

// Run executes cmd and waits for it to finish. The pty merges both streams
// into stdout.
func (r *Runner) Run(ctx context.Context, cmd domain.Command, stdout, _ io.Writer) error {
	if len(cmd.Args) == 0 {
		return nil
	}

	stdoutLog := &logWriter{logger: r.logger}
	defer func() { _ = stdoutLog.Close() }()
	out := io.MultiWriter(stdoutLog, stdout)

	name := cmd.Args[0]
	env := resolveEnvironment(r.environ(), cmd.Env)

	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, env); err == nil {
			executable = lp
		}
	}

	c := exec.CommandContext(ctx, executable, cmd.Args[1:]...) //nolint:gosec // configured tool
	c.Args[0] = name
	c.Dir = cmd.Dir
	c.Env = env

	ptmx, err := pty.Start(c)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCommandFailed.Error()), "command", name)
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		defer func() { _ = ptmx.Close() }()
		// The copy ends with EIO once the child closes its side.
		_, _ = io.Copy(out, ptmx)
	}()

	waitErr := c.Wait()
	<-ioDone

	if waitErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		err := zerr.Wrap(waitErr, domain.ErrCommandFailed.Error())
		err = zerr.With(err, "command", name)
		return zerr.With(err, "exit_code", exitCode)
	}
	return nil
}

type logWriter struct {
	logger ports.Logger
	buf    []byte
}

func (w *logWriter) Write(p []byte) (int, error) {
	if w.logger == nil {
		return len(p), nil
	}
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *logWriter) Close() error {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *logWriter) logLine(line []byte) {
	// PTYs emit \r\n.
	w.logger.Info(strings.TrimSuffix(string(line), "\r"))
}

// allowListedEnvVars are the system variables inherited by external tools.
var allowListedEnvVars = map[string]struct{}{
	"HOME":      {},
	"TERM":      {},
	"USER":      {},
	"PATH":      {},
	"LANG":      {},
	"NODE_PATH": {},
	"NO_COLOR":  {},
}

// resolveEnvironment filters sysEnv through the allow-list and applies overrides.
func resolveEnvironment(sysEnv []string, overrides map[string]string) []string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, allowed := allowListedEnvVars[k]; allowed {
			envMap[k] = v
		}
	}
	maps.Copy(envMap, overrides)

	result := make([]string, 0, len(envMap))
	for _, k := range slices.Sorted(maps.Keys(envMap)) {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

// lookPath searches for an executable in the PATH found in env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if v, ok := strings.CutPrefix(e, "PATH="); ok {
			path = v
			break
		}
	}
	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
