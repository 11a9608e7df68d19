// Package process starts and stops the companion web application.
package process

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// launcherName is the companion entry point inside the app directory.
	launcherName = "debug.py"

	stopTimeout = 5 * time.Second
)

// Controller implements ports.ProcessController with PID files.
type Controller struct {
	cfg       *domain.Config
	logger    ports.Logger
	client    *http.Client
	lookupEnv func(string) (string, bool)
}

// NewController creates a Controller for the project described by cfg.
func NewController(cfg *domain.Config, logger ports.Logger) *Controller {
	return &Controller{
		cfg:       cfg,
		logger:    logger,
		client:    &http.Client{Timeout: 2 * time.Second},
		lookupEnv: os.LookupEnv,
	}
}

// PIDPath returns the absolute PID file path of profile.
func (c *Controller) PIDPath(profile domain.Profile) string {
	return filepath.Join(c.cfg.Abs(c.cfg.Paths.App), profile.PIDFile())
}

// Start launches the companion unless the PID file names a live process.
func (c *Controller) Start(_ context.Context, profile domain.Profile) error {
	pidPath := c.PIDPath(profile)

	pid, err := readPID(pidPath)
	switch {
	case err == nil && alive(pid):
		c.logger.Info(fmt.Sprintf("%s already running with pid %d", profile.Name, pid))
		return nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		c.logger.Warn(fmt.Sprintf("replacing unreadable pid file %s", pidPath))
	}

	appDir := c.cfg.Abs(c.cfg.Paths.App)
	logDir := c.cfg.Abs(c.cfg.Paths.Logs())
	if mkErr := os.MkdirAll(logDir, domain.DirPerm); mkErr != nil {
		return zerr.With(zerr.Wrap(mkErr, domain.ErrProcessStartFailed.Error()), "profile", profile.Name)
	}

	logPath := filepath.Join(logDir, profile.Name+".log")
	//nolint:gosec // G304: logPath is derived from the configured temp dir
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, domain.PrivateFilePerm)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrProcessStartFailed.Error()), "profile", profile.Name)
	}

	env := profile.Environ(c.lookupEnv)
	if settings, ok := env[domain.SettingsEnvVar]; ok {
		c.logger.Info(fmt.Sprintf("using %s=%s for %s", domain.SettingsEnvVar, settings, profile.Name))
	} else if settings, ok := c.lookupEnv(domain.SettingsEnvVar); ok {
		c.logger.Info(fmt.Sprintf("using inherited %s=%s for %s", domain.SettingsEnvVar, settings, profile.Name))
	}

	launcher := filepath.Join(appDir, launcherName)
	//nolint:gosec // G204: launcher path and arguments come from configuration
	cmd := exec.Command(launcher, strconv.Itoa(profile.Port), pidPath)
	cmd.Dir = appDir
	cmd.Env = mergeEnv(os.Environ(), env)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		err = zerr.Wrap(err, domain.ErrProcessStartFailed.Error())
		err = zerr.With(err, "profile", profile.Name)
		return zerr.With(err, "launcher", launcher)
	}

	go func() {
		_ = cmd.Wait()
		_ = logFile.Close()
	}()

	if err := writePID(pidPath, cmd.Process.Pid); err != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)
		return zerr.With(zerr.Wrap(err, domain.ErrProcessStartFailed.Error()), "profile", profile.Name)
	}

	c.logger.Info(fmt.Sprintf("started %s on port %d (pid %d)", profile.Name, profile.Port, cmd.Process.Pid))
	return nil
}

// Stop sends SIGTERM to the recorded process and removes the PID file.
func (c *Controller) Stop(ctx context.Context, profile domain.Profile) error {
	pidPath := c.PIDPath(profile)

	pid, err := readPID(pidPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return zerr.With(err, "profile", profile.Name)
	}

	if sigErr := syscall.Kill(pid, syscall.SIGTERM); sigErr != nil && !errors.Is(sigErr, syscall.ESRCH) {
		err := zerr.Wrap(sigErr, domain.ErrProcessStopFailed.Error())
		err = zerr.With(err, "profile", profile.Name)
		return zerr.With(err, "pid", pid)
	}

	if err := os.Remove(pidPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, domain.ErrProcessStopFailed.Error()), "pid_file", pidPath)
	}

	if !waitExit(ctx, pid, stopTimeout) {
		c.logger.Warn(fmt.Sprintf("%s (pid %d) still running after SIGTERM", profile.Name, pid))
		return nil
	}
	c.logger.Info(fmt.Sprintf("stopped %s (pid %d)", profile.Name, pid))
	return nil
}

// Restart stops then starts profile.
func (c *Controller) Restart(ctx context.Context, profile domain.Profile) error {
	if err := c.Stop(ctx, profile); err != nil {
		return err
	}
	return c.Start(ctx, profile)
}

// WaitReady polls the profile's readiness URL with exponential backoff.
func (c *Controller) WaitReady(ctx context.Context, profile domain.Profile) error {
	probe := c.cfg.Probe
	url := strings.TrimRight(profile.BaseURL(), "/") + "/" + strings.TrimLeft(probe.Path, "/")

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = probe.InitialInterval
	b.MaxInterval = probe.MaxInterval

	_, err := backoff.Retry(ctx, func() (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return 0, backoff.Permanent(err)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return 0, err
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return 0, zerr.With(zerr.New("companion answered with server error"), "status", resp.StatusCode)
		}
		return resp.StatusCode, nil
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(probe.MaxElapsed))
	if err != nil {
		err = zerr.Wrap(err, domain.ErrProcessNotReady.Error())
		err = zerr.With(err, "profile", profile.Name)
		return zerr.With(err, "url", url)
	}
	return nil
}

func readPID(path string) (int, error) {
	//nolint:gosec // G304: path is derived from the configured app dir
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, zerr.With(domain.ErrPIDFileInvalid, "pid_file", path)
	}
	return pid, nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), domain.FilePerm)
}

// alive reports whether pid names a process we could signal.
func alive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

func waitExit(ctx context.Context, pid int, limit time.Duration) bool {
	deadline := time.NewTimer(limit)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for alive(pid) {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-tick.C:
		}
	}
	return true
}

func mergeEnv(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		k, _, _ := strings.Cut(entry, "=")
		if _, ok := overrides[k]; !ok {
			out = append(out, entry)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(overrides)) {
		out = append(out, k+"="+overrides[k])
	}
	return out
}
