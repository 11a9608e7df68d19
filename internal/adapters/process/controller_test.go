package process_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/flaskblog/assetflow/internal/adapters/process"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/core/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const fakeLauncher = `#!/bin/sh
echo "$1" > port.out
echo "$FLASK_BLOG_SETTINGS|$FLASK_BLOG_ROOT" > env.out
exec sleep 30
`

func setup(t *testing.T) (*domain.Config, *process.Controller) {
	t.Helper()
	root := t.TempDir()
	cfg := domain.DefaultConfig(root)
	appDir := filepath.Join(root, cfg.Paths.App)
	require.NoError(t, os.MkdirAll(appDir, domain.DirPerm))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "debug.py"), []byte(fakeLauncher), 0o755)) //nolint:gosec // test script

	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info(gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Warn(gomock.Any()).AnyTimes()

	return cfg, process.NewController(cfg, mockLogger)
}

func readPID(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	return pid
}

func TestController_StartStop(t *testing.T) {
	cfg, c := setup(t)
	ctx := context.Background()
	profile := cfg.Profiles[domain.ProfileDebug]
	pidPath := c.PIDPath(profile)
	assert.Equal(t, filepath.Join(cfg.Root, "app", "flask_blog.pid"), pidPath)

	require.NoError(t, c.Start(ctx, profile))
	t.Cleanup(func() { _ = c.Stop(context.Background(), profile) })
	pid := readPID(t, pidPath)
	require.NoError(t, syscall.Kill(pid, 0))

	// A live process makes Start a no-op.
	require.NoError(t, c.Start(ctx, profile))
	assert.Equal(t, pid, readPID(t, pidPath))

	portFile := filepath.Join(cfg.Root, "app", "port.out")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(portFile) //nolint:gosec // test path
		return err == nil && strings.TrimSpace(string(data)) == "5005"
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, c.Stop(ctx, profile))
	assert.NoFileExists(t, pidPath)
	assert.Eventually(t, func() bool {
		return syscall.Kill(pid, 0) != nil
	}, 5*time.Second, 20*time.Millisecond)

	// Stopping again is a no-op.
	require.NoError(t, c.Stop(ctx, profile))
}

func TestController_Start_ReplacesStalePIDFile(t *testing.T) {
	cfg, c := setup(t)
	ctx := context.Background()
	profile := cfg.Profiles[domain.ProfileNoDebug]
	pidPath := c.PIDPath(profile)
	assert.Equal(t, "flask_blogno_debug.pid", filepath.Base(pidPath))

	// A pid far above pid_max never names a live process.
	require.NoError(t, os.WriteFile(pidPath, []byte("999999999\n"), domain.FilePerm))

	require.NoError(t, c.Start(ctx, profile))
	t.Cleanup(func() { _ = c.Stop(context.Background(), profile) })
	assert.NotEqual(t, 999999999, readPID(t, pidPath))
}

func TestController_Stop_DeadProcess(t *testing.T) {
	cfg, c := setup(t)
	profile := cfg.Profiles[domain.ProfileDist]
	pidPath := c.PIDPath(profile)
	require.NoError(t, os.WriteFile(pidPath, []byte("999999999\n"), domain.FilePerm))

	require.NoError(t, c.Stop(context.Background(), profile))
	assert.NoFileExists(t, pidPath)
}

func TestController_Stop_InvalidPIDFile(t *testing.T) {
	cfg, c := setup(t)
	profile := cfg.Profiles[domain.ProfileDist]
	require.NoError(t, os.WriteFile(c.PIDPath(profile), []byte("not-a-pid"), domain.FilePerm))

	err := c.Stop(context.Background(), profile)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrPIDFileInvalid.Error())
}

func TestController_Start_DistSettings(t *testing.T) {
	tests := []struct {
		name     string
		inherit  string
		expected string
	}{
		{name: "Default", expected: "../configurations/empty.py|../../dist/flask_blog"},
		{name: "Inherited", inherit: "../configurations/prod.py", expected: "../configurations/prod.py|../../dist/flask_blog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.inherit != "" {
				t.Setenv(domain.SettingsEnvVar, tt.inherit)
			} else {
				t.Setenv(domain.SettingsEnvVar, "")
			}
			cfg, c := setup(t)
			profile := cfg.Profiles[domain.ProfileDist]

			require.NoError(t, c.Start(context.Background(), profile))
			t.Cleanup(func() { _ = c.Stop(context.Background(), profile) })

			envFile := filepath.Join(cfg.Root, "app", "env.out")
			require.Eventually(t, func() bool {
				data, err := os.ReadFile(envFile) //nolint:gosec // test path
				return err == nil && strings.TrimSpace(string(data)) == tt.expected
			}, 5*time.Second, 20*time.Millisecond)
		})
	}
}

func TestController_Start_MissingLauncher(t *testing.T) {
	cfg, c := setup(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.Root, "app", "debug.py")))

	err := c.Start(context.Background(), cfg.Profiles[domain.ProfileDebug])
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrProcessStartFailed.Error())
}

func portOf(t *testing.T, rawURL string) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(strings.TrimPrefix(rawURL, "http://"))
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}

func TestController_WaitReady(t *testing.T) {
	cfg, c := setup(t)

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg.Probe.InitialInterval = time.Millisecond
	cfg.Probe.MaxInterval = 5 * time.Millisecond
	profile := cfg.Profiles[domain.ProfileNoDebug]
	profile.Port = portOf(t, srv.URL)

	require.NoError(t, c.WaitReady(context.Background(), profile))
	assert.Equal(t, 3, calls)
}

func TestController_WaitReady_GivesUp(t *testing.T) {
	cfg, c := setup(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg.Probe.InitialInterval = time.Millisecond
	cfg.Probe.MaxInterval = 5 * time.Millisecond
	cfg.Probe.MaxElapsed = 100 * time.Millisecond
	profile := cfg.Profiles[domain.ProfileNoDebug]
	profile.Port = port

	err = c.WaitReady(context.Background(), profile)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrProcessNotReady.Error())
}
