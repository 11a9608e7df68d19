package critical_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/flaskblog/assetflow/internal/adapters/optimize"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/core/ports/mocks"
	"github.com/flaskblog/assetflow/internal/engine/critical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	cfg       *domain.Config
	process   *mocks.MockProcessController
	renderer  *mocks.MockCriticalRenderer
	logger    *mocks.MockLogger
	extractor *critical.Extractor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		cfg:      domain.DefaultConfig(t.TempDir()),
		process:  mocks.NewMockProcessController(ctrl),
		renderer: mocks.NewMockCriticalRenderer(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
	}
	f.extractor = critical.New(f.cfg, f.process, f.renderer, optimize.NewMinifier(), f.logger)
	return f
}

// companion points the no_debug profile at a test server answering the job
// list endpoint with status and body.
func (f *fixture) companion(t *testing.T, status int, body string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/minimal_css" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	_, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	p := f.cfg.Profiles[domain.ProfileNoDebug]
	p.Port, err = strconv.Atoi(port)
	require.NoError(t, err)
	f.cfg.Profiles[domain.ProfileNoDebug] = p
}

// lifecycle expects the companion to be started, probed and stopped once.
func (f *fixture) lifecycle() {
	gomock.InOrder(
		f.process.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil),
		f.process.EXPECT().WaitReady(gomock.Any(), gomock.Any()).Return(nil),
		f.process.EXPECT().Stop(gomock.Any(), gomock.Any()).Return(nil),
	)
}

const jobList = `{"list": [
  {"url": "/", "filename": "index.css"},
  {"url": "posts/hello-world", "filename": "post.css"}
]}`

func TestExtract(t *testing.T) {
	f := newFixture(t)
	f.companion(t, http.StatusOK, jobList)
	f.lifecycle()

	var seen []domain.RenderRequest
	f.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Times(2).
		DoAndReturn(func(_ context.Context, req domain.RenderRequest) (string, error) {
			seen = append(seen, req)
			return "body{margin:0}", nil
		})
	f.cfg.Critical.Concurrency = 1

	var out bytes.Buffer
	require.NoError(t, f.extractor.Extract(context.Background(), &out))
	assert.Equal(t, "critical css: 2 page(s)\n", out.String())

	base := f.cfg.Profiles[domain.ProfileNoDebug].BaseURL()
	require.Len(t, seen, 2)
	assert.ElementsMatch(t, []string{base + "/", base + "/posts/hello-world"}, []string{seen[0].URL, seen[1].URL})
	assert.Equal(t, f.cfg.Abs(f.cfg.Paths.MainStylesheet()), seen[0].Stylesheet)
	assert.Equal(t, 1300, seen[0].Width)
	assert.Equal(t, 900, seen[0].Height)

	for _, name := range []string{"index.css", "post.css"} {
		data, err := os.ReadFile(filepath.Join(f.cfg.Abs(f.cfg.Paths.CriticalPath()), name))
		require.NoError(t, err)
		assert.Equal(t, "body{margin:0}", string(data))
	}
}

func TestExtract_JobListFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "ServerError", status: http.StatusInternalServerError, body: jobList, want: domain.ErrJobListStatus},
		{name: "NotJSON", status: http.StatusOK, body: "<html>", want: domain.ErrJobListParseFailed},
		{name: "MissingList", status: http.StatusOK, body: `{"jobs": []}`, want: domain.ErrJobListParseFailed},
		{name: "PathInFilename", status: http.StatusOK, body: `{"list": [{"url": "/", "filename": "../x.css"}]}`, want: domain.ErrInvalidJob},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.companion(t, tt.status, tt.body)
			f.lifecycle()
			f.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Times(0)

			var out bytes.Buffer
			err := f.extractor.Extract(context.Background(), &out)
			assert.ErrorContains(t, err, tt.want.Error())
			assert.Empty(t, out.String())
		})
	}
}

func TestExtract_RenderFailureCancelsTheRest(t *testing.T) {
	f := newFixture(t)
	f.companion(t, http.StatusOK, jobList)
	f.lifecycle()

	boom := errors.New("chrome crashed")
	var calls atomic.Int32
	f.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(ctx context.Context, req domain.RenderRequest) (string, error) {
			if calls.Add(1) == 1 {
				return "", boom
			}
			<-ctx.Done()
			return "", ctx.Err()
		})

	var out bytes.Buffer
	err := f.extractor.Extract(context.Background(), &out)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, out.String(), "completion must not be reported")
}

func TestExtract_EmptyResult(t *testing.T) {
	f := newFixture(t)
	f.companion(t, http.StatusOK, `{"list": [{"url": "/", "filename": "index.css"}]}`)
	f.lifecycle()
	f.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return("  \n", nil)

	err := f.extractor.Extract(context.Background(), io.Discard)
	assert.ErrorContains(t, err, domain.ErrEmptyCriticalCSS.Error())
	assert.NoFileExists(t, filepath.Join(f.cfg.Abs(f.cfg.Paths.CriticalPath()), "index.css"))
}

func TestExtract_NoPages(t *testing.T) {
	f := newFixture(t)
	f.companion(t, http.StatusOK, `{"list": []}`)
	f.lifecycle()

	var out bytes.Buffer
	require.NoError(t, f.extractor.Extract(context.Background(), &out))
	assert.Equal(t, "critical css: 0 page(s)\n", out.String())
}

func TestExtract_CompanionDoesNotStart(t *testing.T) {
	f := newFixture(t)
	f.process.EXPECT().Start(gomock.Any(), gomock.Any()).Return(domain.ErrProcessStartFailed)

	err := f.extractor.Extract(context.Background(), io.Discard)
	require.ErrorIs(t, err, domain.ErrProcessStartFailed)
}

func TestExtract_StopFailure(t *testing.T) {
	t.Run("ReportedAfterSuccess", func(t *testing.T) {
		f := newFixture(t)
		f.companion(t, http.StatusOK, `{"list": []}`)
		f.process.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil)
		f.process.EXPECT().WaitReady(gomock.Any(), gomock.Any()).Return(nil)
		f.process.EXPECT().Stop(gomock.Any(), gomock.Any()).Return(domain.ErrProcessStopFailed)

		err := f.extractor.Extract(context.Background(), io.Discard)
		require.ErrorIs(t, err, domain.ErrProcessStopFailed)
	})

	t.Run("LoggedAfterFailure", func(t *testing.T) {
		f := newFixture(t)
		f.process.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil)
		f.process.EXPECT().WaitReady(gomock.Any(), gomock.Any()).Return(domain.ErrProcessNotReady)
		f.process.EXPECT().Stop(gomock.Any(), gomock.Any()).Return(domain.ErrProcessStopFailed)
		f.logger.EXPECT().Warn(gomock.Any())

		err := f.extractor.Extract(context.Background(), io.Discard)
		require.ErrorIs(t, err, domain.ErrProcessNotReady)
	})
}

func TestMinify(t *testing.T) {
	f := newFixture(t)
	dir := f.cfg.Abs(f.cfg.Paths.CriticalPath())
	require.NoError(t, os.MkdirAll(dir, domain.DirPerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.css"),
		[]byte("@charset \"UTF-8\";\nbody {\n  margin: 0;\n}\n"), domain.FilePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("left   over\n"), domain.FilePerm))

	var out bytes.Buffer
	require.NoError(t, f.extractor.Minify(&out))

	data, err := os.ReadFile(filepath.Join(dir, "index.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{margin:0}", string(data))
	assert.Contains(t, out.String(), "critical index.css 14 B (gzip ")

	notes, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "left   over\n", string(notes))
	assert.NotContains(t, out.String(), "notes.txt")
}

func TestInject(t *testing.T) {
	f := newFixture(t)
	critDir := f.cfg.Abs(f.cfg.Paths.CriticalPath())
	tplDir := f.cfg.Abs(f.cfg.Paths.DistTemplates())
	require.NoError(t, os.MkdirAll(critDir, domain.DirPerm))
	require.NoError(t, os.MkdirAll(filepath.Join(tplDir, "posts"), domain.DirPerm))
	require.NoError(t, os.WriteFile(filepath.Join(critDir, "index.css"), []byte("body{margin:0}"), domain.FilePerm))
	require.NoError(t, os.WriteFile(filepath.Join(tplDir, "index.html"),
		[]byte("<head>{# inject_critical:index.css: #}{#inject_critical:index.css:#}</head>"), domain.FilePerm))
	require.NoError(t, os.WriteFile(filepath.Join(tplDir, "posts", "plain.html"), []byte("<p>"), domain.FilePerm))

	var out bytes.Buffer
	require.NoError(t, f.extractor.Inject(&out))
	assert.Equal(t, "critical css inlined into 1 template(s)\n", out.String())

	data, err := os.ReadFile(filepath.Join(tplDir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<head><style>body{margin:0}</style>{#inject_critical:index.css:#}</head>", string(data))
}

func TestInject_MissingArtifact(t *testing.T) {
	f := newFixture(t)
	tplDir := f.cfg.Abs(f.cfg.Paths.DistTemplates())
	require.NoError(t, os.MkdirAll(tplDir, domain.DirPerm))
	require.NoError(t, os.WriteFile(filepath.Join(tplDir, "index.html"),
		[]byte("{# inject_critical:gone.css: #}"), domain.FilePerm))

	err := f.extractor.Inject(io.Discard)
	assert.ErrorContains(t, err, domain.ErrArtifactReadFailed.Error())
}
