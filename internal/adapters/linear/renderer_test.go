package linear_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flaskblog/assetflow/internal/adapters/linear"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_TaskLifecycle(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)
	require.NoError(t, r.Start(context.Background()))

	r.OnPlanEmit([]string{"styles", "html"}, map[string][]string{"html": {"styles"}}, []string{"html"})

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.OnTaskStart("s1", "", "styles", start)
	r.OnTaskLog("s1", []byte("main.scss -> .tmp/static_gen/styles/main.css\n"))
	r.OnTaskComplete("s1", start.Add(250*time.Millisecond), nil)

	r.OnTaskStart("s2", "", "html", start)
	r.OnTaskLog("s2", []byte("bundling base.html"))
	r.OnTaskComplete("s2", start.Add(1500*time.Millisecond), errors.New("bundle source not found"))
	require.NoError(t, r.Stop())

	g := goldie.New(t)
	g.Assert(t, "lifecycle_stdout", stdout.Bytes())
	g.Assert(t, "lifecycle_stderr", stderr.Bytes())
}

func TestRenderer_PartialLines(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnTaskStart("s1", "", "lint", time.Now())
	r.OnTaskLog("s1", []byte("scripts/ma"))
	assert.Empty(t, stdout.String())

	r.OnTaskLog("s1", []byte("in.js: ok\r\nnext"))
	assert.Equal(t, "[lint] scripts/main.js: ok\n", stdout.String())

	require.NoError(t, r.Stop())
	assert.Equal(t, "[lint] scripts/main.js: ok\n[lint] next\n", stdout.String())
}

func TestRenderer_UnknownSpan(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnTaskLog("missing", []byte("x\n"))
	r.OnTaskComplete("missing", time.Now(), nil)
	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}
