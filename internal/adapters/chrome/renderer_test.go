package chrome_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flaskblog/assetflow/internal/adapters/chrome"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireBrowser(t *testing.T) {
	t.Helper()
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no chrome binary on PATH")
}

func TestBuildScript(t *testing.T) {
	script, err := chrome.BuildScript("h1 { content: \"a\" }\n", 900)
	require.NoError(t, err)
	assert.Contains(t, script, `sheet.replaceSync("h1 { content: \"a\" }\n");`)
	assert.Contains(t, script, "const foldHeight = 900;")
	assert.False(t, strings.Contains(script, "%!"), "unexpanded verb in %q", script)

	script, err = chrome.BuildScript("a::after{content:\"</style>\"}", 10)
	require.NoError(t, err)
	assert.NotContains(t, script, "</style>")
}

func TestRenderer_MissingStylesheet(t *testing.T) {
	r := chrome.NewRenderer()
	_, err := r.Render(context.Background(), domain.RenderRequest{
		URL:        "http://localhost:1/",
		Stylesheet: filepath.Join(t.TempDir(), "main.css"),
	})
	assert.ErrorContains(t, err, domain.ErrFileOpenFailed.Error())
	assert.NoError(t, r.Close())
}

func TestRenderer_Render(t *testing.T) {
	requireBrowser(t)

	page := `<!doctype html><html><body style="margin:0">
<header class="top" style="height:100px">Blog</header>
<div style="height:2000px"></div>
<footer class="bottom">Footer</footer>
</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	css := filepath.Join(t.TempDir(), "main.css")
	require.NoError(t, os.WriteFile(css, []byte(
		".top { color: red; }\n.bottom { color: blue; }\n.top:hover { color: green; }\n@media (max-width: 10px) { .top { color: pink; } }\n",
	), 0o600))

	r := chrome.NewRenderer()
	t.Cleanup(func() { _ = r.Close() })

	out, err := r.Render(context.Background(), domain.RenderRequest{
		URL:        srv.URL,
		Stylesheet: css,
		Width:      1300,
		Height:     900,
	})
	require.NoError(t, err)
	assert.Contains(t, out, ".top { color: red; }")
	assert.Contains(t, out, ".top:hover")
	assert.NotContains(t, out, ".bottom")
	assert.NotContains(t, out, "pink")
}
