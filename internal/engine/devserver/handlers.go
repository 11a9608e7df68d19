package devserver

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/flaskblog/assetflow/internal/adapters/livereload"
	"github.com/flaskblog/assetflow/internal/core/ports"
	"go.trai.ch/zerr"
)

// newProxy forwards every request to target and adds the live-reload client
// to HTML responses. Responses are requested uncompressed so they can be
// rewritten.
func newProxy(target *url.URL, logger ports.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Accept-Encoding")
		},
		ModifyResponse: injectResponse,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("proxy " + r.URL.Path + ": " + err.Error())
			http.Error(w, "companion application unavailable", http.StatusBadGateway)
		},
	}
}

func injectResponse(resp *http.Response) error {
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		return nil
	}
	if enc := resp.Header.Get("Content-Encoding"); enc != "" && enc != "identity" {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return zerr.Wrap(err, "failed to read proxied response")
	}
	body = livereload.InjectScript(body)

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return nil
}

// staticHandler serves root, adding the live-reload client to HTML files.
func staticHandler(root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/") {
			name = path.Join(name, "index.html")
		}
		if path.Ext(name) == ".html" {
			//nolint:gosec // G304: name is cleaned and rooted below root
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
			if err == nil {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Header().Set("Cache-Control", "no-store")
				_, _ = w.Write(livereload.InjectScript(data))
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}
