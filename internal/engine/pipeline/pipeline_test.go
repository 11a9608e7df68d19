package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flaskblog/assetflow/internal/adapters/cas"
	"github.com/flaskblog/assetflow/internal/adapters/optimize"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/core/ports"
	"github.com/flaskblog/assetflow/internal/core/ports/mocks"
	"github.com/flaskblog/assetflow/internal/engine/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// passthrough is a ports.Minifier that returns its input.
type passthrough struct{}

func (passthrough) CSS(src []byte) ([]byte, error)  { return src, nil }
func (passthrough) JS(src []byte) ([]byte, error)   { return src, nil }
func (passthrough) HTML(src []byte) ([]byte, error) { return src, nil }
func (passthrough) SVG(src []byte) ([]byte, error)  { return src, nil }

type pipelineMocks struct {
	runner   *mocks.MockCommandRunner
	compiler *mocks.MockStyleCompiler
	prefixer *mocks.MockPrefixer
	reloader *mocks.MockReloader
	logger   *mocks.MockLogger
}

func setupPipeline(t *testing.T) (*pipeline.Pipeline, *domain.Config, pipelineMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := pipelineMocks{
		runner:   mocks.NewMockCommandRunner(ctrl),
		compiler: mocks.NewMockStyleCompiler(ctrl),
		prefixer: mocks.NewMockPrefixer(ctrl),
		reloader: mocks.NewMockReloader(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
	}
	cfg := domain.DefaultConfig(t.TempDir())
	store := cas.NewStore(cfg.Abs(cfg.Paths.Cache()))
	p := pipeline.New(cfg, m.runner, m.compiler, m.prefixer, passthrough{}, store, m.reloader, m.logger)
	return p, cfg, m
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// vendorTree is a small installed bower tree.
var vendorTree = map[string]string{
	"bower.json": `{
  "name": "flask_blog",
  "dependencies": {"foundation": "~5.5", "bootstrap-sass": "~3.3"},
  "overrides": {"foundation": {"main": ["scss/foundation.scss", "js/foundation.js"]}}
}`,
	"bower_components/foundation/.bower.json": `{
  "name": "foundation", "version": "5.5.2",
  "main": ["css/foundation.css", "js/foundation.js"],
  "dependencies": {"jquery": ">= 2.1.0", "modernizr": "2.8.3"}
}`,
	"bower_components/jquery/.bower.json":   `{"name": "jquery", "version": "2.1.4", "main": "dist/jquery.js"}`,
	"bower_components/modernizr/bower.json": `{"name": "modernizr", "version": "2.8.3", "main": "modernizr.js"}`,
	"bower_components/bootstrap-sass/.bower.json": `{
  "name": "bootstrap-sass", "version": "3.3.5",
  "main": ["assets/stylesheets/_bootstrap.scss", "assets/javascripts/bootstrap.js", "assets/fonts/bootstrap/glyphicons.woff"],
  "dependencies": {"jquery": ">= 1.9.0"}
}`,
}

func TestPipeline_Clean(t *testing.T) {
	p, cfg, _ := setupPipeline(t)
	writeFiles(t, cfg.Root, map[string]string{
		".tmp/static_gen/styles/main.css": "a{}",
		"dist/flask_blog/templates/a.html": "x",
		"app/keep.py":                      "x",
	})

	var out bytes.Buffer
	require.NoError(t, p.Clean(&out))

	assert.NoDirExists(t, cfg.Abs(".tmp"))
	assert.NoDirExists(t, cfg.Abs("dist"))
	assert.FileExists(t, cfg.Abs("app/keep.py"))
	assert.Equal(t, "removed .tmp\nremoved dist\n", out.String())
}

func TestPipeline_Styles(t *testing.T) {
	p, cfg, m := setupPipeline(t)
	writeFiles(t, cfg.Abs(cfg.Paths.Styles()), map[string]string{
		"main.scss":  "@import 'vars';",
		"_vars.scss": "$a: 1;",
	})

	m.compiler.EXPECT().
		Compile(gomock.Any(), filepath.Join(cfg.Abs(cfg.Paths.Styles()), "main.scss"), []string{cfg.Root}).
		Return(ports.CompiledStyle{CSS: "a {\n  display: flex;\n}\n", SourceMap: `{"version":3}`}, nil)
	m.prefixer.EXPECT().Prefix([]byte("a {\n  display: flex;\n}\n"), cfg.Styles.Targets).
		Return([]byte("a {\n  display: -webkit-flex;\n  display: flex;\n}\n"), nil)
	m.reloader.EXPECT().Active().Return(true)
	m.reloader.EXPECT().ReloadCSS(".tmp/static_gen/styles/main.css")

	var out bytes.Buffer
	require.NoError(t, p.Styles(context.Background(), &out))

	css := readFile(t, cfg.Abs(cfg.Paths.MainStylesheet()))
	assert.True(t, strings.HasPrefix(css, "a {\n  display: -webkit-flex;\n  display: flex;\n}\n/*# sourceMappingURL=data:application/json;charset=utf-8;base64,"))
	assert.Contains(t, css, "eyJ2ZXJzaW9uIjozfQ==")
	assert.NoFileExists(t, filepath.Join(cfg.Abs(cfg.Paths.GeneratedStyles()), "_vars.css"))
	assert.Equal(t, "main.scss -> .tmp/static_gen/styles/main.css\n", out.String())
}

func TestPipeline_StylesCompileError(t *testing.T) {
	p, cfg, m := setupPipeline(t)
	writeFiles(t, cfg.Abs(cfg.Paths.Styles()), map[string]string{"main.scss": "a {"})

	m.compiler.EXPECT().Compile(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(ports.CompiledStyle{}, domain.ErrStyleCompileFailed)

	err := p.Styles(context.Background(), io.Discard)
	assert.ErrorIs(t, err, domain.ErrStyleCompileFailed)
}

func TestPipeline_Lint(t *testing.T) {
	tests := []struct {
		name    string
		active  bool
		runErr  error
		wantErr bool
	}{
		{name: "Clean"},
		{name: "FailsWithoutLiveReload", runErr: domain.ErrCommandFailed, wantErr: true},
		{name: "ReportsDuringLiveReload", active: true, runErr: domain.ErrCommandFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, cfg, m := setupPipeline(t)
			writeFiles(t, cfg.Abs(cfg.Paths.Scripts()), map[string]string{
				"main.js":        "var a = 1;",
				"vendor/plug.js": "var b = 2;",
				"readme.txt":     "x",
			})

			m.runner.EXPECT().Run(gomock.Any(), domain.Command{
				Args: []string{
					"eslint",
					filepath.Join(cfg.Paths.Scripts(), "main.js"),
					filepath.Join(cfg.Paths.Scripts(), "vendor", "plug.js"),
				},
				Dir: cfg.Root,
			}, gomock.Any(), gomock.Any()).Return(tt.runErr)
			if tt.runErr != nil {
				m.reloader.EXPECT().Active().Return(tt.active)
			}
			if tt.active {
				m.logger.EXPECT().Warn(gomock.Any())
			}

			err := p.Lint(context.Background(), io.Discard)
			if tt.wantErr {
				assert.ErrorContains(t, err, domain.ErrLintFailed.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPipeline_LintTestUsesMochaEnv(t *testing.T) {
	p, cfg, m := setupPipeline(t)
	writeFiles(t, cfg.Abs("test"), map[string]string{"spec/test.js": "describe();"})

	m.runner.EXPECT().Run(gomock.Any(), domain.Command{
		Args: []string{"eslint", "--env", "mocha", filepath.Join("test", "spec", "test.js")},
		Dir:  cfg.Root,
	}, gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, p.LintTest(context.Background(), io.Discard))
}

func TestPipeline_LintNothingToDo(t *testing.T) {
	p, _, _ := setupPipeline(t)
	var out bytes.Buffer
	require.NoError(t, p.Lint(context.Background(), &out))
	assert.Contains(t, out.String(), "no files match")
}

func TestPipeline_Wiredep(t *testing.T) {
	p, cfg, _ := setupPipeline(t)
	writeFiles(t, cfg.Root, vendorTree)
	writeFiles(t, cfg.Root, map[string]string{
		"app/flask_blog/static/styles/main.scss": "// bower:scss\n// endbower\nbody { margin: 0; }\n",
		"app/flask_blog/templates/base.html": `<html>
<head>
  <!-- bower:css -->
  <!-- endbower -->
</head>
<body>
  <!-- bower:js -->
  <script src="/old.js"></script>
  <!-- endbower -->
</body>
</html>
`,
	})

	var out bytes.Buffer
	require.NoError(t, p.Wiredep(&out))

	assert.Equal(t, `// bower:scss
@import "bower_components/foundation/scss/foundation.scss";
@import "bower_components/bootstrap-sass/assets/stylesheets/_bootstrap.scss";
// endbower
body { margin: 0; }
`, readFile(t, cfg.Abs("app/flask_blog/static/styles/main.scss")))

	assert.Equal(t, `<html>
<head>
  <!-- bower:css -->
  <!-- endbower -->
</head>
<body>
  <!-- bower:js -->
  <script src="/bower_components/jquery/dist/jquery.js"></script>
  <script src="/bower_components/modernizr/modernizr.js"></script>
  <script src="/bower_components/foundation/js/foundation.js"></script>
  <!-- endbower -->
</body>
</html>
`, readFile(t, cfg.Abs("app/flask_blog/templates/base.html")))

	assert.Equal(t, "wiredep: app/flask_blog/static/styles/main.scss\nwiredep: app/flask_blog/templates/base.html\n", out.String())

	// A second run finds nothing to change.
	out.Reset()
	require.NoError(t, p.Wiredep(&out))
	assert.Empty(t, out.String())
}

func TestPipeline_WiredepMissingPackage(t *testing.T) {
	p, cfg, m := setupPipeline(t)
	writeFiles(t, cfg.Root, map[string]string{
		"bower.json": `{"dependencies": {"slick.js": "1.5"}}`,
		"app/flask_blog/templates/base.html": "<!-- bower:js -->\n<!-- endbower -->\n",
	})
	m.logger.EXPECT().Warn("bower package slick.js is declared but not installed")

	require.NoError(t, p.Wiredep(io.Discard))
}

func TestPipeline_HTML(t *testing.T) {
	p, cfg, _ := setupPipeline(t)
	writeFiles(t, cfg.Root, map[string]string{
		"bower.json":                          `{"dependencies": {"jquery": "2.1"}}`,
		"bower_components/jquery/.bower.json": `{"version": "2.1.4", "main": "dist/jquery.js"}`,
		".tmp/static_gen/styles/main.css":     "body{}",
		"app/flask_blog/static/scripts/a.js":  "var a = 1;",
		"app/flask_blog/static/scripts/b.js":  "var b = 2;\n",
		"app/flask_blog/templates/base.html": `<html><head>
<!-- build:css /static/styles/main.css -->
<link rel="stylesheet" href="/static_gen/styles/main.css">
<!-- endbuild -->
</head><body>
<script src="/bower_components/jquery/dist/jquery.js"></script>
<!-- build:js /static/scripts/main.js -->
<script src="/static/scripts/a.js"></script>
<script src="/static/scripts/b.js"></script>
<!-- endbuild -->
<img src="/static_gen/x.png">
</body></html>`,
		"app/flask_blog/templates/posts/post.html": `<!-- build:js /static/scripts/main.js -->
<script src="/static/scripts/a.js"></script>
<script src="/static/scripts/b.js"></script>
<!-- endbuild -->`,
	})

	var out bytes.Buffer
	require.NoError(t, p.HTML(context.Background(), &out))

	assert.Equal(t, `<html><head>
<link rel="stylesheet" href="/static/styles/main.css">
</head><body>
<script src="//cdnjs.cloudflare.com/ajax/libs/jquery/2.1.4/jquery.min.js"></script>
<script src="/static/scripts/main.js"></script>
<img src="/static/x.png">
</body></html>`, readFile(t, cfg.Abs("dist/flask_blog/templates/base.html")))
	assert.Equal(t, `<script src="/static/scripts/main.js"></script>`,
		readFile(t, cfg.Abs("dist/flask_blog/templates/posts/post.html")))

	assert.Equal(t, "var a = 1;\nvar b = 2;\n", readFile(t, cfg.Abs("dist/flask_blog/static/scripts/main.js")))
	assert.Equal(t, "body{}", readFile(t, cfg.Abs("dist/flask_blog/static/styles/main.css")))

	report := out.String()
	assert.Contains(t, report, "css /static/styles/main.css 6 B (gzip ")
	assert.Equal(t, 1, strings.Count(report, "js /static/scripts/main.js\n"))
	assert.Contains(t, report, "html base.html\n")
	assert.Contains(t, report, "html posts/post.html\n")
}

func TestPipeline_HTMLKeepsJinja(t *testing.T) {
	_, cfg, m := setupPipeline(t)
	p := pipeline.New(cfg, m.runner, m.compiler, m.prefixer, optimize.NewMinifier(),
		cas.NewStore(cfg.Abs(cfg.Paths.Cache())), m.reloader, m.logger)
	writeFiles(t, cfg.Root, map[string]string{
		"app/flask_blog/templates/index.html": `<!doctype html>
<html>
  <head>
    {# inject_critical:index.css: #}
    <title>{{ title }}</title>
  </head>
  <body>
    <select name="tag">
      {% for tag in tags %}
      <option value="{{ tag.slug }}">{{ tag.name }}</option>
      {% endfor %}
    </select>
  </body>
</html>`,
	})

	require.NoError(t, p.HTML(context.Background(), io.Discard))

	got := readFile(t, cfg.Abs("dist/flask_blog/templates/index.html"))
	name, _, _, ok := domain.FindPlaceholder(got)
	require.True(t, ok)
	assert.Equal(t, "index.css", name)
	for _, want := range []string{"{% for tag in tags %}", `value="{{ tag.slug }}"`, "{{ tag.name }}", "{% endfor %}", "{{ title }}"} {
		assert.Contains(t, got, want)
	}
}

func TestPipeline_HTMLErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     error
	}{
		{
			name:     "MissingSource",
			template: "<!-- build:js /static/scripts/main.js -->\n<script src=\"/static/scripts/gone.js\"></script>\n<!-- endbuild -->",
			want:     domain.ErrBundleSourceNotFound,
		},
		{
			name:     "Unterminated",
			template: "<!-- build:css /static/styles/main.css -->\n<link rel=\"stylesheet\" href=\"/x.css\">",
			want:     domain.ErrMalformedBuildBlock,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, cfg, _ := setupPipeline(t)
			writeFiles(t, cfg.Root, map[string]string{"app/flask_blog/templates/base.html": tt.template})
			err := p.HTML(context.Background(), io.Discard)
			assert.ErrorContains(t, err, tt.want.Error())
		})
	}
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := range 32 {
		for y := range 32 {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, enc.Encode(&buf, img))
	return buf.Bytes()
}

func TestPipeline_Images(t *testing.T) {
	p, cfg, m := setupPipeline(t)
	raw := encodePNG(t)
	writeFiles(t, cfg.Abs(cfg.Paths.Images()), map[string]string{
		"logo.png":       string(raw),
		"icons/logo.svg": `<svg id="logo"/>`,
		"broken.png":     "not a png",
		"notes.txt":      "keep me",
	})
	m.logger.EXPECT().Warn(gomock.Any()).Times(2)

	var out bytes.Buffer
	require.NoError(t, p.Images(context.Background(), &out))
	assert.Contains(t, out.String(), "images: 4 file(s), 0 cached, 1 unoptimized, saved ")

	dst := filepath.Join(cfg.Abs(cfg.Paths.DistStatic()), "images")
	optimized := readFile(t, filepath.Join(dst, "logo.png"))
	assert.Less(t, len(optimized), len(raw))
	_, err := png.Decode(strings.NewReader(optimized))
	require.NoError(t, err)

	assert.Equal(t, `<svg id="logo"/>`, readFile(t, filepath.Join(dst, "icons", "logo.svg")))
	assert.Equal(t, "not a png", readFile(t, filepath.Join(dst, "broken.png")))
	assert.Equal(t, "keep me", readFile(t, filepath.Join(dst, "notes.txt")))

	out.Reset()
	require.NoError(t, p.Images(context.Background(), &out))
	assert.Contains(t, out.String(), "images: 4 file(s), 3 cached, 1 unoptimized")
	assert.Equal(t, optimized, readFile(t, filepath.Join(dst, "logo.png")))
}

func TestPipeline_ImagesExternalOptimizer(t *testing.T) {
	p, cfg, m := setupPipeline(t)
	writeFiles(t, cfg.Abs(cfg.Paths.Images()), map[string]string{
		"photo.jpg": "original jpeg bytes",
		"anim.gif":  "original gif bytes",
	})

	m.runner.EXPECT().Available("jpegtran").Return(true).AnyTimes()
	m.runner.EXPECT().Available("gifsicle").Return(false).AnyTimes()
	m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd domain.Command, _, _ io.Writer) error {
			n := len(cmd.Args)
			assert.Equal(t, []string{"jpegtran", "-copy", "none", "-optimize", "-progressive", "-outfile"}, cmd.Args[:n-2])
			assert.Equal(t, filepath.Join(cfg.Abs(cfg.Paths.Images()), "photo.jpg"), cmd.Args[n-1])
			return os.WriteFile(cmd.Args[n-2], []byte("jpeg"), 0o600)
		})

	require.NoError(t, p.Images(context.Background(), io.Discard))

	dst := filepath.Join(cfg.Abs(cfg.Paths.DistStatic()), "images")
	assert.Equal(t, "jpeg", readFile(t, filepath.Join(dst, "photo.jpg")))
	assert.Equal(t, "original gif bytes", readFile(t, filepath.Join(dst, "anim.gif")))
}

func TestPipeline_ImagesOptimizerFailure(t *testing.T) {
	p, cfg, m := setupPipeline(t)
	writeFiles(t, cfg.Abs(cfg.Paths.Images()), map[string]string{"photo.jpg": "jpeg"})

	m.runner.EXPECT().Available("jpegtran").Return(true).AnyTimes()
	m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("corrupt"))
	m.logger.EXPECT().Warn(gomock.Any()).Do(func(msg string) {
		assert.Contains(t, msg, "photo.jpg left unoptimized: corrupt")
	})

	require.NoError(t, p.Images(context.Background(), io.Discard))
	assert.Equal(t, "jpeg", readFile(t, filepath.Join(cfg.Abs(cfg.Paths.DistStatic()), "images", "photo.jpg")))
}

func TestPipeline_Fonts(t *testing.T) {
	p, cfg, _ := setupPipeline(t)
	writeFiles(t, cfg.Root, vendorTree)
	writeFiles(t, cfg.Root, map[string]string{
		"bower_components/bootstrap-sass/assets/fonts/bootstrap/glyphicons.woff": "woff",
		"app/flask_blog/static/fonts/blog/serif.ttf":                             "ttf",
	})

	var out bytes.Buffer
	require.NoError(t, p.Fonts(&out))
	assert.Equal(t, "fonts: 2 file(s)\n", out.String())

	for _, dir := range []string{cfg.Abs(cfg.Paths.GeneratedFonts()), filepath.Join(cfg.Abs(cfg.Paths.DistStatic()), "fonts")} {
		assert.Equal(t, "woff", readFile(t, filepath.Join(dir, "glyphicons.woff")))
		assert.Equal(t, "ttf", readFile(t, filepath.Join(dir, "blog", "serif.ttf")))
	}
}

func TestPipeline_Extras(t *testing.T) {
	p, cfg, _ := setupPipeline(t)
	writeFiles(t, cfg.Abs(cfg.Paths.Templates()), map[string]string{
		".htaccess":         "deny",
		"robots.txt":        "User-agent: *",
		"index.html":        "<p>",
		"macros/forms.html": "<p>",
		"macros/forms.pyc":  "bytecode",
		"feeds/atom.xml":    "<feed/>",
	})

	var out bytes.Buffer
	require.NoError(t, p.Extras(&out))
	assert.Equal(t, "extras: 3 file(s)\n", out.String())

	dst := cfg.Abs(cfg.Paths.DistTemplates())
	assert.FileExists(t, filepath.Join(dst, ".htaccess"))
	assert.FileExists(t, filepath.Join(dst, "robots.txt"))
	assert.FileExists(t, filepath.Join(dst, "feeds", "atom.xml"))
	assert.NoFileExists(t, filepath.Join(dst, "index.html"))
	assert.NoFileExists(t, filepath.Join(dst, "macros", "forms.pyc"))
}

func TestPipeline_ReportDist(t *testing.T) {
	p, cfg, _ := setupPipeline(t)
	writeFiles(t, cfg.Abs("dist"), map[string]string{
		"flask_blog/templates/a.html": "<p>hello</p>",
		"flask_blog/static/a.css":     "a{}",
	})

	var out bytes.Buffer
	require.NoError(t, p.ReportDist(&out))
	assert.True(t, strings.HasPrefix(out.String(), "build: 2 files, 15 B (gzip "), out.String())
}
