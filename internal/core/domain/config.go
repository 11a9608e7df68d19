package domain

import (
	"path/filepath"
	"time"

	"go.trai.ch/zerr"
)

// Config is the complete, explicit configuration of a pipeline run.
// It is built once by the config loader and handed to every component.
type Config struct {
	// Root is the absolute project root. Every relative path resolves against it.
	Root     string
	Paths    Paths
	Profiles map[string]Profile
	Styles   StylesConfig
	Lint     LintConfig
	Wiredep  WiredepConfig
	HTML     HTMLConfig
	Images   ImagesConfig
	Critical CriticalConfig
	Probe    ProbeConfig
	Serve    ServeConfig
}

// StylesConfig controls SCSS compilation and vendor prefixing.
type StylesConfig struct {
	Precision    int
	IncludePaths []string
	// Targets are browser engines in esbuild notation, e.g. "chrome120".
	Targets    []string
	SourceMaps bool
	// DartSass is the path of the embedded Dart Sass binary; empty means PATH lookup.
	DartSass string
}

// LintConfig controls the script linter invocation.
type LintConfig struct {
	Command      []string
	Scripts      string
	Tests        string
	TestEnvFlags []string
}

// WiredepConfig controls injection of vendored package references.
type WiredepConfig struct {
	SCSSIgnorePath string
	HTMLIgnorePath string
	HTMLExclude    []string
}

// CDNRule rewrites a vendored reference matching File to a CDN URL.
// The CDN template may contain ${ version }.
type CDNRule struct {
	File    string
	Package string
	CDN     string
}

// HTMLConfig controls template bundling.
type HTMLConfig struct {
	SearchPaths     []string
	StaticGenPrefix string
	StaticPrefix    string
	CDN             []CDNRule
}

// ImagesConfig names the optional external image optimizers.
type ImagesConfig struct {
	JPEG []string
	GIF  []string
}

// CriticalConfig controls critical-CSS extraction.
type CriticalConfig struct {
	Profile string
	APIPath string
	Width   int
	Height  int
	// Concurrency bounds parallel renders; zero means unbounded.
	Concurrency int
	Timeout     time.Duration
}

// ProbeConfig bounds the companion readiness probe.
type ProbeConfig struct {
	Path            string
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

// ServeConfig controls the development server.
type ServeConfig struct {
	Port     int
	DistPort int
	TestPort int
	Debounce time.Duration
}

// DefaultConfig returns the configuration matching the blog's layout.
func DefaultConfig(root string) *Config {
	return &Config{
		Root:     root,
		Paths:    DefaultPaths(),
		Profiles: DefaultProfiles(),
		Styles: StylesConfig{
			Precision:    10,
			IncludePaths: []string{"."},
			Targets:      []string{"chrome130", "firefox132", "safari18", "edge130", "ios18"},
			SourceMaps:   true,
		},
		Lint: LintConfig{
			Command:      []string{"eslint"},
			Scripts:      "**/*.js",
			Tests:        "spec/**/*.js",
			TestEnvFlags: []string{"--env", "mocha"},
		},
		Wiredep: WiredepConfig{
			SCSSIgnorePath: `^(\.\./)+`,
			HTMLIgnorePath: `^(\.\./)*\.\.`,
			HTMLExclude:    []string{"bootstrap-sass"},
		},
		HTML: HTMLConfig{
			SearchPaths:     []string{".tmp", filepath.Join("app", "flask_blog"), "."},
			StaticGenPrefix: "/static_gen/",
			StaticPrefix:    "/static/",
			CDN:             DefaultCDNRules(),
		},
		Images: ImagesConfig{
			JPEG: []string{"jpegtran", "-copy", "none", "-optimize", "-progressive"},
			GIF:  []string{"gifsicle", "--interlace"},
		},
		Critical: CriticalConfig{
			Profile: ProfileNoDebug,
			APIPath: "/api/minimal_css",
			Width:   1300,
			Height:  900,
			Timeout: 60 * time.Second,
		},
		Probe: ProbeConfig{
			Path:            "/",
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			MaxElapsed:      30 * time.Second,
		},
		Serve: ServeConfig{
			Port:     9000,
			DistPort: 9002,
			TestPort: 9000,
			Debounce: 100 * time.Millisecond,
		},
	}
}

// DefaultCDNRules returns the allow-list of vendored files served from cdnjs.
func DefaultCDNRules() []CDNRule {
	const base = "//cdnjs.cloudflare.com/ajax/libs/"
	rules := []CDNRule{
		{File: "**/modernizr/modernizr.js", Package: "modernizr", CDN: base + "modernizr/${ version }/modernizr.min.js"},
		{File: "**/fastclick/lib/fastclick.js", Package: "fastclick", CDN: base + "fastclick/${ version }/fastclick.min.js"},
		{File: "**/jquery/dist/jquery.js", Package: "jquery", CDN: base + "jquery/${ version }/jquery.min.js"},
		{File: "**/foundation/js/foundation.js", Package: "foundation", CDN: base + "foundation/${ version }/js/foundation.min.js"},
		{File: "**/slick.js/slick/slick.js", Package: "slick.js", CDN: base + "slick-carousel/${ version }/slick.min.js"},
		{File: "**/slick.js/slick/slick.css", Package: "slick.js", CDN: base + "slick-carousel/${ version }/slick.min.css"},
	}
	for _, lib := range []string{"accordion", "topbar", "alert"} {
		rules = append(rules, CDNRule{
			File:    "**/foundation/js/foundation/foundation." + lib + ".js",
			Package: "foundation",
			CDN:     base + "foundation/${ version }/js/foundation." + lib + ".min.js",
		})
	}
	return append(rules, CDNRule{
		File:    "**/bootstrap-sass/assets/javascripts/bootstrap.js",
		Package: "bootstrap-sass",
		CDN:     base + "twitter-bootstrap/${ version }/js/bootstrap.min.js",
	})
}

// Profile returns the named profile.
func (c *Config) Profile(name string) (Profile, error) {
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, zerr.With(ErrUnknownProfile, "profile", name)
	}
	return p, nil
}

// Abs resolves a project-relative path against Root.
func (c *Config) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Root, rel)
}

// Validate checks values that would otherwise fail deep inside a task.
func (c *Config) Validate() error {
	if c.Critical.Width <= 0 || c.Critical.Height <= 0 {
		return zerr.With(ErrInvalidConfig, "field", "critical.viewport")
	}
	if c.Critical.Concurrency < 0 {
		return zerr.With(ErrInvalidConfig, "field", "critical.concurrency")
	}
	if _, err := c.Profile(c.Critical.Profile); err != nil {
		return zerr.With(err, "field", "critical.profile")
	}
	for name, p := range c.Profiles {
		if p.Port <= 0 || p.Port > 65535 {
			return zerr.With(zerr.With(ErrInvalidConfig, "field", "profiles.port"), "profile", name)
		}
	}
	if len(c.Lint.Command) == 0 {
		return zerr.With(ErrInvalidConfig, "field", "lint.command")
	}
	return nil
}
