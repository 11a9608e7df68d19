package config

import "time"

// File represents the structure of assetflow.yaml. Every field is optional;
// zero values keep the built-in default.
type File struct {
	Version  string                 `yaml:"version"`
	Root     string                 `yaml:"root"`
	Paths    PathsDTO               `yaml:"paths"`
	Profiles map[string]*ProfileDTO `yaml:"profiles"`
	Styles   StylesDTO              `yaml:"styles"`
	Lint     LintDTO                `yaml:"lint"`
	Wiredep  WiredepDTO             `yaml:"wiredep"`
	HTML     HTMLDTO                `yaml:"html"`
	Images   ImagesDTO              `yaml:"images"`
	Critical CriticalDTO            `yaml:"critical"`
	Probe    ProbeDTO               `yaml:"probe"`
	Serve    ServeDTO               `yaml:"serve"`
}

// PathsDTO overrides the project layout.
type PathsDTO struct {
	App     string `yaml:"app"`
	Module  string `yaml:"module"`
	Tmp     string `yaml:"tmp"`
	Dist    string `yaml:"dist"`
	DistApp string `yaml:"distApp"`
	Test    string `yaml:"test"`
	Bower   string `yaml:"bower"`
	Vendor  string `yaml:"vendor"`
}

// ProfileDTO overrides or adds a run profile.
type ProfileDTO struct {
	Port            int               `yaml:"port"`
	PIDSuffix       *string           `yaml:"pidSuffix"`
	Env             map[string]string `yaml:"env"`
	DefaultSettings *string           `yaml:"defaultSettings"`
	EnvFile         string            `yaml:"envFile"`
}

// StylesDTO overrides style compilation.
type StylesDTO struct {
	Precision    int      `yaml:"precision"`
	IncludePaths []string `yaml:"includePaths"`
	Targets      []string `yaml:"targets"`
	SourceMaps   *bool    `yaml:"sourceMaps"`
	DartSass     string   `yaml:"dartSass"`
}

// LintDTO overrides the linter invocation.
type LintDTO struct {
	Command      []string `yaml:"command"`
	Scripts      string   `yaml:"scripts"`
	Tests        string   `yaml:"tests"`
	TestEnvFlags []string `yaml:"testEnvFlags"`
}

// WiredepDTO overrides vendored reference injection.
type WiredepDTO struct {
	SCSSIgnorePath string   `yaml:"scssIgnorePath"`
	HTMLIgnorePath string   `yaml:"htmlIgnorePath"`
	HTMLExclude    []string `yaml:"htmlExclude"`
}

// CDNRuleDTO is one CDN rewrite rule.
type CDNRuleDTO struct {
	File    string `yaml:"file"`
	Package string `yaml:"package"`
	CDN     string `yaml:"cdn"`
}

// HTMLDTO overrides template bundling. A non-nil CDN list replaces the defaults.
type HTMLDTO struct {
	SearchPaths     []string     `yaml:"searchPaths"`
	StaticGenPrefix string       `yaml:"staticGenPrefix"`
	StaticPrefix    string       `yaml:"staticPrefix"`
	CDN             []CDNRuleDTO `yaml:"cdn"`
	ExtraCDN        []CDNRuleDTO `yaml:"extraCdn"`
}

// ImagesDTO overrides the external image optimizers.
type ImagesDTO struct {
	JPEG []string `yaml:"jpeg"`
	GIF  []string `yaml:"gif"`
}

// CriticalDTO overrides critical-CSS extraction.
type CriticalDTO struct {
	Profile     string        `yaml:"profile"`
	APIPath     string        `yaml:"apiPath"`
	Width       int           `yaml:"width"`
	Height      int           `yaml:"height"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ProbeDTO overrides the readiness probe.
type ProbeDTO struct {
	Path            string        `yaml:"path"`
	InitialInterval time.Duration `yaml:"initialInterval"`
	MaxInterval     time.Duration `yaml:"maxInterval"`
	MaxElapsed      time.Duration `yaml:"maxElapsed"`
}

// ServeDTO overrides the development server.
type ServeDTO struct {
	Port     int           `yaml:"port"`
	DistPort int           `yaml:"distPort"`
	TestPort int           `yaml:"testPort"`
	Debounce time.Duration `yaml:"debounce"`
}
