// Package config provides the configuration loader for assetflow.
package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/core/ports"
	"github.com/joho/godotenv"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using an optional YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load searches cwd and its parents for assetflow.yaml and returns the
// resulting configuration. Without a file the defaults rooted at cwd are used.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	absCwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "cwd", cwd)
	}

	configPath, found := findConfiguration(absCwd)
	if !found {
		cfg := domain.DefaultConfig(absCwd)
		if err := loadEnvFiles(cfg); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	var file File
	if err := readAndUnmarshalYAML(configPath, &file); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	cfg := domain.DefaultConfig(resolveRoot(configPath, file.Root))
	l.apply(cfg, &file)

	if err := loadEnvFiles(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}
	return cfg, nil
}

func findConfiguration(cwd string) (string, bool) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", false
		}
		currentDir = parentDir
	}
}

func (l *Loader) apply(cfg *domain.Config, f *File) {
	if f.Version != "" && f.Version != "1" {
		l.Logger.Warn(fmt.Sprintf("unknown %s version %q, reading as version 1", domain.ConfigFileName, f.Version))
	}

	applyPaths(&cfg.Paths, f.Paths)
	applyProfiles(cfg.Profiles, f.Profiles)

	s := &cfg.Styles
	setInt(&s.Precision, f.Styles.Precision)
	setSlice(&s.IncludePaths, f.Styles.IncludePaths)
	setSlice(&s.Targets, f.Styles.Targets)
	setString(&s.DartSass, f.Styles.DartSass)
	if f.Styles.SourceMaps != nil {
		s.SourceMaps = *f.Styles.SourceMaps
	}

	setSlice(&cfg.Lint.Command, f.Lint.Command)
	setString(&cfg.Lint.Scripts, f.Lint.Scripts)
	setString(&cfg.Lint.Tests, f.Lint.Tests)
	setSlice(&cfg.Lint.TestEnvFlags, f.Lint.TestEnvFlags)

	setString(&cfg.Wiredep.SCSSIgnorePath, f.Wiredep.SCSSIgnorePath)
	setString(&cfg.Wiredep.HTMLIgnorePath, f.Wiredep.HTMLIgnorePath)
	setSlice(&cfg.Wiredep.HTMLExclude, f.Wiredep.HTMLExclude)

	setSlice(&cfg.HTML.SearchPaths, f.HTML.SearchPaths)
	setString(&cfg.HTML.StaticGenPrefix, f.HTML.StaticGenPrefix)
	setString(&cfg.HTML.StaticPrefix, f.HTML.StaticPrefix)
	if f.HTML.CDN != nil {
		cfg.HTML.CDN = convertCDN(f.HTML.CDN)
	}
	cfg.HTML.CDN = append(cfg.HTML.CDN, convertCDN(f.HTML.ExtraCDN)...)

	setSlice(&cfg.Images.JPEG, f.Images.JPEG)
	setSlice(&cfg.Images.GIF, f.Images.GIF)

	c := &cfg.Critical
	setString(&c.Profile, f.Critical.Profile)
	setString(&c.APIPath, f.Critical.APIPath)
	setInt(&c.Width, f.Critical.Width)
	setInt(&c.Height, f.Critical.Height)
	c.Concurrency = f.Critical.Concurrency
	setDuration(&c.Timeout, f.Critical.Timeout)

	setString(&cfg.Probe.Path, f.Probe.Path)
	setDuration(&cfg.Probe.InitialInterval, f.Probe.InitialInterval)
	setDuration(&cfg.Probe.MaxInterval, f.Probe.MaxInterval)
	setDuration(&cfg.Probe.MaxElapsed, f.Probe.MaxElapsed)

	setInt(&cfg.Serve.Port, f.Serve.Port)
	setInt(&cfg.Serve.DistPort, f.Serve.DistPort)
	setInt(&cfg.Serve.TestPort, f.Serve.TestPort)
	setDuration(&cfg.Serve.Debounce, f.Serve.Debounce)
}

func applyPaths(p *domain.Paths, dto PathsDTO) {
	setString(&p.App, dto.App)
	setString(&p.Module, dto.Module)
	setString(&p.Tmp, dto.Tmp)
	setString(&p.Dist, dto.Dist)
	setString(&p.DistApp, dto.DistApp)
	setString(&p.Test, dto.Test)
	setString(&p.Bower, dto.Bower)
	setString(&p.Vendor, dto.Vendor)
}

func applyProfiles(profiles map[string]domain.Profile, dtos map[string]*ProfileDTO) {
	for name, dto := range dtos {
		if dto == nil {
			continue
		}
		p, ok := profiles[name]
		if !ok {
			p = domain.Profile{Name: name, PIDSuffix: name}
		}
		setInt(&p.Port, dto.Port)
		if dto.PIDSuffix != nil {
			p.PIDSuffix = *dto.PIDSuffix
		}
		if dto.DefaultSettings != nil {
			p.DefaultSettings = *dto.DefaultSettings
		}
		if len(dto.Env) > 0 {
			env := make(map[string]string, len(p.Env)+len(dto.Env))
			maps.Copy(env, p.Env)
			maps.Copy(env, dto.Env)
			p.Env = env
		}
		setString(&p.EnvFile, dto.EnvFile)
		profiles[name] = p
	}
}

// loadEnvFiles merges each profile's dotenv file below its explicit Env.
func loadEnvFiles(cfg *domain.Config) error {
	for name, p := range cfg.Profiles {
		if p.EnvFile == "" {
			continue
		}
		envPath := cfg.Abs(p.EnvFile)
		vars, err := godotenv.Read(envPath)
		if err != nil {
			err = zerr.Wrap(err, domain.ErrEnvFileReadFailed.Error())
			err = zerr.With(err, "profile", name)
			return zerr.With(err, "path", envPath)
		}
		maps.Copy(vars, p.Env)
		p.Env = vars
		cfg.Profiles[name] = p
	}
	return nil
}

func convertCDN(dtos []CDNRuleDTO) []domain.CDNRule {
	rules := make([]domain.CDNRule, 0, len(dtos))
	for _, r := range dtos {
		rules = append(rules, domain.CDNRule{File: r.File, Package: r.Package, CDN: r.CDN})
	}
	return rules
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return filepath.Clean(configDir)
	}
	if filepath.IsAbs(configuredRoot) {
		return filepath.Clean(configuredRoot)
	}
	return filepath.Clean(filepath.Join(configDir, configuredRoot))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is found by walking up from cwd
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setSlice(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = v
	}
}

func setDuration[D ~int64](dst *D, v D) {
	if v != 0 {
		*dst = v
	}
}
