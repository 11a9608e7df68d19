package domain

import (
	"fmt"
	"maps"
)

// Names of the built-in run profiles.
const (
	ProfileDebug   = "debug"
	ProfileNoDebug = "no_debug"
	ProfileDist    = "dist"
)

// SettingsEnvVar selects the companion's settings module.
const SettingsEnvVar = "FLASK_BLOG_SETTINGS"

// Profile is a named way of running the companion application.
type Profile struct {
	Name      string
	Port      int
	PIDSuffix string
	// Env is applied on top of the inherited environment.
	Env map[string]string
	// DefaultSettings is injected as SettingsEnvVar only when the caller's
	// environment does not already set it.
	DefaultSettings string
	// EnvFile is an optional dotenv file merged below Env.
	EnvFile string
}

// PIDFile returns the PID file name, relative to the app directory.
func (p Profile) PIDFile() string {
	return "flask_blog" + p.PIDSuffix + ".pid"
}

// BaseURL returns the loopback URL the profile listens on.
func (p Profile) BaseURL() string {
	return fmt.Sprintf("http://localhost:%d", p.Port)
}

// Environ returns the variables to set for the companion process.
// lookup reports the caller's environment.
func (p Profile) Environ(lookup func(string) (string, bool)) map[string]string {
	env := make(map[string]string, len(p.Env)+1)
	maps.Copy(env, p.Env)
	if p.DefaultSettings != "" {
		if v, ok := lookup(SettingsEnvVar); !ok || v == "" {
			env[SettingsEnvVar] = p.DefaultSettings
		}
	}
	return env
}

// DefaultProfiles returns the debug, no_debug and dist profiles.
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		ProfileDebug: {
			Name: ProfileDebug,
			Port: 5005,
			Env: map[string]string{
				SettingsEnvVar:    "../configurations/empty.py",
				"FLASK_BLOG_ROOT": "",
			},
		},
		ProfileNoDebug: {
			Name:      ProfileNoDebug,
			Port:      5007,
			PIDSuffix: "no_debug",
			Env: map[string]string{
				SettingsEnvVar:    "../configurations/empty.py",
				"FLASK_BLOG_ROOT": "",
			},
		},
		ProfileDist: {
			Name:      ProfileDist,
			Port:      5006,
			PIDSuffix: "dist",
			Env: map[string]string{
				"FLASK_BLOG_ROOT": "../../dist/flask_blog",
			},
			DefaultSettings: "../configurations/empty.py",
		},
	}
}
