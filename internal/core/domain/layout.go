package domain

import "path/filepath"

const (
	// ConfigFileName is the name of the optional project configuration file.
	ConfigFileName = "assetflow.yaml"

	// CacheDirName is the directory below the temp dir holding content-keyed artifacts.
	CacheDirName = "cache"

	// LogDirName is the directory below the temp dir holding companion process logs.
	LogDirName = "logs"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// Paths is the project's filesystem layout, relative to the project root.
type Paths struct {
	App     string
	Module  string
	Tmp     string
	Dist    string
	DistApp string
	Test    string
	Bower   string
	Vendor  string
}

// DefaultPaths returns the layout of the blog repository.
func DefaultPaths() Paths {
	return Paths{
		App:     "app",
		Module:  filepath.Join("app", "flask_blog"),
		Tmp:     ".tmp",
		Dist:    "dist",
		DistApp: filepath.Join("dist", "flask_blog"),
		Test:    "test",
		Bower:   "bower.json",
		Vendor:  "bower_components",
	}
}

// Static is the module's static asset directory.
func (p Paths) Static() string { return filepath.Join(p.Module, "static") }

// Templates is the module's template directory.
func (p Paths) Templates() string { return filepath.Join(p.Module, "templates") }

// Styles is the directory holding the SCSS entry points.
func (p Paths) Styles() string { return filepath.Join(p.Static(), "styles") }

// Scripts is the directory holding the application scripts.
func (p Paths) Scripts() string { return filepath.Join(p.Static(), "scripts") }

// Images is the source image directory.
func (p Paths) Images() string { return filepath.Join(p.Static(), "images") }

// Fonts is the source font directory.
func (p Paths) Fonts() string { return filepath.Join(p.Static(), "fonts") }

// StaticGen is the directory for generated static assets served in development.
func (p Paths) StaticGen() string { return filepath.Join(p.Tmp, "static_gen") }

// GeneratedStyles is where compiled stylesheets are written.
func (p Paths) GeneratedStyles() string { return filepath.Join(p.StaticGen(), "styles") }

// GeneratedFonts is where collected fonts are written for development.
func (p Paths) GeneratedFonts() string { return filepath.Join(p.StaticGen(), "fonts") }

// MainStylesheet is the compiled stylesheet used for critical-CSS extraction.
func (p Paths) MainStylesheet() string { return filepath.Join(p.GeneratedStyles(), "main.css") }

// CriticalPath is where critical-CSS artifacts are written.
func (p Paths) CriticalPath() string { return filepath.Join(p.Tmp, "critical_path") }

// Cache is the content-keyed artifact cache directory.
func (p Paths) Cache() string { return filepath.Join(p.Tmp, CacheDirName) }

// Logs is the directory holding companion process logs.
func (p Paths) Logs() string { return filepath.Join(p.Tmp, LogDirName) }

// DistStatic is the production static directory.
func (p Paths) DistStatic() string { return filepath.Join(p.DistApp, "static") }

// DistTemplates is the production template directory.
func (p Paths) DistTemplates() string { return filepath.Join(p.DistApp, "templates") }
