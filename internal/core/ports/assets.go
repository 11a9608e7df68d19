package ports

import "context"

//go:generate mockgen -source=assets.go -destination=mocks/mock_assets.go -package=mocks

// CompiledStyle is the output of a stylesheet compilation.
type CompiledStyle struct {
	CSS       string
	SourceMap string
}

// StyleCompiler compiles SCSS entry points to CSS.
type StyleCompiler interface {
	Compile(ctx context.Context, path string, includePaths []string) (CompiledStyle, error)
	Close() error
}

// Prefixer adds vendor prefixes to CSS for the configured targets.
type Prefixer interface {
	Prefix(css []byte, targets []string) ([]byte, error)
}

// Minifier shrinks text assets. Each method returns the input unchanged in
// meaning and never drops SVG element ids.
type Minifier interface {
	CSS(src []byte) ([]byte, error)
	JS(src []byte) ([]byte, error)
	HTML(src []byte) ([]byte, error)
	SVG(src []byte) ([]byte, error)
}
