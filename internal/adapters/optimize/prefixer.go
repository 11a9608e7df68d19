package optimize

import (
	"strings"
	"unicode"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"go.trai.ch/zerr"
)

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

// Prefixer implements ports.Prefixer with esbuild's CSS lowering.
type Prefixer struct{}

// NewPrefixer creates a Prefixer.
func NewPrefixer() *Prefixer {
	return &Prefixer{}
}

// Prefix adds the vendor prefixes required by targets, e.g. "safari15".
func (p *Prefixer) Prefix(src []byte, targets []string) ([]byte, error) {
	engines, err := ParseEngines(targets)
	if err != nil {
		return nil, err
	}
	res := api.Transform(string(src), api.TransformOptions{
		Loader:        api.LoaderCSS,
		Engines:       engines,
		LegalComments: api.LegalCommentsInline,
	})
	if len(res.Errors) > 0 {
		return nil, messagesError(res.Errors, "css")
	}
	return res.Code, nil
}

// ParseEngines converts targets such as "chrome120" or "ios17.2" to esbuild engines.
func ParseEngines(targets []string) ([]api.Engine, error) {
	engines := make([]api.Engine, 0, len(targets))
	for _, target := range targets {
		i := strings.IndexFunc(target, unicode.IsDigit)
		if i <= 0 {
			return nil, zerr.With(zerr.With(domain.ErrInvalidConfig, "field", "styles.targets"), "target", target)
		}
		name, ok := engineNames[strings.ToLower(target[:i])]
		if !ok {
			return nil, zerr.With(zerr.With(domain.ErrInvalidConfig, "field", "styles.targets"), "target", target)
		}
		engines = append(engines, api.Engine{Name: name, Version: target[i:]})
	}
	return engines, nil
}
