package pipeline

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/tidwall/gjson"
	"go.trai.ch/zerr"
)

// vendor holds the packages declared in bower.json and everything they pull in.
type vendor struct {
	installed map[string]domain.VendorPackage
	ordered   []domain.VendorPackage
}

// loadVendor reads bower.json and the installed package manifests. Packages
// that are declared but not installed are skipped with a warning.
func (p *Pipeline) loadVendor() (*vendor, error) {
	manifestPath := p.cfg.Abs(p.cfg.Paths.Bower)
	data, err := os.ReadFile(manifestPath)
	if errors.Is(err, iofs.ErrNotExist) {
		return &vendor{installed: map[string]domain.VendorPackage{}}, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrManifestReadFailed.Error()), "path", manifestPath)
	}
	if !gjson.ValidBytes(data) {
		return nil, zerr.With(domain.ErrManifestReadFailed, "path", manifestPath)
	}
	root := gjson.ParseBytes(data)

	roots := keys(root.Get("dependencies"))
	overrides := root.Get("overrides")

	installed := make(map[string]domain.VendorPackage)
	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, seen := installed[name]; seen {
			continue
		}

		pkg, ok, err := p.readPackage(name, overrides.Get(gjson.Escape(name)))
		if err != nil {
			return nil, err
		}
		if !ok {
			p.logger.Warn("bower package " + name + " is declared but not installed")
			continue
		}
		installed[name] = pkg
		queue = append(queue, pkg.Dependencies...)
	}

	return &vendor{
		installed: installed,
		ordered:   domain.OrderPackages(installed, roots),
	}, nil
}

// readPackage loads one installed package. .bower.json is written by the
// installer and carries the resolved version, so it wins over bower.json.
func (p *Pipeline) readPackage(name string, override gjson.Result) (domain.VendorPackage, bool, error) {
	dir := filepath.Join(p.cfg.Abs(p.cfg.Paths.Vendor), name)
	var data []byte
	for _, candidate := range []string{".bower.json", "bower.json"} {
		b, err := os.ReadFile(filepath.Join(dir, candidate))
		if errors.Is(err, iofs.ErrNotExist) {
			continue
		}
		if err != nil {
			return domain.VendorPackage{}, false, zerr.With(zerr.Wrap(err, domain.ErrManifestReadFailed.Error()), "package", name)
		}
		data = b
		break
	}
	if data == nil {
		return domain.VendorPackage{}, false, nil
	}

	m := gjson.ParseBytes(data)
	pkg := domain.VendorPackage{
		Name:         name,
		Version:      m.Get("version").String(),
		Main:         stringList(m.Get("main")),
		Dependencies: keys(m.Get("dependencies")),
	}
	if main := override.Get("main"); main.Exists() {
		pkg.Main = stringList(main)
	}
	if deps := override.Get("dependencies"); deps.Exists() {
		pkg.Dependencies = keys(deps)
	}
	return pkg, true, nil
}

// keys returns the keys of a JSON object in document order.
func keys(obj gjson.Result) []string {
	var out []string
	obj.ForEach(func(k, _ gjson.Result) bool {
		out = append(out, k.String())
		return true
	})
	return out
}

// stringList reads a value that is either a string or an array of strings.
func stringList(v gjson.Result) []string {
	if !v.Exists() {
		return nil
	}
	if !v.IsArray() {
		return []string{v.String()}
	}
	var out []string
	for _, item := range v.Array() {
		out = append(out, item.String())
	}
	return out
}

// files returns the vendored main files of the ordered packages, relative to
// the project root with forward slashes, keeping those matching keep.
func (v *vendor) files(vendorDir string, keep func(pkg domain.VendorPackage, file string) bool) []string {
	var out []string
	for _, pkg := range v.ordered {
		for _, f := range pkg.MainFiles() {
			if keep(pkg, f) {
				out = append(out, filepath.ToSlash(filepath.Join(vendorDir, filepath.FromSlash(f))))
			}
		}
	}
	return out
}
