package domain

import (
	"path"
	"slices"
	"strings"
)

// VendorPackage is an installed bower package.
type VendorPackage struct {
	Name         string
	Version      string
	Main         []string
	Dependencies []string
}

// MainFiles returns the package's main files relative to the vendor dir,
// with forward slashes.
func (p VendorPackage) MainFiles() []string {
	files := make([]string, 0, len(p.Main))
	for _, m := range p.Main {
		files = append(files, path.Join(p.Name, strings.TrimPrefix(m, "./")))
	}
	return files
}

// OrderPackages returns the packages reachable from roots with every
// dependency placed before its dependents. Roots keep their declared order.
// Unknown names are skipped and dependency cycles are broken at the back edge.
func OrderPackages(installed map[string]VendorPackage, roots []string) []VendorPackage {
	state := make(map[string]int, len(installed))
	ordered := make([]VendorPackage, 0, len(installed))

	var visit func(name string)
	visit = func(name string) {
		if state[name] != 0 {
			return
		}
		pkg, ok := installed[name]
		if !ok {
			return
		}
		state[name] = 1
		deps := slices.Clone(pkg.Dependencies)
		slices.Sort(deps)
		for _, dep := range deps {
			visit(dep)
		}
		state[name] = 2
		ordered = append(ordered, pkg)
	}

	for _, root := range roots {
		visit(root)
	}
	return ordered
}
