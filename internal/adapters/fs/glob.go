// Package fs provides globbing, walking and copying helpers over the project tree.
package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"go.trai.ch/zerr"
)

// Glob returns the regular files below root matching pattern, as sorted
// slash-separated paths relative to root. Dotfiles match like any other name.
// A missing root yields no matches.
func Glob(root, pattern string) ([]string, error) {
	if _, err := os.Stat(root); errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		err = zerr.Wrap(err, domain.ErrGlobFailed.Error())
		err = zerr.With(err, "root", root)
		return nil, zerr.With(err, "pattern", pattern)
	}
	slices.Sort(matches)
	return matches, nil
}

// GlobExcluding is Glob minus every file matching one of the excludes.
func GlobExcluding(root, pattern string, excludes ...string) ([]string, error) {
	matches, err := Glob(root, pattern)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(matches, func(m string) bool {
		for _, ex := range excludes {
			if Match(ex, m) {
				return true
			}
		}
		return false
	}), nil
}

// Match reports whether the slash-separated name matches pattern. Invalid
// patterns never match.
func Match(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, filepath.ToSlash(name))
	return err == nil && ok
}

// MatchBase reports whether the last element of name matches pattern.
func MatchBase(pattern, name string) bool {
	return Match(pattern, path.Base(filepath.ToSlash(name)))
}
