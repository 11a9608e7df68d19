package fs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/flaskblog/assetflow/internal/core/domain"
	"go.trai.ch/zerr"
)

// WriteFile writes data to dst, creating parent directories.
func WriteFile(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "path", dst)
	}
	if err := os.WriteFile(dst, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "path", dst)
	}
	return nil
}

// CopyFile copies src to dst, creating parent directories.
func CopyFile(src, dst string) error {
	//nolint:gosec // G304: src comes from a glob over the project tree
	in, err := os.Open(src)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", src)
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "path", dst)
	}
	//nolint:gosec // G304: dst is below the configured output dir
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, domain.FilePerm)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "path", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "path", dst)
	}
	if err := out.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "path", dst)
	}
	return nil
}

// CopyTree copies each slash-separated relative path from srcRoot to dstRoot.
func CopyTree(srcRoot, dstRoot string, rels []string) error {
	for _, rel := range rels {
		native := filepath.FromSlash(rel)
		if err := CopyFile(filepath.Join(srcRoot, native), filepath.Join(dstRoot, native)); err != nil {
			return err
		}
	}
	return nil
}
