package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/flaskblog/assetflow/internal/adapters/cas"
	"github.com/flaskblog/assetflow/internal/adapters/fs"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// imageCacheVersion is mixed into every cache key; bump it when the
// optimizers change.
const imageCacheVersion = "images/v1"

type imageStats struct {
	files  atomic.Int64
	cached atomic.Int64
	failed atomic.Int64
	before atomic.Int64
	after  atomic.Int64
}

// Images recompresses every file below the image directory into dist.
// Results are cached by content. A file that fails to optimize is logged and
// copied unchanged.
func (p *Pipeline) Images(ctx context.Context, w io.Writer) error {
	srcDir := p.cfg.Abs(p.cfg.Paths.Images())
	files, err := fs.Glob(srcDir, "**")
	if err != nil {
		return err
	}
	dstDir := filepath.Join(p.cfg.Abs(p.cfg.Paths.DistStatic()), "images")

	var stats imageStats
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, rel := range files {
		g.Go(func() error {
			src := filepath.Join(srcDir, filepath.FromSlash(rel))
			out, err := p.optimizeImage(ctx, src, &stats)
			if err != nil {
				return err
			}
			return fs.WriteFile(filepath.Join(dstDir, filepath.FromSlash(rel)), out)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	saved := max(stats.before.Load()-stats.after.Load(), 0)
	fmt.Fprintf(w, "images: %d file(s), %d cached, %d unoptimized, saved %s\n",
		stats.files.Load(), stats.cached.Load(), stats.failed.Load(), humanize.Bytes(uint64(saved)))
	return nil
}

// optimizeImage returns the bytes to write for src. Only a read failure is an error.
func (p *Pipeline) optimizeImage(ctx context.Context, src string, stats *imageStats) ([]byte, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", src)
	}
	stats.files.Add(1)
	stats.before.Add(int64(len(data)))

	ext := strings.ToLower(path.Ext(src))
	key := cas.Key([]byte(imageCacheVersion), []byte(ext), []byte(p.optimizerSignature(ext)), data)
	if cached, ok, err := p.store.Get(key); err == nil && ok {
		stats.cached.Add(1)
		stats.after.Add(int64(len(cached)))
		return cached, nil
	}

	out, err := p.compressImage(ctx, ext, src, data)
	if err != nil {
		stats.failed.Add(1)
		stats.after.Add(int64(len(data)))
		p.logger.Warn(fmt.Sprintf("images: %s left unoptimized: %v", p.rel(src), err))
		return data, nil
	}
	if len(out) == 0 || len(out) > len(data) {
		out = data
	}
	stats.after.Add(int64(len(out)))
	if err := p.store.Put(key, out); err != nil {
		p.logger.Warn(fmt.Sprintf("images: cache write for %s failed: %v", p.rel(src), err))
	}
	return out, nil
}

func (p *Pipeline) compressImage(ctx context.Context, ext, src string, data []byte) ([]byte, error) {
	switch ext {
	case ".png":
		return recompressPNG(data)
	case ".svg":
		return p.minifier.SVG(data)
	case ".jpg", ".jpeg":
		return p.runOptimizer(ctx, p.cfg.Images.JPEG, "-outfile", src)
	case ".gif":
		return p.runOptimizer(ctx, p.cfg.Images.GIF, "-o", src)
	default:
		return data, nil
	}
}

// optimizerSignature identifies the external tool used for ext, so installing
// or reconfiguring it invalidates cached results.
func (p *Pipeline) optimizerSignature(ext string) string {
	var command []string
	switch ext {
	case ".jpg", ".jpeg":
		command = p.cfg.Images.JPEG
	case ".gif":
		command = p.cfg.Images.GIF
	default:
		return ""
	}
	if len(command) == 0 || !p.runner.Available(command[0]) {
		return "none"
	}
	return strings.Join(command, " ")
}

// recompressPNG re-encodes a PNG at the best zlib level. Decoding and
// encoding is lossless.
func recompressPNG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// runOptimizer runs an external optimizer writing to a temp file. A missing
// tool leaves the image as it is.
func (p *Pipeline) runOptimizer(ctx context.Context, command []string, outFlag, src string) ([]byte, error) {
	if len(command) == 0 || !p.runner.Available(command[0]) {
		return os.ReadFile(src)
	}

	tmp, err := os.CreateTemp("", "assetflow-image-*"+path.Ext(src))
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpPath) }()

	args := append(append([]string{}, command...), outFlag, tmpPath, src)
	if err := p.runner.Run(ctx, domain.Command{Args: args, Dir: p.cfg.Root}, io.Discard, io.Discard); err != nil {
		return nil, err
	}
	return os.ReadFile(tmpPath)
}
