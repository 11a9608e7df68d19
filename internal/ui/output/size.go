package output

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
)

// ReportSize prints one asset's raw and gzip size under title.
func ReportSize(w io.Writer, title, name string, data []byte) {
	fmt.Fprintf(w, "%s %s %s (gzip %s)\n", title, name,
		humanize.Bytes(uint64(len(data))), humanize.Bytes(uint64(GzipSize(data))))
}

// GzipSize returns the length of data compressed at the best gzip level.
func GzipSize(data []byte) int64 {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return 0
	}
	_, _ = zw.Write(data)
	_ = zw.Close()
	return int64(buf.Len())
}
