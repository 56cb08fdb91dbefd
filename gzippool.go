package tieba

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// Provides a buffer of allocated but unused gzip writers.
var gzipWriterPool chan *gzip.Writer

func init() {
	gzipWriterPool = make(chan *gzip.Writer, 64)
}

// gzipWriterAlloc returns a gzip writer at GzipLevel writing to w.
func gzipWriterAlloc(w io.Writer) *gzip.Writer {
	select {
	case zw := <-gzipWriterPool:
		zw.Reset(w)
		return zw
	default:
		zw, err := gzip.NewWriterLevel(w, GzipLevel)
		if err != nil {
			panic(err) // GzipLevel is a valid constant
		}
		return zw
	}
}

// gzipWriterFree releases a gzip writer.
func gzipWriterFree(zw *gzip.Writer) {
	if zw != nil {
		select {
		case gzipWriterPool <- zw:
		default:
		}
	}
}
