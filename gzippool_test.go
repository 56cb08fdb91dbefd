package tieba

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
)

func Test_GzipPool_AllocFree(t *testing.T) {
	var buf bytes.Buffer
	zw := gzipWriterAlloc(&buf)
	assert.NotNil(t, zw)
	_, err := zw.Write([]byte("pooled"))
	assert.NoError(t, err)
	assert.NoError(t, zw.Close())
	gzipWriterFree(zw)

	zr, err := gzip.NewReader(&buf)
	assert.NoError(t, err)
	b, err := io.ReadAll(zr)
	assert.NoError(t, err)
	assert.Equal(t, "pooled", string(b))
}

func Test_GzipPool_Overflow(t *testing.T) {
	// make sure the pool is full
	for len(gzipWriterPool) < cap(gzipWriterPool) {
		zw, _ := gzip.NewWriterLevel(io.Discard, GzipLevel)
		gzipWriterFree(zw)
	}
	assert.Equal(t, cap(gzipWriterPool), len(gzipWriterPool))
	zw := gzipWriterAlloc(io.Discard)
	assert.Equal(t, cap(gzipWriterPool)-1, len(gzipWriterPool))
	gzipWriterFree(zw)
	assert.Equal(t, cap(gzipWriterPool), len(gzipWriterPool))
	zw2, _ := gzip.NewWriterLevel(io.Discard, GzipLevel)
	gzipWriterFree(zw2)
	assert.Equal(t, cap(gzipWriterPool), len(gzipWriterPool))
	gzipWriterFree(nil)
}
