package precompress

import (
	"bytes"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/spabundle/internal/descriptor"
)

func newCompressor(t *testing.T, o descriptor.Options) *Compressor {
	t.Helper()
	opts, err := OptionsFrom(o)
	require.NoError(t, err)
	c, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOptionsFrom(t *testing.T) {
	opts, err := OptionsFrom(descriptor.Options{})
	require.NoError(t, err)
	require.Equal(t, []string{Gzip, Zstd}, opts.Algorithms)
	require.EqualValues(t, 1024, opts.Threshold)
	require.InDelta(t, 0.8, opts.MinRatio, 0.0001)

	_, err = OptionsFrom(descriptor.Options{"algorithms": []any{"brotli"}})
	require.ErrorIs(t, err, ErrUnknownAlgorithm)

	_, err = OptionsFrom(descriptor.Options{"test": "("})
	require.Error(t, err)
}

func TestCompress_RoundTrip(t *testing.T) {
	c := newCompressor(t, descriptor.Options{})
	data := []byte(strings.Repeat("console.log('hello');\n", 200))

	gz, err := c.Compress(Gzip, data)
	require.NoError(t, err)
	r, err := gzip.NewReader(bytes.NewReader(gz))
	require.NoError(t, err)
	plain, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, data, plain)

	zst, err := c.Compress(Zstd, data)
	require.NoError(t, err)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	plain, err = dec.DecodeAll(zst, nil)
	require.NoError(t, err)
	require.Equal(t, data, plain)

	_, err = c.Compress("brotli", data)
	require.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0o600))
		return p
	}

	random := make([]byte, 4096)
	_, err := rand.Read(random)
	require.NoError(t, err)

	bundle := write("bundle.js", []byte(strings.Repeat("var a=1;", 1000)))
	small := write("small.js", []byte("var a=1;"))
	noisy := write("noise.js", random)
	image := write("logo.png", []byte(strings.Repeat("x", 4096)))

	c := newCompressor(t, descriptor.Options{})
	written, err := c.Files([]string{bundle, small, noisy, image})
	require.NoError(t, err)
	require.Equal(t, []string{bundle + ".gz", bundle + ".zst"}, written)

	require.FileExists(t, bundle+".gz")
	require.NoFileExists(t, small+".gz")
	require.NoFileExists(t, noisy+".zst")
	require.NoFileExists(t, image+".gz")
}

func TestFiles_SingleAlgorithm(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(p, []byte(strings.Repeat("<p>hi</p>", 500)), 0o600))

	c := newCompressor(t, descriptor.Options{"algorithms": []any{"zstd"}, "threshold": 0})
	written, err := c.Files([]string{p})
	require.NoError(t, err)
	require.Equal(t, []string{p + ".zst"}, written)
}
