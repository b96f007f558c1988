// Package precompress writes gzip and zstd variants of emitted files so a
// static file server can serve them with a matching Content-Encoding.
package precompress

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/wolfeidau/spabundle/internal/descriptor"
)

var ErrUnknownAlgorithm = errors.New("unknown compression algorithm")

const (
	Gzip = "gzip"
	Zstd = "zstd"
)

// Extension returns the file suffix for an algorithm.
func Extension(algorithm string) string {
	switch algorithm {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	}
	return ""
}

var defaultTest = regexp.MustCompile(`\.(js|css|html|svg|json|txt)$`)

// Options configure the compression plugin.
type Options struct {
	Algorithms []string
	// Threshold is the minimum size in bytes of a file worth compressing.
	Threshold int64
	// MinRatio is the largest compressed/original ratio that is kept.
	MinRatio float64
	Test     *regexp.Regexp
}

// OptionsFrom reads plugin options, applying defaults.
func OptionsFrom(o descriptor.Options) (Options, error) {
	opts := Options{
		Algorithms: o.Strings("algorithms"),
		Threshold:  o.Int("threshold", 1024),
		MinRatio:   o.Float("minRatio", 0.8),
		Test:       defaultTest,
	}
	if len(opts.Algorithms) == 0 {
		opts.Algorithms = []string{Gzip, Zstd}
	}
	for _, a := range opts.Algorithms {
		if Extension(a) == "" {
			return Options{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, a)
		}
	}
	if test := o.String("test", ""); test != "" {
		re, err := regexp.Compile(test)
		if err != nil {
			return Options{}, fmt.Errorf("compression test: %w", err)
		}
		opts.Test = re
	}
	return opts, nil
}

// Compressor produces compressed variants of files. It is safe for
// concurrent use.
type Compressor struct {
	opts    Options
	encoder *zstd.Encoder
}

func New(opts Options) (*Compressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, err
	}
	return &Compressor{opts: opts, encoder: enc}, nil
}

// Close releases the zstd encoder.
func (c *Compressor) Close() error {
	return c.encoder.Close()
}

// Files compresses each matching file and returns the paths written.
func (c *Compressor) Files(paths []string) ([]string, error) {
	var written []string
	for _, p := range paths {
		if c.opts.Test != nil && !c.opts.Test.MatchString(p) {
			continue
		}
		out, err := c.File(p)
		if err != nil {
			return written, err
		}
		written = append(written, out...)
	}
	return written, nil
}

// File writes the compressed variants of a single file, skipping files
// below the threshold and variants that do not shrink enough.
func (c *Compressor) File(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) < c.opts.Threshold || len(data) == 0 {
		return nil, nil
	}

	var written []string
	for _, algorithm := range c.opts.Algorithms {
		compressed, err := c.Compress(algorithm, data)
		if err != nil {
			return written, fmt.Errorf("%s %s: %w", algorithm, path, err)
		}
		if float64(len(compressed))/float64(len(data)) > c.opts.MinRatio {
			continue
		}

		dst := path + Extension(algorithm)
		if err := os.WriteFile(dst, compressed, 0o644); err != nil {
			return written, err
		}
		written = append(written, dst)
	}
	return written, nil
}

// Compress encodes data with the named algorithm.
func (c *Compressor) Compress(algorithm string, data []byte) ([]byte, error) {
	switch algorithm {
	case Zstd:
		return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case Gzip:
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
}
