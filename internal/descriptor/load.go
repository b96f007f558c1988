package descriptor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format names a descriptor serialisation.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the serialisation from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json", ".jsonc":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Load reads a descriptor file. JSON files may contain comments and trailing
// commas. When the file does not set a context, the directory holding the
// file becomes the project root.
func Load(path string) (*Descriptor, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	d, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	switch {
	case d.Context == "":
		d.Context = dir
	case !filepath.IsAbs(d.Context):
		d.Context = filepath.Join(dir, d.Context)
	}

	return d, nil
}

// Parse decodes a descriptor. Unknown fields are rejected.
func Parse(data []byte, format Format) (*Descriptor, error) {
	var d Descriptor

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("parsing descriptor: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("parsing descriptor: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return &d, nil
}

// Marshal encodes the descriptor.
func (d *Descriptor) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// Path resolves p against the descriptor context.
func (d *Descriptor) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	root := d.Context
	if root == "" {
		root = "."
	}
	return filepath.Join(root, p)
}
