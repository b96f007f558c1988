package bundler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/otiai10/copy"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/spabundle/internal/banner"
	"github.com/wolfeidau/spabundle/internal/descriptor"
	"github.com/wolfeidau/spabundle/internal/htmlgen"
	"github.com/wolfeidau/spabundle/internal/precompress"
)

type outputFile struct {
	path     string
	rel      string
	contents []byte
}

// emit applies the banner and comment policy to esbuild's in-memory outputs,
// writes them, then runs the html, compression and copy plugins.
func (p *Pipeline) emit(ctx context.Context, result *api.BuildResult) (*Result, error) {
	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return nil, fmt.Errorf("parsing metafile: %w", err)
	}

	p.mu.Lock()
	p.metadata = &metadata
	extra := p.extra
	started := p.started
	inlined, emitted := p.inlined, p.emitted
	p.mu.Unlock()

	files := make([]*outputFile, 0, len(result.OutputFiles)+len(extra))
	for _, f := range result.OutputFiles {
		files = append(files, &outputFile{path: f.Path, contents: f.Contents})
	}
	for _, f := range extra {
		files = append(files, &outputFile{path: f.path, contents: f.contents})
	}
	for _, f := range files {
		rel, err := filepath.Rel(p.outDir, f.path)
		if err != nil {
			return nil, err
		}
		f.rel = filepath.ToSlash(rel)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })

	if err := p.applyBanner(files, p.entryOutputs(&metadata)); err != nil {
		return nil, err
	}

	if p.minimize() {
		for _, f := range files {
			if !isScript(f.rel) {
				continue
			}
			filtered, err := p.comments.Filter(f.contents)
			if err != nil {
				return nil, fmt.Errorf("filtering comments in %s: %w", f.rel, err)
			}
			f.contents = filtered
		}
	}

	res := &Result{Inlined: inlined, Emitted: emitted}
	written := make([]string, 0, len(files))

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := writeFile(f.path, f.contents); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, EmittedFile{Path: f.rel, Size: int64(len(f.contents))})
		written = append(written, f.path)
		log.Debug().Str("file", f.rel).Int("bytes", len(f.contents)).Msg("Emitted file")
	}

	if act, ok := p.desc.Plugin(descriptor.PluginHTML); ok {
		pages, err := p.generateHTML(act.Options)
		if err != nil {
			return nil, fmt.Errorf("html plugin: %w", err)
		}
		for _, page := range pages {
			written = append(written, filepath.Join(p.outDir, filepath.FromSlash(page)))
			res.Files = append(res.Files, p.statFile(page))
		}
	}

	if act, ok := p.desc.Plugin(descriptor.PluginCopy); ok {
		copied, err := p.copyStatic(act.Options)
		if err != nil {
			return nil, fmt.Errorf("copy plugin: %w", err)
		}
		for _, rel := range copied {
			written = append(written, filepath.Join(p.outDir, filepath.FromSlash(rel)))
			res.Files = append(res.Files, p.statFile(rel))
		}
	}

	if act, ok := p.desc.Plugin(descriptor.PluginCompression); ok {
		compressed, err := p.compress(act.Options, written)
		if err != nil {
			return nil, fmt.Errorf("compression plugin: %w", err)
		}
		for _, path := range compressed {
			rel, _ := filepath.Rel(p.outDir, path)
			res.Files = append(res.Files, p.statFile(filepath.ToSlash(rel)))
		}
	}

	if p.config.MetafilePath != "" {
		if err := writeFile(p.config.MetafilePath, []byte(result.Metafile)); err != nil {
			return nil, err
		}
	}

	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].Path < res.Files[j].Path })
	res.Duration = time.Since(started)

	p.mu.Lock()
	p.last = res
	p.mu.Unlock()

	log.Info().Int("files", len(res.Files)).Int64("bytes", res.totalBytes()).
		Dur("duration", res.Duration).Msg("Bundle emitted")

	return res, nil
}

// applyBanner prepends the rendered banner to scripts and stylesheets. Source
// maps of bannered scripts are shifted by the banner's line count.
func (p *Pipeline) applyBanner(files []*outputFile, entries map[string]string) error {
	act, ok := p.desc.Plugin(descriptor.PluginBanner)
	if !ok {
		return nil
	}

	opts := banner.Options{
		Text:      act.Options.String("banner", ""),
		Raw:       act.Options.Bool("raw", false),
		EntryOnly: act.Options.Bool("entryOnly", false),
	}
	if opts.Text == "" {
		return nil
	}

	contents := make([][]byte, len(files))
	for i, f := range files {
		contents[i] = f.contents
	}
	fullHash := banner.FullHash(contents...)

	maps := map[string]*outputFile{}
	for _, f := range files {
		if strings.HasSuffix(f.rel, ".map") {
			maps[strings.TrimSuffix(f.rel, ".map")] = f
		}
	}

	for _, f := range files {
		if !isScript(f.rel) && !isStylesheet(f.rel) {
			continue
		}

		name, isEntry := entries[f.rel]
		if opts.EntryOnly && !isEntry {
			continue
		}
		if !isEntry {
			name = strings.TrimSuffix(filepath.Base(f.rel), filepath.Ext(f.rel))
		}

		comment := banner.Comment(banner.Render(opts.Text, banner.Vars{
			Name:      name,
			File:      f.rel,
			FullHash:  fullHash,
			BuildTime: p.config.BuildTime,
		}), opts.Raw)
		f.contents = banner.Prepend(comment, f.contents)

		if m, ok := maps[f.rel]; ok {
			shifted, err := shiftSourceMap(m.contents, strings.Count(comment, "\n")+1)
			if err != nil {
				return fmt.Errorf("adjusting %s: %w", m.rel, err)
			}
			m.contents = shifted
		}
	}

	return nil
}

// entryOutputs maps output paths relative to the output directory to the
// name of the entry point that produced them.
func (p *Pipeline) entryOutputs(metadata *BuildMetadata) map[string]string {
	entries := map[string]string{}
	for outputPath, info := range metadata.Outputs {
		if info.EntryPoint == "" {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(info.EntryPoint), filepath.Ext(info.EntryPoint))
		entries[p.outputRel(outputPath)] = name
		if info.CSSBundle != "" {
			entries[p.outputRel(info.CSSBundle)] = name
		}
	}
	return entries
}

// outputRel converts a metafile path, relative to the working directory,
// into a path relative to the output directory.
func (p *Pipeline) outputRel(metaPath string) string {
	rel, err := filepath.Rel(p.outDir, filepath.Join(p.workDir, filepath.FromSlash(metaPath)))
	if err != nil {
		return metaPath
	}
	return filepath.ToSlash(rel)
}

// shiftSourceMap prepends empty generated lines to a source map's mappings.
func shiftSourceMap(data []byte, lines int) ([]byte, error) {
	var sm map[string]json.RawMessage
	if err := json.Unmarshal(data, &sm); err != nil {
		return nil, err
	}
	var mappings string
	if raw, ok := sm["mappings"]; ok {
		if err := json.Unmarshal(raw, &mappings); err != nil {
			return nil, err
		}
	}
	shifted, err := json.Marshal(strings.Repeat(";", lines) + mappings)
	if err != nil {
		return nil, err
	}
	sm["mappings"] = shifted
	return json.Marshal(sm)
}

func (p *Pipeline) generateHTML(o descriptor.Options) ([]string, error) {
	opts, err := htmlgen.OptionsFrom(o, p.desc.Output.PublicPath)
	if err != nil {
		return nil, err
	}

	scripts, _, err := p.LoadScripts(p.entryKey())
	if err != nil {
		return nil, err
	}
	styles, err := p.Stylesheets(p.entryKey())
	if err != nil {
		return nil, err
	}

	return htmlgen.Generate(p.workDir, p.outDir, opts, htmlgen.Assets{Scripts: scripts, Styles: styles})
}

// copyStatic copies the "from" directory into "to" under the output
// directory and returns the copied files relative to the output directory.
func (p *Pipeline) copyStatic(o descriptor.Options) ([]string, error) {
	from := o.String("from", "")
	if from == "" {
		return nil, fmt.Errorf("%w: copy plugin requires a from directory", descriptor.ErrInvalidDescriptor)
	}
	src := filepath.Join(p.workDir, from)
	if filepath.IsAbs(from) {
		src = from
	}
	dst := filepath.Join(p.outDir, o.String("to", ""))

	if err := copy.Copy(src, dst); err != nil {
		return nil, err
	}

	var copied []string
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		out, err := filepath.Rel(p.outDir, filepath.Join(dst, rel))
		if err != nil {
			return err
		}
		copied = append(copied, filepath.ToSlash(out))
		return nil
	})
	return copied, err
}

func (p *Pipeline) compress(o descriptor.Options, paths []string) ([]string, error) {
	opts, err := precompress.OptionsFrom(o)
	if err != nil {
		return nil, err
	}
	c, err := precompress.New(opts)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	return c.Files(paths)
}

func (p *Pipeline) statFile(rel string) EmittedFile {
	f := EmittedFile{Path: rel}
	if info, err := os.Stat(filepath.Join(p.outDir, filepath.FromSlash(rel))); err == nil {
		f.Size = info.Size()
	}
	return f
}

func writeFile(path string, contents []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, contents) {
		return nil
	}
	return os.WriteFile(path, contents, 0o644)
}

func isScript(rel string) bool {
	switch filepath.Ext(rel) {
	case ".js", ".mjs", ".cjs":
		return true
	}
	return false
}

func isStylesheet(rel string) bool {
	return filepath.Ext(rel) == ".css"
}
