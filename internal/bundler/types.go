package bundler

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/wolfeidau/spabundle/internal/comments"
	"github.com/wolfeidau/spabundle/internal/descriptor"
	"github.com/wolfeidau/spabundle/internal/telemetry"
	"github.com/wolfeidau/spabundle/internal/transform"
)

// BuildMetadata is the subset of the esbuild metafile the pipeline reads.
type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	CSSBundle  string       `json:"cssBundle"`
	Imports    []ImportInfo `json:"imports"`
	Bytes      int64        `json:"bytes"`
}

type ImportInfo struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// EmittedFile is a file written to the output directory.
type EmittedFile struct {
	// Path is relative to the output directory, with forward slashes.
	Path string
	Size int64
}

// Result summarises a completed build.
type Result struct {
	Files    []EmittedFile
	Inlined  int
	Emitted  int
	Duration time.Duration
}

// Config holds per-invocation settings that are not part of the descriptor.
type Config struct {
	// BuildTime is substituted for [buildtime] in the banner.
	BuildTime time.Time
	// MetafilePath, when set, receives esbuild's metafile after each build.
	MetafilePath string
}

// Pipeline executes a descriptor with esbuild and post-processes its outputs.
type Pipeline struct {
	desc     *descriptor.Descriptor
	config   Config
	rules    *transform.Set
	comments *comments.Policy
	metrics  *telemetry.Metrics

	workDir string
	outDir  string

	buildMu sync.Mutex

	mu       sync.RWMutex
	metadata *BuildMetadata
	last     *Result
	started  time.Time
	// assets emitted by stylesheet sub-builds during the current build
	extra   []extraFile
	inlined int
	emitted int
}

type extraFile struct {
	path     string
	contents []byte
}

// New validates the descriptor and prepares a pipeline for it.
func New(desc *descriptor.Descriptor, config Config) (*Pipeline, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	workDir, err := filepath.Abs(desc.Path("."))
	if err != nil {
		return nil, err
	}

	policy, err := comments.Compile(desc.Optimization.Minimizer.Format.Comments)
	if err != nil {
		return nil, err
	}

	if config.BuildTime.IsZero() {
		config.BuildTime = time.Now()
	}

	p := &Pipeline{
		desc:     desc,
		config:   config,
		comments: policy,
		metrics:  telemetry.GetMetrics(),
		workDir:  workDir,
		outDir:   filepath.Join(workDir, filepath.Clean(desc.Output.Path)),
	}
	if filepath.IsAbs(desc.Output.Path) {
		p.outDir = filepath.Clean(desc.Output.Path)
	}

	rules, err := transform.NewSet(desc.Rules, transform.Env{
		BundleCSS: p.bundleCSS,
		Observe:   p.observe,
	})
	if err != nil {
		return nil, fmt.Errorf("compiling rules: %w", err)
	}
	p.rules = rules

	return p, nil
}

// OutDir returns the absolute output directory.
func (p *Pipeline) OutDir() string {
	return p.outDir
}

// Descriptor returns the descriptor the pipeline executes.
func (p *Pipeline) Descriptor() *descriptor.Descriptor {
	return p.desc
}

func (p *Pipeline) minimize() bool {
	return p.desc.Optimization.Minimize && p.desc.EffectiveMode() == descriptor.ModeProduction
}

func (p *Pipeline) observe(a *transform.Asset, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a.Kind == transform.KindDataURL {
		p.inlined++
	} else {
		p.emitted++
	}
}
