package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wolfeidau/spabundle/internal/descriptor"
)

// ErrCompilerNotFound indicates the external stylesheet compiler is not installed.
var ErrCompilerNotFound = errors.New("stylesheet compiler not found")

// lessStep compiles Less to CSS with the lessc command line compiler, reading
// the source from stdin so imports resolve relative to the file's directory.
type lessStep struct {
	bin  string
	args []string
}

func newLessStep(opts descriptor.Options) *lessStep {
	return &lessStep{
		bin:  opts.String("bin", "lessc"),
		args: opts.Strings("args"),
	}
}

func (s *lessStep) Apply(ctx context.Context, a *Asset) error {
	bin, err := exec.LookPath(s.bin)
	if err != nil {
		return fmt.Errorf("%w: %s (install it with npm install less)", ErrCompilerNotFound, s.bin)
	}

	args := append([]string{}, s.args...)
	args = append(args, "--include-path="+filepath.Dir(a.Path), "-")

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = filepath.Dir(a.Path)
	cmd.Stdin = bytes.NewReader(a.Contents)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("compiling %s: %w", a.Path, err)
		}
		return fmt.Errorf("compiling %s: %w: %s", a.Path, err, msg)
	}

	a.Contents = stdout.Bytes()
	a.Kind = KindCSS
	return nil
}
