package bundler

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joelanford/ignore"
)

// IgnoreFilename holds gitignore-style patterns of source files excluded
// from coverage checks. Patterns apply to the directory containing the file
// and below.
const IgnoreFilename = ".bundleignore"

var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// Scan walks root and returns the distinct lower-cased file extensions found,
// skipping dependency directories and files matched by .bundleignore.
func Scan(root string) ([]string, error) {
	fsys := os.DirFS(root)

	matcher, err := ignore.NewMatcher(fsys, IgnoreFilename)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != "." && (skipDirs[d.Name()] || matcher.Match(path, true)) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Name() == IgnoreFilename || matcher.Match(path, false) {
			return nil
		}
		if ext := strings.ToLower(filepath.Ext(d.Name())); ext != "" {
			seen[ext] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	exts := make([]string, 0, len(seen))
	for ext := range seen {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts, nil
}
