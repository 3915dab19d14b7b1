package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/symtree/internal/symtree"
)

// fileFilter decides which walked files are parsed.
type fileFilter struct {
	reg    *symtree.Registry
	ignore []glob.Glob
}

func newFileFilter(reg *symtree.Registry, ignore []string) (*fileFilter, error) {
	f := &fileFilter{reg: reg}
	for _, p := range ignore {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		f.ignore = append(f.ignore, g)
	}
	return f, nil
}

// ignored matches the slash path and, for relative paths, the path rooted at
// "/" so "**/vendor/**" also catches a top-level vendor directory.
func (f *fileFilter) ignored(path string) bool {
	slash := filepath.ToSlash(path)
	candidates := []string{slash}
	if !strings.HasPrefix(slash, "/") {
		candidates = append(candidates, "/"+slash)
	}
	for _, g := range f.ignore {
		for _, c := range candidates {
			if g.Match(c) {
				return true
			}
		}
	}
	return false
}

func (f *fileFilter) ignoredDir(path string) bool {
	return f.ignored(path) || f.ignored(path+"/")
}

// accept reports whether a file has a front-end and is not ignored.
func (f *fileFilter) accept(path string) bool {
	if f.ignored(path) {
		return false
	}
	_, err := f.reg.ResolvePath(path)
	return err == nil
}

// collect expands directory arguments into the parseable files beneath them.
// File arguments are kept as given so an unknown language is reported rather
// than silently skipped. The result has no duplicates and keeps argument
// order; files found by walking are in lexical order.
func (f *fileFilter) collect(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && f.ignoredDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if f.accept(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}
	return files, nil
}
