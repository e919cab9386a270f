package fixtures

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/flanksource/commons/logger"
)

// ErrSymlinkCycle is reported when a followed symlink resolves to one of its own
// ancestors.
var ErrSymlinkCycle = errors.New("symlink cycle")

// ScanError aborts a run: a broken scan invalidates every downstream check.
type ScanError struct {
	Root string
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	if e.Path != "" && e.Path != e.Root {
		return fmt.Sprintf("scan of %s failed at %s: %v", e.Root, e.Path, e.Err)
	}
	return fmt.Sprintf("scan of %s failed: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// ScanOptions selects fixtures under Root. Include and Exclude are matched against the
// file name only, SkipDirs against the slash separated directory path relative to Root.
type ScanOptions struct {
	Root           string
	Include        *regexp.Regexp
	Exclude        *regexp.Regexp
	SkipDirs       []string
	FollowSymlinks bool
}

func (opts ScanOptions) matches(name string) bool {
	if opts.Include != nil && !opts.Include.MatchString(name) {
		return false
	}
	if opts.Exclude != nil && opts.Exclude.MatchString(name) {
		return false
	}
	return true
}

func (opts ScanOptions) skipDir(rel string) bool {
	for _, pattern := range opts.SkipDirs {
		matched, err := doublestar.Match(pattern, rel)
		if err != nil {
			logger.Warnf("invalid skip pattern %q: %v", pattern, err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// Scan walks opts.Root recursively and returns the matching fixtures ordered by path.
func Scan(opts ScanOptions) ([]Fixture, error) {
	if opts.Root == "" {
		return nil, &ScanError{Err: errors.New("no root directory given")}
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, &ScanError{Root: opts.Root, Err: err}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, &ScanError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Root: root, Err: fmt.Errorf("not a directory")}
	}

	s := &scan{opts: opts, root: root}
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, &ScanError{Root: root, Err: err}
	}
	if err := s.walk(".", root, []string{resolved}); err != nil {
		return nil, err
	}

	sort.Slice(s.found, func(i, j int) bool { return s.found[i].Path < s.found[j].Path })
	logger.V(3).Infof("scanned %s: %d fixtures", root, len(s.found))
	return s.found, nil
}

type scan struct {
	opts  ScanOptions
	root  string
	found []Fixture
}

// walk visits dir (absolute) whose path relative to the root is rel. ancestors holds
// the resolved real paths of the directories on the current descent.
func (s *scan) walk(rel, dir string, ancestors []string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &ScanError{Root: s.root, Path: dir, Err: err}
	}

	for _, entry := range entries {
		childRel := path.Join(rel, entry.Name())
		childAbs := filepath.Join(dir, entry.Name())

		isDir := entry.IsDir()
		isLink := entry.Type()&os.ModeSymlink != 0
		if isLink {
			target, err := os.Stat(childAbs)
			if err != nil {
				logger.V(3).Infof("skipping dangling symlink %s", childAbs)
				continue
			}
			if target.IsDir() {
				if !s.opts.FollowSymlinks {
					continue
				}
				isDir = true
			}
		}

		if isDir {
			if s.opts.skipDir(childRel) {
				continue
			}
			resolved, err := filepath.EvalSymlinks(childAbs)
			if err != nil {
				return &ScanError{Root: s.root, Path: childAbs, Err: err}
			}
			for _, ancestor := range ancestors {
				if ancestor == resolved {
					return &ScanError{Root: s.root, Path: childAbs, Err: fmt.Errorf("%w: %s -> %s", ErrSymlinkCycle, childRel, resolved)}
				}
			}
			if err := s.walk(childRel, childAbs, append(ancestors[:len(ancestors):len(ancestors)], resolved)); err != nil {
				return err
			}
			continue
		}

		if !entry.Type().IsRegular() && !isLink {
			continue
		}
		if s.opts.matches(entry.Name()) {
			s.found = append(s.found, Fixture{Root: s.root, Path: childRel})
		}
	}
	return nil
}
