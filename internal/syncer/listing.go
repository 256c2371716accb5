package syncer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"github.com/wasilibs/go-re2"

	"github.com/aatumaykin/iliassync/internal/syncstate"
)

// LocalFile is a regular file found under the local root.
type LocalFile struct {
	Path   string // canonical relative path, the identity recorded as synced
	Native string // relative path exactly as it exists on disk, slash-separated
}

// ListLocalFiles walks root and returns every non-directory entry as a
// canonical relative path, sorted. A root that does not exist yet yields an
// empty listing.
func ListLocalFiles(fsys afero.Fs, root string) ([]string, error) {
	found, err := ScanLocalFiles(fsys, root)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(found))
	for _, f := range found {
		files = append(files, f.Path)
	}
	return files, nil
}

// ScanLocalFiles is ListLocalFiles keeping the on-disk name of every entry.
// Uploads must use Native: the canonical form may be NFC or '/' where the
// file system holds NFD or a literal backslash.
func ScanLocalFiles(fsys afero.Fs, root string) ([]LocalFile, error) {
	info, err := fsys.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return []LocalFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local root %s is not a directory", root)
	}

	files := []LocalFile{}
	err = afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		native := filepath.ToSlash(rel)
		files = append(files, LocalFile{Path: syncstate.CanonicalPath(native), Native: native})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Path == files[j].Path {
			return files[i].Native < files[j].Native
		}
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// nativePaths maps canonical paths back to every on-disk name that
// canonicalizes to them.
func nativePaths(canonical []string, found []LocalFile) []string {
	byPath := make(map[string][]string, len(found))
	for _, f := range found {
		byPath[f.Path] = append(byPath[f.Path], f.Native)
	}
	natives := make([]string, 0, len(canonical))
	for _, c := range canonical {
		natives = append(natives, byPath[c]...)
	}
	return natives
}

func compileExcludes(patterns []string) ([]*re2.Regexp, error) {
	compiled := make([]*re2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := re2.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func filterExcluded(files []LocalFile, excludes []*re2.Regexp) []LocalFile {
	if len(excludes) == 0 {
		return files
	}
	kept := files[:0:0]
	for _, f := range files {
		if !matchesAny(f.Path, excludes) {
			kept = append(kept, f)
		}
	}
	return kept
}

func matchesAny(path string, excludes []*re2.Regexp) bool {
	for _, re := range excludes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}
