// Package archive walks job files stored inside of zip archives.
package archive

import (
	"archive/zip"
	"errors"
	"path"
	"slices"
	"strings"

	"github.com/maruel/natural"
)

// ErrUnsafePath is passed to WalkFunc for entries which could escape
// destination directory: absolute paths or paths with ".." components.
var ErrUnsafePath = errors.New("unsafe path in archive")

// WalkFunc is called for every visited file of the archive. When err is not
// nil the entry was not usable, file still describes it. Returning an error
// stops the walk.
type WalkFunc func(archive string, file *zip.File, err error) error

// Walk visits files of the archive under prefix directory (empty prefix
// means all files) in natural order of their names.
func Walk(archive, prefix string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return err
	}
	defer r.Close()

	files := slices.Clone(r.File)
	slices.SortStableFunc(files, func(a, b *zip.File) int {
		switch {
		case a.Name == b.Name:
			return 0
		case natural.Less(a.Name, b.Name):
			return -1
		default:
			return 1
		}
	})

	for _, f := range files {
		if f.FileInfo().IsDir() || !underPrefix(f.Name, prefix) {
			continue
		}
		var ferr error
		if !isSafePath(f.Name) {
			ferr = ErrUnsafePath
		}
		if err := walkFn(archive, f, ferr); err != nil {
			return err
		}
	}
	return nil
}

// underPrefix matches whole path elements, "jobs" selects "jobs/a.yaml" and
// "jobs" itself but not "jobs2/a.yaml".
func underPrefix(name, prefix string) bool {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return true
	}
	return name == prefix || strings.HasPrefix(name, prefix+"/")
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) || (len(name) > 1 && name[1] == ':') {
		return false
	}
	for part := range strings.SplitSeq(strings.ReplaceAll(name, `\`, "/"), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
