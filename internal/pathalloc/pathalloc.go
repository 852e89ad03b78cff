// Package pathalloc picks output file paths that do not overwrite existing files.
package pathalloc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Unique returns path unchanged if nothing exists there. Otherwise it inserts
// " 2", " 3", ... before the extension and returns the first free candidate:
//
//	slides.pdf -> slides 2.pdf -> slides 3.pdf
//
// The check is not atomic; a concurrent writer can claim the returned path
// before the caller creates it.
func Unique(path string) string {
	if !exists(path) {
		return path
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)

	for counter := 2; ; counter++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s %d%s", stem, counter, ext))
		if !exists(candidate) {
			return candidate
		}
	}
}

// OutputName builds "<base name without extension><suffix>", e.g.
// OutputName("/in/notes.pdf", "_slides.pdf") is "notes_slides.pdf".
func OutputName(inputPath, suffix string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + suffix
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
