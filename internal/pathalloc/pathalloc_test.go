package pathalloc

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}

func TestUnique_FreePathUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slides.pdf")

	if got := Unique(path); got != path {
		t.Errorf("Unique() = %q, want %q", got, path)
	}
}

func TestUnique_Collisions(t *testing.T) {
	for _, prior := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d prior", prior), func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "notes_slides.pdf")

			touch(t, path)
			for n := 2; n <= prior; n++ {
				touch(t, filepath.Join(dir, fmt.Sprintf("notes_slides %d.pdf", n)))
			}

			want := filepath.Join(dir, fmt.Sprintf("notes_slides %d.pdf", prior+1))
			got := Unique(path)
			if got != want {
				t.Errorf("Unique() = %q, want %q", got, want)
			}
			if _, err := os.Stat(got); !os.IsNotExist(err) {
				t.Errorf("Unique() returned an existing path %q", got)
			}
		})
	}
}

func TestUnique_FillsGaps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slides.pdf")
	touch(t, path)
	touch(t, filepath.Join(dir, "slides 3.pdf"))

	want := filepath.Join(dir, "slides 2.pdf")
	if got := Unique(path); got != want {
		t.Errorf("Unique() = %q, want %q", got, want)
	}
}

func TestUnique_NoExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck")
	touch(t, path)

	want := filepath.Join(dir, "deck 2")
	if got := Unique(path); got != want {
		t.Errorf("Unique() = %q, want %q", got, want)
	}
}

func TestUnique_DirectoryCountsAsTaken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.pdf")
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatal(err)
	}

	if got := Unique(path); got == path {
		t.Errorf("Unique() returned the path of an existing directory")
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		input  string
		suffix string
		want   string
	}{
		{"/in/notes.pdf", "_slides.pdf", "notes_slides.pdf"},
		{"meeting.m4a", "_slides.pdf", "meeting_slides.pdf"},
		{"/in/archive.tar.gz", "_slides.pdf", "archive.tar_slides.pdf"},
		{"/in/README", "_slides.pdf", "README_slides.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := OutputName(tt.input, tt.suffix); got != tt.want {
				t.Errorf("OutputName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
