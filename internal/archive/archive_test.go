package archive_test

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wheelsmith/wheelsmith/internal/archive"
	"github.com/wheelsmith/wheelsmith/internal/test/tempfs"
)

func TestTimestamp(t *testing.T) {
	cases := []struct {
		note            string
		sourceDateEpoch string
		reproducible    bool
		exp             time.Time
		expError        bool
		wallClock       bool
	}{
		{
			note:         "reproducible default epoch",
			reproducible: true,
			exp:          time.Date(2020, 2, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			note:            "source date epoch override",
			reproducible:    true,
			sourceDateEpoch: "1580601700",
			exp:             time.Date(2020, 2, 2, 0, 1, 40, 0, time.UTC),
		},
		{
			note:      "non reproducible uses wall clock",
			wallClock: true,
		},
		{
			note:            "invalid source date epoch",
			reproducible:    true,
			sourceDateEpoch: "not-a-number",
			expError:        true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			got, err := archive.Timestamp(tc.sourceDateEpoch, tc.reproducible)
			if tc.expError {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tc.wallClock {
				if time.Since(got) > time.Minute {
					t.Fatalf("expected wall clock time, got %v", got)
				}
				return
			}
			if !got.Equal(tc.exp) {
				t.Fatalf("expected %v, got %v", tc.exp, got)
			}
		})
	}
}

func TestWriterRoundTrip(t *testing.T) {
	files := map[string]string{
		"pkg/mod.py": "print('hi')\n",
	}

	tempfs.WithTempFS(t, files, func(t *testing.T, root string) {
		out := filepath.Join(root, "dist")
		w, err := archive.NewWriter(out, "pkg-1.0-py3-none-any.whl", archive.FixedEpoch)
		if err != nil {
			t.Fatal(err)
		}

		if err := w.WriteFile("pkg/mod.py", filepath.Join(root, "pkg", "mod.py")); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteData("pkg-1.0.dist-info/WHEEL", 0o644, []byte("Wheel-Version: 1.0\n")); err != nil {
			t.Fatal(err)
		}

		records := w.Records()
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Path != "pkg/mod.py" || records[0].Size != int64(len("print('hi')\n")) {
			t.Fatalf("unexpected first record: %+v", records[0])
		}
		if records[0].Digest == "" {
			t.Fatal("expected a digest")
		}

		path, err := w.Finalize()
		if err != nil {
			t.Fatal(err)
		}
		if path != filepath.Join(out, "pkg-1.0-py3-none-any.whl") {
			t.Fatalf("unexpected artifact path %q", path)
		}

		r, err := zip.OpenReader(path)
		if err != nil {
			t.Fatal(err)
		}
		defer r.Close()

		var names []string
		for _, f := range r.File {
			names = append(names, f.Name)
			if !f.Modified.UTC().Equal(archive.FixedEpoch) {
				t.Fatalf("member %s has timestamp %v, expected fixed epoch", f.Name, f.Modified.UTC())
			}
		}
		if diff := cmp.Diff([]string{"pkg/mod.py", "pkg-1.0.dist-info/WHEEL"}, names); diff != "" {
			t.Fatalf("unexpected members (-want +got):\n%s", diff)
		}

		rc, err := r.File[0].Open()
		if err != nil {
			t.Fatal(err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		if string(content) != "print('hi')\n" {
			t.Fatalf("unexpected content %q", content)
		}
	})
}

func TestWriterPreservesMode(t *testing.T) {
	tempfs.WithTempFS(t, map[string]string{"bin/tool": "#!/bin/sh\n"}, func(t *testing.T, root string) {
		script := filepath.Join(root, "bin", "tool")
		if err := os.Chmod(script, 0o755); err != nil {
			t.Fatal(err)
		}

		w, err := archive.NewWriter(filepath.Join(root, "dist"), "a-1.0-py3-none-any.whl", archive.FixedEpoch)
		if err != nil {
			t.Fatal(err)
		}
		if err := w.WriteFile("scripts/tool", script); err != nil {
			t.Fatal(err)
		}
		path, err := w.Finalize()
		if err != nil {
			t.Fatal(err)
		}

		r, err := zip.OpenReader(path)
		if err != nil {
			t.Fatal(err)
		}
		defer r.Close()

		if mode := r.File[0].Mode().Perm(); mode != 0o755 {
			t.Fatalf("expected mode 0755, got %o", mode)
		}
	})
}

func TestWriterAbortLeavesNothing(t *testing.T) {
	tempfs.WithTempFS(t, nil, func(t *testing.T, root string) {
		out := filepath.Join(root, "dist")
		w, err := archive.NewWriter(out, "a-1.0-py3-none-any.whl", archive.FixedEpoch)
		if err != nil {
			t.Fatal(err)
		}
		if err := w.WriteData("x.txt", 0o644, []byte("partial")); err != nil {
			t.Fatal(err)
		}
		w.Abort()

		entries, err := os.ReadDir(out)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Fatalf("expected empty output directory, found %d entries", len(entries))
		}
	})
}

func TestWriterAtomicRename(t *testing.T) {
	tempfs.WithTempFS(t, nil, func(t *testing.T, root string) {
		out := filepath.Join(root, "dist")
		w, err := archive.NewWriter(out, "a-1.0-py3-none-any.whl", archive.FixedEpoch)
		if err != nil {
			t.Fatal(err)
		}
		final := filepath.Join(out, "a-1.0-py3-none-any.whl")

		if err := w.WriteData("x.txt", 0o644, []byte("content")); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(final); !os.IsNotExist(err) {
			t.Fatal("final artifact must not exist before finalize")
		}
		if _, err := w.Finalize(); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(final); err != nil {
			t.Fatal("expected final artifact after finalize")
		}
	})
}

func TestWriterSymlinkDereference(t *testing.T) {
	tempfs.WithTempFS(t, map[string]string{"real.txt": "real content"}, func(t *testing.T, root string) {
		link := filepath.Join(root, "link.txt")
		if err := os.Symlink(filepath.Join(root, "real.txt"), link); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}

		w, err := archive.NewWriter(filepath.Join(root, "dist"), "a-1.0-py3-none-any.whl", archive.FixedEpoch)
		if err != nil {
			t.Fatal(err)
		}
		if err := w.WriteFile("link.txt", link); err != nil {
			t.Fatal(err)
		}
		path, err := w.Finalize()
		if err != nil {
			t.Fatal(err)
		}

		r, err := zip.OpenReader(path)
		if err != nil {
			t.Fatal(err)
		}
		defer r.Close()

		rc, err := r.File[0].Open()
		if err != nil {
			t.Fatal(err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		if string(content) != "real content" {
			t.Fatalf("expected dereferenced content, got %q", content)
		}
		if r.File[0].Mode()&os.ModeSymlink != 0 {
			t.Fatal("member must not be a symlink")
		}
	})
}
