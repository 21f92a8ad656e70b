// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package filter

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func TestSnapshotFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want SnapshotFormat
		err  bool
	}{
		{"out.png", PNG, false},
		{"dir/OUT.PNG", PNG, false},
		{"frame.bmp", BMP, false},
		{"a.jpg", JPEG, false},
		{"a.jpeg", JPEG, false},
		{"a.gif", 0, true},
		{"noext", 0, true},
	}
	for _, tt := range tests {
		got, err := SnapshotFormatFromPath(tt.path)
		if tt.err {
			if !errors.Is(err, ErrUnsupportedSnapshotFormat) {
				t.Errorf("SnapshotFormatFromPath(%q) error = %v, want ErrUnsupportedSnapshotFormat", tt.path, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("SnapshotFormatFromPath(%q) = %v, %v, want %v", tt.path, got, err, tt.want)
		}
	}
}

func TestSaveSnapshotRoundTrip(t *testing.T) {
	src := stripes(6, 4)
	decoders := map[string]func([]byte) (image.Image, error){
		"shot.png": func(b []byte) (image.Image, error) { return png.Decode(bytes.NewReader(b)) },
		"shot.bmp": func(b []byte) (image.Image, error) { return bmp.Decode(bytes.NewReader(b)) },
	}
	for name, decode := range decoders {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := SaveSnapshot(path, src); err != nil {
				t.Fatalf("SaveSnapshot() error = %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			img, err := decode(data)
			if err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if img.Bounds().Size() != src.Rect.Size() {
				t.Fatalf("decoded size = %v, want %v", img.Bounds().Size(), src.Rect.Size())
			}
			r, _, b, _ := img.At(0, 0).RGBA()
			if r>>8 != 255 || b != 0 {
				t.Errorf("top-left = %v, want red", img.At(0, 0))
			}
			r, _, b, _ = img.At(0, 3).RGBA()
			if r != 0 || b>>8 != 255 {
				t.Errorf("bottom-left = %v, want blue", img.At(0, 3))
			}
		})
	}
}

func TestEncodeSnapshotJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, solid(8, 8, green), JPEG); err != nil {
		t.Fatalf("EncodeSnapshot(JPEG) error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte{0xff, 0xd8}) {
		t.Error("JPEG output missing SOI marker")
	}
	if err := EncodeSnapshot(&buf, solid(1, 1, green), SnapshotFormat(7)); !errors.Is(err, ErrUnsupportedSnapshotFormat) {
		t.Errorf("EncodeSnapshot(7) error = %v, want ErrUnsupportedSnapshotFormat", err)
	}
}

func TestSaveSnapshotUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.tiff")
	if err := SaveSnapshot(path, solid(1, 1, red)); !errors.Is(err, ErrUnsupportedSnapshotFormat) {
		t.Errorf("SaveSnapshot(.tiff) error = %v, want ErrUnsupportedSnapshotFormat", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("unsupported snapshot left a file behind")
	}
}
