// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package filter

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
)

// ErrUnsupportedSnapshotFormat is returned for file extensions SaveSnapshot
// cannot write.
var ErrUnsupportedSnapshotFormat = errors.New("filter: unsupported snapshot format")

// SnapshotFormat is an image file format for snapshots.
type SnapshotFormat int

// Snapshot formats.
const (
	PNG SnapshotFormat = iota
	BMP
	JPEG
)

// SnapshotFormatFromPath picks the format from the file extension.
func SnapshotFormatFromPath(path string) (SnapshotFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".bmp":
		return BMP, nil
	case ".jpg", ".jpeg":
		return JPEG, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedSnapshotFormat, filepath.Ext(path))
	}
}

// EncodeSnapshot writes img to w in format.
func EncodeSnapshot(w io.Writer, img image.Image, format SnapshotFormat) error {
	switch format {
	case PNG:
		return png.Encode(w, img)
	case BMP:
		return bmp.Encode(w, img)
	case JPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(95))
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedSnapshotFormat, int(format))
	}
}

// SaveSnapshot writes img to path. The format follows the extension:
// .png, .bmp, .jpg or .jpeg.
func SaveSnapshot(path string, img image.Image) (err error) {
	format, err := SnapshotFormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return EncodeSnapshot(f, img, format)
}
