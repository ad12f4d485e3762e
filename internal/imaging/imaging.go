// Package imaging decodes image files into display-sized thumbnails.
package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"leftright/internal/models"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrEmptyImage = errors.New("decoded image is empty")

// Decoder turns a file into a thumbnail no larger than maxDim on either side.
type Decoder func(path string, maxDim int) (*models.Thumbnail, error)

// Decode tries OpenCV first and falls back to the Go decoders for formats
// OpenCV cannot read, such as GIF.
func Decode(path string, maxDim int) (*models.Thumbnail, error) {
	start := time.Now()

	img, err := decodeOpenCV(path, maxDim)
	if err != nil {
		img, err = decodeStandard(path, maxDim)
		if err != nil {
			return nil, err
		}
	}

	bounds := img.Bounds()
	return &models.Thumbnail{
		Image:    img,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Format:   formatFromExtension(path),
		LoadTime: time.Since(start),
	}, nil
}

// decodeStandard decodes with image.Decode and scales with a bilinear filter.
func decodeStandard(path string, maxDim int) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, ErrEmptyImage
	}

	w, h := FitSize(bounds.Dx(), bounds.Dy(), maxDim)
	if w == bounds.Dx() && h == bounds.Dy() {
		return src, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	return dst, nil
}

// FitSize scales (w, h) down so the longest side is at most maxDim, keeping
// the aspect ratio. Sizes already within bounds are returned unchanged.
func FitSize(w, h, maxDim int) (int, int) {
	if w <= 0 || h <= 0 || maxDim <= 0 {
		return w, h
	}
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxDim {
		return w, h
	}

	scale := float64(maxDim) / float64(longest)
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

func formatFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return "unknown"
	}
}
