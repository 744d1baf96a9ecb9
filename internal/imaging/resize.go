// Package imaging shrinks local page images that are too large to send
// inline to the OCR API.
package imaging

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DownsizedPath names the derived file for src inside dir.
func DownsizedPath(dir, src string) string {
	ext := filepath.Ext(src)
	base := strings.TrimSuffix(filepath.Base(src), ext)
	return filepath.Join(dir, base+"_downsized"+ext)
}

// Downsize writes a copy of src to dst scaled to targetWidth, keeping the
// aspect ratio. Images already narrower than targetWidth keep their size.
// It returns the dimensions of the written image.
func Downsize(src, dst string, targetWidth int) (image.Point, error) {
	img, err := decodeFile(src)
	if err != nil {
		return image.Point{}, err
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > targetWidth {
		h = int(float64(h) * (float64(targetWidth) / float64(w)))
		w = targetWidth
		if h < 1 {
			h = 1
		}
	}

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)

	if err := encodeFile(dst, scaled); err != nil {
		return image.Point{}, err
	}
	return image.Pt(w, h), nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// encodeFile picks the encoder from the destination extension. Formats
// without an encoder (webp) are written as PNG.
func encodeFile(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	case ".gif":
		err = gif.Encode(f, img, nil)
	case ".tif", ".tiff":
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	case ".bmp":
		err = bmp.Encode(f, img)
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}
