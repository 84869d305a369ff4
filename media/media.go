// Package media turns uploaded stream cover images into fixed-size JPEG
// thumbnails on local disk.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

var (
	ErrTooLarge    = errors.New("image too large")
	ErrUnsupported = errors.New("unsupported image format")
)

// Config holds thumbnail settings.
type Config struct {
	UploadPath    string
	MaxUploadSize int64
	ThumbWidth    int
	ThumbHeight   int
	ThumbQuality  int
}

// Thumbnailer scales uploads and stores them under UploadPath.
type Thumbnailer struct {
	config Config
}

// NewThumbnailer creates a new Thumbnailer.
func NewThumbnailer(cfg Config) *Thumbnailer {
	if cfg.UploadPath == "" {
		cfg.UploadPath = "./uploads"
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = 8 << 20
	}
	if cfg.ThumbWidth == 0 {
		cfg.ThumbWidth = 640
	}
	if cfg.ThumbHeight == 0 {
		cfg.ThumbHeight = 360
	}
	if cfg.ThumbQuality == 0 {
		cfg.ThumbQuality = 80
	}
	return &Thumbnailer{config: cfg}
}

// Dir returns the directory thumbnails are written to.
func (t *Thumbnailer) Dir() string {
	return t.config.UploadPath
}

// Save decodes an uploaded image, scales it down and writes it as the
// stream's thumbnail. It returns the path relative to Dir.
func (t *Thumbnailer) Save(streamID uuid.UUID, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, t.config.MaxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > t.config.MaxUploadSize {
		return "", ErrTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", ErrUnsupported
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, t.scale(img), &jpeg.Options{Quality: t.config.ThumbQuality}); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	// uploads/ab/ab12cd34-....jpg
	id := streamID.String()
	rel := filepath.Join(id[:2], id+".jpg")
	path := filepath.Join(t.config.UploadPath, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write thumbnail: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write thumbnail: %w", err)
	}

	return filepath.ToSlash(rel), nil
}

// scale fits img inside the configured box, keeping the aspect ratio.
// Images already smaller than the box are not upscaled.
func (t *Thumbnailer) scale(img image.Image) image.Image {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	w, h := srcW, srcH
	if w > t.config.ThumbWidth {
		h = h * t.config.ThumbWidth / w
		w = t.config.ThumbWidth
	}
	if h > t.config.ThumbHeight {
		w = w * t.config.ThumbHeight / h
		h = t.config.ThumbHeight
	}
	w, h = max(w, 1), max(h, 1)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
