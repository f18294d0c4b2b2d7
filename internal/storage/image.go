package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

var (
	ErrTooLarge     = errors.New("file too large")
	ErrInvalidImage = errors.New("invalid image")
	ErrUnsupported  = errors.New("unsupported image type")
)

// ThumbnailOptions controls preview generation for image attachments.
type ThumbnailOptions struct {
	MaxDim      int
	JPEGQuality int
}

func DefaultThumbnailOptions() ThumbnailOptions {
	return ThumbnailOptions{MaxDim: 320, JPEGQuality: 80}
}

// detectMagic recognises the image formats we decode by their magic number.
func detectMagic(header []byte) (string, error) {
	if len(header) < 12 {
		return "", ErrInvalidImage
	}
	// JPEG: FF D8 FF
	if header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF {
		return "image/jpeg", nil
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if header[0] == 0x89 && header[1] == 0x50 && header[2] == 0x4E && header[3] == 0x47 &&
		header[4] == 0x0D && header[5] == 0x0A && header[6] == 0x1A && header[7] == 0x0A {
		return "image/png", nil
	}
	// GIF87a / GIF89a
	if bytes.HasPrefix(header, []byte("GIF87a")) || bytes.HasPrefix(header, []byte("GIF89a")) {
		return "image/gif", nil
	}
	// WebP: RIFF....WEBP
	if header[0] == 'R' && header[1] == 'I' && header[2] == 'F' && header[3] == 'F' &&
		header[8] == 'W' && header[9] == 'E' && header[10] == 'B' && header[11] == 'P' {
		return "image/webp", nil
	}
	return "", ErrUnsupported
}

// ImageDimensions reads only the image header.
func ImageDimensions(data []byte, mimeType string) (int, int, error) {
	var (
		cfg image.Config
		err error
	)
	r := bytes.NewReader(data)
	switch mimeType {
	case "image/jpeg":
		cfg, err = jpeg.DecodeConfig(r)
	case "image/png":
		cfg, err = png.DecodeConfig(r)
	case "image/gif":
		cfg, err = gif.DecodeConfig(r)
	case "image/webp":
		cfg, err = webp.DecodeConfig(r)
	default:
		return 0, 0, ErrUnsupported
	}
	if err != nil {
		return 0, 0, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, ErrInvalidImage
	}
	return cfg.Width, cfg.Height, nil
}

func decodeImage(data []byte, mimeType string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch mimeType {
	case "image/jpeg":
		return jpeg.Decode(r)
	case "image/png":
		return png.Decode(r)
	case "image/gif":
		return gif.Decode(r)
	case "image/webp":
		return webp.Decode(r)
	}
	return nil, ErrUnsupported
}

// fitWithin scales w x h down to fit a maxDim square, preserving aspect. It never upscales.
func fitWithin(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	tw, th := w, h
	if w >= h {
		tw = maxDim
		th = int(float64(h) * (float64(maxDim) / float64(w)))
	} else {
		th = maxDim
		tw = int(float64(w) * (float64(maxDim) / float64(h)))
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}

// MakeThumbnail renders a JPEG preview flattened onto white.
func MakeThumbnail(data []byte, mimeType string, opts ThumbnailOptions) ([]byte, error) {
	if opts.MaxDim <= 0 {
		opts.MaxDim = 320
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 80
	}

	img, err := decodeImage(data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, ErrInvalidImage
	}

	tw, th := fitWithin(bounds.Dx(), bounds.Dy(), opts.MaxDim)
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: opts.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return out.Bytes(), nil
}
