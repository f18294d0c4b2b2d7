package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestDetectMagic(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   string
		err    error
	}{
		{"JPEG", append([]byte{0xFF, 0xD8, 0xFF}, make([]byte, 9)...), "image/jpeg", nil},
		{"GIF", []byte("GIF89a\x01\x00\x01\x00\x00\x00"), "image/gif", nil},
		{"WebP", []byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp", nil},
		{"Text", []byte("hello world!"), "", ErrUnsupported},
		{"Short", []byte{0xFF}, "", ErrInvalidImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detectMagic(tt.header)
			if err != tt.err || got != tt.want {
				t.Errorf("detectMagic() = %q, %v; want %q, %v", got, err, tt.want, tt.err)
			}
		})
	}
}

func TestImageDimensions(t *testing.T) {
	data := encodePNG(t, 120, 60)
	w, h, err := ImageDimensions(data, "image/png")
	if err != nil {
		t.Fatalf("ImageDimensions: %v", err)
	}
	if w != 120 || h != 60 {
		t.Fatalf("dims = %dx%d, want 120x60", w, h)
	}

	if _, _, err := ImageDimensions(data, "application/pdf"); err != ErrUnsupported {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestMakeThumbnailDownscalesToFit(t *testing.T) {
	data := encodePNG(t, 200, 50)

	out, err := MakeThumbnail(data, "image/png", ThumbnailOptions{MaxDim: 100, JPEGQuality: 80})
	if err != nil {
		t.Fatalf("MakeThumbnail: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("jpeg decode: %v", err)
	}
	// 200x50 scaled to fit MaxDim=100 => 100x25
	if decoded.Bounds().Dx() != 100 || decoded.Bounds().Dy() != 25 {
		t.Fatalf("dims = %dx%d, want 100x25", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestMakeThumbnailNeverUpscales(t *testing.T) {
	data := encodePNG(t, 40, 30)
	out, err := MakeThumbnail(data, "image/png", DefaultThumbnailOptions())
	if err != nil {
		t.Fatalf("MakeThumbnail: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("jpeg decode: %v", err)
	}
	if decoded.Bounds().Dx() != 40 || decoded.Bounds().Dy() != 30 {
		t.Fatalf("dims = %dx%d, want 40x30", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestSafeJoinKey(t *testing.T) {
	if _, err := SafeJoinKey("", "../x"); err == nil {
		t.Fatalf("expected error for traversal")
	}
	if _, err := SafeJoinKey("", "..\\x"); err == nil {
		t.Fatalf("expected error for backslash")
	}
	tests := []struct {
		prefix, key, want string
	}{
		{"", "/attachments/1/a.jpg", "attachments/1/a.jpg"},
		{"attachments", "a.png", "attachments/a.png"},
		{"attachments", "attachments/a.png", "attachments/a.png"},
		{"attachments", "thumbs//a.jpg", "attachments/thumbs/a.jpg"},
	}
	for _, tt := range tests {
		key, err := SafeJoinKey(tt.prefix, tt.key)
		if err != nil {
			t.Fatalf("SafeJoinKey(%q, %q): %v", tt.prefix, tt.key, err)
		}
		if key != tt.want {
			t.Errorf("SafeJoinKey(%q, %q) = %q, want %q", tt.prefix, tt.key, key, tt.want)
		}
	}
}
