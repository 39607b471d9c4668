// Package upload turns user files into the encoded image strings the studio
// works with, and back.
package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"temudesign/internal/studio"
)

// MaxBytes is the largest accepted upload.
const MaxBytes = 15 << 20

var (
	ErrEmpty     = errors.New("upload: file is empty")
	ErrTooLarge  = errors.New("upload: file is too large")
	ErrNotImage  = errors.New("upload: file is not a supported image")
	ErrMalformed = errors.New("upload: malformed data URL")
)

var supported = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
	"image/heic": true,
	"image/heif": true,
}

// FromBytes encodes data as a data URL. declared is the MIME type reported
// by the transport, if any; sniffing wins when it recognises an image.
func FromBytes(data []byte, declared string) (studio.Image, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if len(data) > MaxBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	mt := sniff(data, declared)
	if !supported[mt] {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mt)
	}
	return studio.Image("data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)), nil
}

// FromReader reads at most MaxBytes+1 bytes from r.
func FromReader(r io.Reader, declared string) (studio.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	return FromBytes(data, declared)
}

// FromFile loads a local image. The extension is used as the declared type.
func FromFile(path string) (studio.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return FromReader(f, mime.TypeByExtension(strings.ToLower(filepath.Ext(path))))
}

func sniff(data []byte, declared string) string {
	mt := normalize(http.DetectContentType(data))
	if strings.HasPrefix(mt, "image/") {
		return mt
	}
	// DetectContentType does not know HEIC; trust the transport for it.
	if d := normalize(declared); d == "image/heic" || d == "image/heif" {
		return d
	}
	return mt
}

func normalize(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// Decode splits an encoded image into its MIME type and raw bytes. A bare
// base64 payload is treated as PNG.
func Decode(img string) (string, []byte, error) {
	img = strings.TrimSpace(img)
	if img == "" {
		return "", nil, ErrEmpty
	}

	mt := "image/png"
	payload := img
	if strings.HasPrefix(img, "data:") {
		meta, data, ok := strings.Cut(strings.TrimPrefix(img, "data:"), ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return "", nil, ErrMalformed
		}
		if t := normalize(strings.TrimSuffix(meta, ";base64")); t != "" {
			mt = t
		}
		payload = data
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return mt, raw, nil
}

// Extension returns the file extension for an image MIME type.
func Extension(mt string) string {
	switch normalize(mt) {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	return ".png"
}

// Save writes an artifact into dir under name and returns the full path.
func Save(dir, name string, img string) (string, error) {
	_, raw, err := Decode(img)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
