// Package imagecheck validates base64 image payloads before they are
// admitted into a batch.
package imagecheck

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

// Limits bounds what an incoming image may look like.
type Limits struct {
	MaxBytes     int64
	MaxDimension int
}

// Info describes a validated image payload.
type Info struct {
	Format    string
	Width     int
	Height    int
	SizeBytes int64
}

// Ext returns the file extension conventionally used for the format.
func (i Info) Ext() string {
	switch i.Format {
	case "jpeg":
		return ".jpg"
	case "png":
		return ".png"
	default:
		return ""
	}
}

// DecodeBase64 decodes a base64 image payload, tolerating data URL prefixes
// and embedded whitespace.
func DecodeBase64(payload string) ([]byte, error) {
	cleaned := strings.TrimSpace(payload)
	if idx := strings.Index(cleaned, ";base64,"); idx >= 0 && strings.HasPrefix(cleaned, "data:") {
		cleaned = cleaned[idx+len(";base64,"):]
	}
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, cleaned)
	if cleaned == "" {
		return nil, fmt.Errorf("empty image payload")
	}

	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		// Some producers emit unpadded payloads.
		data, err = base64.RawStdEncoding.DecodeString(cleaned)
	}
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return data, nil
}

// Validate checks a decoded image payload against the configured limits and
// returns its metadata. Only JPEG and PNG are accepted.
func Validate(data []byte, limits Limits) (Info, error) {
	size := int64(len(data))
	if size == 0 {
		return Info{}, fmt.Errorf("empty image data")
	}
	if limits.MaxBytes > 0 && size > limits.MaxBytes {
		return Info{}, fmt.Errorf("image is %d bytes, limit is %d", size, limits.MaxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("decode image header: %w", err)
	}
	if format != "jpeg" && format != "png" {
		return Info{}, fmt.Errorf("unsupported image format %q", format)
	}
	if limits.MaxDimension > 0 && (cfg.Width > limits.MaxDimension || cfg.Height > limits.MaxDimension) {
		return Info{}, fmt.Errorf("image is %dx%d, dimension limit is %d", cfg.Width, cfg.Height, limits.MaxDimension)
	}
	if cfg.Width < 1 || cfg.Height < 1 {
		return Info{}, fmt.Errorf("image has invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}

	return Info{
		Format:    format,
		Width:     cfg.Width,
		Height:    cfg.Height,
		SizeBytes: size,
	}, nil
}
