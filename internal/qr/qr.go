// Package qr renders wallet strings (addresses, extended keys) as QR code
// images.
package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"strings"

	"github.com/skip2/go-qrcode"
)

// Format is the image encoding produced by a Renderer.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// DefaultModuleSize is the default pixel width of one QR module. Sizes are
// passed to go-qrcode as negative numbers, meaning "pixels per module".
const DefaultModuleSize = 10

// jpegQuality keeps modules crisp enough for scanners.
const jpegQuality = 95

// ErrEmptyContent is returned when asked to render an empty string.
var ErrEmptyContent = errors.New("qr: empty content")

// Options configures a Renderer.
type Options struct {
	// Size is the image width in pixels when positive, or the module size
	// in pixels when negative. Zero selects DefaultModuleSize per module.
	Size   int
	Format Format
	Level  qrcode.RecoveryLevel
}

// Renderer encodes text as a QR code image.
type Renderer struct {
	opts Options
}

// New creates a renderer. JPEG output with low error correction is used
// unless Format or Level say otherwise.
func New(opts Options) (*Renderer, error) {
	if opts.Size == 0 {
		opts.Size = -DefaultModuleSize
	}
	if opts.Format == "" {
		opts.Format = FormatJPEG
	}
	if _, err := ParseFormat(string(opts.Format)); err != nil {
		return nil, err
	}
	return &Renderer{opts: opts}, nil
}

// Render encodes text and returns the image bytes.
func (r *Renderer) Render(text string) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyContent
	}
	code, err := qrcode.New(text, r.opts.Level)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}

	switch r.opts.Format {
	case FormatJPEG:
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, code.Image(r.opts.Size), &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("qr jpeg: %w", err)
		}
		return buf.Bytes(), nil
	default:
		png, err := code.PNG(r.opts.Size)
		if err != nil {
			return nil, fmt.Errorf("qr png: %w", err)
		}
		return png, nil
	}
}

// Format returns the image format this renderer produces.
func (r *Renderer) Format() Format {
	return r.opts.Format
}

// Terminal renders text as block characters for a console.
func Terminal(text string) (string, error) {
	if text == "" {
		return "", ErrEmptyContent
	}
	code, err := qrcode.New(text, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("qr encode: %w", err)
	}
	return code.ToSmallString(false), nil
}

// ParseFormat maps a config value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "", "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("unknown image format %q (want png or jpeg)", s)
	}
}

// Extension returns the file extension for the format, without a dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}
