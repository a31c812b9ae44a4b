package qr

import (
	"bytes"
	"errors"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

const testAddress = "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu"

func TestRender_DefaultJPEG(t *testing.T) {
	r, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Format() != FormatJPEG {
		t.Fatalf("default format = %s, want %s", r.Format(), FormatJPEG)
	}
	data, err := r.Render(testAddress)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xff, 0xd8}) {
		t.Fatalf("output does not start with a JPEG SOI marker")
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width%DefaultModuleSize != 0 || cfg.Width == 0 {
		t.Errorf("width = %d, want a non-zero multiple of %d", cfg.Width, DefaultModuleSize)
	}
}

func TestRender_PNG(t *testing.T) {
	r, err := New(Options{Format: FormatPNG})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err := r.Render(testAddress)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	// Module size 10: the image is a multiple of 10 pixels.
	if w := img.Bounds().Dx(); w%DefaultModuleSize != 0 || w == 0 {
		t.Errorf("width = %d, want a non-zero multiple of %d", w, DefaultModuleSize)
	}
}

func TestRender_JPEG(t *testing.T) {
	r, err := New(Options{Format: FormatJPEG, Size: 256})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err := r.Render(testAddress)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xff, 0xd8}) {
		t.Fatalf("output does not start with a JPEG SOI marker")
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.Width != 256 || cfg.Height != 256 {
		t.Errorf("size = %dx%d, want 256x256", cfg.Width, cfg.Height)
	}
}

func TestRender_Deterministic(t *testing.T) {
	r, _ := New(Options{})
	a, _ := r.Render(testAddress)
	b, _ := r.Render(testAddress)
	if !bytes.Equal(a, b) {
		t.Error("same text should render to the same bytes")
	}
}

func TestRender_Empty(t *testing.T) {
	r, _ := New(Options{})
	if _, err := r.Render(""); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("err = %v, want ErrEmptyContent", err)
	}
}

func TestNew_BadFormat(t *testing.T) {
	if _, err := New(Options{Format: "gif"}); err == nil {
		t.Error("expected error for gif")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJPEG, false},
		{"PNG", FormatPNG, false},
		{"jpg", FormatJPEG, false},
		{"jpeg", FormatJPEG, false},
		{"bmp", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
	if FormatJPEG.Extension() != "jpg" || FormatPNG.Extension() != "png" {
		t.Error("Extension mismatch")
	}
}

func TestTerminal(t *testing.T) {
	out, err := Terminal(testAddress)
	if err != nil {
		t.Fatalf("Terminal: %v", err)
	}
	if !strings.Contains(out, "\n") {
		t.Error("terminal output should span several lines")
	}
}
