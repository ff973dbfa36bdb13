package format

import (
	"errors"
	"testing"

	"github.com/smazurov/playout/internal/media"
)

var hd = media.Dimensions{Width: 1920, Height: 1080}

func TestSourceDimensions(t *testing.T) {
	tests := []struct {
		format PixelFormat
		frame  media.Dimensions
		want   media.Dimensions
	}{
		{YUV8, hd, media.Dimensions{Width: 960, Height: 1080}},
		{BGRA8, hd, hd},
		{YUV10, hd, media.Dimensions{Width: 1280, Height: 1080}},
		{YUV10, media.Dimensions{Width: 720, Height: 486}, media.Dimensions{Width: 480, Height: 486}},
		{YUV10, media.Dimensions{Width: 1280, Height: 720}, media.Dimensions{Width: 864, Height: 720}},
		{RGB10, hd, hd},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			sel, err := Select(tt.format, tt.frame, true, media.FieldEven)
			if err != nil {
				t.Fatalf("Select failed: %v", err)
			}
			if sel.SourceDimensions != tt.want {
				t.Errorf("SourceDimensions(%s) = %s, want %s", tt.frame, sel.SourceDimensions, tt.want)
			}
		})
	}
}

func TestPassIndex(t *testing.T) {
	tests := []struct {
		name        string
		progressive bool
		parity      media.FieldParity
		want        int
	}{
		{"progressive even", true, media.FieldEven, 0},
		{"progressive odd", true, media.FieldOdd, 0},
		{"interlaced odd", false, media.FieldOdd, 1},
		{"interlaced even", false, media.FieldEven, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PassIndex(tt.progressive, tt.parity); got != tt.want {
				t.Errorf("PassIndex(%v, %s) = %d, want %d", tt.progressive, tt.parity, got, tt.want)
			}
		})
	}
}

func TestSelectUnknownFormat(t *testing.T) {
	_, err := Select(PixelFormat(99), hd, true, media.FieldEven)
	if err == nil {
		t.Fatal("expected error for unknown format")
	}

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if !fe.HasCode(ErrUnknownPixelFormat) {
		t.Errorf("Code = %s, want %s", fe.Code, ErrUnknownPixelFormat)
	}
}

func TestSelectEmptyFrame(t *testing.T) {
	_, err := Select(YUV8, media.Dimensions{}, true, media.FieldEven)
	var fe *Error
	if !errors.As(err, &fe) || !fe.HasCode(ErrInvalidDimensions) {
		t.Errorf("error = %v, want %s", err, ErrInvalidDimensions)
	}
}

func TestTableIsTotal(t *testing.T) {
	for _, f := range Formats() {
		d, err := Lookup(f)
		if err != nil {
			t.Errorf("Lookup(%s) failed: %v", f, err)
			continue
		}
		if d.SourceDimensions == nil {
			t.Errorf("%s has no SourceDimensions", f)
		}
		if d.BytesPerTexel <= 0 {
			t.Errorf("%s BytesPerTexel = %d", f, d.BytesPerTexel)
		}
	}
	if got := len(Formats()); got != 4 {
		t.Errorf("len(Formats()) = %d, want 4", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		want    PixelFormat
		wantErr bool
	}{
		{"yuv8", YUV8, false},
		{"UYVY", YUV8, false},
		{"BGRA8", BGRA8, false},
		{"v210", YUV10, false},
		{"rgb10", RGB10, false},
		{"nv12", 0, true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("Parse(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestStrings(t *testing.T) {
	if YUV10.String() != "yuv10" {
		t.Errorf("YUV10.String() = %q", YUV10.String())
	}
	if PixelFormat(7).String() != "pixelformat(7)" {
		t.Errorf("unknown String() = %q", PixelFormat(7).String())
	}
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("boom")
	err := NewFormatError(ErrUnknownPixelFormat, "bad", cause)
	if err.Error() != "[UNKNOWN_PIXEL_FORMAT] bad: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose cause")
	}
}
