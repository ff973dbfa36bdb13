// Package format maps capture pixel formats to source-buffer layouts and
// conversion passes. All per-format knowledge lives in one descriptor table.
package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smazurov/playout/internal/media"
)

// PixelFormat identifies the layout of captured frames.
type PixelFormat int

// Supported pixel formats.
const (
	// YUV8 is 8-bit 4:2:2 UYVY.
	YUV8 PixelFormat = iota
	// BGRA8 is 8-bit BGRA.
	BGRA8
	// YUV10 is 10-bit 4:2:2 v210.
	YUV10
	// RGB10 is 10-bit r210.
	RGB10
)

// ProgressivePass is the conversion pass used for progressive sources.
const ProgressivePass = 0

// Descriptor holds everything the host needs to know about a pixel format.
type Descriptor struct {
	Name        string
	FourCC      string
	Description string
	// BytesPerTexel of the source buffer the frame is uploaded into.
	BytesPerTexel int
	// SourceDimensions maps captured frame dimensions to source-buffer texels.
	SourceDimensions func(media.Dimensions) media.Dimensions
}

var descriptors = map[PixelFormat]Descriptor{
	YUV8: {
		Name:          "yuv8",
		FourCC:        "UYVY",
		Description:   "8-bit YUV 4:2:2, two pixels per texel",
		BytesPerTexel: 4,
		SourceDimensions: func(d media.Dimensions) media.Dimensions {
			return media.Dimensions{Width: d.Width / 2, Height: d.Height}
		},
	},
	BGRA8: {
		Name:             "bgra8",
		FourCC:           "BGRA",
		Description:      "8-bit BGRA, one pixel per texel",
		BytesPerTexel:    4,
		SourceDimensions: identity,
	},
	YUV10: {
		Name:          "yuv10",
		FourCC:        "v210",
		Description:   "10-bit YUV 4:2:2, 48 pixels per 32 texels",
		BytesPerTexel: 4,
		SourceDimensions: func(d media.Dimensions) media.Dimensions {
			return media.Dimensions{Width: (d.Width + 47) / 48 * 32, Height: d.Height}
		},
	},
	RGB10: {
		Name:             "rgb10",
		FourCC:           "r210",
		Description:      "10-bit RGB, one pixel per texel",
		BytesPerTexel:    4,
		SourceDimensions: identity,
	},
}

func identity(d media.Dimensions) media.Dimensions { return d }

func (f PixelFormat) String() string {
	if d, ok := descriptors[f]; ok {
		return d.Name
	}
	return fmt.Sprintf("pixelformat(%d)", int(f))
}

// Lookup returns the descriptor for f.
func Lookup(f PixelFormat) (Descriptor, error) {
	d, ok := descriptors[f]
	if !ok {
		return Descriptor{}, NewFormatError(ErrUnknownPixelFormat,
			fmt.Sprintf("no descriptor for %s", f), nil)
	}
	return d, nil
}

// Parse maps a configuration name (case-insensitive name or FourCC) to a
// pixel format.
func Parse(name string) (PixelFormat, error) {
	for f, d := range descriptors {
		if strings.EqualFold(name, d.Name) || strings.EqualFold(name, d.FourCC) {
			return f, nil
		}
	}
	return 0, NewFormatError(ErrUnknownFormatName, fmt.Sprintf("unknown pixel format %q", name), nil)
}

// Formats returns all supported formats in declaration order.
func Formats() []PixelFormat {
	out := make([]PixelFormat, 0, len(descriptors))
	for f := range descriptors {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PassIndex returns the conversion pass for a frame. Progressive sources
// ignore parity.
func PassIndex(progressive bool, parity media.FieldParity) int {
	if progressive {
		return ProgressivePass
	}
	return 1 + int(parity)
}

// Selection is the result of running the policy for one presented frame.
type Selection struct {
	Format           PixelFormat
	SourceDimensions media.Dimensions
	BytesPerTexel    int
	Pass             int
}

// Select resolves source-buffer dimensions and the conversion pass for a
// frame of the given format. Unknown formats and empty frames are errors.
func Select(f PixelFormat, frame media.Dimensions, progressive bool, parity media.FieldParity) (Selection, error) {
	d, err := Lookup(f)
	if err != nil {
		return Selection{}, err
	}
	if frame.IsZero() {
		return Selection{}, NewFormatError(ErrInvalidDimensions,
			fmt.Sprintf("%s frame has no pixels (%s)", f, frame), nil)
	}
	return Selection{
		Format:           f,
		SourceDimensions: d.SourceDimensions(frame),
		BytesPerTexel:    d.BytesPerTexel,
		Pass:             PassIndex(progressive, parity),
	}, nil
}
