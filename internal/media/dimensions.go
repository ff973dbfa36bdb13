package media

import "fmt"

// Dimensions is a width/height pair in pixels (or texels, for source buffers).
type Dimensions struct {
	Width  int `json:"width" toml:"width"`
	Height int `json:"height" toml:"height"`
}

// IsZero reports whether either axis is zero.
func (d Dimensions) IsZero() bool {
	return d.Width == 0 || d.Height == 0
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}
