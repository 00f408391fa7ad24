package shipping

import (
	"fmt"
	"regexp"
	"strconv"
)

var dimensionsPattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*x\s*(\d+(?:\.\d+)?)\s*x\s*(\d+(?:\.\d+)?)\s*$`)

// Dimensions are box measurements in inches.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ParseDimensions parses "LxWxH" text. Any other shape, or a zero side,
// reports false.
func ParseDimensions(text string) (Dimensions, bool) {
	m := dimensionsPattern.FindStringSubmatch(text)
	if m == nil {
		return Dimensions{}, false
	}
	var sides [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil || v <= 0 {
			return Dimensions{}, false
		}
		sides[i] = v
	}
	return Dimensions{Length: sides[0], Width: sides[1], Height: sides[2]}, true
}

// Volume returns cubic inches
func (d Dimensions) Volume() float64 {
	return d.Length * d.Width * d.Height
}

// LongestSide returns the largest of the three sides
func (d Dimensions) LongestSide() float64 {
	return max(d.Length, d.Width, d.Height)
}

// IsZero reports whether no side is set
func (d Dimensions) IsZero() bool {
	return d.Length == 0 && d.Width == 0 && d.Height == 0
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%gx%gx%g", d.Length, d.Width, d.Height)
}
