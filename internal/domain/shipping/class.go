package shipping

import "strings"

// Class is the closed set of shipping classifications a line can carry.
type Class string

const (
	ClassStandard     Class = "standard"
	ClassFreight      Class = "freight"
	ClassInstallOnly  Class = "installonly"
	ClassHazardous    Class = "hazardous"
	ClassFreeShipping Class = "freeshipping"
)

// String returns the string representation of Class
func (c Class) String() string {
	return string(c)
}

// IsValid returns true if the class is one of the known values
func (c Class) IsValid() bool {
	switch c {
	case ClassStandard, ClassFreight, ClassInstallOnly, ClassHazardous, ClassFreeShipping:
		return true
	}
	return false
}

// NormalizeClass maps free-text catalog input onto a Class.
// Non-alphanumeric characters are dropped and the rest lower-cased, so
// "Install Only", "install-only" and "installonly" are the same class.
// Anything unrecognized is standard.
func NormalizeClass(raw string) Class {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	c := Class(b.String())
	if !c.IsValid() {
		return ClassStandard
	}
	return c
}
