package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ImageRef is an image reference as stored on quotes and settings: inline
// data, an http(s) URL, a root-relative path or a local preview handle.
// Non-string JSON values decode to "" so they are treated as absent.
type ImageRef string

func (r *ImageRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		*r = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*r = ""
		return nil
	}
	*r = ImageRef(s)
	return nil
}

// Valid reports whether the reference can be rendered.
func (r ImageRef) Valid() bool {
	return ValidImageSrc(string(r))
}

// PreviewOnly reports whether the reference only exists in the editing
// browser and cannot be fetched server-side.
func (r ImageRef) PreviewOnly() bool {
	return strings.HasPrefix(strings.TrimSpace(string(r)), "blob:")
}

// ImageList is an ordered list of image slots. Empty slots are kept so that
// slot positions stay stable while editing.
type ImageList []ImageRef

func (l *ImageList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make(ImageList, len(raw))
	for i, item := range raw {
		_ = out[i].UnmarshalJSON(item)
	}
	*l = out
	return nil
}

// ValidImageSrc reports whether src is a usable image reference. The
// literal strings "null" and "undefined" are leftovers from form fields and
// count as absent.
func ValidImageSrc(src string) bool {
	s := strings.TrimSpace(src)
	if s == "" || s == "null" || s == "undefined" {
		return false
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "data:image/"):
		_, payload, ok := strings.Cut(s, ",")
		return ok && strings.TrimSpace(payload) != ""
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return len(s) > len("https://")
	case strings.HasPrefix(lower, "blob:"):
		return len(s) > len("blob:")
	case strings.HasPrefix(s, "/"):
		return !strings.HasPrefix(s, "//") && len(s) > 1
	}
	return false
}

// ValidImages returns the valid references of list in their original order.
func ValidImages(list ImageList) []ImageRef {
	var out []ImageRef
	for _, r := range list {
		if r.Valid() {
			out = append(out, ImageRef(strings.TrimSpace(string(r))))
		}
	}
	return out
}

// HasValidImage reports whether list contains at least one valid reference.
func HasValidImage(list ImageList) bool {
	for _, r := range list {
		if r.Valid() {
			return true
		}
	}
	return false
}

// ResizeSlots grows or shrinks list to n slots. Shrinking drops trailing
// slots only; growing appends empty placeholders.
func ResizeSlots[S ~[]E, E any](list S, n int) S {
	if n < 0 {
		n = 0
	}
	out := make(S, n)
	copy(out, list)
	return out
}

// Image sections whose slot count is set from the editor.
const (
	SlotsHardware = "hardware"
	SlotsSoftware = "software"
	SlotsTarget   = "target"
	SlotsProduct  = "product"
)

// MaxImageSlots caps the slot count of a section.
const MaxImageSlots = 50

// ErrUnknownSection is returned for a slot section that does not exist.
var ErrUnknownSection = errors.New("unknown image section")

// SetImageSlots resizes the slots of section to n, clamped to
// [0, MaxImageSlots]. Kept slots are never modified.
func (q *Quote) SetImageSlots(section string, n int) error {
	n = max(0, min(n, MaxImageSlots))
	sec := &q.Sections
	switch section {
	case SlotsHardware:
		sec.HardwareImages = ResizeSlots(sec.HardwareImages, n)
	case SlotsSoftware:
		sec.SoftwareImages = ResizeSlots(sec.SoftwareImages, n)
	case SlotsTarget:
		sec.TargetImages = ResizeSlots(sec.TargetImages, n)
	case SlotsProduct:
		sec.ProductImages = ResizeSlots(sec.ProductImages, n)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	return nil
}

// CoerceHeight returns v when it is a finite non-negative number, else 0.
// A zero height means no explicit height.
func CoerceHeight(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// CoerceScale returns v when it is a finite positive percentage, else 100.
func CoerceScale(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 100
	}
	return v
}

// ParseLayoutNumber reads a layout number typed into a form field.
// Blank or malformed input yields def.
func ParseLayoutNumber(raw string, def float64) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	v := parseLooseFloat([]byte(`"` + strings.ReplaceAll(raw, `"`, "") + `"`))
	if v < 0 {
		return def
	}
	if v == 0 && strings.Trim(raw, "0.,") != "" {
		return def
	}
	return v
}
