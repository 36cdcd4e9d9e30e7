package services

import "strings"

// Origin records which level of the default chain supplied a value.
type Origin string

const (
	OriginExplicit  Origin = "explicit"
	OriginLastQuote Origin = "last-quote"
	OriginSettings  Origin = "settings"
	OriginFallback  Origin = "fallback"
)

// Level is one candidate value in a default chain. Absent levels are skipped.
type Level[T any] struct {
	Value   T
	Present bool
}

// Some wraps a value that is present.
func Some[T any](v T) Level[T] {
	return Level[T]{Value: v, Present: true}
}

// When wraps v and marks it present only if ok.
func When[T any](v T, ok bool) Level[T] {
	return Level[T]{Value: v, Present: ok}
}

// Resolve walks the chain explicit, last quote, settings, and returns the
// first present value together with its origin. The fallback is used when
// every level is absent. Callers pass an absent lastQuote level for quotes
// that already exist.
func Resolve[T any](explicit, lastQuote, settings Level[T], fallback T) (T, Origin) {
	switch {
	case explicit.Present:
		return explicit.Value, OriginExplicit
	case lastQuote.Present:
		return lastQuote.Value, OriginLastQuote
	case settings.Present:
		return settings.Value, OriginSettings
	}
	return fallback, OriginFallback
}

// Text builds a level from a string, present when non-blank.
func Text(s string) Level[string] {
	return When(s, strings.TrimSpace(s) != "")
}

// Positive builds a level from a number, present when finite and > 0.
func Positive(v float64) Level[float64] {
	return When(v, CoerceHeight(v) > 0)
}

// Images builds a level from an image list, present when at least one
// entry is valid.
func Images(list ImageList) Level[ImageList] {
	return When(list, HasValidImage(list))
}

// Flag builds a level from an optional boolean.
func Flag(b *bool) Level[bool] {
	if b == nil {
		return Level[bool]{}
	}
	return Some(*b)
}

// Number builds a level from an optional number, present when finite and
// non-negative.
func Number(v *float64) Level[float64] {
	if v == nil {
		return Level[float64]{}
	}
	return When(*v, CoerceHeight(*v) == *v)
}

// None is the absent level.
func None[T any]() Level[T] {
	return Level[T]{}
}
