// Package errors is a helper package for the plain Go language error type. We
// think of these errors as curated errors. External to this package, curated
// errors are referenced as plain errors (ie. they implement the error
// interface).
//
// Curated errors are created with Errorf(), which works like fmt.Errorf()
// but keeps a normalised, de-duplicated message chain. Is() and Has() can be
// used to test whether an error (or one of the errors it wraps) was created
// from a particular pattern, which is how the stop-reason taxonomy in
// package result is distinguished from ordinary Go errors returned by
// collaborators (loaders, YAML parsing, and so on).
package errors

import (
	"fmt"
	"strings"
)

// Values is the type used to specify arguments for a curated error pattern.
type Values []interface{}

type curated struct {
	message string
	values  Values
}

// Errorf creates a new curated error from a message pattern and values, in
// the manner of fmt.Errorf.
func Errorf(message string, values ...interface{}) error {
	return curated{message: message, values: values}
}

// Error implements the go language error interface. The returned string is
// normalised: adjacent duplicate parts of a wrapped message chain are
// collapsed so that wrapping an already-curated error doesn't repeat itself.
func (er curated) Error() string {
	s := fmt.Errorf(er.message, er.values...).Error()

	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}
	return strings.Join(p, ": ")
}

// Is returns true if err was created by a call to Errorf() using the
// supplied pattern. Unlike the standard library's errors.Is, comparison is
// against the literal pattern string, not a sentinel value, so curated
// errors never need package-level var declarations for every error kind.
func Is(err error, pattern string) bool {
	if err == nil {
		return false
	}
	if er, ok := err.(curated); ok {
		return er.message == pattern
	}
	return false
}

// Has is like Is() but also matches patterns appearing anywhere further down
// the message chain (ie. wrapped inside another curated error via %v/%w).
func Has(err error, pattern string) bool {
	if err == nil {
		return false
	}
	if Is(err, pattern) {
		return true
	}
	return strings.Contains(err.Error(), stripVerbs(pattern))
}

// IsAny reports whether err was created by this package's Errorf function,
// as opposed to being an uncurated error from elsewhere (a third-party
// library, or the standard library).
func IsAny(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(curated)
	return ok
}

// Head returns the leading pattern of a curated error, or the plain Error()
// string for an uncurated error. Useful in switch statements that want to
// dispatch on error kind without a type assertion at every call site.
func Head(err error) string {
	if er, ok := err.(curated); ok {
		return er.message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func stripVerbs(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '%' && i+1 < len(pattern) {
			i++
			continue
		}
		b.WriteByte(pattern[i])
	}
	return b.String()
}
