package handlers

import (
	"fmt"
	"net/url"
	"regexp"
	"sync"
	"unicode/utf8"
)

// Validator checks one request field. Every rule returns nil when the value
// passes, so call sites collect the non-nil results with mergeErrors.
type Validator struct {
	location string
	field    string
	value    *string
}

func (v *Validator) fail(msg string) *CustomError {
	return &CustomError{Location: v.location, Param: v.field, Value: *v.value, Msg: msg}
}

// Required is the only rule that may run on a nil value; everything else
// assumes it passed.
func (v *Validator) Required() *CustomError {
	if v.value == nil {
		return &CustomError{Location: v.location, Param: v.field, Msg: "is required"}
	}

	return nil
}

func (v *Validator) Empty() *CustomError {
	if utf8.RuneCountInString(*v.value) == 0 {
		return v.fail("cannot be blank")
	}

	return nil
}

func (v *Validator) MinLength(min int) *CustomError {
	if utf8.RuneCountInString(*v.value) < min {
		return v.fail(fmt.Sprintf("must be at least %d characters long", min))
	}

	return nil
}

func (v *Validator) MaxLength(max int) *CustomError {
	if utf8.RuneCountInString(*v.value) > max {
		return v.fail(fmt.Sprintf("must be at most %d characters long", max))
	}

	return nil
}

// Custom runs a caller-supplied predicate for rules the fixed set here does
// not cover.
func (v *Validator) Custom(validate func(string) bool, msg string) *CustomError {
	if !validate(*v.value) {
		return v.fail(msg)
	}

	return nil
}

func (v *Validator) Matches(pattern string) *CustomError {
	if !compiled(pattern).MatchString(*v.value) {
		return v.fail("contains invalid characters")
	}

	return nil
}

func (v *Validator) URL() *CustomError {
	if _, err := url.ParseRequestURI(*v.value); err != nil {
		return v.fail("is invalid")
	}

	return nil
}

var (
	regexpMu    sync.Mutex
	regexpCache = map[string]*regexp.Regexp{}
)

// compiled caches patterns so repeated requests do not recompile them.
// Patterns are literals at the call sites, so MustCompile is safe.
func compiled(pattern string) *regexp.Regexp {
	regexpMu.Lock()
	defer regexpMu.Unlock()

	r, ok := regexpCache[pattern]
	if !ok {
		r = regexp.MustCompile(pattern)
		regexpCache[pattern] = r
	}

	return r
}

func mergeErrors(validations ...*CustomError) []*CustomError {
	merged := make([]*CustomError, 0, len(validations))

	for _, err := range validations {
		if err != nil {
			merged = append(merged, err)
		}
	}

	return merged
}
