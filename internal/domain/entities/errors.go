package entities

import (
	"errors"
	"fmt"
)

// ErrLocationNotFound indicates the geocoding service returned zero matches.
var ErrLocationNotFound = errors.New("location not found")

// ErrRateLimited indicates the availability endpoint answered with HTTP 429.
// Sequential fetch runs abort on it; parallel runs count it.
var ErrRateLimited = errors.New("rate limited")

// UpstreamError wraps a network, transport or malformed-response failure from
// any external call.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ParseError indicates a payload that is not valid structured data.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid payload from %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
