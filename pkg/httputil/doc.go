// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding/decoding, request parsing, and shared middleware.
package httputil
