// Package recognize defines the image-recognition capabilities the bot
// consumes: decoding a vehicle identifier code from a photo and reading a
// best-guess number off a photographed gauge. Both are fallible and may take
// seconds; callers bound them with a context deadline.
package recognize

import (
	"context"
	"errors"
)

// ErrNoCode is returned when no identifier code is found in the image.
var ErrNoCode = errors.New("no code found in image")

// ErrNoReading is returned when no plausible gauge reading is found.
var ErrNoReading = errors.New("no reading found in image")

// CodeDecoder extracts a vehicle identifier string from a photographed code.
// The image is passed by reference (a transport-issued file handle the
// recognition service can fetch).
type CodeDecoder interface {
	DecodeCode(ctx context.Context, imageRef string) (string, error)
}

// GaugeReader extracts a best-guess non-negative integer reading from a
// photographed instrument display.
type GaugeReader interface {
	ReadGauge(ctx context.Context, imageRef string) (int64, error)
}
