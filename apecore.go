/*
Package apecore is a library for decoding APE sprites into positioned RGBA
frames that an image editor can turn into layers.

The cheap introspection functions (ValidateGraphicFile, GetHeader,
HasBackgroundFrame and friends) never decode pixel data and are suitable for
validating a path as it is typed. A full decode goes through a Session.
*/
package apecore

import (
	"fmt"
	"os"

	"github.com/openztcc/apecore/ape"
	"github.com/openztcc/apecore/palette"
	"github.com/pkg/errors"
)

// ErrIO matches any error caused by a file that is missing or unreadable.
var ErrIO = errors.New("apecore: i/o error")

type ioError struct {
	err error
}

func (e *ioError) Error() string {
	return fmt.Sprintf("apecore: %v", e.err)
}

func (e *ioError) Unwrap() error {
	return e.err
}

func (e *ioError) Is(target error) bool {
	return target == ErrIO
}

func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &ioError{err}
	}
	return b, nil
}

// ValidateGraphicFile reports whether path names a well-formed APE container.
// Frame records are bounds checked but not decoded.
func ValidateGraphicFile(path string) bool {
	b, err := readFile(path)
	if err != nil {
		return false
	}
	_, err = ape.Parse(b)
	return err == nil
}

// ValidatePaletteFile reports whether path names a well-formed palette.
func ValidatePaletteFile(path string) bool {
	return palette.Validate(path)
}

// GetHeader returns the header of the container at path.
func GetHeader(path string) (ape.Header, error) {
	b, err := readFile(path)
	if err != nil {
		return ape.Header{}, err
	}
	h, _, err := ape.ParseHeader(b)
	return h, err
}

// HasBackgroundFrame reports whether the container at path flags its last
// frame as a background frame. Unreadable or invalid files have none.
func HasBackgroundFrame(path string) bool {
	h, err := GetHeader(path)
	return err == nil && h.Background
}

// ResolvePalettePath returns the most plausible location of the palette
// named in the header of the container at path. Direct color containers
// name no palette and resolve to "".
func ResolvePalettePath(path string) (string, error) {
	h, err := GetHeader(path)
	if err != nil {
		return "", err
	}
	return palette.ResolvePath(h.PaletteName, path), nil
}
