// Package shortcode produces random candidate short codes.
//
// The generator does not know which codes are taken; callers check
// candidates against the store and ask for another one on collision.
package shortcode

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is the 62 character alphabet codes are drawn from.
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultLength is the length of generated codes.
	DefaultLength = 6

	MinLength = 3
	MaxLength = 10
)

// Generator draws codes of a fixed length uniformly at random from Alphabet.
type Generator struct {
	length int
}

// NewGenerator creates a Generator for codes of the given length.
// A length outside [MinLength, MaxLength] falls back to DefaultLength.
func NewGenerator(length int) *Generator {
	if length < MinLength || length > MaxLength {
		length = DefaultLength
	}

	return &Generator{length: length}
}

// Generate returns a new random code.
func (g *Generator) Generate() (string, error) {
	const op = "shortcode.Generator.Generate"

	code, err := gonanoid.Generate(Alphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}

// Length returns the length of generated codes.
func (g *Generator) Length() int {
	return g.length
}
