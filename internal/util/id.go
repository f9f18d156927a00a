package util

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultIDLength matches the length of ids handed out by the paste API.
const DefaultIDLength = 8

// NewID returns a URL-safe random identifier of n characters.
func NewID(n int) (string, error) {
	if n <= 0 {
		n = DefaultIDLength
	}
	id, err := gonanoid.New(n)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id, nil
}
