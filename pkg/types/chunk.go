package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Chunk is a contiguous line range of one file, the unit that gets embedded.
type Chunk struct {
	Content   string
	StartLine int // 1-based, inclusive
	EndLine   int // 1-based, inclusive
}

// Validate checks the line range and content of the chunk
func (c *Chunk) Validate() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}

	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}

	return nil
}

// LineCount returns the number of lines covered by the chunk
func (c *Chunk) LineCount() int {
	return c.EndLine - c.StartLine + 1
}

// ContentHash returns the hex SHA-256 of the chunk content
func (c *Chunk) ContentHash() string {
	sum := sha256.Sum256([]byte(c.Content))
	return hex.EncodeToString(sum[:])
}
