package middleware

import (
	"fmt"
	"strings"
)

// Input validation utilities

// ValidateFilename rejects filenames carrying path material. Filenames are
// the sole join key across artifact kinds and are concatenated into storage
// keys and local staging paths, so separators and traversal are never legal.
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if len(name) > 255 {
		return fmt.Errorf("filename too long")
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("filename must not contain path separators")
	}
	if name == "." || name == ".." || strings.Contains(name, "..") {
		return fmt.Errorf("filename must not contain traversal sequences")
	}
	for _, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("filename must not contain control characters")
		}
	}
	return nil
}
