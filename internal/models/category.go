package models

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrNoCategories      = errors.New("at least one category is required")
	ErrTooManyCategories = fmt.Errorf("at most %d categories are supported", MaxCategories)
	ErrInvalidCategory   = errors.New("invalid category name")
	ErrDuplicateCategory = errors.New("duplicate category name")
)

// ParseCategories turns the comma separated setup input into category names.
func ParseCategories(input string) ([]string, error) {
	names := make([]string, 0, MaxCategories)
	seen := make(map[string]bool)

	for _, part := range strings.Split(input, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if err := ValidateCategory(name); err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCategory, name)
		}
		seen[name] = true
		names = append(names, name)
	}

	if len(names) == 0 {
		return nil, ErrNoCategories
	}
	if len(names) > MaxCategories {
		return nil, fmt.Errorf("%w: got %d", ErrTooManyCategories, len(names))
	}

	return names, nil
}

// ValidateCategory rejects names that would not map to a single subdirectory
// of the working directory.
func ValidateCategory(name string) error {
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, name)
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, filepath.Separator) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidCategory, name)
	}
	return nil
}
