package project

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrNoProjectName means the download URL carried no project name.
	ErrNoProjectName = errors.New("no project name in download URL")
	// ErrInvalidProjectName means the name cannot be used as a directory.
	ErrInvalidProjectName = errors.New("invalid project name")
)

// ParseName extracts the value of marker from the query part of requestURI.
// The first occurrence wins and an empty value counts as absent.
func ParseName(requestURI, marker string) (string, error) {
	_, rawQuery, ok := strings.Cut(requestURI, "?")
	if !ok {
		return "", ErrNoProjectName
	}

	prefix := marker + "="
	for _, pair := range strings.Split(rawQuery, "&") {
		value, found := strings.CutPrefix(pair, prefix)
		if !found {
			continue
		}
		name, err := url.QueryUnescape(value)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidProjectName, err)
		}
		if name == "" {
			return "", ErrNoProjectName
		}
		if err := validateName(name); err != nil {
			return "", err
		}
		return name, nil
	}
	return "", ErrNoProjectName
}

// validateName rejects names that would escape the chosen directory.
func validateName(name string) error {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidProjectName, name)
	}
	return nil
}
