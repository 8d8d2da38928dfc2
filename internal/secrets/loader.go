package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value.
	File string
}

// ListSource describes how to load a set of secret values, such as a pool of
// API credentials. Values may be given inline, as one comma-separated string,
// or in a file with one value per line. File takes precedence over Values.
type ListSource struct {
	Name   string
	Values []string
	File   string
}

// Load returns the resolved secret value from the provided source. When File is
// set it takes precedence over Value. The returned secret is always trimmed. An
// error is returned when neither File nor Value contain a usable secret.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		src.Value = string(data)
		src.File = file
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		if src.File != "" {
			return "", fmt.Errorf("%s file %q is empty", name, src.File)
		}
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}

// LoadList returns the resolved list of secret values from the provided source.
// Entries are trimmed and empty lines dropped. An error is returned when no
// usable values remain after cleanup.
func LoadList(src ListSource) ([]string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secrets"
	}

	values := src.Values

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		values = strings.Split(string(data), "\n")
	}

	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		// A single inline entry may carry several comma-separated values.
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			cleaned = append(cleaned, part)
		}
	}

	if len(cleaned) == 0 {
		if file != "" {
			return nil, fmt.Errorf("%s file %q contains no values", name, file)
		}
		return nil, fmt.Errorf("%s are not configured", name)
	}

	return cleaned, nil
}
