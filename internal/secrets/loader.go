// Package secrets resolves credentials from files, environment variables and
// inline configuration values.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured means none of the sources of a secret produced a value.
var ErrNotConfigured = errors.New("not configured")

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value and Env.
	File string
	// Env names an environment variable consulted when Value is empty.
	Env string
}

// Load returns the resolved secret value from the provided source. The
// lookup order is File, Value, Env. The returned secret is always trimmed.
// An error wrapping ErrNotConfigured is returned when no source is usable.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
	}

	return "", fmt.Errorf("%s is %w", name, ErrNotConfigured)
}

// Credentials is a login pair.
type Credentials struct {
	Identity string
	Secret   string
}

// Prompter asks the user for a missing value. Masked input hides the answer.
type Prompter func(label string, masked bool) (string, error)

// LoadCredentials resolves identity and secret, asking ask for whichever is
// not configured. A nil ask turns a missing value into an error.
func LoadCredentials(identity, secret Source, ask Prompter) (Credentials, error) {
	id, err := resolve(identity, ask, false)
	if err != nil {
		return Credentials{}, err
	}
	pw, err := resolve(secret, ask, true)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Identity: id, Secret: pw}, nil
}

func resolve(src Source, ask Prompter, masked bool) (string, error) {
	value, err := Load(src)
	if err == nil || !errors.Is(err, ErrNotConfigured) || ask == nil {
		return value, err
	}

	label := strings.TrimSpace(src.Name)
	if label == "" {
		label = "secret"
	}
	value, err = ask(label, masked)
	if err != nil {
		return "", fmt.Errorf("prompting for %s: %w", label, err)
	}
	if value = strings.TrimSpace(value); value == "" {
		return "", fmt.Errorf("%s is empty", label)
	}
	return value, nil
}
