package secret

import "errors"

var (
	// ErrSecretNotFound indicates a provider has nothing under the reference.
	ErrSecretNotFound = errors.New("secret: not found")

	// ErrUnknownProvider indicates a reference names an unregistered provider.
	ErrUnknownProvider = errors.New("secret: provider is not registered")

	// ErrEmptySecret indicates a strict resolver got an empty value.
	ErrEmptySecret = errors.New("secret: resolved to empty value")

	// ErrMissingEnv indicates ${VAR} expansion found an unset variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")
)
