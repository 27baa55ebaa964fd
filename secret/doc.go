// Package secret resolves credential references in configuration values.
//
// A value of the form "secretref:<provider>:<ref>" is replaced by what the
// named provider returns for ref. Two providers are built in:
//
//	secretref:env:NSCACHE_JWT_SECRET      the environment variable's value
//	secretref:file:/run/secrets/jwt       the file's contents, trailing newline trimmed
//
// Any other value is returned after strict ${VAR} expansion.
package secret
