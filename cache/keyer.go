package cache

import "strings"

// Separator joins a namespace prefix and a logical key.
const Separator = "_"

// Keyer maps logical keys to stored keys for one namespace.
//
// Contract:
// - Determinism: the same raw key always yields the same stored key.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key returns the stored form of raw.
	Key(raw string) string

	// Owns reports whether a stored key belongs to this namespace.
	Owns(stored string) bool
}

// PrefixKeyer prepends "<prefix>_" to keys.
//
// A raw key that already starts with the prefix text is treated as stored
// form and returned unchanged, so "CARS_x" and "CARSx" both pass through for
// prefix "CARS". Callers must not use logical keys that begin with the prefix.
type PrefixKeyer struct {
	prefix string
}

// NewPrefixKeyer creates a keyer for prefix.
func NewPrefixKeyer(prefix string) *PrefixKeyer {
	return &PrefixKeyer{prefix: prefix}
}

// Prefix returns the namespace prefix.
func (k *PrefixKeyer) Prefix() string {
	return k.prefix
}

// Key returns the stored form of raw.
func (k *PrefixKeyer) Key(raw string) string {
	if strings.HasPrefix(raw, k.prefix) {
		return raw
	}
	return k.Join(raw)
}

// Join always prepends the prefix, even if raw already carries it.
func (k *PrefixKeyer) Join(raw string) string {
	return k.prefix + Separator + raw
}

// Owns reports whether stored starts with "<prefix>_". Keys of a longer
// prefix that shares this one's text ("CARS_x" for prefix "CAR") are not
// owned, nor are raw keys that bypassed Key's prefixing ("CARSx").
func (k *PrefixKeyer) Owns(stored string) bool {
	return strings.HasPrefix(stored, k.prefix+Separator)
}

// Ensure PrefixKeyer implements Keyer
var _ Keyer = (*PrefixKeyer)(nil)
