package tmux

import (
	"errors"
	"sort"
)

// ErrInvalidKey is returned for special-key names outside the allowlist.
var ErrInvalidKey = errors.New("key not allowed")

var allowedKeys = map[string]bool{
	"Escape": true,
	"Enter":  true,
	"Tab":    true,
	"BTab":   true,
	"Up":     true,
	"Down":   true,
	"Left":   true,
	"Right":  true,
	"Space":  true,
	"BSpace": true,
	"y":      true,
	"n":      true,
}

func init() {
	for c := '0'; c <= '9'; c++ {
		allowedKeys[string(c)] = true
	}
}

// IsAllowedKey reports whether name may be sent with SendSpecialKey.
func IsAllowedKey(name string) bool {
	return allowedKeys[name]
}

// AllowedKeys returns the allowlist in sorted order.
func AllowedKeys() []string {
	keys := make([]string, 0, len(allowedKeys))
	for k := range allowedKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
