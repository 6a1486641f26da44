//go:build !embed

package frontend

import "net/http"

// Handler returns nil when the binary was built without -tags embed; the
// caller then falls back to serving static/ from disk.
func Handler() http.Handler {
	return nil
}
