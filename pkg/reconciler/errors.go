package reconciler

import "errors"

// ErrCatalogUnavailable is returned by Run when the reference database cannot
// be reached. The run stops before any file is written.
var ErrCatalogUnavailable = errors.New("reconciler: reference database unavailable")

// IsCatalogUnavailableErr returns true if err is or wraps ErrCatalogUnavailable.
func IsCatalogUnavailableErr(err error) bool {
	return errors.Is(err, ErrCatalogUnavailable)
}
