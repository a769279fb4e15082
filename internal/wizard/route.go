package wizard

import (
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

// Route is a navigation request: a path plus optional query parameters.
type Route struct {
	Path  string
	Query url.Values
}

// ParseRoute parses a raw request such as "/setup/networks?rescan=1".
// Scheme and host, if present, are ignored.
func ParseRoute(raw string) (Route, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Route{}, errors.Wrapf(err, "parse route %q", raw)
	}
	return Route{Path: u.Path, Query: u.Query()}, nil
}

// String returns the route in request form.
func (r Route) String() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

// normalizePath canonicalises a path for lookup: trailing slashes are
// dropped, so "/setup/" and "/setup" name the same step.
func normalizePath(path string) string {
	if path == "" {
		return ""
	}
	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}
