// Package web holds the portal's browser wizard.
package web

import (
	_ "embed"
)

// Index holds the single-page wizard served on every wizard route.
//
//go:embed index.html
var Index []byte
