//go:build tools

// Package tools never builds into the module; it only pins
// the dev-tool dependencies used by the Makefile-style targets (coverage
// reporting, cross-compilation, linting) so `go mod tidy` does not drop
// them from go.mod.
package tools

import (
	_ "github.com/axw/gocov/gocov"
	_ "github.com/matm/gocov-html"
	_ "github.com/mitchellh/gox"
	_ "golang.org/x/lint/golint"
)
