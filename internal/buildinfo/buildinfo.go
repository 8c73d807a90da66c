// Package buildinfo holds the version stamp both binaries log on startup,
// mirroring the teacher's main.go `var BuildCommit = "dev"` convention.
package buildinfo

// Commit is set at build time via -ldflags, e.g.
// -ldflags "-X weathertelemetry/internal/buildinfo.Commit=$(git rev-parse --short HEAD)".
var Commit = "dev"
