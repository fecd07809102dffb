// Package registry connects runner types declared in HCL manifests to the Go
// handler functions that implement them. Each application instance owns one
// Registry; built-in transform modules register themselves into it at
// startup, and validation checks that every manifest's lifecycle handler
// actually exists in Go with a well-formed signature.
package registry
