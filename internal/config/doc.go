// Package config loads the DAG files and runner manifests that declare the
// catalog build, and translates them into a validated in-memory model. The
// model is the single input to graph construction; nothing downstream touches
// raw HCL files again.
package config
