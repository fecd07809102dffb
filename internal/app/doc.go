// Package app wires the application together: configuration, logging, the
// runner registry, DAG loading, and the plan/execute run loop.
package app
