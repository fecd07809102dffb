// Package executor plans and runs the execution graph.
//
// Planning walks the graph in dependency order and computes every step's
// input checksum: a digest of its identity, runner type, canonical arguments,
// and the checksums of all of its inputs. Because the digest chains through
// dependencies, a change anywhere upstream changes every downstream checksum
// without executing anything. A step whose saved dataset records a different
// checksum than the planned one is stale and gets rebuilt; everything else is
// reported as cached and skipped.
//
// Execution runs stale nodes on a bounded worker pool. Nodes become ready
// when their dependency counter reaches zero; a failing node cancels the run
// and transitively skips its dependents, and the final error names the failed
// steps with the root cause wrapped.
package executor
