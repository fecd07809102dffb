// Package snapshot implements the immutable raw-file store at the start of
// the pipeline. Each snapshot is a file at `<namespace>/<version>/<filename>`
// under the store root, with an HCL sidecar (`<filename>.meta.hcl`) recording
// its sha256 checksum and provenance (origin and license). Snapshots are
// written once by the ingestion CLI and consumed read-only by steps.
package snapshot
