// Package checksum computes the deterministic digests the engine uses to
// decide staleness. All multi-part digests are length-prefixed so that
// distinct field sequences can never collide, and map-like inputs are sorted
// before hashing so the result is independent of iteration order.
package checksum
