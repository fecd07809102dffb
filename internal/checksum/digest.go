package checksum

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"sort"
)

// Digest accumulates length-prefixed fields into a single sha256 digest.
// The zero value is not usable; create instances with New.
type Digest struct {
	h hash.Hash
}

// New returns an empty Digest ready to accept fields.
func New() *Digest {
	return &Digest{h: sha256.New()}
}

// WriteField appends one field to the digest. Each field is prefixed with its
// 8-byte big-endian length, which keeps adjacent fields unambiguous.
func (d *Digest) WriteField(data []byte) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(data)))
	d.h.Write(length[:])
	d.h.Write(data)
}

// WriteString appends one string field to the digest.
func (d *Digest) WriteString(s string) {
	d.WriteField([]byte(s))
}

// writeCount appends an entry count as a fixed 8-byte big-endian field.
func (d *Digest) writeCount(n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	d.WriteField(buf[:])
}

// WriteStringMap appends a string map to the digest in sorted key order,
// preceded by the entry count.
func (d *Digest) WriteStringMap(m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d.writeCount(len(keys))
	for _, k := range keys {
		d.WriteString(k)
		d.WriteString(m[k])
	}
}

// Sum finalizes the digest and returns it as a lowercase hex string.
func (d *Digest) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// Strings is a convenience wrapper hashing an ordered sequence of strings.
func Strings(parts ...string) string {
	d := New()
	for _, p := range parts {
		d.WriteString(p)
	}
	return d.Sum()
}

// File returns the hex sha256 digest of a file's contents.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
