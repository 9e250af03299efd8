package core

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
)

// Hash is a hex-encoded SHA-256 digest used for reproducibility fingerprints.
type Hash string

// NewHash computes the SHA-256 hash of the given bytes.
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(fmt.Sprintf("%x", sum))
}

// String returns the string representation of the hash.
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty.
func (h Hash) IsEmpty() bool {
	return len(strings.TrimSpace(string(h))) == 0
}

// Short returns the first 12 characters for display purposes.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// ConfigHash fingerprints the effective pipeline configuration of a run.
type ConfigHash = Hash

// CohortHash fingerprints the ordered input files of a cohort.
type CohortHash = Hash

// ComputeConfigHash derives a deterministic fingerprint from any
// JSON-serializable configuration value. Struct field order is stable in
// encoding/json, so identical configurations always produce identical hashes.
func ComputeConfigHash(cfg any) (ConfigHash, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config for hashing: %w", err)
	}
	return NewHash(data), nil
}

// ComputeCohortHash derives a fingerprint from the ordered list of input
// paths. Order is significant: subject indices are assigned positionally.
func ComputeCohortHash(paths []string) CohortHash {
	joined := strings.Join(paths, "\n")
	return NewHash([]byte(joined))
}
