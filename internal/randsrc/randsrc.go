// Package randsrc provides the deterministic, splittable random source used
// throughout generation. A Root wraps the run's seed; independent substreams
// are derived per label path (table, column, purpose) by hashing, so the
// stream a column sees never depends on how many draws other columns made.
// Same seed, same labels → byte-identical stream on every platform.
package randsrc

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
)

// Root derives substreams from a single seed.
type Root struct {
	seed uint64
}

func New(seed uint64) Root {
	return Root{seed: seed}
}

// key hashes the seed and label path into a ChaCha8 key.
func (r Root) key(labels []string) [32]byte {
	h := sha256.New()
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], r.seed)
	h.Write(b[:])
	for _, l := range labels {
		// Length-prefix each label so ("ab","c") and ("a","bc") differ.
		binary.LittleEndian.PutUint64(b[:], uint64(len(l)))
		h.Write(b[:])
		h.Write([]byte(l))
	}
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

// Stream returns a fresh deterministic generator for the given label path.
func (r Root) Stream(labels ...string) *rand.Rand {
	key := r.key(labels)
	return rand.New(rand.NewChaCha8(key))
}

// Seed64 returns a deterministic 64-bit sub-seed for the given label path,
// for collaborators that take a plain integer seed.
func (r Root) Seed64(labels ...string) uint64 {
	key := r.key(labels)
	return binary.LittleEndian.Uint64(key[:8])
}
