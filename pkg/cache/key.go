package cache

import (
	"github.com/cespare/xxhash/v2"
)

// Key identifies a comparison by document contents and configuration
type Key struct {
	Old         uint64
	New         uint64
	Fingerprint string
}

// ContentHash is the fast non-cryptographic hash of a document's bytes
func ContentHash(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// KeyFor builds a key from raw document bytes
func KeyFor(old, new []byte, fingerprint string) Key {
	return Key{Old: ContentHash(old), New: ContentHash(new), Fingerprint: fingerprint}
}

// shardIndex spreads keys over the shards
func (k Key) shardIndex() int {
	h := k.Old ^ (k.New * 0x9e3779b97f4a7c15) ^ xxhash.Sum64String(k.Fingerprint)
	return int(h % shardCount)
}
