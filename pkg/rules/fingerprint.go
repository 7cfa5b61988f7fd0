package rules

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/sdejongh/diffnorris/pkg/models"
)

// FingerprintLen is the length of a configuration fingerprint in hex characters
const FingerprintLen = 16

// canonicalVersion prefixes canonical text so format changes never collide
const canonicalVersion = "v1"

// DefaultFingerprintCacheSize bounds the canonical-text to hash cache
const DefaultFingerprintCacheSize = 100

// Fingerprinter hashes comparison configurations.
// Hashes are memoized per canonical text in a small LRU.
type Fingerprinter struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most recent
}

type fingerprintEntry struct {
	canonical string
	hash      string
}

// NewFingerprinter creates a fingerprinter caching up to capacity hashes
func NewFingerprinter(capacity int) *Fingerprinter {
	if capacity <= 0 {
		capacity = DefaultFingerprintCacheSize
	}
	return &Fingerprinter{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

var defaultFingerprinter = NewFingerprinter(DefaultFingerprintCacheSize)

// Fingerprint returns the fingerprint of cfg using the shared fingerprinter
func Fingerprint(cfg models.ComparisonConfig) string {
	return defaultFingerprinter.Fingerprint(cfg)
}

// Fingerprint returns a 16 hex character hash of cfg's canonical form
func (f *Fingerprinter) Fingerprint(cfg models.ComparisonConfig) string {
	canonical := Canonical(cfg)

	f.mu.Lock()
	if elem, ok := f.items[canonical]; ok {
		f.order.MoveToFront(elem)
		h := elem.Value.(*fingerprintEntry).hash
		f.mu.Unlock()
		return h
	}
	f.mu.Unlock()

	sum := sha256.Sum256([]byte(canonical))
	h := hex.EncodeToString(sum[:])[:FingerprintLen]

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[canonical]; !ok {
		f.items[canonical] = f.order.PushFront(&fingerprintEntry{canonical: canonical, hash: h})
		for f.order.Len() > f.capacity {
			oldest := f.order.Back()
			f.order.Remove(oldest)
			delete(f.items, oldest.Value.(*fingerprintEntry).canonical)
		}
	}
	return h
}

// Len returns the number of memoized hashes
func (f *Fingerprinter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.order.Len()
}

// Canonical serializes cfg: global flags, then rules sorted by path and flags.
// Rule order in the configuration does not affect the result.
func Canonical(cfg models.ComparisonConfig) string {
	sorted := slices.Clone(cfg.Rules)
	slices.SortFunc(sorted, func(a, b models.IgnoreRule) int {
		if c := strings.Compare(a.PathPattern, b.PathPattern); c != 0 {
			return c
		}
		if c := boolCmp(a.IgnoreCompletely, b.IgnoreCompletely); c != 0 {
			return c
		}
		return boolCmp(a.IgnoreCollectionOrder, b.IgnoreCollectionOrder)
	})

	var b strings.Builder
	b.WriteString(canonicalVersion)
	b.WriteString("|max=")
	b.WriteString(strconv.Itoa(cfg.MaxDifferences))
	b.WriteString("|case=")
	b.WriteString(strconv.FormatBool(cfg.CaseSensitive))
	b.WriteString("|ro=")
	b.WriteString(strconv.FormatBool(cfg.CompareReadOnlyFields))
	b.WriteString("|order=")
	b.WriteString(strconv.FormatBool(cfg.IgnoreCollectionOrderGlobally))
	for _, r := range sorted {
		b.WriteString("|rule=")
		// quoted so a pattern can never forge a separator
		b.WriteString(strconv.Quote(r.PathPattern))
		b.WriteByte(':')
		b.WriteString(strconv.FormatBool(r.IgnoreCompletely))
		b.WriteByte(':')
		b.WriteString(strconv.FormatBool(r.IgnoreCollectionOrder))
	}
	return b.String()
}

func boolCmp(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
