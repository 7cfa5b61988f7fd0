package batch

import (
	"context"
	"fmt"
	"sort"

	"github.com/sdejongh/diffnorris/pkg/decode"
	"github.com/sdejongh/diffnorris/pkg/models"
	"github.com/sdejongh/diffnorris/pkg/storage"
)

// DiscoverOptions controls pair discovery
type DiscoverOptions struct {
	// Exclude holds glob patterns of relative paths to skip
	Exclude []string
	// SupportedOnly skips files without a known document extension
	SupportedOnly bool
}

// DiscoverPairs lists both backends and pairs documents by relative path.
// A document present on only one side still yields a pair; loading the
// missing side then fails for that pair alone. Pairs are sorted by name.
func DiscoverPairs(ctx context.Context, old, new storage.Backend, opts DiscoverOptions) ([]models.DocumentPair, error) {
	oldFiles, err := old.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list old documents: %w", err)
	}
	newFiles, err := new.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list new documents: %w", err)
	}

	names := make(map[string]struct{}, len(oldFiles))
	collect := func(files []storage.FileInfo) {
		for _, f := range files {
			if f.IsDir || f.RelativePath == "" {
				continue
			}
			if ShouldExclude(f.RelativePath, opts.Exclude) {
				continue
			}
			if opts.SupportedOnly {
				if _, err := decode.ForName(f.RelativePath); err != nil {
					continue
				}
			}
			names[f.RelativePath] = struct{}{}
		}
	}
	collect(oldFiles)
	collect(newFiles)

	pairs := make([]models.DocumentPair, 0, len(names))
	for name := range names {
		pairs = append(pairs, models.DocumentPair{Name1: name, Name2: name})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Name1 < pairs[j].Name1 })

	return pairs, nil
}
