package tui

import (
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/lensgrid/internal/domain"
)

// assetNames adapts an asset slice to fuzzy.Source
type assetNames []domain.Asset

func (a assetNames) String(i int) string { return a[i].Name }
func (a assetNames) Len() int            { return len(a) }

// filterAssets returns the assets whose names fuzzy-match query.
// Matches keep the library order so the grid does not reshuffle while typing.
func filterAssets(assets []domain.Asset, query string) []domain.Asset {
	if query == "" {
		return assets
	}

	matches := fuzzy.FindFrom(query, assetNames(assets))
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Index < matches[j].Index
	})

	out := make([]domain.Asset, len(matches))
	for i, match := range matches {
		out[i] = assets[match.Index]
	}
	return out
}
