package atc

import (
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/trial-eligibility-server/internal/domain"
)

const defaultCategoryCacheSize = 256

// LevelSet is a set of ATC levels keyed by code.
type LevelSet map[string]domain.AtcLevel

// NewLevelSet builds a set from the given levels. Later duplicates win.
func NewLevelSet(levels ...domain.AtcLevel) LevelSet {
	s := make(LevelSet, len(levels))
	for _, l := range levels {
		s[l.Code] = l
	}
	return s
}

// Contains reports whether a level with the given code is in the set.
func (s LevelSet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

// Levels returns the members ordered by code.
func (s LevelSet) Levels() []domain.AtcLevel {
	levels := make([]domain.AtcLevel, 0, len(s))
	for _, l := range s {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Code < levels[j].Code })
	return levels
}

// Codes returns the member codes in sorted order.
func (s LevelSet) Codes() []string {
	codes := make([]string, 0, len(s))
	for code := range s {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Categories resolves curated category names, or literal ATC codes, to the
// ATC levels they denote.
type Categories struct {
	tree     *Tree
	mapping  map[string][]string
	names    map[string]string
	resolved *lru.Cache[string, []domain.AtcLevel]
}

// NewCategories builds a resolver over the given tree and category table
// (category name -> ATC codes). Category names match case-insensitively.
// cacheSize bounds the memo of resolved inputs; zero selects a default.
func NewCategories(tree *Tree, categories map[string][]string, cacheSize int) (*Categories, error) {
	if tree == nil {
		return nil, fmt.Errorf("atc tree is required")
	}
	if cacheSize <= 0 {
		cacheSize = defaultCategoryCacheSize
	}
	resolved, err := lru.New[string, []domain.AtcLevel](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create category cache: %w", err)
	}

	c := &Categories{
		tree:     tree,
		mapping:  make(map[string][]string, len(categories)),
		names:    make(map[string]string, len(categories)),
		resolved: resolved,
	}
	for name, codes := range categories {
		key := categoryKey(name)
		c.mapping[key] = append([]string(nil), codes...)
		c.names[key] = name
	}
	return c, nil
}

// Resolve returns the ATC levels of a category name. Input that is not a
// known category is treated as a literal ATC code.
func (c *Categories) Resolve(categoryOrCode string) LevelSet {
	key := categoryKey(categoryOrCode)
	if levels, ok := c.resolved.Get(key); ok {
		return NewLevelSet(levels...)
	}

	var levels []domain.AtcLevel
	if codes, ok := c.mapping[key]; ok {
		for _, code := range codes {
			levels = append(levels, c.tree.Resolve(code))
		}
	} else {
		levels = []domain.AtcLevel{c.tree.Resolve(categoryOrCode)}
	}

	c.resolved.Add(key, levels)
	return NewLevelSet(levels...)
}

// IsCategory reports whether the input names a curated category.
func (c *Categories) IsCategory(name string) bool {
	_, ok := c.mapping[categoryKey(name)]
	return ok
}

// Names returns the curated category names in sorted order.
func (c *Categories) Names() []string {
	names := make([]string, 0, len(c.names))
	for _, name := range c.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func categoryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// MergeCategories returns base overlaid with extra. Entries of extra replace
// base entries with the same (case-insensitive) name.
func MergeCategories(base, extra map[string][]string) map[string][]string {
	merged := make(map[string][]string, len(base)+len(extra))
	keys := make(map[string]string, len(base)+len(extra))
	for name, codes := range base {
		merged[name] = codes
		keys[categoryKey(name)] = name
	}
	for name, codes := range extra {
		if existing, ok := keys[categoryKey(name)]; ok {
			delete(merged, existing)
		}
		merged[name] = codes
		keys[categoryKey(name)] = name
	}
	return merged
}
