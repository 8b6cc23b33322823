// Package atc resolves WHO Anatomical Therapeutic Chemical codes and curated
// medication categories into ATC levels.
//
// The lookup tables are supplied in memory once at startup and never mutated,
// so a Tree or Categories value may be shared freely between goroutines.
package atc

import (
	"strings"

	"github.com/trial-eligibility-server/internal/domain"
)

// levelLengths are the code lengths of the five ATC levels, from the
// anatomical main group down to the chemical substance.
var levelLengths = []int{1, 3, 4, 5, 7}

// Tree maps ATC codes of any level to their display names.
type Tree struct {
	names map[string]string
}

// NewTree builds a tree from a code -> name table. Codes are upper-cased.
func NewTree(names map[string]string) *Tree {
	t := &Tree{names: make(map[string]string, len(names))}
	for code, name := range names {
		t.names[normalizeCode(code)] = name
	}
	return t
}

// Size returns the number of codes in the tree.
func (t *Tree) Size() int {
	return len(t.names)
}

// Resolve returns the level for an ATC code. Unknown codes resolve to a level
// with an empty name, never an error.
func (t *Tree) Resolve(code string) domain.AtcLevel {
	level, _ := t.Lookup(code)
	return level
}

// Lookup returns the level for an ATC code and whether the code is known.
func (t *Tree) Lookup(code string) (domain.AtcLevel, bool) {
	code = normalizeCode(code)
	name, ok := t.names[code]
	return domain.AtcLevel{Code: code, Name: name}, ok
}

// Chain returns the levels from the anatomical main group down to code,
// following the ATC prefix lengths. Intermediate levels are resolved through
// the tree and may carry empty names.
func (t *Tree) Chain(code string) []domain.AtcLevel {
	code = normalizeCode(code)
	chain := make([]domain.AtcLevel, 0, len(levelLengths))
	for _, length := range levelLengths {
		if length > len(code) {
			break
		}
		chain = append(chain, t.Resolve(code[:length]))
	}
	return chain
}

// Classify builds the full classification for a chemical substance (or any
// shallower) code. Levels deeper than the code are left empty.
func (t *Tree) Classify(code string) domain.AtcClassification {
	var c domain.AtcClassification
	for _, level := range t.Chain(code) {
		switch len(level.Code) {
		case 1:
			c.AnatomicalMainGroup = level
		case 3:
			c.TherapeuticSubGroup = level
		case 4:
			c.PharmacologicalSubGroup = level
		case 5:
			c.ChemicalSubGroup = level
		case 7:
			c.ChemicalSubstance = level
		}
	}
	return c
}

// IsValidCodeLength reports whether a code has the length of an ATC level.
func IsValidCodeLength(code string) bool {
	for _, length := range levelLengths {
		if len(code) == length {
			return true
		}
	}
	return false
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
