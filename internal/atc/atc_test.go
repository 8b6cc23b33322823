package atc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trial-eligibility-server/internal/domain"
)

func TestTreeResolve(t *testing.T) {
	tree := NewTree(map[string]string{"l01": "ANTINEOPLASTIC AGENTS", "L": "ANTINEOPLASTIC AND IMMUNOMODULATING AGENTS"})

	tests := []struct {
		name      string
		code      string
		wantName  string
		wantKnown bool
	}{
		{"Known code", "L01", "ANTINEOPLASTIC AGENTS", true},
		{"Lower case input", "l", "ANTINEOPLASTIC AND IMMUNOMODULATING AGENTS", true},
		{"Unknown code resolves blank", "Z99", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, known := tree.Lookup(tt.code)
			assert.Equal(t, tt.wantKnown, known)
			assert.Equal(t, tt.wantName, level.Name)
			assert.Equal(t, tree.Resolve(tt.code), level)
		})
	}
}

func TestTreeChainAndClassify(t *testing.T) {
	tree := NewDefaultTree()

	chain := tree.Chain("B01AA03")
	require.Len(t, chain, 5)
	assert.Equal(t, []string{"B", "B01", "B01A", "B01AA", "B01AA03"},
		[]string{chain[0].Code, chain[1].Code, chain[2].Code, chain[3].Code, chain[4].Code})
	assert.Equal(t, "warfarin", chain[4].Name)

	assert.Len(t, tree.Chain("M05"), 2)

	classification := tree.Classify("M05BX04")
	assert.Equal(t, "M", classification.AnatomicalMainGroup.Code)
	assert.Equal(t, "M05B", classification.PharmacologicalSubGroup.Code)
	assert.Equal(t, "denosumab", classification.ChemicalSubstance.Name)

	shallow := tree.Classify("H05")
	assert.True(t, shallow.ChemicalSubstance.IsEmpty())
	assert.Equal(t, "CALCIUM HOMEOSTASIS", shallow.TherapeuticSubGroup.Name)
}

func TestIsValidCodeLength(t *testing.T) {
	for _, code := range []string{"L", "L01", "L01E", "L01EA", "L01EA01"} {
		assert.True(t, IsValidCodeLength(code), code)
	}
	for _, code := range []string{"", "L0", "L01EA0", "L01EA012"} {
		assert.False(t, IsValidCodeLength(code), code)
	}
}

func TestCategoriesResolveBoneResorptive(t *testing.T) {
	tree := NewTree(map[string]string{"H05": "", "M05B": ""})
	categories, err := NewCategories(tree, map[string][]string{"Bone resorptive": {"H05", "M05B"}}, 0)
	require.NoError(t, err)

	resolved := categories.Resolve("Bone resorptive")
	assert.Equal(t, NewLevelSet(domain.AtcLevel{Code: "H05"}, domain.AtcLevel{Code: "M05B"}), resolved)

	assert.Equal(t, resolved, categories.Resolve("bone RESORPTIVE"), "category names are case-insensitive")
}

func TestCategoriesFallBackToLiteralCode(t *testing.T) {
	categories, err := NewCategories(NewDefaultTree(), DefaultCategories, 4)
	require.NoError(t, err)

	resolved := categories.Resolve("L01")
	assert.Equal(t, []domain.AtcLevel{{Code: "L01", Name: "ANTINEOPLASTIC AGENTS"}}, resolved.Levels())

	unknown := categories.Resolve("X99")
	assert.Equal(t, []string{"X99"}, unknown.Codes())
	assert.False(t, categories.IsCategory("X99"))
	assert.True(t, categories.IsCategory("anticoagulants"))
}

func TestCategoriesResolveReturnsIndependentSets(t *testing.T) {
	categories, err := NewCategories(NewDefaultTree(), DefaultCategories, 0)
	require.NoError(t, err)

	first := categories.Resolve("Corticosteroids")
	delete(first, "H02")

	assert.True(t, categories.Resolve("Corticosteroids").Contains("H02"))
}

func TestCategoriesConcurrentResolve(t *testing.T) {
	categories, err := NewCategories(NewDefaultTree(), DefaultCategories, 2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			names := categories.Names()
			name := names[i%len(names)]
			assert.NotEmpty(t, categories.Resolve(name))
		}(i)
	}
	wg.Wait()
}

func TestMergeCategories(t *testing.T) {
	merged := MergeCategories(
		map[string][]string{"Opioids": {"N02A"}, "Corticosteroids": {"H02"}},
		map[string][]string{"opioids": {"N02A", "N07BC"}, "Statins": {"C10AA"}},
	)

	assert.Len(t, merged, 3)
	assert.Equal(t, []string{"N02A", "N07BC"}, merged["opioids"])
	assert.NotContains(t, merged, "Opioids")
	assert.Equal(t, []string{"C10AA"}, merged["Statins"])
}

func TestDefaultCategoriesResolveThroughTree(t *testing.T) {
	tree := NewDefaultTree()
	categories, err := NewCategories(tree, DefaultCategories, 0)
	require.NoError(t, err)

	resolved := categories.Resolve("Bone resorptive")
	assert.Equal(t, "CALCIUM HOMEOSTASIS", resolved["H05"].Name)
	assert.Equal(t, "DRUGS AFFECTING BONE STRUCTURE AND MINERALIZATION", resolved["M05B"].Name)
}
