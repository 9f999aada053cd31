package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.GreaterOrEqual(t, c.Len(), 20, "built-in catalog should carry the full method set")

	types := map[string]int{}
	for _, m := range c.Methods {
		assert.NotEmpty(t, m.Name)
		assert.Contains(t, []string{"subjective", "objective", "combination"}, m.Type)
		assert.NotEmpty(t, m.Detail)
		assert.NotEmpty(t, m.SuitConditions)
		assert.NotEmpty(t, m.ImplementationSteps)
		types[m.Type]++
	}

	// all three families must be represented
	assert.Positive(t, types["subjective"])
	assert.Positive(t, types["objective"])
	assert.Positive(t, types["combination"])
}

func TestFind(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	m := c.Find("Entropy Weight Method")
	require.NotNil(t, m)
	assert.Equal(t, "objective", m.Type)

	assert.Nil(t, c.Find("No Such Method"))
}

func TestLoadFile(t *testing.T) {
	t.Run("valid catalog file", func(t *testing.T) {
		path := writeCatalog(t, `[
			{
				"name": "Test Method",
				"type": "objective",
				"detail": "A method used only in tests.",
				"suitConditions": ["c1"],
				"advantages": ["a1"],
				"limitations": ["l1"],
				"implementationSteps": ["s1"]
			}
		]`)

		c, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 1, c.Len())
		assert.NotNil(t, c.Find("Test Method"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
	})

	t.Run("empty catalog rejected", func(t *testing.T) {
		path := writeCatalog(t, `[]`)
		_, err := LoadFile(path)
		require.Error(t, err)
	})

	t.Run("invalid method type rejected", func(t *testing.T) {
		path := writeCatalog(t, `[
			{
				"name": "Bad Type",
				"type": "mystical",
				"detail": "d",
				"suitConditions": ["c"],
				"advantages": ["a"],
				"limitations": ["l"],
				"implementationSteps": ["s"]
			}
		]`)

		_, err := LoadFile(path)
		require.Error(t, err)
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.NotEmpty(t, schemaErr.Violations)
	})

	t.Run("duplicate names rejected", func(t *testing.T) {
		path := writeCatalog(t, `[
			{
				"name": "Twin",
				"type": "objective",
				"detail": "d",
				"suitConditions": ["c"],
				"advantages": ["a"],
				"limitations": ["l"],
				"implementationSteps": ["s"]
			},
			{
				"name": "Twin",
				"type": "subjective",
				"detail": "d",
				"suitConditions": ["c"],
				"advantages": ["a"],
				"limitations": ["l"],
				"implementationSteps": ["s"]
			}
		]`)

		_, err := LoadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})
}

func TestFilterForPrompt(t *testing.T) {
	methods := []WeightMethod{
		{
			Name:                "Big Method",
			Type:                "objective",
			Detail:              "d",
			SuitConditions:      []string{"c1", "c2"},
			Advantages:          []string{"a1", "a2", "a3", "a4", "a5"},
			Limitations:         []string{"l1", "l2", "l3", "l4"},
			ImplementationSteps: []string{"s1", "s2", "s3", "s4", "s5", "s6"},
			MathematicalModel:   "w = f(x)",
			CalculationExample:  "example text",
		},
		{
			Name:        "Small Method",
			Advantages:  []string{"a1"},
			Limitations: []string{"l1", "l2", "l3"},
		},
	}

	filtered := FilterForPrompt(methods)
	require.Len(t, filtered, 2)

	big := filtered[0]
	assert.Empty(t, big.MathematicalModel)
	assert.Empty(t, big.CalculationExample)
	assert.Len(t, big.Advantages, 4)
	assert.Equal(t, "... (more omitted)", big.Advantages[3])
	assert.Len(t, big.ImplementationSteps, 4)
	assert.Len(t, big.Limitations, 4)

	// lists at or under the cap pass through untouched
	small := filtered[1]
	assert.Equal(t, []string{"a1"}, small.Advantages)
	assert.Equal(t, []string{"l1", "l2", "l3"}, small.Limitations)

	// originals are not mutated
	assert.Len(t, methods[0].Advantages, 5)
	assert.Equal(t, "w = f(x)", methods[0].MathematicalModel)
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
