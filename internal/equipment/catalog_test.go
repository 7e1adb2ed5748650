package equipment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makertrends/internal/config"
)

func defaultCatalog(t *testing.T, allowUnknown bool) *Catalog {
	t.Helper()
	c, err := NewCatalog(config.DefaultCategories(), config.DefaultAliases(), allowUnknown)
	require.NoError(t, err)
	return c
}

func TestCatalogResolve(t *testing.T) {
	c := defaultCatalog(t, false)

	tests := []struct {
		name      string
		raw       string
		equipment string
		category  string
		match     MatchKind
		ok        bool
	}{
		{"exact", "Jacobs Type A", "Jacobs Type A", "Basic 3D Printing", MatchExact, true},
		{"case and spacing", "  jacobs   LASER access ", "Jacobs Laser Access", "Laser Cutting", MatchExact, true},
		{"alias", "Jacobs DiWire Room 220C", "Jacobs DiWire", "Basic Prototyping", MatchAlias, true},
		{"alias folded", "JACOBS VINYL CUTTER AND INKJET", "Jacobs Vinyl Cutter", "Basic Prototyping", MatchAlias, true},
		{"partial", "Jacobs Wood Shop (after hours)", "Jacobs Wood Shop", "Wood Shop", MatchPartial, true},
		{"entry", "Jacobs MakerPass Access", "Jacobs MakerPass Access", "Entry", MatchExact, true},
		{"unknown", "Lathe", "", "", "", false},
		{"empty", "   ", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := c.Resolve(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.equipment, res.Equipment)
			assert.Equal(t, tt.category, res.EquipmentType)
			assert.Equal(t, tt.match, res.Match)
		})
	}
}

func TestCatalogPartialPrefersLongestName(t *testing.T) {
	c, err := NewCatalog(map[string]string{
		"Laser":        "Cutting",
		"Laser Cutter": "Cutting",
		"Cutter":       "Cutting",
	}, nil, false)
	require.NoError(t, err)

	res, ok := c.Resolve("Big Laser Cutter #2")
	require.True(t, ok)
	assert.Equal(t, "Laser Cutter", res.Equipment)
}

func TestCatalogAllowUnknown(t *testing.T) {
	c := defaultCatalog(t, true)

	res, ok := c.Resolve("  Bandsaw  2 ")
	require.True(t, ok)
	assert.Equal(t, "Bandsaw 2", res.Equipment)
	assert.Equal(t, OtherCategory, res.EquipmentType)
	assert.Equal(t, MatchUnknown, res.Match)
	assert.Contains(t, c.Categories(), OtherCategory)
	assert.True(t, c.AllowsUnknown())

	_, ok = c.Resolve("")
	assert.False(t, ok, "empty labels are never allowed")
}

func TestCatalogUnknownLabelsShareOneName(t *testing.T) {
	c := defaultCatalog(t, true)

	tests := []struct {
		raw  string
		want string
	}{
		{"Mystery Mill", "Mystery Mill"},
		{"mystery  MILL", "Mystery Mill"},
		{" MYSTERY mill ", "Mystery Mill"},
		{"cnc router", "Cnc Router"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			res, ok := c.Resolve(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.want, res.Equipment)
			assert.Equal(t, MatchUnknown, res.Match)
		})
	}
}

func TestCatalogUnicodeFolding(t *testing.T) {
	c, err := NewCatalog(map[string]string{"Straße Fräse": "Metal Shop"}, nil, false)
	require.NoError(t, err)

	res, ok := c.Resolve("STRASSE FRÄSE")
	require.True(t, ok)
	assert.Equal(t, "Straße Fräse", res.Equipment)
}

func TestResolveCategory(t *testing.T) {
	c := defaultCatalog(t, false)

	cat, ok := c.ResolveCategory("advanced 3d printing")
	require.True(t, ok)
	assert.Equal(t, "Advanced 3D Printing", cat)

	_, ok = c.ResolveCategory("Other")
	assert.False(t, ok)
}

func TestNewCatalogValidation(t *testing.T) {
	_, err := NewCatalog(map[string]string{"A": "X"}, map[string]string{"a-old": "Missing"}, false)
	assert.Error(t, err)

	_, err = NewCatalog(map[string]string{"Laser": "X", "LASER": "Y"}, nil, false)
	assert.Error(t, err)

	_, err = NewCatalog(map[string]string{"Laser": ""}, nil, false)
	assert.Error(t, err)
}

func TestNamesSorted(t *testing.T) {
	c := defaultCatalog(t, false)
	names := c.Names()
	require.Len(t, names, len(config.DefaultCategories()))
	assert.IsIncreasing(t, names)
}
