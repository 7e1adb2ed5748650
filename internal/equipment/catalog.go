// Package equipment resolves raw equipment labels to canonical names and
// categories. A Catalog is built once from configuration and never changes.
package equipment

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// OtherCategory is assigned to unknown equipment when unknown labels are allowed.
const OtherCategory = "Other"

// MatchKind tells how a raw label was resolved.
type MatchKind string

const (
	MatchExact   MatchKind = "exact"
	MatchAlias   MatchKind = "alias"
	MatchPartial MatchKind = "partial"
	MatchUnknown MatchKind = "unknown"
)

// Resolution is the outcome of resolving one raw label.
type Resolution struct {
	Equipment     string
	EquipmentType string
	Match         MatchKind
}

// Catalog maps raw labels to canonical equipment and categories.
type Catalog struct {
	byKey        map[string]string // folded canonical name -> canonical name
	aliases      map[string]string // folded alias -> canonical name
	categories   map[string]string // canonical name -> category
	categoryKeys map[string]string // folded category -> category
	partials     []string          // canonical names, longest first
	allowUnknown bool
}

// Normalize trims, collapses inner whitespace, applies NFKC and folds case.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
	return cases.Fold().String(s)
}

// DisplayName is the spelling used for a label with no catalog entry. Labels
// that normalize alike share one display name.
func DisplayName(s string) string {
	return cases.Title(language.Und).String(Normalize(s))
}

// Clean trims and collapses whitespace without changing case.
func Clean(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// NewCatalog builds a catalog. categories maps canonical names to categories;
// aliases maps raw labels to canonical names that must exist in categories.
func NewCatalog(categories, aliases map[string]string, allowUnknown bool) (*Catalog, error) {
	c := &Catalog{
		byKey:        make(map[string]string, len(categories)),
		aliases:      make(map[string]string, len(aliases)),
		categories:   make(map[string]string, len(categories)),
		categoryKeys: make(map[string]string),
		allowUnknown: allowUnknown,
	}

	for name, category := range categories {
		canonical, cat := Clean(name), Clean(category)
		if canonical == "" || cat == "" {
			return nil, fmt.Errorf("catalog entry %q -> %q is empty", name, category)
		}
		key := Normalize(canonical)
		if prev, dup := c.byKey[key]; dup && prev != canonical {
			return nil, fmt.Errorf("equipment %q and %q differ only in case or spacing", prev, canonical)
		}
		c.byKey[key] = canonical
		c.categories[canonical] = cat
		c.categoryKeys[Normalize(cat)] = cat
		c.partials = append(c.partials, canonical)
	}
	if allowUnknown {
		c.categoryKeys[Normalize(OtherCategory)] = OtherCategory
	}

	for alias, target := range aliases {
		canonical, ok := c.byKey[Normalize(target)]
		if !ok {
			return nil, fmt.Errorf("alias %q points at unknown equipment %q", alias, target)
		}
		c.aliases[Normalize(alias)] = canonical
	}

	sort.Slice(c.partials, func(i, j int) bool {
		if len(c.partials[i]) != len(c.partials[j]) {
			return len(c.partials[i]) > len(c.partials[j])
		}
		return c.partials[i] < c.partials[j]
	})

	return c, nil
}

// Resolve maps a raw label to its canonical equipment. It tries aliases, then
// exact names, then the longest canonical name contained in the label. The
// boolean is false when the label is unknown and unknown labels are not allowed.
func (c *Catalog) Resolve(raw string) (Resolution, bool) {
	key := Normalize(raw)
	if key == "" {
		return Resolution{}, false
	}

	if canonical, ok := c.aliases[key]; ok {
		return Resolution{Equipment: canonical, EquipmentType: c.categories[canonical], Match: MatchAlias}, true
	}
	if canonical, ok := c.byKey[key]; ok {
		return Resolution{Equipment: canonical, EquipmentType: c.categories[canonical], Match: MatchExact}, true
	}
	for _, canonical := range c.partials {
		if strings.Contains(key, Normalize(canonical)) {
			return Resolution{Equipment: canonical, EquipmentType: c.categories[canonical], Match: MatchPartial}, true
		}
	}

	if c.allowUnknown {
		return Resolution{Equipment: DisplayName(raw), EquipmentType: OtherCategory, Match: MatchUnknown}, true
	}
	return Resolution{}, false
}

// ResolveCategory maps a raw category label to its canonical spelling.
func (c *Catalog) ResolveCategory(raw string) (string, bool) {
	cat, ok := c.categoryKeys[Normalize(raw)]
	return cat, ok
}

// Names returns the canonical equipment names in byte-wise order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.categories))
	for name := range c.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Categories returns the distinct categories in byte-wise order.
func (c *Catalog) Categories() []string {
	cats := make([]string, 0, len(c.categoryKeys))
	for _, cat := range c.categoryKeys {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// AllowsUnknown reports whether unknown labels resolve to OtherCategory.
func (c *Catalog) AllowsUnknown() bool { return c.allowUnknown }
