package parsers

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultKanwilNames are the canonical regional office names.
var DefaultKanwilNames = []string{
	"Jakarta I",
	"Jakarta II",
	"Jateng DIY",
	"Jabanus",
	"Jawa Barat",
	"Kalimantan",
	"Sulampua",
	"Sumatera 1",
	"Sumatera 2",
}

// DefaultKanwilAliases maps alternative spellings found in exports to a
// canonical name.
var DefaultKanwilAliases = map[string]string{
	"Jatim Bali Nusra":      "Jabanus",
	"Jatim Balinusra":       "Jabanus",
	"Jakarta 1":             "Jakarta I",
	"Jakarta 2":             "Jakarta II",
	"Jateng & DIY":          "Jateng DIY",
	"Jawa Tengah DIY":       "Jateng DIY",
	"Jabar":                 "Jawa Barat",
	"Sumatera I":            "Sumatera 1",
	"Sumatera II":           "Sumatera 2",
	"Sulawesi Maluku Papua": "Sulampua",
}

// RegionTable resolves kanwil names through an alias table. It is read-only
// after construction and safe for concurrent use.
type RegionTable struct {
	canonical []string
	lookup    map[string]string // folded name -> canonical
	keys      []regionKey       // longest first
}

type regionKey struct {
	text      string
	canonical string
}

// NewRegionTable builds a table from canonical names and aliases. Aliases
// pointing at names missing from canonical are added as canonical names.
func NewRegionTable(canonical []string, aliases map[string]string) *RegionTable {
	t := &RegionTable{lookup: make(map[string]string)}

	add := func(name, target string) {
		name = collapseSpaces(name)
		folded := foldName(name)
		if name == "" || folded == "" {
			return
		}
		if _, exists := t.lookup[folded]; exists {
			return
		}
		t.lookup[folded] = target
		t.keys = append(t.keys, regionKey{text: name, canonical: target})
	}

	for _, name := range canonical {
		name = collapseSpaces(name)
		if name == "" {
			continue
		}
		t.canonical = append(t.canonical, name)
		add(name, name)
	}

	aliasNames := make([]string, 0, len(aliases))
	for alias := range aliases {
		aliasNames = append(aliasNames, alias)
	}
	sort.Strings(aliasNames)

	for _, alias := range aliasNames {
		target := collapseSpaces(aliases[alias])
		if _, known := t.lookup[foldName(target)]; !known {
			t.canonical = append(t.canonical, target)
			add(target, target)
		}
		add(alias, t.lookup[foldName(target)])
	}

	sort.SliceStable(t.keys, func(i, j int) bool {
		return len(t.keys[i].text) > len(t.keys[j].text)
	})
	return t
}

// DefaultRegionTable returns the built-in table.
func DefaultRegionTable() *RegionTable {
	return NewRegionTable(DefaultKanwilNames, DefaultKanwilAliases)
}

// Canonical lists the canonical names in definition order.
func (t *RegionTable) Canonical() []string {
	out := make([]string, len(t.canonical))
	copy(out, t.canonical)
	return out
}

// Normalize maps a name to its canonical form. Unknown names are returned
// trimmed with inner whitespace collapsed.
func (t *RegionTable) Normalize(name string) string {
	name = collapseSpaces(name)
	if canonical, ok := t.lookup[foldName(name)]; ok {
		return canonical
	}
	return name
}

// IsKnown reports whether name resolves to a canonical kanwil.
func (t *RegionTable) IsKnown(name string) bool {
	_, ok := t.lookup[foldName(collapseSpaces(name))]
	return ok
}

// RegionMatch is the result of finding a kanwil name inside free text.
type RegionMatch struct {
	Canonical string
	Rest      string
}

// Match finds the longest known name contained in text, on word boundaries,
// and returns its canonical form plus the text with the name removed.
func (t *RegionTable) Match(text string) (RegionMatch, bool) {
	clean := collapseSpaces(norm.NFKC.String(text))
	for _, key := range t.keys {
		idx := indexFold(clean, key.text)
		if idx < 0 {
			continue
		}
		rest := clean[:idx] + " " + clean[idx+len(key.text):]
		return RegionMatch{Canonical: key.canonical, Rest: collapseSpaces(rest)}, true
	}
	return RegionMatch{}, false
}

// indexFold is a case-insensitive strings.Index that only accepts matches
// not embedded in a longer word.
func indexFold(s, sub string) int {
	n := len(sub)
	for i := 0; i+n <= len(s); i++ {
		if !strings.EqualFold(s[i:i+n], sub) {
			continue
		}
		if i > 0 && isWordByte(s[i-1]) {
			continue
		}
		if i+n < len(s) && isWordByte(s[i+n]) {
			continue
		}
		return i
	}
	return -1
}

func isWordByte(b byte) bool {
	r := rune(b)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// foldName produces the comparison key for a name.
func foldName(s string) string {
	return collapseSpaces(cases.Fold().String(norm.NFKC.String(s)))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
