package parsers

import (
	"regexp"
	"strings"
)

// RowClass is the tier a row belongs to.
type RowClass int

const (
	RowIgnored RowClass = iota
	RowNational
	RowRegional
	RowBranch
)

func (c RowClass) String() string {
	switch c {
	case RowNational:
		return "national"
	case RowRegional:
		return "regional"
	case RowBranch:
		return "branch"
	default:
		return "ignored"
	}
}

// Classification is the classifier's verdict for one row.
type Classification struct {
	Class  RowClass
	Name   string
	Kanwil string
}

var branchIndexPattern = regexp.MustCompile(`^\d+$`)

const (
	labelTotalNasional = "total nasional"
	labelTotalKanwil   = "total kanwil"
)

// Classifier assigns rows of one sheet to tiers. Section-based shapes make it
// stateful, so use one Classifier per sheet.
type Classifier struct {
	shape     *Shape
	regions   *RegionTable
	inSection bool
}

// NewClassifier creates a classifier for one pass over a sheet.
func NewClassifier(shape *Shape, regions *RegionTable) *Classifier {
	return &Classifier{shape: shape, regions: regions}
}

// Classify decides which tier row belongs to.
func (c *Classifier) Classify(row Row) Classification {
	for _, col := range c.shape.LabelColumns {
		label := row.Label(col)
		folded := foldName(label)

		if strings.Contains(folded, labelTotalNasional) {
			return Classification{Class: RowNational}
		}
		if strings.HasPrefix(folded, labelTotalKanwil) {
			return Classification{Class: RowRegional, Name: c.resolveKanwil(label)}
		}
	}

	if c.shape.RegionalSections {
		if cls, handled := c.classifySection(row); handled {
			return cls
		}
	}

	if c.isBranch(row) {
		c.inSection = false
		return Classification{
			Class:  RowBranch,
			Name:   row.Label(c.shape.NameColumn),
			Kanwil: c.regions.Normalize(row.Label(c.shape.RegionColumn)),
		}
	}

	return Classification{Class: RowIgnored}
}

// classifySection handles the "Kantor Wilayah" summary block of the credit
// reports, where regional rows carry no index and no "total kanwil" prefix.
func (c *Classifier) classifySection(row Row) (Classification, bool) {
	for _, col := range c.shape.SectionNameColumns {
		folded := foldName(row.Label(col))
		switch {
		case strings.Contains(folded, "kantor wilayah") || folded == "wilayah":
			c.inSection = true
			return Classification{Class: RowIgnored}, true
		case strings.Contains(folded, "kantor cabang") || folded == "cabang":
			c.inSection = false
			return Classification{Class: RowIgnored}, true
		}
	}

	if !c.inSection || !row.At(c.shape.IndexColumn).IsBlank() {
		return Classification{}, false
	}

	for _, col := range c.shape.SectionNameColumns {
		name := row.Label(col)
		if name == "" {
			continue
		}
		if foldName(name) == "total" {
			return Classification{Class: RowNational}, true
		}
		return Classification{Class: RowRegional, Name: c.regions.Normalize(name)}, true
	}
	return Classification{}, false
}

func (c *Classifier) isBranch(row Row) bool {
	if !branchIndexPattern.MatchString(row.Label(c.shape.IndexColumn)) {
		return false
	}
	return row.Label(c.shape.NameColumn) != "" && row.Label(c.shape.RegionColumn) != ""
}

// resolveKanwil turns "Total Kanwil Jakarta II" into "Jakarta II".
func (c *Classifier) resolveKanwil(label string) string {
	rest := collapseSpaces(label)
	if len(rest) >= len(labelTotalKanwil) {
		rest = rest[len(labelTotalKanwil):]
	}
	if m, ok := c.regions.Match(rest); ok {
		return m.Canonical
	}
	return c.regions.Normalize(rest)
}
