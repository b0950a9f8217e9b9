// Package guestname decides whether two spellings of a guest name differ
// cosmetically (accents, encoding damage, quote style) or substantively.
//
// Upstream exports frequently mangle names: a UTF-8 "Müller" read back as
// Latin-1 becomes "MÃ¼ller", and some channels strip accents entirely.
// Classify checks these explanations before it falls back to edit distance,
// so encoding noise is never reported as a different guest.
package guestname

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/bookingsync/pkg/constants"
)

// Classification is the verdict for a pair of names.
type Classification string

// Classifications in precedence order.
const (
	Identical          Classification = "identical"
	MissingData        Classification = "missing_data"
	DiacriticsOnly     Classification = "diacritics_only"
	EncodingCorrection Classification = "encoding_correction"
	MinorCorrection    Classification = "minor_correction"
	SignificantChange  Classification = "significant_change"
)

// String returns the classification tag.
func (c Classification) String() string {
	return string(c)
}

// Analysis is the result of comparing an existing and an incoming name.
type Analysis struct {
	Classification      Classification `json:"classification" yaml:"classification"`
	Description         string         `json:"description" yaml:"description"`
	LikelyEncodingIssue bool           `json:"likely_encoding_issue" yaml:"likely_encoding_issue"`

	// Distance is the edit distance between the normalized forms.
	Distance int `json:"distance" yaml:"distance"`

	// Preferred is the spelling a cosmetic correction writes: the incoming
	// name verbatim, or repaired when the incoming name is mis-encoded.
	// Empty for substantive changes.
	Preferred string `json:"preferred,omitempty" yaml:"preferred,omitempty"`
}

// IsCosmetic reports whether the names denote the same spelling up to
// accents, quote style or encoding damage.
func (a Analysis) IsCosmetic() bool {
	return a.Classification == DiacriticsOnly || a.Classification == EncodingCorrection
}

// Classify compares existing against incoming.
func Classify(existing, incoming string) Analysis {
	if strings.TrimSpace(existing) == "" || strings.TrimSpace(incoming) == "" {
		return Analysis{
			Classification: MissingData,
			Description:    missingDescription(existing, incoming),
		}
	}
	if existing == incoming {
		return Analysis{
			Classification: Identical,
			Description:    "names are identical",
			Preferred:      existing,
		}
	}

	normExisting, normIncoming := Normalize(existing), Normalize(incoming)
	if normExisting == normIncoming {
		return Analysis{
			Classification:      DiacriticsOnly,
			Description:         "names differ only in accents, case, spacing or quote style",
			LikelyEncodingIssue: true,
			Preferred:           incoming,
		}
	}

	if repaired, ok := RepairMojibake(incoming); ok && Normalize(repaired) == normExisting {
		return Analysis{
			Classification:      EncodingCorrection,
			Description:         fmt.Sprintf("incoming name is mis-encoded; repaired to %q", repaired),
			LikelyEncodingIssue: true,
			Preferred:           repaired,
		}
	}
	if repaired, ok := RepairMojibake(existing); ok && Normalize(repaired) == normIncoming {
		return Analysis{
			Classification:      EncodingCorrection,
			Description:         fmt.Sprintf("existing name is mis-encoded; incoming %q repairs it", incoming),
			LikelyEncodingIssue: true,
			Preferred:           incoming,
		}
	}

	distance := levenshtein.ComputeDistance(normExisting, normIncoming)
	if distance <= threshold(normExisting, normIncoming) {
		return Analysis{
			Classification: MinorCorrection,
			Description:    fmt.Sprintf("names differ by %d edit(s)", distance),
			Distance:       distance,
		}
	}
	return Analysis{
		Classification: SignificantChange,
		Description:    fmt.Sprintf("names differ substantially (%d edits)", distance),
		Distance:       distance,
	}
}

func missingDescription(existing, incoming string) string {
	switch {
	case strings.TrimSpace(existing) == "" && strings.TrimSpace(incoming) == "":
		return "both names are empty"
	case strings.TrimSpace(existing) == "":
		return "existing name is empty"
	default:
		return "incoming name is empty"
	}
}

// threshold is the largest edit distance still counted as a minor
// correction: a fraction of the longer name with an absolute floor, but
// never more than a third of the name so very short names cannot pass.
func threshold(a, b string) int {
	longer := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longer {
		longer = n
	}
	limit := int(float64(longer) * constants.NameDistanceRatio)
	if limit < constants.MinNameDistance {
		limit = constants.MinNameDistance
	}
	if ceiling := longer / 3; limit > ceiling {
		limit = ceiling
	}
	return limit
}

// foldDigraphs maps letters that do not decompose under NFKD.
var foldDigraphs = strings.NewReplacer(
	"ß", "ss", "ẞ", "SS",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O",
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
	"þ", "th", "Þ", "TH",
	"ı", "i",
)

// foldQuotes maps typographic quotes and dashes to ASCII.
var foldQuotes = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'",
	"′", "'", "´", "'", "`", "'",
	"“", "\"", "”", "\"", "„", "\"", "‟", "\"",
	"‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-",
)

// Normalize folds a name for comparison: quotes and digraphs to ASCII,
// NFKD with combining marks removed, whitespace collapsed, lower case.
func Normalize(name string) string {
	s := foldQuotes.Replace(name)
	s = foldDigraphs.Replace(s)

	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, s); err == nil {
		s = stripped
	}

	s = strings.Join(strings.Fields(s), " ")
	return cases.Lower(language.Und).String(s)
}

// mojibakeCharmaps are the single-byte codecs a UTF-8 string is most often
// mistakenly decoded with.
var mojibakeCharmaps = []*charmap.Charmap{
	charmap.Windows1252,
	charmap.ISO8859_1,
}

// maxRepairPasses bounds repeated repair for doubly mis-encoded text.
const maxRepairPasses = 2

// RepairMojibake undoes UTF-8 text that was decoded as Windows-1252 or
// Latin-1. It reports false when s shows no such damage.
func RepairMojibake(s string) (string, bool) {
	current := s
	repaired := false
	for pass := 0; pass < maxRepairPasses; pass++ {
		next, ok := repairOnce(current)
		if !ok {
			break
		}
		current = next
		repaired = true
	}
	return current, repaired
}

func repairOnce(s string) (string, bool) {
	if isASCII(s) {
		return "", false
	}
	for _, cm := range mojibakeCharmaps {
		// Encoders carry state; one per call.
		raw, err := cm.NewEncoder().String(s)
		if err != nil {
			continue
		}
		if raw == s || !utf8.ValidString(raw) {
			continue
		}
		return raw, true
	}
	return "", false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}
