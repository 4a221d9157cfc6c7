// Package cardname encodes and decodes single-card filenames, the only
// interchange format between the renderer and the journal composer:
//
//	<order>_<TYPE>.pdf              (Schema{})
//	<order>_<TYPE>_<CATEGORY>.pdf   (Schema{WithCategory: true})
package cardname

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/cardpress/internal/models"
)

// Ext is the single-card document extension.
const Ext = ".pdf"

// ErrNotCard means a filename does not follow the active schema.
var ErrNotCard = errors.New("not a card filename")

// Schema selects whether filenames carry the category token.
type Schema struct {
	WithCategory bool
}

// Name is the information recoverable from a card filename.
type Name struct {
	Order    string
	Type     models.TypeTag
	Category string
}

// For builds the filename identity of a record.
func For(rec models.CanonicalRecord) Name {
	return Name{Order: rec.Order, Type: rec.Type, Category: rec.Category}
}

// Encode returns the filename for n. Order and category are sanitized so the
// result always parses back to the sanitized values.
func (s Schema) Encode(n Name) string {
	parts := []string{SanitizeOrder(n.Order), n.Type.Label()}
	if s.WithCategory {
		parts = append(parts, SanitizeCategory(n.Category))
	}
	return strings.Join(parts, "_") + Ext
}

// Parse decodes a filename produced by Encode with the same schema.
func (s Schema) Parse(filename string) (Name, error) {
	base := filepath.Base(filename)
	if !strings.EqualFold(filepath.Ext(base), Ext) {
		return Name{}, fmt.Errorf("%w: %s: extension is not %s", ErrNotCard, base, Ext)
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	tokens := strings.Split(stem, "_")
	if len(tokens) < 2 || tokens[0] == "" {
		return Name{}, fmt.Errorf("%w: %s", ErrNotCard, base)
	}

	tag, ok := models.ParseTypeTag(tokens[1])
	if !ok {
		return Name{}, fmt.Errorf("%w: %s: unknown type %q", ErrNotCard, base, tokens[1])
	}

	n := Name{Order: tokens[0], Type: tag, Category: models.DefaultCategory}
	if s.WithCategory {
		if cat := strings.Join(tokens[2:], "_"); cat != "" {
			n.Category = cat
		}
	} else if len(tokens) != 2 {
		return Name{}, fmt.Errorf("%w: %s: unexpected category token", ErrNotCard, base)
	}
	return n, nil
}

// SanitizeCategory upper-cases c, joins whitespace runs with "_" and drops
// path separators. Empty input yields the default category.
func SanitizeCategory(c string) string {
	c = strings.Map(dropSeparators, c)
	c = strings.Join(strings.Fields(strings.ToUpper(c)), "_")
	if c == "" {
		return models.DefaultCategory
	}
	return c
}

// SanitizeOrder keeps the order a single filename token.
func SanitizeOrder(o string) string {
	o = strings.Map(dropSeparators, strings.TrimSpace(o))
	o = strings.Join(strings.Fields(o), "-")
	o = strings.ReplaceAll(o, "_", "-")
	if o == "" {
		return "0"
	}
	return o
}

func dropSeparators(r rune) rune {
	if r == '/' || r == '\\' || r == 0 {
		return -1
	}
	return r
}

var leadingNumber = regexp.MustCompile(`^[+-]?\d+(?:[.,]\d+)?`)

// OrderKey returns the numeric sort key from the leading number of an order
// token, so "12" and "12-4" share key 12. Orders without one report ok=false
// and sort after every numeric one.
func OrderKey(order string) (float64, bool) {
	m := leadingNumber.FindString(strings.TrimSpace(order))
	if m == "" {
		return math.Inf(1), false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil {
		return math.Inf(1), false
	}
	return v, true
}

// Label turns a filename category back into display text.
func Label(category string) string {
	return strings.ReplaceAll(category, "_", " ")
}
