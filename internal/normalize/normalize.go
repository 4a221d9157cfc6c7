// Package normalize maps raw tabular rows onto canonical card records.
package normalize

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/cardpress/internal/models"
	"github.com/lehigh-university-libraries/cardpress/internal/records"
	"github.com/lehigh-university-libraries/cardpress/internal/utils"
)

// ErrUnsupportedType marks a row whose type matches no card template.
var ErrUnsupportedType = errors.New("unrecognized type")

// ResolveType folds raw and matches it against the type vocabulary.
// An empty tag means the row is not renderable.
func ResolveType(raw string) models.TypeTag {
	folded := utils.Fold(raw)
	if folded == "" {
		return ""
	}

	switch {
	case strings.Contains(folded, "promo"):
		return models.TypePromotion
	case strings.Contains(folded, "cupom"):
		return models.TypeCoupon
	case strings.Contains(folded, "queda"):
		return models.TypeDrop
	case folded == "bc":
		return models.TypeBC
	}
	return ""
}

// Normalize maps one row. Unsupported rows come back as a models.RowError
// wrapping ErrUnsupportedType.
func Normalize(row models.RawRow) (models.CanonicalRecord, error) {
	rawType := row.Get(records.KeyType)
	tag := ResolveType(rawType)
	if tag == "" {
		return models.CanonicalRecord{}, models.RowError{
			Row:    row.Index,
			Reason: "unrecognized type " + strconv.Quote(rawType),
			Err:    ErrUnsupportedType,
		}
	}

	order := row.Get(records.KeyOrder)
	if order == "" {
		order = strconv.Itoa(row.Index)
	}

	category := row.Get(records.KeyCategory)
	if category == "" {
		category = models.DefaultCategory
	}

	fields := make(map[string]string, len(models.DisplayFields()))
	for _, name := range models.DisplayFields() {
		fields[name] = row.Get(name)
	}
	if fields[models.FieldLogo] == "" {
		fields[models.FieldLogo] = models.DefaultLogo
	}

	return models.CanonicalRecord{
		Row:      row.Index,
		Order:    order,
		Type:     tag,
		Category: category,
		Fields:   fields,
	}, nil
}

// NormalizeAll maps every row, collecting dropped rows instead of failing.
func NormalizeAll(rows []models.RawRow) ([]models.CanonicalRecord, []models.RowError) {
	out := make([]models.CanonicalRecord, 0, len(rows))
	var dropped []models.RowError

	for _, row := range rows {
		rec, err := Normalize(row)
		if err != nil {
			var rowErr models.RowError
			if !errors.As(err, &rowErr) {
				rowErr = models.RowError{Row: row.Index, Reason: "invalid row", Err: err}
			}
			slog.Warn("Row dropped", "row", rowErr.Row, "reason", rowErr.Reason)
			dropped = append(dropped, rowErr)
			continue
		}
		out = append(out, rec)
	}
	return out, dropped
}
