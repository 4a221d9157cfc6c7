package render

import (
	"strings"

	"github.com/lehigh-university-libraries/cardpress/internal/models"
)

// Template placeholders
const (
	PlaceholderText    = "{{TEXTO}}"
	PlaceholderValue   = "{{VALOR}}"
	PlaceholderCoupon  = "{{CUPOM}}"
	PlaceholderLegal   = "{{LEGAL}}"
	PlaceholderRegion  = "{{UF}}"
	PlaceholderSegment = "{{SEGMENTO}}"
	PlaceholderLogo    = "{{LOGO}}"
)

// Fill substitutes the record's fields into tmpl. logoURI replaces {{LOGO}}.
// Values are inserted verbatim; coupon, value, legal, region and segment are
// upper-cased.
func Fill(tmpl string, rec models.CanonicalRecord, logoURI string) string {
	r := strings.NewReplacer(
		PlaceholderText, rec.Field(models.FieldText),
		PlaceholderValue, strings.ToUpper(FormatValue(rec.Type, rec.Field(models.FieldValue))),
		PlaceholderCoupon, strings.ToUpper(rec.Field(models.FieldCoupon)),
		PlaceholderLegal, strings.ToUpper(rec.Field(models.FieldLegal)),
		PlaceholderRegion, strings.ToUpper(rec.Field(models.FieldRegion)),
		PlaceholderSegment, strings.ToUpper(rec.Field(models.FieldSegment)),
		PlaceholderLogo, logoURI,
	)
	return r.Replace(tmpl)
}

// FormatValue normalizes the value field for tag. Percentage types end in
// exactly one "%"; promotions keep the value as typed. An empty value stays
// empty.
func FormatValue(tag models.TypeTag, value string) string {
	if !tag.PercentValue() {
		return value
	}
	v := strings.TrimSpace(strings.ReplaceAll(value, "%", ""))
	if v == "" {
		return ""
	}
	return v + "%"
}
