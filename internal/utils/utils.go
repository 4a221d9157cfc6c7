package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CalculateDataMD5 returns the hex MD5 digest of data.
func CalculateDataMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// StripDiacritics removes combining marks, e.g. "PROMOÇÃO" -> "PROMOCAO".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lower-cases, trims and strips diacritics.
func Fold(s string) string {
	return StripDiacritics(strings.ToLower(strings.TrimSpace(s)))
}

// FoldKey folds s and joins its words with underscores, for header matching.
func FoldKey(s string) string {
	return strings.Join(strings.Fields(Fold(s)), "_")
}
