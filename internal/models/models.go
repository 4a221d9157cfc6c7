package models

import (
	"strings"
	"time"
)

// TypeTag is the canonical card layout a record renders with
type TypeTag string

const (
	TypePromotion TypeTag = "promocao"
	TypeCoupon    TypeTag = "cupom"
	TypeDrop      TypeTag = "queda"
	TypeBC        TypeTag = "bc"
)

// AllTypes lists every canonical type tag.
func AllTypes() []TypeTag {
	return []TypeTag{TypePromotion, TypeCoupon, TypeDrop, TypeBC}
}

// ParseTypeTag maps a filename token (any case) back to a known tag.
func ParseTypeTag(s string) (TypeTag, bool) {
	tag := TypeTag(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range AllTypes() {
		if t == tag {
			return t, true
		}
	}
	return "", false
}

// Label is the upper-case form used in filenames.
func (t TypeTag) Label() string {
	return strings.ToUpper(string(t))
}

// PercentValue reports whether the value field is shown as a percentage.
func (t TypeTag) PercentValue() bool {
	switch t {
	case TypeCoupon, TypeDrop, TypeBC:
		return true
	}
	return false
}

// Display field keys of a CanonicalRecord
const (
	FieldText    = "texto"
	FieldValue   = "valor"
	FieldCoupon  = "cupom"
	FieldLegal   = "legal"
	FieldRegion  = "uf"
	FieldSegment = "segmento"
	FieldLogo    = "logo"
)

// DisplayFields lists the display fields in placeholder order.
func DisplayFields() []string {
	return []string{FieldText, FieldValue, FieldCoupon, FieldLegal, FieldRegion, FieldSegment, FieldLogo}
}

const (
	DefaultCategory = "SEM_CATEGORIA"
	DefaultLogo     = "blank"
)

// RawRow is one tabular row keyed by folded header name
type RawRow struct {
	Index  int               `json:"index"` // 1-based position among data rows
	Fields map[string]string `json:"fields"`
}

// Get returns the first non-empty value among keys.
func (r RawRow) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r.Fields[k]); v != "" {
			return v
		}
	}
	return ""
}

// CanonicalRecord is one input row after normalization
type CanonicalRecord struct {
	Row      int               `json:"row"`
	Order    string            `json:"order"`
	Type     TypeTag           `json:"type"`
	Category string            `json:"category"`
	Fields   map[string]string `json:"fields"`
}

// Field returns a display field, empty when absent.
func (r CanonicalRecord) Field(name string) string {
	return r.Fields[name]
}

// RenderedCard is a single-card document written to the working directory
type RenderedCard struct {
	Row      int     `json:"row"`
	Order    string  `json:"order"`
	Type     TypeTag `json:"type"`
	Category string  `json:"category"`
	Filename string  `json:"filename"`
	Path     string  `json:"path"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// Progress is emitted after each rendered card
type Progress struct {
	Total       int    `json:"total"`
	Processed   int    `json:"processed"`
	Percentage  int    `json:"percentage"`
	CurrentCard string `json:"currentCard"`
}

// Session status values
const (
	StatusUploaded  = "uploaded"
	StatusRendering = "rendering"
	StatusRendered  = "rendered"
	StatusComposing = "composing"
	StatusComposed  = "composed"
	StatusFailed    = "failed"
)

// Session represents one card generation session
type Session struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	Dir       string     `json:"-"`
	Input     string     `json:"input,omitempty"`
	Archive   string     `json:"archive,omitempty"`
	Journal   string     `json:"journal,omitempty"`
	Cards     int        `json:"cards"`
	Dropped   []RowError `json:"dropped,omitempty"`
	Progress  *Progress  `json:"progress,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
