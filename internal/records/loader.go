package records

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/cardpress/internal/models"
	"github.com/lehigh-university-libraries/cardpress/internal/utils"
	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat means the file extension has no loader.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// InputError wraps any failure to read the record source.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("read %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Loader reads tabular card records from a spreadsheet-like file
type Loader struct {
	path  string
	sheet string
}

// NewLoader creates a loader for path; xlsx files use their first sheet.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// WithSheet selects a named xlsx sheet instead of the first one.
func (l *Loader) WithSheet(sheet string) *Loader {
	l.sheet = sheet
	return l
}

// SupportedExtensions lists the file extensions Load understands.
func SupportedExtensions() []string {
	return []string{".xlsx", ".csv", ".parquet", ".jsonl"}
}

// Supported reports whether filename has a loadable extension.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range SupportedExtensions() {
		if e == ext {
			return true
		}
	}
	return false
}

// Load reads every non-blank data row. Failures are *InputError.
func (l *Loader) Load() ([]models.RawRow, error) {
	rows, err := l.load()
	if err != nil {
		return nil, &InputError{Path: l.path, Err: err}
	}
	return rows, nil
}

func (l *Loader) load() ([]models.RawRow, error) {
	ext := strings.ToLower(filepath.Ext(l.path))

	switch ext {
	case ".xlsx":
		return l.loadXLSX()
	case ".csv":
		return l.loadCSV()
	case ".parquet":
		return l.loadParquet()
	case ".jsonl", ".json":
		return l.loadJSONL()
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(SupportedExtensions(), ", "))
	}
}

func (l *Loader) loadXLSX() ([]models.RawRow, error) {
	slog.Debug("Opening spreadsheet", "path", l.path)

	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := l.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("spreadsheet has no sheets")
		}
		sheet = sheets[0]
	}

	table, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	slog.Debug("Sheet read", "sheet", sheet, "rows", len(table))
	return fromTable(table), nil
}

func (l *Loader) loadCSV() ([]models.RawRow, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	table, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return fromTable(table), nil
}

// parquetRecord mirrors the spreadsheet columns; every column is optional.
type parquetRecord struct {
	Ordem     string `parquet:"ordem,optional"`
	Tipo      string `parquet:"tipo,optional"`
	Categoria string `parquet:"categoria,optional"`
	Texto     string `parquet:"texto,optional"`
	Valor     string `parquet:"valor,optional"`
	Cupom     string `parquet:"cupom,optional"`
	Legal     string `parquet:"legal,optional"`
	UF        string `parquet:"uf,optional"`
	Segmento  string `parquet:"segmento,optional"`
	Logo      string `parquet:"logo,optional"`
}

func (p parquetRecord) fields() map[string]string {
	return map[string]string{
		"ordem":     p.Ordem,
		"tipo":      p.Tipo,
		"categoria": p.Categoria,
		"texto":     p.Texto,
		"valor":     p.Valor,
		"cupom":     p.Cupom,
		"legal":     p.Legal,
		"uf":        p.UF,
		"segmento":  p.Segmento,
		"logo":      p.Logo,
	}
}

func (l *Loader) loadParquet() ([]models.RawRow, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[parquetRecord](pf)
	defer reader.Close()

	var rows []models.RawRow
	batch := make([]parquetRecord, 128)
	index := 0
	for {
		n, err := reader.Read(batch)
		for _, rec := range batch[:n] {
			index++
			if row, ok := newRow(index, sortedCells(rec.fields())); ok {
				rows = append(rows, row)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return rows, nil
}

func (l *Loader) loadJSONL() ([]models.RawRow, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var rows []models.RawRow
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)

	lineNum := 0
	index := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}

		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			if v == nil {
				continue
			}
			fields[k] = fmt.Sprint(v)
		}

		index++
		if row, ok := newRow(index, sortedCells(fields)); ok {
			rows = append(rows, row)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}
	return rows, nil
}

// fromTable treats the first row as the header.
func fromTable(table [][]string) []models.RawRow {
	if len(table) == 0 {
		return nil
	}
	header := table[0]

	var rows []models.RawRow
	for i, record := range table[1:] {
		cells := make([]cell, 0, len(header))
		for col, name := range header {
			if col < len(record) {
				cells = append(cells, cell{name: name, value: record[col]})
			}
		}
		if row, ok := newRow(i+1, cells); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// cell is one named value of a source row, in column order.
type cell struct {
	name  string
	value string
}

// sortedCells orders a keyed record by name so alias resolution does not
// depend on map iteration.
func sortedCells(raw map[string]string) []cell {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	slices.Sort(names)

	cells := make([]cell, 0, len(names))
	for _, name := range names {
		cells = append(cells, cell{name: name, value: raw[name]})
	}
	return cells
}

// newRow folds header names onto canonical keys. When several columns map
// to one key, the first non-empty one wins. Blank rows are rejected.
func newRow(index int, cells []cell) (models.RawRow, bool) {
	fields := make(map[string]string, len(cells))
	blank := true
	for _, c := range cells {
		key := CanonicalKey(c.name)
		if key == "" {
			continue
		}
		value := strings.TrimSpace(c.value)
		if value != "" {
			blank = false
		}
		if prev, seen := fields[key]; seen && (prev != "" || value == "") {
			continue
		}
		fields[key] = value
	}
	if blank {
		return models.RawRow{}, false
	}
	return models.RawRow{Index: index, Fields: fields}, true
}

// Canonical row keys beyond the display fields
const (
	KeyOrder    = "ordem"
	KeyType     = "tipo"
	KeyCategory = "categoria"
)

var aliases = map[string]string{
	"ordem":       KeyOrder,
	"order":       KeyOrder,
	"tipo":        KeyType,
	"type":        KeyType,
	"categoria":   KeyCategory,
	"category":    KeyCategory,
	"texto":       models.FieldText,
	"text":        models.FieldText,
	"valor":       models.FieldValue,
	"value":       models.FieldValue,
	"cupom":       models.FieldCoupon,
	"coupon":      models.FieldCoupon,
	"codigo":      models.FieldCoupon,
	"legal":       models.FieldLegal,
	"texto_legal": models.FieldLegal,
	"legal_text":  models.FieldLegal,
	"uf":          models.FieldRegion,
	"regiao":      models.FieldRegion,
	"region":      models.FieldRegion,
	"segmento":    models.FieldSegment,
	"segment":     models.FieldSegment,
	"logo":        models.FieldLogo,
	"logotipo":    models.FieldLogo,
}

// CanonicalKey maps a header such as "Texto Legal" to its row key, or the
// folded header itself when it has no alias.
func CanonicalKey(header string) string {
	key := utils.FoldKey(header)
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	return key
}
