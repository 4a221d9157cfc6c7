// Package journal composes a working directory's rendered cards into one
// combined document, grouped by category under colored banners.
package journal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/cardpress/internal/cardname"
	"github.com/lehigh-university-libraries/cardpress/internal/utils"
	"github.com/lehigh-university-libraries/cardpress/internal/workspace"
	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/sync/errgroup"
)

const (
	fontFamily  = "banner"
	bannerPad   = 24.0
	minFontSize = 6.0
	readWorkers = 8
)

// ErrNoCards means the working directory holds no rendered cards.
var ErrNoCards = errors.New("no cards found")

// InputError is a composition input that cannot be used: an unreadable card,
// a card that is not a PDF, or a bad banner font. Nothing is written.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("journal input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Options configures a Composer.
type Options struct {
	Layout
	CardsPerPage int
	FontPath     string
	Seed         uint64
}

// Composer builds the journal for one workspace.
type Composer struct {
	ws   *workspace.Workspace
	opts Options
}

// Result describes a written journal.
type Result struct {
	Path         string
	ManifestPath string
	Cards        int
	Pages        []PagePlan
	Colors       []CategoryColor
	// Checksums maps each embedded card file to its MD5.
	Checksums map[string]string
}

// PagePlan is a composite page with its resolved geometry and color.
type PagePlan struct {
	Page
	Color      RGB
	CardHeight float64
	Height     float64
}

type source struct {
	entry workspace.Entry
	data  []byte
	w, h  float64
}

// NewComposer creates a composer for ws.
func NewComposer(ws *workspace.Workspace, opts Options) *Composer {
	if opts.Columns < 1 {
		opts.Columns = 3
	}
	if opts.CardsPerPage < 1 {
		opts.CardsPerPage = 15
	}
	return &Composer{ws: ws, opts: opts}
}

// Compose writes the journal and its manifest into the working directory.
// Cards are embedded as imported pages, never re-rendered.
func (c *Composer) Compose(ctx context.Context) (*Result, error) {
	entries, err := c.ws.ListCards()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCards, c.ws.Dir)
	}

	font, err := c.loadFont()
	if err != nil {
		return nil, err
	}

	sources, err := readSources(ctx, entries)
	if err != nil {
		return nil, err
	}

	ordered := SortCards(entries)
	pages := Paginate(GroupByCategory(ordered), c.opts.CardsPerPage, c.opts.Columns)
	registry := NewColorRegistry(c.opts.Seed)
	plans := make([]PagePlan, 0, len(pages))
	for _, p := range pages {
		cellH := 0.0
		for _, e := range p.Cards {
			s := sources[e.Seq]
			cellH = max(cellH, c.opts.CardHeight(s.w, s.h))
		}
		plans = append(plans, PagePlan{
			Page:       p,
			Color:      registry.Assign(p.Category),
			CardHeight: cellH,
			Height:     c.opts.PageHeight(p.Rows, cellH),
		})
	}

	res := &Result{
		Path:         c.ws.JournalPath(),
		ManifestPath: c.ws.ManifestPath(),
		Cards:        len(entries),
		Pages:        plans,
		Colors:       registry.Assigned(),
		Checksums:    make(map[string]string, len(sources)),
	}
	for _, s := range sources {
		res.Checksums[s.entry.Filename] = utils.CalculateDataMD5(s.data)
	}

	err = workspace.WriteFileAtomic(res.Path, func(w io.Writer) error {
		return c.write(w, plans, sources, font)
	})
	if err != nil {
		return nil, err
	}
	if err := writeManifest(res); err != nil {
		// a journal without its manifest is not a finished composition
		if rmErr := os.Remove(res.Path); rmErr != nil {
			slog.Error("Unable to remove journal after manifest failure", "path", res.Path, "err", rmErr)
		}
		return nil, err
	}

	slog.Info("Journal composed", "path", res.Path, "cards", res.Cards, "pages", len(plans), "categories", len(res.Colors))
	return res, nil
}

func (c *Composer) loadFont() ([]byte, error) {
	if c.opts.FontPath == "" {
		return gobold.TTF, nil
	}
	data, err := os.ReadFile(c.opts.FontPath)
	if err != nil {
		return nil, &InputError{Path: c.opts.FontPath, Err: err}
	}
	return data, nil
}

// readSources loads every card and reads its native page size. The result
// is indexed by Entry.Seq.
func readSources(ctx context.Context, entries []workspace.Entry) ([]source, error) {
	sources := make([]source, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readWorkers)
	for _, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(e.Path)
			if err != nil {
				return &InputError{Path: e.Path, Err: err}
			}
			w, h, err := pageSize(data)
			if err != nil {
				return &InputError{Path: e.Path, Err: err}
			}
			sources[e.Seq] = source{entry: e, data: data, w: w, h: h}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

// pageSize reads the first page's MediaBox and imports the page once so
// that cards the composer cannot embed, such as pages without a content
// stream, are rejected before the journal is written. The PDF importer
// panics on malformed input, so that is turned into an error.
func pageSize(data []byte) (w, h float64, err error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return 0, 0, errors.New("not a PDF document")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unreadable PDF: %v", r)
		}
	}()

	var inspect gopdf.GoPdf
	inspect.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4, Unit: gopdf.UnitPT})
	var rs io.ReadSeeker = bytes.NewReader(data)
	sizes := inspect.GetStreamPageSizes(&rs)
	box, ok := sizes[1]["/MediaBox"]
	if !ok {
		return 0, 0, errors.New("PDF has no first page")
	}
	w, h = box["w"], box["h"]
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid page size %.1fx%.1f", w, h)
	}

	var page io.ReadSeeker = bytes.NewReader(data)
	inspect.ImportPageStream(&page, 1, "/MediaBox")
	return w, h, nil
}

func (c *Composer) write(out io.Writer, plans []PagePlan, sources []source, font []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InputError{Path: c.ws.Dir, Err: fmt.Errorf("failed to embed card: %v", r)}
		}
	}()

	l := c.opts.Layout
	pageW := l.PageWidth()

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: gopdf.Rect{W: pageW, H: l.PageHeight(1, l.CardWidth)}, Unit: gopdf.UnitPT})
	if err := pdf.AddTTFFontData(fontFamily, font); err != nil {
		return &InputError{Path: c.opts.FontPath, Err: fmt.Errorf("failed to load banner font: %w", err)}
	}

	// one reader per card; the importer keys its sources by pointer
	readers := make([]io.ReadSeeker, len(sources))
	for i, s := range sources {
		readers[i] = bytes.NewReader(s.data)
	}

	for _, p := range plans {
		pdf.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{W: pageW, H: p.Height}})

		if err := c.drawBanner(pdf, p); err != nil {
			return err
		}

		for i, e := range p.Cards {
			s := sources[e.Seq]
			x, y := l.CellOrigin(i, p.CardHeight)
			tpl := pdf.ImportPageStream(&readers[e.Seq], 1, "/MediaBox")
			pdf.UseImportedTemplate(tpl, x, y, l.CardWidth, l.CardHeight(s.w, s.h))
		}
	}

	return pdf.Write(out)
}

func (c *Composer) drawBanner(pdf *gopdf.GoPdf, p PagePlan) error {
	l := c.opts.Layout
	x0, y0 := l.Margin, l.Margin
	bw, bh := l.BannerWidth(), l.BannerHeight

	pdf.SetFillColor(p.Color.R, p.Color.G, p.Color.B)
	if err := pdf.Rectangle(x0, y0, x0+bw, y0+bh, "F", l.BannerRadiusFor(), 8); err != nil {
		return fmt.Errorf("failed to draw banner: %w", err)
	}

	label := BannerLabel(p.Category)
	size, err := FitFontSize(func(size float64) (float64, error) {
		if err := pdf.SetFont(fontFamily, "", size); err != nil {
			return 0, err
		}
		return pdf.MeasureTextWidth(label)
	}, bw-2*bannerPad, bh*0.6, minFontSize)
	if err != nil {
		return fmt.Errorf("failed to size banner label: %w", err)
	}
	if err := pdf.SetFont(fontFamily, "", size); err != nil {
		return err
	}

	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(x0, y0)
	return pdf.CellWithOption(&gopdf.Rect{W: bw, H: bh}, label, gopdf.CellOption{Align: gopdf.Center | gopdf.Middle})
}

// BannerLabel is the upper-cased, human-readable category.
func BannerLabel(category string) string {
	return cardname.Label(cardname.SanitizeCategory(category))
}
