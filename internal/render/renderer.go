// Package render turns canonical records into standalone single-card PDFs.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"

	"github.com/lehigh-university-libraries/cardpress/internal/assets"
	"github.com/lehigh-university-libraries/cardpress/internal/cardname"
	"github.com/lehigh-university-libraries/cardpress/internal/models"
	"github.com/lehigh-university-libraries/cardpress/internal/workspace"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives one event per written card, in increasing
// Processed order. It is never called concurrently.
type ProgressFunc func(models.Progress)

// RenderError aborts a batch: engine failure, template read failure, a
// failed write or an interruption. Cards written before it stay on disk.
type RenderError struct {
	Row  int
	Card string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s (row %d): %v", e.Card, e.Row, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Options configures a Renderer.
type Options struct {
	Width   int
	Height  int
	Workers int
	Schema  cardname.Schema
}

// Renderer renders records into a working directory.
type Renderer struct {
	engine    Engine
	templates *assets.Templates
	logos     *assets.Logos
	dir       string
	opts      Options
}

// Result is the outcome of RenderAll.
type Result struct {
	Cards   []models.RenderedCard
	Skipped []models.RowError
}

// New creates a renderer writing into dir.
func New(engine Engine, templates *assets.Templates, logos *assets.Logos, dir string, opts Options) *Renderer {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Renderer{
		engine:    engine,
		templates: templates,
		logos:     logos,
		dir:       dir,
		opts:      opts,
	}
}

type job struct {
	rec      models.CanonicalRecord
	html     string
	filename string
}

// RenderAll renders every renderable record in input order. Rows whose
// template or logo is missing are skipped and reported in Result.Skipped;
// any other failure stops the batch with a *RenderError. Cancelling ctx
// lets the in-flight card finish, then stops.
func (r *Renderer) RenderAll(ctx context.Context, recs []models.CanonicalRecord, onProgress ProgressFunc) (*Result, error) {
	jobs, skipped, err := r.prepare(recs)
	res := &Result{Skipped: skipped}
	if err != nil {
		return res, err
	}

	slog.Info("Rendering cards", "total", len(jobs), "skipped", len(skipped), "workers", r.opts.Workers)
	if len(jobs) == 0 {
		return res, nil
	}

	if r.opts.Workers == 1 {
		res.Cards, err = r.renderSequential(ctx, jobs, onProgress)
	} else {
		res.Cards, err = r.renderParallel(ctx, jobs, onProgress)
	}
	return res, err
}

// prepare resolves templates and logos so total reflects the cards that
// will actually be produced.
func (r *Renderer) prepare(recs []models.CanonicalRecord) ([]job, []models.RowError, error) {
	var jobs []job
	var skipped []models.RowError
	used := make(map[string]bool, len(recs))

	for _, rec := range recs {
		tmpl, err := r.templates.Load(rec.Type)
		if err != nil {
			if errors.Is(err, assets.ErrTemplateNotFound) {
				skipped = append(skipped, skip(rec, "missing template", err))
				continue
			}
			return nil, skipped, &RenderError{Row: rec.Row, Card: rec.Type.Label(), Err: err}
		}

		logo, err := r.logos.DataURI(rec.Field(models.FieldLogo))
		if err != nil {
			if errors.Is(err, assets.ErrLogoNotFound) {
				skipped = append(skipped, skip(rec, "missing logo", err))
				continue
			}
			return nil, skipped, &RenderError{Row: rec.Row, Card: rec.Type.Label(), Err: err}
		}

		name := cardname.For(rec)
		filename := r.opts.Schema.Encode(name)
		if used[filename] {
			// same order, type and category: keep one file per record
			base := cardname.SanitizeOrder(name.Order) + "-" + strconv.Itoa(rec.Row)
			name.Order = base
			filename = r.opts.Schema.Encode(name)
			for n := 2; used[filename]; n++ {
				name.Order = base + "-" + strconv.Itoa(n)
				filename = r.opts.Schema.Encode(name)
			}
		}
		used[filename] = true

		jobs = append(jobs, job{rec: rec, html: Fill(tmpl, rec, logo), filename: filename})
	}
	return jobs, skipped, nil
}

func skip(rec models.CanonicalRecord, reason string, err error) models.RowError {
	slog.Warn("Row skipped", "row", rec.Row, "type", rec.Type, "reason", reason, "error", err)
	return models.RowError{Row: rec.Row, Reason: reason, Err: err}
}

func (r *Renderer) renderSequential(ctx context.Context, jobs []job, onProgress ProgressFunc) ([]models.RenderedCard, error) {
	cards := make([]models.RenderedCard, 0, len(jobs))
	for i, j := range jobs {
		if err := ctx.Err(); err != nil {
			return cards, interrupted(j, i, len(jobs), err)
		}
		card, err := r.renderOne(ctx, j)
		if err != nil {
			return cards, err
		}
		cards = append(cards, card)
		report(onProgress, i+1, len(jobs), card)
	}
	return cards, nil
}

// renderParallel fans jobs out to a bounded pool; a single aggregator
// serializes progress so Processed still increases one at a time.
func (r *Renderer) renderParallel(ctx context.Context, jobs []job, onProgress ProgressFunc) ([]models.RenderedCard, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	slots := make([]models.RenderedCard, len(jobs))
	written := make([]bool, len(jobs))
	done := make(chan int, r.opts.Workers)
	aggregated := make(chan struct{})

	go func() {
		defer close(aggregated)
		processed := 0
		for idx := range done {
			processed++
			report(onProgress, processed, len(jobs), slots[idx])
		}
	}()

	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return interrupted(j, i, len(jobs), err)
			}
			card, err := r.renderOne(gctx, j)
			if err != nil {
				return err
			}
			slots[i] = card
			written[i] = true
			done <- i
			return nil
		})
	}

	err := g.Wait()
	close(done)
	<-aggregated

	cards := make([]models.RenderedCard, 0, len(jobs))
	for i, ok := range written {
		if ok {
			cards = append(cards, slots[i])
		}
	}
	if err != nil && ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		// the first failure may be a sibling's cancellation; report the interrupt
		return cards, &RenderError{Card: "batch", Err: fmt.Errorf("interrupted after %d of %d cards: %w", len(cards), len(jobs), ctx.Err())}
	}
	return cards, err
}

// renderOne renders and durably writes one card. The engine call is not
// cut short by ctx so no card is abandoned half way.
func (r *Renderer) renderOne(ctx context.Context, j job) (models.RenderedCard, error) {
	pdf, err := r.engine.RenderPDF(context.WithoutCancel(ctx), j.html, r.opts.Width, r.opts.Height)
	if err != nil {
		return models.RenderedCard{}, &RenderError{Row: j.rec.Row, Card: j.filename, Err: err}
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		return models.RenderedCard{}, &RenderError{Row: j.rec.Row, Card: j.filename, Err: errors.New("engine returned a non-PDF document")}
	}

	path := filepath.Join(r.dir, j.filename)
	if err := workspace.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(pdf)
		return err
	}); err != nil {
		return models.RenderedCard{}, &RenderError{Row: j.rec.Row, Card: j.filename, Err: err}
	}

	return models.RenderedCard{
		Row:      j.rec.Row,
		Order:    j.rec.Order,
		Type:     j.rec.Type,
		Category: j.rec.Category,
		Filename: j.filename,
		Path:     path,
		Width:    r.opts.Width,
		Height:   r.opts.Height,
	}, nil
}

func interrupted(j job, done, total int, err error) error {
	return &RenderError{
		Row:  j.rec.Row,
		Card: j.filename,
		Err:  fmt.Errorf("interrupted after %d of %d cards: %w", done, total, err),
	}
}

// NewProgress builds the event for processed of total cards.
func NewProgress(processed, total int) models.Progress {
	pct := 0
	if total > 0 {
		pct = int(math.Round(float64(processed) / float64(total) * 100))
	}
	return models.Progress{
		Total:       total,
		Processed:   processed,
		Percentage:  pct,
		CurrentCard: fmt.Sprintf("%d/%d", processed, total),
	}
}

func report(onProgress ProgressFunc, processed, total int, card models.RenderedCard) {
	p := NewProgress(processed, total)
	slog.Info("Card rendered", "file", card.Filename, "progress", p.CurrentCard, "percentage", p.Percentage)
	if onProgress != nil {
		onProgress(p)
	}
}
