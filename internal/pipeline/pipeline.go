// Package pipeline wires the stages together: load, normalize, render and
// archive on one side, journal composition on the other.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/cardpress/internal/archive"
	"github.com/lehigh-university-libraries/cardpress/internal/assets"
	"github.com/lehigh-university-libraries/cardpress/internal/cardname"
	"github.com/lehigh-university-libraries/cardpress/internal/config"
	"github.com/lehigh-university-libraries/cardpress/internal/journal"
	"github.com/lehigh-university-libraries/cardpress/internal/models"
	"github.com/lehigh-university-libraries/cardpress/internal/normalize"
	"github.com/lehigh-university-libraries/cardpress/internal/records"
	"github.com/lehigh-university-libraries/cardpress/internal/render"
	"github.com/lehigh-university-libraries/cardpress/internal/workspace"
)

// Generator runs the render pipeline against a shared engine and asset
// stores. It is safe to use from several sessions at once as long as each
// uses its own workspace.
type Generator struct {
	cfg       *config.Config
	engine    render.Engine
	templates *assets.Templates
	logos     *assets.Logos
	now       func() time.Time
}

// Output is what a generation run produced.
type Output struct {
	Cards       []models.RenderedCard
	Dropped     []models.RowError
	ArchivePath string
}

// NewGenerator builds a generator; engine is shared and must be safe for
// concurrent use.
func NewGenerator(cfg *config.Config, engine render.Engine) *Generator {
	return &Generator{
		cfg:       cfg,
		engine:    engine,
		templates: assets.NewTemplates(cfg.TemplatesDir, cfg.Render.CacheTTL),
		logos:     assets.NewLogos(cfg.LogosDir, cfg.Render.CacheTTL),
		now:       time.Now,
	}
}

// Schema is the filename schema selected by configuration.
func Schema(cfg *config.Config) cardname.Schema {
	return cardname.Schema{WithCategory: cfg.Render.CategoryInFilename}
}

// Workspace describes dir with the configured schema and artifact names.
func Workspace(cfg *config.Config, dir string) *workspace.Workspace {
	ws := workspace.New(dir, Schema(cfg))
	if cfg.Journal.OutputName != "" {
		ws.JournalName = cfg.Journal.OutputName
	}
	if cfg.Journal.ManifestName != "" {
		ws.ManifestName = cfg.Journal.ManifestName
	}
	return ws
}

// Generate loads input, renders every renderable row into ws and archives
// the result. Unless keepExisting is set, earlier artifacts in ws are
// removed first. Dropped and skipped rows are returned in Output.Dropped;
// Output is returned alongside an error so partial results can be reported.
func (g *Generator) Generate(ctx context.Context, input string, ws *workspace.Workspace, keepExisting bool, onProgress render.ProgressFunc) (*Output, error) {
	rows, err := records.NewLoader(input).Load()
	if err != nil {
		return nil, err
	}
	recs, dropped := normalize.NormalizeAll(rows)
	slog.Info("Records loaded", "input", input, "rows", len(rows), "valid", len(recs), "dropped", len(dropped))

	if err := ws.Ensure(); err != nil {
		return nil, err
	}
	if !keepExisting {
		if err := ws.Reset(); err != nil {
			return nil, err
		}
	}

	r := render.New(g.engine, g.templates, g.logos, ws.Dir, render.Options{
		Width:   g.cfg.Render.Width,
		Height:  g.cfg.Render.Height,
		Workers: g.cfg.Render.Workers,
		Schema:  ws.Schema,
	})
	res, err := r.RenderAll(ctx, recs, onProgress)
	out := &Output{Dropped: dropped}
	if res != nil {
		out.Cards = res.Cards
		out.Dropped = append(out.Dropped, res.Skipped...)
	}
	if err != nil {
		return out, err
	}

	dest := ws.Path(workspace.ArchiveName(g.now()))
	if _, err := archive.Build(ws, dest); err != nil {
		return out, fmt.Errorf("failed to archive cards: %w", err)
	}
	out.ArchivePath = dest
	return out, nil
}

// Compose builds the journal for ws using the configured layout.
func Compose(ctx context.Context, cfg *config.Config, ws *workspace.Workspace) (*journal.Result, error) {
	j := cfg.Journal
	c := journal.NewComposer(ws, journal.Options{
		Layout: journal.Layout{
			Columns:      j.Columns,
			CardWidth:    j.CardWidth,
			Gap:          j.Gap,
			Margin:       j.Margin,
			BannerHeight: j.BannerHeight,
			BannerRadius: j.BannerRadius,
		},
		CardsPerPage: j.CardsPerPage,
		FontPath:     j.FontPath,
		Seed:         uint64(j.Seed),
	})
	return c.Compose(ctx)
}

// NewEngine creates the headless browser engine from configuration.
func NewEngine(cfg *config.Config) *render.RodEngine {
	return render.NewRodEngine(render.RodConfig{
		Bin:       cfg.Render.BrowserBin,
		NoSandbox: cfg.Render.NoSandbox,
		IdleWait:  cfg.Render.IdleWait,
		Timeout:   cfg.Render.NavigationTimeout,
	})
}
