package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Engine turns markup into a fixed-size single-page PDF. Implementations must
// be safe for concurrent use when the renderer runs more than one worker.
type Engine interface {
	RenderPDF(ctx context.Context, html string, width, height int) ([]byte, error)
}

// RodConfig configures the headless Chromium engine.
type RodConfig struct {
	// Bin is the browser binary; empty lets rod find or download one.
	Bin       string
	NoSandbox bool
	// IdleWait is how long the network must stay quiet before capture.
	IdleWait time.Duration
	// Timeout bounds one card from navigation to PDF capture.
	Timeout time.Duration
	// TmpDir holds the transient HTML files; empty uses the OS temp dir.
	TmpDir string
}

// RodEngine renders cards with one shared headless Chromium; each card gets
// its own tab.
type RodEngine struct {
	cfg      RodConfig
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// NewRodEngine creates an engine; the browser starts lazily or via Start.
func NewRodEngine(cfg RodConfig) *RodEngine {
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &RodEngine{cfg: cfg}
}

// Start launches the browser if it is not running yet.
func (e *RodEngine) Start(ctx context.Context) error {
	_, err := e.ensure(ctx)
	return err
}

// ensure starts the browser on first use. The browser outlives ctx; only
// Close stops it.
func (e *RodEngine) ensure(ctx context.Context) (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser != nil {
		return e.browser, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := launcher.New().Headless(true).NoSandbox(e.cfg.NoSandbox)
	if e.cfg.Bin != "" {
		l = l.Bin(e.cfg.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	slog.Info("Headless browser started", "bin", e.cfg.Bin)
	e.browser = browser
	e.launcher = l
	return browser, nil
}

// Close shuts the browser down.
func (e *RodEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.browser != nil {
		err = e.browser.Close()
		e.browser = nil
	}
	if e.launcher != nil {
		e.launcher.Cleanup()
		e.launcher = nil
	}
	return err
}

// RenderPDF loads html from a temp file, waits for network idle and prints
// one width x height page with backgrounds.
func (e *RodEngine) RenderPDF(ctx context.Context, html string, width, height int) ([]byte, error) {
	browser, err := e.ensure(ctx)
	if err != nil {
		return nil, err
	}

	htmlPath, err := e.writeHTML(html)
	if err != nil {
		return nil, err
	}
	defer os.Remove(htmlPath)

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	tctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	p := page.Context(tctx)

	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	wait := p.WaitRequestIdle(e.cfg.IdleWait, nil, nil, []proto.NetworkResourceType{
		proto.NetworkResourceTypeWebSocket,
		proto.NetworkResourceTypeEventSource,
	})
	if err := p.Navigate(fileURL(htmlPath)); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	wait()
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	if err := tctx.Err(); err != nil {
		return nil, fmt.Errorf("page did not settle: %w", err)
	}

	// CSS pixels to inches at 96 dpi
	paperW := float64(width) / 96
	paperH := float64(height) / 96
	zero := 0.0
	stream, err := p.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      &paperW,
		PaperHeight:     &paperH,
		MarginTop:       &zero,
		MarginBottom:    &zero,
		MarginLeft:      &zero,
		MarginRight:     &zero,
		PageRanges:      "1",
	})
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("print pdf: empty document")
	}
	return data, nil
}

func (e *RodEngine) writeHTML(html string) (string, error) {
	f, err := os.CreateTemp(e.cfg.TmpDir, "card-*.html")
	if err != nil {
		return "", fmt.Errorf("failed to create temp html: %w", err)
	}
	if _, err := f.WriteString(html); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp html: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close temp html: %w", err)
	}
	return f.Name(), nil
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}
