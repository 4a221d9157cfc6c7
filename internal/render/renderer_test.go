package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lehigh-university-libraries/cardpress/internal/assets"
	"github.com/lehigh-university-libraries/cardpress/internal/cardname"
	"github.com/lehigh-university-libraries/cardpress/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeEngine struct {
	mu    sync.Mutex
	calls []string
	fail  error
	hook  func(n int)
}

func (f *fakeEngine) RenderPDF(_ context.Context, html string, _, _ int) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, html)
	n := len(f.calls)
	f.mu.Unlock()

	if f.hook != nil {
		f.hook(n)
	}
	if f.fail != nil {
		return nil, f.fail
	}
	return []byte("%PDF-1.4\n" + html), nil
}

func setupAssets(t *testing.T, tags ...models.TypeTag) (*assets.Templates, *assets.Logos) {
	t.Helper()
	tmplDir := t.TempDir()
	logoDir := t.TempDir()
	for _, tag := range tags {
		require.NoError(t, os.WriteFile(filepath.Join(tmplDir, string(tag)+".html"), []byte("<p>{{TEXTO}} {{VALOR}}</p>"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(logoDir, "blank.svg"), []byte("<svg/>"), 0644))
	return assets.NewTemplates(tmplDir, 0), assets.NewLogos(logoDir, 0)
}

func record(row int, order string, tag models.TypeTag, category, text string) models.CanonicalRecord {
	return models.CanonicalRecord{
		Row:      row,
		Order:    order,
		Type:     tag,
		Category: category,
		Fields: map[string]string{
			models.FieldText:  text,
			models.FieldValue: "10",
		},
	}
}

func TestRenderAllSequential(t *testing.T) {
	templates, logos := setupAssets(t, models.TypeCoupon, models.TypePromotion)
	dir := t.TempDir()
	engine := &fakeEngine{}
	r := New(engine, templates, logos, dir, Options{Width: 1400, Height: 2115, Schema: cardname.Schema{WithCategory: true}})

	recs := []models.CanonicalRecord{
		record(1, "1", models.TypeCoupon, "BEBIDAS", "a"),
		record(2, "2", models.TypeBC, "BEBIDAS", "b"),
		record(3, "3", models.TypePromotion, "SEM_CATEGORIA", "c"),
	}

	var events []models.Progress
	res, err := r.RenderAll(context.Background(), recs, func(p models.Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)

	require.Len(t, res.Cards, 2)
	assert.Equal(t, "1_CUPOM_BEBIDAS.pdf", res.Cards[0].Filename)
	assert.Equal(t, "3_PROMOCAO_SEM_CATEGORIA.pdf", res.Cards[1].Filename)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 2, res.Skipped[0].Row)
	assert.True(t, errors.Is(res.Skipped[0], assets.ErrTemplateNotFound))

	assert.Equal(t, []models.Progress{
		{Total: 2, Processed: 1, Percentage: 50, CurrentCard: "1/2"},
		{Total: 2, Processed: 2, Percentage: 100, CurrentCard: "2/2"},
	}, events)

	data, err := os.ReadFile(filepath.Join(dir, "1_CUPOM_BEBIDAS.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4\n<p>a 10%</p>", string(data))
	assert.Equal(t, []string{"<p>a 10%</p>", "<p>c 10</p>"}, engine.calls)
}

func TestRenderAllDuplicateNames(t *testing.T) {
	templates, logos := setupAssets(t, models.TypeDrop)
	dir := t.TempDir()
	r := New(&fakeEngine{}, templates, logos, dir, Options{Width: 10, Height: 10})

	res, err := r.RenderAll(context.Background(), []models.CanonicalRecord{
		record(1, "7", models.TypeDrop, "X", "a"),
		record(2, "7", models.TypeDrop, "Y", "b"),
	}, nil)
	require.NoError(t, err)
	require.Len(t, res.Cards, 2)
	assert.Equal(t, "7_QUEDA.pdf", res.Cards[0].Filename)
	assert.Equal(t, "7-2_QUEDA.pdf", res.Cards[1].Filename)

	key, ok := cardname.OrderKey("7-2")
	assert.True(t, ok)
	assert.Equal(t, 7.0, key)
}

func TestRenderAllDuplicateNamesAfterSuffix(t *testing.T) {
	templates, logos := setupAssets(t, models.TypeCoupon)
	dir := t.TempDir()
	r := New(&fakeEngine{}, templates, logos, dir, Options{Width: 10, Height: 10})

	res, err := r.RenderAll(context.Background(), []models.CanonicalRecord{
		record(1, "1-3", models.TypeCoupon, "X", "a"),
		record(2, "1", models.TypeCoupon, "X", "b"),
		record(3, "1", models.TypeCoupon, "X", "c"),
	}, nil)
	require.NoError(t, err)
	require.Len(t, res.Cards, 3)

	seen := make(map[string]bool)
	for _, card := range res.Cards {
		assert.False(t, seen[card.Filename], "duplicate filename %s", card.Filename)
		seen[card.Filename] = true
		assert.FileExists(t, filepath.Join(dir, card.Filename))
	}
	assert.Equal(t, "1-3_CUPOM.pdf", res.Cards[0].Filename)
	assert.Equal(t, "1_CUPOM.pdf", res.Cards[1].Filename)
	assert.Equal(t, "1-3-2_CUPOM.pdf", res.Cards[2].Filename)
}

func TestRenderAllMissingLogoSkipsRow(t *testing.T) {
	templates, logos := setupAssets(t, models.TypeCoupon)
	r := New(&fakeEngine{}, templates, logos, t.TempDir(), Options{Width: 10, Height: 10})

	rec := record(4, "1", models.TypeCoupon, "X", "a")
	rec.Fields[models.FieldLogo] = "nowhere"
	res, err := r.RenderAll(context.Background(), []models.CanonicalRecord{rec}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Cards)
	require.Len(t, res.Skipped, 1)
	assert.True(t, errors.Is(res.Skipped[0], assets.ErrLogoNotFound))
}

func TestRenderAllBlankLogoMissingIsFatal(t *testing.T) {
	templates, _ := setupAssets(t, models.TypeCoupon)
	logos := assets.NewLogos(t.TempDir(), 0)
	r := New(&fakeEngine{}, templates, logos, t.TempDir(), Options{Width: 10, Height: 10})

	_, err := r.RenderAll(context.Background(), []models.CanonicalRecord{record(1, "1", models.TypeCoupon, "X", "a")}, nil)
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.True(t, errors.Is(err, assets.ErrBlankLogoMissing))
}

func TestRenderAllEngineFailure(t *testing.T) {
	templates, logos := setupAssets(t, models.TypeCoupon)
	dir := t.TempDir()
	boom := errors.New("browser crashed")
	r := New(&fakeEngine{fail: boom}, templates, logos, dir, Options{Width: 10, Height: 10})

	res, err := r.RenderAll(context.Background(), []models.CanonicalRecord{record(1, "1", models.TypeCoupon, "X", "a")}, nil)
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, res.Cards)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRenderAllRejectsNonPDF(t *testing.T) {
	templates, logos := setupAssets(t, models.TypeCoupon)
	r := New(engineFunc(func() ([]byte, error) { return []byte("<html>"), nil }), templates, logos, t.TempDir(), Options{Width: 10, Height: 10})

	_, err := r.RenderAll(context.Background(), []models.CanonicalRecord{record(1, "1", models.TypeCoupon, "X", "a")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-PDF")
}

type engineFunc func() ([]byte, error)

func (f engineFunc) RenderPDF(context.Context, string, int, int) ([]byte, error) {
	return f()
}

func TestRenderAllCancelFinishesInFlightCard(t *testing.T) {
	templates, logos := setupAssets(t, models.TypeCoupon)
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := &fakeEngine{hook: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	r := New(engine, templates, logos, dir, Options{Width: 10, Height: 10})

	recs := []models.CanonicalRecord{
		record(1, "1", models.TypeCoupon, "", "a"),
		record(2, "2", models.TypeCoupon, "", "b"),
		record(3, "3", models.TypeCoupon, "", "c"),
		record(4, "4", models.TypeCoupon, "", "d"),
	}
	res, err := r.RenderAll(ctx, recs, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "interrupted after 2 of 4 cards")
	assert.Len(t, res.Cards, 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRenderAllParallel(t *testing.T) {
	templates, logos := setupAssets(t, models.TypeCoupon)
	dir := t.TempDir()
	r := New(&fakeEngine{}, templates, logos, dir, Options{Width: 10, Height: 10, Workers: 4})

	var recs []models.CanonicalRecord
	for i := 1; i <= 20; i++ {
		recs = append(recs, record(i, string(rune('a'+i)), models.TypeCoupon, "", "x"))
	}

	var processed []int
	res, err := r.RenderAll(context.Background(), recs, func(p models.Progress) {
		processed = append(processed, p.Processed)
		assert.Equal(t, 20, p.Total)
	})
	require.NoError(t, err)
	require.Len(t, res.Cards, 20)
	for i, card := range res.Cards {
		assert.Equal(t, i+1, card.Row)
	}
	for i, n := range processed {
		assert.Equal(t, i+1, n)
	}
}

func TestNewProgress(t *testing.T) {
	assert.Equal(t, models.Progress{Total: 3, Processed: 1, Percentage: 33, CurrentCard: "1/3"}, NewProgress(1, 3))
	assert.Equal(t, models.Progress{Total: 3, Processed: 2, Percentage: 67, CurrentCard: "2/3"}, NewProgress(2, 3))
	assert.Equal(t, 0, NewProgress(0, 0).Percentage)
}
