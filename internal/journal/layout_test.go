package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLayout = Layout{
	Columns:      3,
	CardWidth:    400,
	Gap:          20,
	Margin:       40,
	BannerHeight: 120,
	BannerRadius: 24,
}

func TestLayoutGeometry(t *testing.T) {
	assert.InDelta(t, 1320, testLayout.PageWidth(), 1e-9)
	assert.InDelta(t, 1240, testLayout.BannerWidth(), 1e-9)
	assert.InDelta(t, 604.2857, testLayout.CardHeight(1400, 2115), 1e-3)
	assert.InDelta(t, 400, testLayout.CardHeight(0, 10), 1e-9)

	// margin + banner + gap + 2 rows + 1 gap + margin
	assert.InDelta(t, 40+120+20+2*600+20+40, testLayout.PageHeight(2, 600), 1e-9)

	x, y := testLayout.CellOrigin(0, 600)
	assert.Equal(t, []float64{40, 180}, []float64{x, y})
	x, y = testLayout.CellOrigin(2, 600)
	assert.Equal(t, []float64{880, 180}, []float64{x, y})
	x, y = testLayout.CellOrigin(4, 600)
	assert.Equal(t, []float64{460, 800}, []float64{x, y})
}

func TestBannerRadiusClamped(t *testing.T) {
	l := testLayout
	l.BannerRadius = 500
	assert.InDelta(t, 60, l.BannerRadiusFor(), 1e-9)
}

func TestFitFontSize(t *testing.T) {
	// width grows linearly: 10 glyphs at 0.5em
	measure := func(size float64) (float64, error) { return 5 * size, nil }

	size, err := FitFontSize(measure, 1000, 72, 6)
	require.NoError(t, err)
	assert.Equal(t, 72.0, size)

	size, err = FitFontSize(measure, 200, 72, 6)
	require.NoError(t, err)
	assert.LessOrEqual(t, 5*size, 200.0)
	assert.Greater(t, size, 39.5)

	size, err = FitFontSize(measure, 1, 72, 6)
	require.NoError(t, err)
	assert.Equal(t, 6.0, size)
}
