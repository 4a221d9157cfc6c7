package journal

// Layout holds the composite page geometry, in points.
type Layout struct {
	Columns      int
	CardWidth    float64
	Gap          float64
	Margin       float64
	BannerHeight float64
	BannerRadius float64
}

// PageWidth is constant across the journal.
func (l Layout) PageWidth() float64 {
	cols := float64(l.Columns)
	return 2*l.Margin + cols*l.CardWidth + (cols-1)*l.Gap
}

// BannerWidth spans the page between the margins.
func (l Layout) BannerWidth() float64 {
	return l.PageWidth() - 2*l.Margin
}

// CardHeight scales a native card size to the target card width.
func (l Layout) CardHeight(nativeW, nativeH float64) float64 {
	if nativeW <= 0 {
		return l.CardWidth
	}
	return l.CardWidth * nativeH / nativeW
}

// PageHeight fits the banner plus rows of cells of height cellH.
func (l Layout) PageHeight(rows int, cellH float64) float64 {
	r := float64(rows)
	return l.Margin + l.BannerHeight + l.Gap + r*cellH + (r-1)*l.Gap + l.Margin
}

// CellOrigin is the top-left corner of the i-th cell, filled left to right
// then top to bottom.
func (l Layout) CellOrigin(i int, cellH float64) (x, y float64) {
	col := float64(i % l.Columns)
	row := float64(i / l.Columns)
	x = l.Margin + col*(l.CardWidth+l.Gap)
	y = l.Margin + l.BannerHeight + l.Gap + row*(cellH+l.Gap)
	return x, y
}

// BannerRadiusFor clamps the corner radius to what the banner can hold.
func (l Layout) BannerRadiusFor() float64 {
	return min(l.BannerRadius, l.BannerHeight/2, l.BannerWidth()/2)
}

// FitFontSize finds the largest size, at most maxSize, whose measured width
// fits maxWidth. measure returns the text width at a given size.
func FitFontSize(measure func(size float64) (float64, error), maxWidth, maxSize, minSize float64) (float64, error) {
	w, err := measure(maxSize)
	if err != nil {
		return 0, err
	}
	if w <= maxWidth {
		return maxSize, nil
	}

	lo, hi := minSize, maxSize
	for hi-lo > 0.25 {
		mid := (lo + hi) / 2
		w, err := measure(mid)
		if err != nil {
			return 0, err
		}
		if w <= maxWidth {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, nil
}
