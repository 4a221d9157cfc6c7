package journal

import (
	"math"
	"math/rand/v2"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	goldenAngle = 137.50776405003785
	// minDistance is the smallest CIEDE2000 distance tolerated between two
	// banner colors before a candidate is rejected.
	minDistance = 12.0
	maxAttempts = 64
)

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

// Hex formats the color as #rrggbb.
func (c RGB) Hex() string {
	return c.color().Hex()
}

func (c RGB) color() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// ColorRegistry hands out one distinct banner color per category. It belongs
// to a single composition run and is not safe for concurrent use.
type ColorRegistry struct {
	rng      *rand.Rand
	hue      float64
	assigned map[string]RGB
	used     map[RGB]bool
	order    []string
}

// NewColorRegistry creates a registry. A zero seed picks a random one.
func NewColorRegistry(seed uint64) *ColorRegistry {
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &ColorRegistry{
		rng:      rng,
		hue:      rng.Float64() * 360,
		assigned: make(map[string]RGB),
		used:     make(map[RGB]bool),
	}
}

// Assign returns the category's color, choosing and registering a new one
// on first sight.
func (r *ColorRegistry) Assign(category string) RGB {
	if c, ok := r.assigned[category]; ok {
		return c
	}

	var candidate RGB
	for range maxAttempts {
		candidate = r.next()
		if r.distinct(candidate) {
			break
		}
	}
	for r.used[candidate] {
		candidate = nudge(candidate)
	}

	r.assigned[category] = candidate
	r.used[candidate] = true
	r.order = append(r.order, category)
	return candidate
}

// Assigned returns category colors in assignment order.
func (r *ColorRegistry) Assigned() []CategoryColor {
	out := make([]CategoryColor, 0, len(r.order))
	for _, cat := range r.order {
		out = append(out, CategoryColor{Category: cat, Color: r.assigned[cat]})
	}
	return out
}

// CategoryColor pairs a category with its banner color.
type CategoryColor struct {
	Category string
	Color    RGB
}

// next steps the hue by the golden angle and keeps saturation and
// lightness in a band where white text stays readable.
func (r *ColorRegistry) next() RGB {
	r.hue = math.Mod(r.hue+goldenAngle, 360)
	s := 0.55 + r.rng.Float64()*0.35
	l := 0.30 + r.rng.Float64()*0.18
	red, green, blue := colorful.Hsl(r.hue, s, l).Clamped().RGB255()
	return RGB{R: red, G: green, B: blue}
}

func (r *ColorRegistry) distinct(c RGB) bool {
	cc := c.color()
	for used := range r.used {
		if cc.DistanceCIEDE2000(used.color()) < minDistance {
			return false
		}
	}
	return true
}

func nudge(c RGB) RGB {
	switch {
	case c.B < 255:
		c.B++
	case c.G < 255:
		c.G++
	default:
		c.R++
	}
	return c
}
