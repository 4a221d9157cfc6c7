package journal

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/lehigh-university-libraries/cardpress/internal/workspace"
	"gopkg.in/yaml.v3"
)

// Manifest is the YAML summary written next to the journal.
type Manifest struct {
	Journal    string             `yaml:"journal"`
	Cards      int                `yaml:"cards"`
	Categories []ManifestCategory `yaml:"categories"`
	Pages      []ManifestPage     `yaml:"pages"`
	Checksums  map[string]string  `yaml:"checksums"`
}

// ManifestCategory records a category's banner color.
type ManifestCategory struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// ManifestPage records one composite page.
type ManifestPage struct {
	Index    int      `yaml:"index"`
	Category string   `yaml:"category"`
	Color    string   `yaml:"color"`
	Rows     int      `yaml:"rows"`
	Height   float64  `yaml:"height"`
	Cards    []string `yaml:"cards"`
}

// NewManifest summarizes a composition result.
func NewManifest(res *Result) Manifest {
	m := Manifest{
		Journal:   filepath.Base(res.Path),
		Cards:     res.Cards,
		Checksums: res.Checksums,
	}
	for _, c := range res.Colors {
		m.Categories = append(m.Categories, ManifestCategory{Name: c.Category, Color: c.Color.Hex()})
	}
	for _, p := range res.Pages {
		names := make([]string, 0, len(p.Cards))
		for _, e := range p.Cards {
			names = append(names, e.Filename)
		}
		m.Pages = append(m.Pages, ManifestPage{
			Index:    p.Index,
			Category: p.Category,
			Color:    p.Color.Hex(),
			Rows:     p.Rows,
			Height:   p.Height,
			Cards:    names,
		})
	}
	return m
}

func writeManifest(res *Result) error {
	m := NewManifest(res)
	err := workspace.WriteFileAtomic(res.ManifestPath, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return fmt.Errorf("failed to write journal manifest: %w", err)
	}
	return nil
}
