// Package archive bundles a working directory's rendered cards into a zip.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/compress/flate"
	"github.com/lehigh-university-libraries/cardpress/internal/workspace"
)

// ErrNoCards means the working directory holds no rendered cards.
var ErrNoCards = errors.New("no cards found")

// Error is an I/O failure while building the archive. Nothing is left at
// the destination path when it is returned.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Build writes every card in ws to destPath, one entry per card named after
// its file, at maximum compression. It returns the number of entries.
func Build(ws *workspace.Workspace, destPath string) (int, error) {
	cards, err := ws.ListCards()
	if err != nil {
		return 0, &Error{Path: destPath, Err: err}
	}
	if len(cards) == 0 {
		return 0, fmt.Errorf("%w in %s", ErrNoCards, ws.Dir)
	}

	err = workspace.WriteFileAtomic(destPath, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, flate.BestCompression)
		})

		for _, card := range cards {
			if err := addFile(zw, card.Path, card.Filename); err != nil {
				return err
			}
		}
		return zw.Close()
	})
	if err != nil {
		return 0, &Error{Path: destPath, Err: err}
	}

	slog.Info("Archive built", "path", destPath, "cards", len(cards))
	return len(cards), nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to compress %s: %w", name, err)
	}
	return nil
}
