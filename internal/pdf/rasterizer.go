package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
)

const defaultDPI = 300

// Rasterizer converts PDF bytes into per-page PNG images by shelling out
// to poppler's pdftoppm.
type Rasterizer struct {
	dpi int
}

func NewRasterizer(dpi int) *Rasterizer {
	if dpi <= 0 {
		dpi = defaultDPI
	}
	return &Rasterizer{dpi: dpi}
}

// Available reports whether the pdftoppm binary can be resolved.
func (r *Rasterizer) Available() bool {
	_, err := exec.LookPath("pdftoppm")
	return err == nil
}

// Pages renders every page of the PDF to PNG and returns the image bytes
// in page order.
func (r *Rasterizer) Pages(ctx context.Context, pdfBytes []byte) ([][]byte, error) {
	tmpDir, err := os.MkdirTemp("", "contract-pdf-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdfBytes, 0600); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm", "-png", "-r", strconv.Itoa(r.dpi), pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, out)
	}

	// pdftoppm zero-pads page numbers, so a lexical sort is page order
	paths, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("listing rendered pages: %w", err)
	}
	if len(paths) == 0 {
		return nil, errors.New("no pages rendered from pdf")
	}
	sort.Strings(paths)

	pages := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading page %s: %w", filepath.Base(p), err)
		}
		pages = append(pages, data)
	}

	log.Debug().Int("pages", len(pages)).Int("dpi", r.dpi).Msg("pdf rasterized")
	return pages, nil
}
