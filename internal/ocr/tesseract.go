package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// TesseractOCR shells out to the tesseract binary. The binary path can be
// overridden with TESSERACT_CMD for non-standard installs.
type TesseractOCR struct {
	binary   string
	language string
	psm      int
	pre      *Preprocessor
}

// NewTesseractOCR creates a Tesseract wrapper. Page segmentation mode 6
// (assume a uniform block of text) works best for these semi-structured
// contract pages.
func NewTesseractOCR(language string, pageSegMode int) *TesseractOCR {
	if language == "" {
		language = "eng"
	}
	if pageSegMode <= 0 {
		pageSegMode = 6
	}
	binary := os.Getenv("TESSERACT_CMD")
	if binary == "" {
		binary = "tesseract"
	}
	return &TesseractOCR{
		binary:   binary,
		language: language,
		psm:      pageSegMode,
		pre:      NewPreprocessor(),
	}
}

// Available reports whether the tesseract binary can be resolved.
func (t *TesseractOCR) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// Version returns the tesseract version string for health reporting.
func (t *TesseractOCR) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, t.binary, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tesseract version: %w", err)
	}
	line := strings.SplitN(strings.TrimSpace(string(out)), "\n", 2)[0]
	return line, nil
}

// ExtractText OCRs one page image and returns the recognized text.
func (t *TesseractOCR) ExtractText(ctx context.Context, imageBytes []byte) (string, error) {
	cleaned := t.pre.Clean(imageBytes)

	tmp, err := os.CreateTemp("", "ocr-page-*.png")
	if err != nil {
		return "", fmt.Errorf("creating temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(cleaned); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp image: %w", err)
	}

	cmd := exec.CommandContext(ctx, t.binary, tmp.Name(), "stdout",
		"-l", t.language, "--oem", "3", "--psm", strconv.Itoa(t.psm))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

// ExtractPages OCRs every page image and joins the recognized text with
// newlines, in page order.
func (t *TesseractOCR) ExtractPages(ctx context.Context, pages [][]byte) (string, error) {
	texts := make([]string, 0, len(pages))
	for i, page := range pages {
		txt, err := t.ExtractText(ctx, page)
		if err != nil {
			return "", fmt.Errorf("ocr page %d: %w", i+1, err)
		}
		texts = append(texts, txt)
	}
	return strings.Join(texts, "\n"), nil
}
