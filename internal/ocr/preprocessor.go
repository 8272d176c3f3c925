package ocr

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Preprocessor cleans a page image before OCR: grayscale plus histogram
// normalization. This light pipeline reduces character merge errors on
// scanned contract pages without distorting thin fonts.
type Preprocessor struct{}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{}
}

// Clean runs the image through ImageMagick. Preprocessing is best effort:
// any failure returns the original bytes unchanged.
func (p *Preprocessor) Clean(imageData []byte) []byte {
	tmpDir := os.TempDir()
	id := uuid.NewString()
	inputFile := filepath.Join(tmpDir, fmt.Sprintf("ocr_in_%s.png", id))
	outputFile := filepath.Join(tmpDir, fmt.Sprintf("ocr_out_%s.png", id))

	if err := os.WriteFile(inputFile, imageData, 0600); err != nil {
		return imageData
	}
	defer os.Remove(inputFile)
	defer os.Remove(outputFile)

	args := []string{
		inputFile,
		"-colorspace", "Gray",
		"-normalize",
		outputFile,
	}

	// ImageMagick 7 ships "magick", version 6 only "convert"
	var cmd *exec.Cmd
	if _, err := exec.LookPath("magick"); err == nil {
		cmd = exec.Command("magick", args...)
	} else if _, err := exec.LookPath("convert"); err == nil {
		cmd = exec.Command("convert", args...)
	} else {
		return imageData
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Warn().Err(err).Str("stderr", stderr.String()).Msg("image preprocessing failed, using original")
		return imageData
	}

	processed, err := os.ReadFile(outputFile)
	if err != nil || len(processed) == 0 {
		return imageData
	}
	return processed
}

// Available reports whether an ImageMagick binary can be resolved.
func (p *Preprocessor) Available() bool {
	if _, err := exec.LookPath("magick"); err == nil {
		return true
	}
	_, err := exec.LookPath("convert")
	return err == nil
}
