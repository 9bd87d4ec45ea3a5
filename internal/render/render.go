// Package render rasterizes the first page of a ticket document and encodes
// it for the model request.
package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultDPI         = 150
	DefaultJPEGQuality = 85
)

// Poppler renders pages with poppler's pdftoppm.
type Poppler struct {
	// Binary is the pdftoppm executable; "pdftoppm" when empty.
	Binary string
	DPI    int
}

func NewPoppler(binary string, dpi int) *Poppler {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Poppler{Binary: binary, DPI: dpi}
}

// RenderFirstPage rasterizes page one of the document at path. Directories,
// unreadable files and non-PDF input all surface as errors.
func (p *Poppler) RenderFirstPage(ctx context.Context, path string) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	tmp, err := os.MkdirTemp("", "ticketcal-render-*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	outRoot := filepath.Join(tmp, "page")
	cmd := exec.CommandContext(ctx, p.Binary,
		"-f", "1", "-l", "1",
		"-r", strconv.Itoa(p.DPI),
		"-png", "-singlefile",
		path, outRoot,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("pdftoppm: %w", err)
		}
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, msg)
	}

	f, err := os.Open(outRoot + ".png")
	if err != nil {
		return nil, fmt.Errorf("open rendered page: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode rendered page: %w", err)
	}
	return img, nil
}

// EncodeJPEG encodes img into an in-memory JPEG.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI wraps JPEG bytes as a base64 data URI.
func DataURI(jpegData []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegData)
}
