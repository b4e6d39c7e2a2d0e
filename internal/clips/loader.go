package clips

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// loadImage reads the image a timeline entry points at. Raster files go
// through the stdlib decoders; a ".pdf" path renders the referenced page
// through go-fitz, so timelines produced from slide decks can reference pages
// as "deck.pdf#3" (1-based, default page 1).
func loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, &ImageNotFoundError{Path: path}
	}

	file, page := splitPageRef(path)

	fi, err := os.Stat(file)
	if err != nil || fi.IsDir() {
		return nil, &ImageNotFoundError{Path: path}
	}

	if strings.EqualFold(filepath.Ext(file), ".pdf") {
		return loadPDFPage(file, page)
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, &ImageNotFoundError{Path: path}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &UnsupportedImageFormatError{Path: path, Err: err}
	}
	return img, nil
}

// pdfRenderDPI: достаточно для 1080p без лишней памяти.
const pdfRenderDPI = 150

func loadPDFPage(path string, page int) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, &UnsupportedImageFormatError{Path: path, Err: err}
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return nil, &ImageNotFoundError{Path: pageRef(path, page)}
	}

	img, err := doc.ImageDPI(page-1, pdfRenderDPI)
	if err != nil {
		return nil, &UnsupportedImageFormatError{Path: pageRef(path, page), Err: err}
	}
	return img, nil
}

// splitPageRef parses an optional "#N" page suffix.
func splitPageRef(path string) (string, int) {
	idx := strings.LastIndex(path, "#")
	if idx < 0 {
		return path, 1
	}
	page, err := strconv.Atoi(path[idx+1:])
	if err != nil || page < 1 {
		return path, 1
	}
	return path[:idx], page
}

func pageRef(path string, page int) string {
	return path + "#" + strconv.Itoa(page)
}
