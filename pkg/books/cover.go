package books

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"os"
	"path/filepath"

	"github.com/booknetwork/booknet/pkg/errcodes"
	"github.com/booknetwork/booknet/pkg/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

const (
	CoverMaxWidth  = 600
	CoverMaxHeight = 900
	// MaxCoverBytes caps the size of an uploaded cover before decoding.
	MaxCoverBytes = 10 << 20
	// MaxCoverPixels caps the declared dimensions of an upload, checked from
	// the image header before the pixels are decoded.
	MaxCoverPixels = 40_000_000

	coverQuality = 85
)

var coverMimeTypes = []string{"image/jpeg", "image/png", "image/gif"}

type UploadCoverOptions struct {
	BookID   int
	CallerID int
	Dir      string
	Data     []byte
}

// CoverFilename is the name a book's cover is stored under.
func CoverFilename(bookID int) string {
	return fmt.Sprintf("book-%d.jpg", bookID)
}

// UploadCover stores a new cover for a book owned by the caller. The image is
// scaled to fit within CoverMaxWidth x CoverMaxHeight and re-encoded as JPEG.
func (svc *Service) UploadCover(ctx context.Context, opts UploadCoverOptions) (*models.Book, error) {
	book, err := svc.Lock(ctx, opts.BookID)
	if err != nil {
		return nil, err
	}
	if !book.IsOwnedBy(opts.CallerID) {
		return nil, errcodes.Forbidden("Uploading a cover for another user's book")
	}

	data, err := ProcessCover(opts.Data)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, errors.WithStack(err)
	}
	name := CoverFilename(book.ID)
	if err := os.WriteFile(filepath.Join(opts.Dir, name), data, 0644); err != nil {
		return nil, errors.WithStack(err)
	}

	book.CoverFilename = &name
	if err := svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{"cover_filename"}}); err != nil {
		return nil, err
	}

	return book, nil
}

// ProcessCover checks that data holds a JPEG, PNG or GIF image and returns it
// as a JPEG scaled down to the cover bounds.
func ProcessCover(data []byte) ([]byte, error) {
	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), coverMimeTypes...) {
		return nil, errcodes.ValidationError("Cover must be a JPEG, PNG or GIF image.")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errcodes.ValidationError("Cover image could not be decoded.")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxCoverPixels/cfg.Height {
		return nil, errcodes.ValidationError("Cover image dimensions are too large.")
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errcodes.ValidationError("Cover image could not be decoded.")
	}

	srcBounds := src.Bounds()
	targetW, targetH := fitDimensions(srcBounds.Dx(), srcBounds.Dy(), CoverMaxWidth, CoverMaxHeight)

	// JPEG has no alpha, so transparent areas are flattened onto white.
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.BiLinear.Scale(dst, dst.Bounds(), src, srcBounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: coverQuality}); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

// fitDimensions calculates target dimensions maintaining aspect ratio.
func fitDimensions(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= maxW && srcH <= maxH {
		return srcW, srcH
	}

	ratioW := float64(maxW) / float64(srcW)
	ratioH := float64(maxH) / float64(srcH)

	ratio := ratioW
	if ratioH < ratioW {
		ratio = ratioH
	}

	w, h := int(float64(srcW)*ratio), int(float64(srcH)*ratio)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
