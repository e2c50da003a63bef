// Package imaging provides the size-bounded JPEG transcoder and the
// bounding-box renderer used to prepare evidence images.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // accept PNG input from renderers and file sources

	"github.com/sentrylab/vigil/internal/domain/model"
	"github.com/sentrylab/vigil/pkg/metrics"
)

// Result is the outcome of a compression run.
type Result struct {
	// Data is the encoded image. Its length may exceed the budget only
	// when the quality floor was reached first.
	Data []byte

	// Quality is the JPEG quality of the final encode.
	Quality int

	// Iterations counts encode attempts, bounded by budget.MaxIterations().
	Iterations int

	// WithinBudget reports whether len(Data) <= budget.MaxBytes.
	WithinBudget bool
}

// Compress re-encodes raw to JPEG under the given budget. Starting at
// StartQuality, the quality drops by QualityStep per attempt until the
// output fits MaxBytes or the next step would pass QualityFloor. The
// result is deterministic for identical input and budget. An input that
// already fits at StartQuality returns after a single encode, so
// compressing an in-budget image again is a no-op in size terms.
func Compress(raw []byte, budget model.CompressionBudget) (Result, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}

	var (
		buf bytes.Buffer
		res Result
	)
	quality := budget.StartQuality

	for {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return Result{}, fmt.Errorf("encode jpeg at quality %d: %w", quality, err)
		}
		res.Iterations++
		res.Quality = quality

		if buf.Len() <= budget.MaxBytes {
			break
		}
		next := quality - budget.QualityStep
		if next < budget.QualityFloor {
			break
		}
		quality = next
	}

	res.Data = append([]byte(nil), buf.Bytes()...)
	res.WithinBudget = len(res.Data) <= budget.MaxBytes
	metrics.RecordCompression(res.Iterations, len(res.Data))
	return res, nil
}
