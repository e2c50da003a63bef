package imaging_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/sentrylab/vigil/internal/domain/model"
	"github.com/sentrylab/vigil/internal/imaging"
)

// noisyJPEG encodes a deterministic noise image. Noise defeats JPEG's
// compression, so the output stays large at high qualities.
func noisyJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 0xFF,
			})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

// flatJPEG encodes a single-color image, which compresses to almost
// nothing at any quality.
func flatJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 40, G: 90, B: 160, A: 0xFF})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestCompress(t *testing.T) {
	budget := model.CompressionBudget{
		MaxBytes:     100 << 10,
		StartQuality: 85,
		QualityStep:  5,
		QualityFloor: 10,
	}

	Convey("Given an image that already fits the budget", t, func() {
		raw := flatJPEG(t, 640, 480)

		res, err := imaging.Compress(raw, budget)

		Convey("Then one encode at the start quality suffices", func() {
			So(err, ShouldBeNil)
			So(res.Iterations, ShouldEqual, 1)
			So(res.Quality, ShouldEqual, 85)
			So(res.WithinBudget, ShouldBeTrue)
			So(len(res.Data), ShouldBeLessThanOrEqualTo, budget.MaxBytes)
		})
	})

	Convey("Given a noisy image over the budget", t, func() {
		raw := noisyJPEG(t, 640, 480)
		So(len(raw), ShouldBeGreaterThan, budget.MaxBytes)

		res, err := imaging.Compress(raw, budget)

		Convey("Then quality steps down until the output fits", func() {
			So(err, ShouldBeNil)
			So(res.Iterations, ShouldBeGreaterThan, 1)
			So(res.Iterations, ShouldBeLessThanOrEqualTo, budget.MaxIterations())
			So(res.Quality, ShouldBeLessThan, 85)
			So(res.Quality, ShouldBeGreaterThanOrEqualTo, 10)
			if res.WithinBudget {
				So(len(res.Data), ShouldBeLessThanOrEqualTo, budget.MaxBytes)
			}
		})

		Convey("And the run is deterministic", func() {
			again, err := imaging.Compress(raw, budget)
			So(err, ShouldBeNil)
			So(again.Quality, ShouldEqual, res.Quality)
			So(again.Iterations, ShouldEqual, res.Iterations)
			So(bytes.Equal(again.Data, res.Data), ShouldBeTrue)
		})

		Convey("And recompressing the in-budget output is a single encode", func() {
			if !res.WithinBudget {
				SkipSo(nil, ShouldBeNil)
				return
			}
			second, err := imaging.Compress(res.Data, budget)
			So(err, ShouldBeNil)
			So(second.Iterations, ShouldEqual, 1)
			So(len(second.Data), ShouldBeLessThanOrEqualTo, budget.MaxBytes)
		})
	})

	Convey("Given a budget no quality can satisfy", t, func() {
		raw := noisyJPEG(t, 640, 480)
		tiny := model.CompressionBudget{
			MaxBytes:     64,
			StartQuality: 85,
			QualityStep:  5,
			QualityFloor: 10,
		}

		res, err := imaging.Compress(raw, tiny)

		Convey("Then the floor bounds the attempts and the result is flagged", func() {
			So(err, ShouldBeNil)
			So(res.Iterations, ShouldEqual, tiny.MaxIterations())
			So(res.Quality, ShouldEqual, 10)
			So(res.WithinBudget, ShouldBeFalse)
			So(len(res.Data), ShouldBeGreaterThan, tiny.MaxBytes)
		})
	})

	Convey("Given bytes that are not an image", t, func() {
		_, err := imaging.Compress([]byte("not an image"), budget)

		Convey("Then decoding fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
