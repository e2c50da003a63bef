package imaging_test

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/sentrylab/vigil/internal/domain/model"
	"github.com/sentrylab/vigil/internal/imaging"
)

func TestBoxRenderer(t *testing.T) {
	Convey("Given a renderer and an evidence frame", t, func() {
		r := imaging.NewBoxRenderer()
		f := model.Frame{Data: flatJPEG(t, 320, 240), Width: 320, Height: 240}

		Convey("When rendering one detection", func() {
			out, err := r.Render(f, []model.Detection{
				{Class: "person", Score: 0.9, Box: model.Box{X: 40, Y: 30, Width: 100, Height: 120}},
			})

			Convey("Then the output decodes with the same dimensions", func() {
				So(err, ShouldBeNil)
				img, _, derr := image.Decode(bytes.NewReader(out))
				So(derr, ShouldBeNil)
				So(img.Bounds().Dx(), ShouldEqual, 320)
				So(img.Bounds().Dy(), ShouldEqual, 240)
			})

			Convey("And the border pixels changed from the background", func() {
				So(err, ShouldBeNil)
				img, _, derr := image.Decode(bytes.NewReader(out))
				So(derr, ShouldBeNil)

				// Top border of the box: red-dominated after annotation.
				red, _, blue, _ := img.At(90, 31).RGBA()
				So(red>>8, ShouldBeGreaterThan, blue>>8)
			})
		})

		Convey("When a box extends past the frame", func() {
			out, err := r.Render(f, []model.Detection{
				{Class: "person", Score: 0.8, Box: model.Box{X: 280, Y: 200, Width: 200, Height: 200}},
			})

			Convey("Then rendering clips instead of failing", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When there are no detections", func() {
			out, err := r.Render(f, nil)

			Convey("Then the frame passes through re-encoded", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the frame bytes are not an image", func() {
			_, err := r.Render(model.Frame{Data: []byte("junk")}, nil)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a renderer with custom options", t, func() {
		r := imaging.NewBoxRenderer(
			imaging.WithBorder(1),
			imaging.WithBoxColor(color.RGBA{G: 0xFF, A: 0xFF}),
		)
		f := model.Frame{Data: flatJPEG(t, 64, 64)}

		out, err := r.Render(f, []model.Detection{
			{Box: model.Box{X: 8, Y: 8, Width: 32, Height: 32}},
		})

		Convey("Then rendering succeeds with the custom style", func() {
			So(err, ShouldBeNil)
			img, _, derr := image.Decode(bytes.NewReader(out))
			So(derr, ShouldBeNil)
			_, green, _, _ := img.At(16, 8).RGBA()
			So(green>>8, ShouldBeGreaterThan, uint32(150))
		})
	})
}
