package yolo_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/sentrylab/vigil/internal/adapters/yolo"
	"github.com/sentrylab/vigil/internal/domain/model"
)

func TestClientDetect(t *testing.T) {
	ctx := context.Background()
	frame := model.Frame{Data: []byte{0xFF, 0xD8, 0xFF}, Width: 640, Height: 480}

	Convey("Given an inference service returning detections", t, func() {
		var got struct {
			path  string
			conf  string
			iou   string
			bytes []byte
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got.path = r.URL.Path
			got.conf = r.URL.Query().Get("conf")
			got.iou = r.URL.Query().Get("iou")
			file, _, err := r.FormFile("file")
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			defer file.Close()
			got.bytes, _ = io.ReadAll(file)

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"detections": []model.Detection{
					{ClassID: 0, Class: "person", Score: 0.91,
						Box: model.Box{X: 10, Y: 20, Width: 100, Height: 200}},
				},
			})
		}))
		defer srv.Close()

		c := yolo.NewClient(srv.URL, yolo.WithThresholds(0.75, 0.5))

		Convey("When detecting on a frame", func() {
			dets, err := c.Detect(ctx, frame)

			Convey("Then the frame posts to /detect with thresholds", func() {
				So(err, ShouldBeNil)
				So(got.path, ShouldEqual, "/detect")
				So(got.conf, ShouldEqual, "0.75")
				So(got.iou, ShouldEqual, "0.5")
				So(got.bytes, ShouldResemble, frame.Data)
			})

			Convey("And the detections decode with their boxes", func() {
				So(len(dets), ShouldEqual, 1)
				So(dets[0].Class, ShouldEqual, "person")
				So(dets[0].Score, ShouldEqual, 0.91)
				So(dets[0].Box.Width, ShouldEqual, 100)
			})
		})
	})

	Convey("Given a service with nothing in frame", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"detections":[]}`))
		}))
		defer srv.Close()

		dets, err := yolo.NewClient(srv.URL).Detect(ctx, frame)

		Convey("Then an empty result is not an error", func() {
			So(err, ShouldBeNil)
			So(dets, ShouldBeEmpty)
		})
	})

	Convey("Given a failing service", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("model not loaded"))
		}))
		defer srv.Close()

		_, err := yolo.NewClient(srv.URL).Detect(ctx, frame)

		Convey("Then the failure surfaces with the response snippet", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "model not loaded")
		})
	})

	Convey("Given an unreachable service", t, func() {
		_, err := yolo.NewClient("http://127.0.0.1:1").Detect(ctx, frame)
		So(err, ShouldNotBeNil)
	})
}
