package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/sentrylab/vigil/internal/adapters/http/api"
	service "github.com/sentrylab/vigil/internal/app"
	"github.com/sentrylab/vigil/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

type fakeStats map[string]interface{}

func (f fakeStats) Stats() map[string]interface{} { return f }

func TestOpsRoutes(t *testing.T) {
	Convey("Given the ops API server", t, func() {
		stats := fakeStats{"state": "idle", "cycles": int64(7)}
		mux := http.NewServeMux()
		api.NewServer(stats, nil).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When probing /healthz", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it reports healthy", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var body map[string]string
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["status"], ShouldEqual, "healthy")
			})
		})

		Convey("When fetching /stats", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the provider's snapshot comes back as JSON", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var body map[string]interface{}
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["state"], ShouldEqual, "idle")
				So(body["cycles"], ShouldEqual, float64(7))
			})
		})

		Convey("When scraping /metrics", func() {
			resp, err := http.Get(srv.URL + "/metrics")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("When the hub is disabled", func() {
			resp, err := http.Get(srv.URL + "/ws")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestLiveFeed(t *testing.T) {
	Convey("Given a running hub behind /ws", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		hub := api.NewHub()
		go hub.Run(ctx)

		mux := http.NewServeMux()
		api.NewServer(fakeStats{}, hub).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		Convey("When a cycle summary is broadcast", func() {
			// Give the handler a moment to finish registering the client.
			time.Sleep(50 * time.Millisecond)
			summary := service.CycleSummary{
				Cycle:   42,
				TS:      time.Now(),
				Present: true,
				State:   "pending",
			}
			hub.BroadcastCycle(summary)

			Convey("Then the client receives it as JSON", func() {
				So(conn.SetReadDeadline(time.Now().Add(2*time.Second)), ShouldBeNil)
				_, payload, err := conn.ReadMessage()
				So(err, ShouldBeNil)

				var got service.CycleSummary
				So(json.Unmarshal(payload, &got), ShouldBeNil)
				So(got.Cycle, ShouldEqual, 42)
				So(got.Present, ShouldBeTrue)
				So(got.State, ShouldEqual, "pending")
			})
		})
	})
}
