package evidence

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/sentrylab/vigil/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func TestStoreSave(t *testing.T) {
	Convey("Given a store over a temp directory", t, func() {
		dir := t.TempDir()
		s, err := NewStore(dir)
		So(err, ShouldBeNil)

		Convey("When saving evidence", func() {
			ts := time.Date(2026, 8, 28, 14, 30, 5, 0, time.UTC)
			path, err := s.Save(ts, []byte("jpeg bytes"))

			Convey("Then the file lands with the timestamped name", func() {
				So(err, ShouldBeNil)
				base := filepath.Base(path)
				So(base, ShouldStartWith, "detected_objects_20260828_143005_")
				So(base, ShouldEndWith, ".jpg")

				data, rerr := os.ReadFile(path)
				So(rerr, ShouldBeNil)
				So(string(data), ShouldEqual, "jpeg bytes")
			})
		})

		Convey("When saving twice within the same second", func() {
			ts := time.Date(2026, 8, 28, 14, 30, 5, 0, time.UTC)
			p1, err1 := s.Save(ts, []byte("a"))
			p2, err2 := s.Save(ts, []byte("b"))

			Convey("Then the random suffix keeps the paths distinct", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(p1, ShouldNotEqual, p2)
			})
		})
	})

	Convey("Given an unwritable parent", t, func() {
		_, err := NewStore(string([]byte{0}))
		So(err, ShouldNotBeNil)
	})
}

func TestStoreSweep(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store capped at 30 bytes", t, func() {
		dir := t.TempDir()
		s, err := NewStore(dir, WithMaxBytes(30))
		So(err, ShouldBeNil)

		// Three 15-byte files, oldest first. Explicit mtimes keep the
		// ordering stable regardless of filesystem resolution.
		base := time.Now().Add(-time.Hour)
		var paths []string
		for i := 0; i < 3; i++ {
			p, serr := s.Save(base.Add(time.Duration(i)*time.Minute), []byte("123456789012345"))
			So(serr, ShouldBeNil)
			So(os.Chtimes(p, base.Add(time.Duration(i)*time.Minute), base.Add(time.Duration(i)*time.Minute)), ShouldBeNil)
			paths = append(paths, p)
		}

		Convey("When the sweep runs", func() {
			So(s.sweep(ctx), ShouldBeNil)

			Convey("Then the oldest file goes and the rest fit the cap", func() {
				_, err := os.Stat(paths[0])
				So(os.IsNotExist(err), ShouldBeTrue)

				_, err = os.Stat(paths[1])
				So(err, ShouldBeNil)
				_, err = os.Stat(paths[2])
				So(err, ShouldBeNil)
			})
		})

		Convey("When unrelated files share the directory", func() {
			stray := filepath.Join(dir, "notes.txt")
			So(os.WriteFile(stray, []byte(strings.Repeat("x", 100)), 0o644), ShouldBeNil)

			So(s.sweep(ctx), ShouldBeNil)

			Convey("Then the sweep leaves them alone", func() {
				_, err := os.Stat(stray)
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given a directory under the cap", t, func() {
		dir := t.TempDir()
		s, err := NewStore(dir, WithMaxBytes(1<<20))
		So(err, ShouldBeNil)

		p, serr := s.Save(time.Now(), []byte("small"))
		So(serr, ShouldBeNil)

		So(s.sweep(ctx), ShouldBeNil)

		Convey("Then nothing is removed", func() {
			_, err := os.Stat(p)
			So(err, ShouldBeNil)
		})
	})
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	Convey("Given a running sweeper", t, func() {
		dir := t.TempDir()
		s, err := NewStore(dir, WithSweepInterval(10*time.Millisecond))
		So(err, ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			s.RunSweeper(ctx)
			close(done)
		}()

		cancel()

		Convey("Then cancellation stops it promptly", func() {
			select {
			case <-done:
			case <-time.After(time.Second):
				So("sweeper did not stop", ShouldBeEmpty)
			}
		})
	})
}
