// Package camera implements a FrameSource over a local capture device
// using gocv. The device is acquired once at startup and released
// exactly once on shutdown, regardless of how the loop exits.
package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/sentrylab/vigil/internal/capture"
	"github.com/sentrylab/vigil/internal/domain/model"
)

// Webcam reads JPEG frames from a video capture device.
type Webcam struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	device int
	closed bool
}

// Open acquires the capture device. Failure here is fatal to the
// process; there is no degraded mode without a camera.
func Open(device int) (*Webcam, error) {
	cap, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open capture device %d: %w", device, err)
	}
	if !cap.IsOpened() {
		_ = cap.Close()
		return nil, fmt.Errorf("capture device %d: %w", device, capture.ErrNoFrame)
	}
	return &Webcam{
		cap:    cap,
		mat:    gocv.NewMat(),
		device: device,
	}, nil
}

// Read grabs one frame and encodes it as JPEG. A failed grab is a
// transient error; the sampler skips the tick.
func (w *Webcam) Read(_ context.Context) (model.Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return model.Frame{}, capture.ErrSourceClosed
	}
	if ok := w.cap.Read(&w.mat); !ok || w.mat.Empty() {
		return model.Frame{}, fmt.Errorf("device %d: %w", w.device, capture.ErrNoFrame)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, w.mat)
	if err != nil {
		return model.Frame{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	return model.Frame{
		Data:   data,
		Width:  w.mat.Cols(),
		Height: w.mat.Rows(),
		TS:     time.Now(),
	}, nil
}

// Close releases the device. It is idempotent so every shutdown path can
// call it safely.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.mat.Close()
	if err := w.cap.Close(); err != nil {
		return fmt.Errorf("release capture device %d: %w", w.device, err)
	}
	return nil
}
