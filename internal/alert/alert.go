// Package alert turns a fired detection episode into a delivered
// notification: it renders the evidence frame, compresses it to the byte
// budget, applies the evidence retention policy, and delivers text and
// image through the sink as two independent calls.
package alert

import (
	"context"
	"time"

	"github.com/sentrylab/vigil/internal/domain/model"
)

// Sink delivers alerts to the notification backend.
type Sink interface {
	SendAlert(ctx context.Context, message string) error
	SendImage(ctx context.Context, caption string, image []byte) error
}

// Renderer annotates an evidence frame with its detections.
type Renderer interface {
	Render(f model.Frame, dets []model.Detection) ([]byte, error)
}

// Saver persists a compressed evidence image.
type Saver interface {
	Save(ts time.Time, data []byte) (string, error)
}

// Policy selects what happens to the evidence image on a fired alert.
type Policy string

const (
	// PolicySend delivers the image to the sink without persisting it.
	PolicySend Policy = "send"

	// PolicySave persists the image and sends a text-only alert.
	PolicySave Policy = "save"

	// PolicySaveAndSend persists the image and also delivers it.
	PolicySaveAndSend Policy = "save-and-send"
)

// ParsePolicy maps a config string to a Policy, defaulting to PolicySend.
// Config validation rejects unknown values before this is reached.
func ParsePolicy(s string) Policy {
	switch Policy(s) {
	case PolicySave:
		return PolicySave
	case PolicySaveAndSend:
		return PolicySaveAndSend
	default:
		return PolicySend
	}
}

// sends reports whether the policy delivers the image to the sink.
func (p Policy) sends() bool { return p != PolicySave }

// saves reports whether the policy persists the image.
func (p Policy) saves() bool { return p != PolicySend }
