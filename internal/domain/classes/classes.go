// Package classes holds the detector's supported class set and the
// startup-time validation of the configured target class.
package classes

import (
	"fmt"
	"sort"
	"strings"
)

// COCO class names in model output order. This mirrors the label set the
// detection service is exported with.
var names = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train",
	"truck", "boat", "traffic light", "fire hydrant", "stop sign",
	"parking meter", "bench", "bird", "cat", "dog", "horse", "sheep",
	"cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella",
	"handbag", "tie", "suitcase", "frisbee", "skis", "snowboard",
	"sports ball", "kite", "baseball bat", "baseball glove", "skateboard",
	"surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork",
	"knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv",
	"laptop", "mouse", "remote", "keyboard", "cell phone", "microwave",
	"oven", "toaster", "sink", "refrigerator", "book", "clock", "vase",
	"scissors", "teddy bear", "hair drier", "toothbrush",
}

var index = func() map[string]int {
	m := make(map[string]int, len(names))
	for i, n := range names {
		m[n] = i
	}
	return m
}()

// ID returns the class id for name, or false if the class is unknown.
func ID(name string) (int, bool) {
	id, ok := index[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// Name returns the class name for id, or "unknown" if out of range.
func Name(id int) string {
	if id < 0 || id >= len(names) {
		return "unknown"
	}
	return names[id]
}

// Validate returns an error naming the supported set when the class is
// not a member. Configuration loading calls this before the loop starts.
func Validate(name string) error {
	if _, ok := ID(name); !ok {
		supported := append([]string(nil), names...)
		sort.Strings(supported)
		return fmt.Errorf("unknown target class %q; supported: %s",
			name, strings.Join(supported, ", "))
	}
	return nil
}

// Count reports the size of the supported class set.
func Count() int { return len(names) }
