package fiducial

import (
	"bufio"
	"context"
	"encoding/json"
	"image"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// RecordedDetector replays detections captured earlier instead of looking at the frames it is
// given. Each call to Detect returns the next recorded frame. Once the recording runs out it
// either starts over or reports no markers.
type RecordedDetector struct {
	frames [][]Marker
	next   int
	loop   bool
}

// NewRecordedDetector holds the given frames in memory.
func NewRecordedDetector(frames [][]Marker, loop bool) *RecordedDetector {
	return &RecordedDetector{frames: frames, loop: loop}
}

// NewRecordedDetectorFromFile reads a recording made of one JSON array of markers per line.
// Blank lines are frames with no markers.
func NewRecordedDetectorFromFile(path string, loop bool) (*RecordedDetector, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open recorded detections %q", path)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	frames, err := ReadRecording(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read recorded detections %q", path)
	}
	return NewRecordedDetector(frames, loop), nil
}

// ReadRecording parses JSON lines of marker arrays.
func ReadRecording(r io.Reader) ([][]Marker, error) {
	var frames [][]Marker
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			frames = append(frames, nil)
			continue
		}
		var markers []Marker
		if err := json.Unmarshal([]byte(text), &markers); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		frames = append(frames, markers)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}

// WriteRecording writes frames in the format ReadRecording reads.
func WriteRecording(w io.Writer, frames [][]Marker) error {
	enc := json.NewEncoder(w)
	for _, markers := range frames {
		if markers == nil {
			markers = []Marker{}
		}
		if err := enc.Encode(markers); err != nil {
			return err
		}
	}
	return nil
}

// Len is the number of recorded frames.
func (rd *RecordedDetector) Len() int {
	return len(rd.frames)
}

// Detect returns the next recorded frame. The image is ignored.
func (rd *RecordedDetector) Detect(ctx context.Context, _ image.Image) ([]Marker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rd.next >= len(rd.frames) {
		if !rd.loop || len(rd.frames) == 0 {
			return nil, nil
		}
		rd.next = 0
	}
	markers := rd.frames[rd.next]
	rd.next++

	out := make([]Marker, len(markers))
	copy(out, markers)
	return out, nil
}

// Close does nothing.
func (rd *RecordedDetector) Close() error {
	return nil
}
