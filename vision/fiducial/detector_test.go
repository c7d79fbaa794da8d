package fiducial

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"
	"gopkg.in/yaml.v3"
)

func TestDefaultDetectorConfig(t *testing.T) {
	cfg := DefaultDetectorConfig()
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, bool(cfg.DoCornerRefinement), test.ShouldBeFalse)
	test.That(t, cfg.AdaptiveThreshWinSizeMin, test.ShouldEqual, 3)
	test.That(t, cfg.ErrorCorrectionRate, test.ShouldEqual, 0.6)

	refined := cfg.WithCornerRefinement(true)
	test.That(t, bool(refined.DoCornerRefinement), test.ShouldBeTrue)
	test.That(t, bool(cfg.DoCornerRefinement), test.ShouldBeFalse)
	test.That(t, bool(refined.WithCornerRefinement(false).DoCornerRefinement), test.ShouldBeFalse)
}

func TestDetectorConfigValidate(t *testing.T) {
	cfg := DefaultDetectorConfig()
	cfg.AdaptiveThreshWinSizeMin = 1
	cfg.ErrorCorrectionRate = 3
	cfg.MarkerBorderBits = 0
	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "adaptiveThreshWinSizeMin")
	test.That(t, err.Error(), test.ShouldContainSubstring, "errorCorrectionRate")
	test.That(t, err.Error(), test.ShouldContainSubstring, "markerBorderBits")
}

func TestFlagDecoding(t *testing.T) {
	for _, tc := range []struct {
		doc  string
		want bool
	}{
		{"doCornerRefinement: 1", true},
		{"doCornerRefinement: 0", false},
		{"doCornerRefinement: true", true},
		{"doCornerRefinement: False", false},
	} {
		cfg := DefaultDetectorConfig()
		test.That(t, yaml.Unmarshal([]byte(tc.doc), &cfg), test.ShouldBeNil)
		test.That(t, bool(cfg.DoCornerRefinement), test.ShouldEqual, tc.want)
	}

	cfg := DefaultDetectorConfig()
	test.That(t, json.Unmarshal([]byte(`{"doCornerRefinement": 1, "markerBorderBits": 2}`), &cfg), test.ShouldBeNil)
	test.That(t, bool(cfg.DoCornerRefinement), test.ShouldBeTrue)
	test.That(t, cfg.MarkerBorderBits, test.ShouldEqual, 2)
	test.That(t, json.Unmarshal([]byte(`{"doCornerRefinement": "on"}`), &cfg), test.ShouldNotBeNil)
	test.That(t, yaml.Unmarshal([]byte("doCornerRefinement: maybe"), &cfg), test.ShouldNotBeNil)
}

func TestParseDictionary(t *testing.T) {
	d, err := ParseDictionary("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, DictArucoOriginal)

	d, err = ParseDictionary("dict_6x6_250")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, Dict6x6_250)

	_, err = ParseDictionary("apriltag")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRecordedDetector(t *testing.T) {
	frames := [][]Marker{
		{{ID: 1, Corners: [4]r2.Point{{X: 1, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 4}, {X: 1, Y: 4}}}},
		nil,
		{{ID: 1}, {ID: 2}},
	}
	var buf bytes.Buffer
	test.That(t, WriteRecording(&buf, frames), test.ShouldBeNil)
	test.That(t, strings.Count(buf.String(), "\n"), test.ShouldEqual, 3)

	path := filepath.Join(t.TempDir(), "detections.jsonl")
	test.That(t, os.WriteFile(path, buf.Bytes(), 0o600), test.ShouldBeNil)

	rd, err := NewRecordedDetectorFromFile(path, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rd.Len(), test.ShouldEqual, 3)

	ctx := context.Background()
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	got, err := rd.Detect(ctx, img)
	test.That(t, err, test.ShouldBeNil)
	if diff := cmp.Diff(frames[0], got); diff != "" {
		t.Fatalf("first frame mismatch (-want +got):\n%s", diff)
	}
	got, err = rd.Detect(ctx, img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldBeEmpty)
	got, err = rd.Detect(ctx, img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldHaveLength, 2)
	test.That(t, got[1].ID, test.ShouldEqual, 2)

	got, err = rd.Detect(ctx, img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldBeEmpty)
	test.That(t, rd.Close(), test.ShouldBeNil)

	looping := NewRecordedDetector(frames, true)
	for i := 0; i < 3; i++ {
		_, err := looping.Detect(ctx, img)
		test.That(t, err, test.ShouldBeNil)
	}
	got, err = looping.Detect(ctx, img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got[0].ID, test.ShouldEqual, 1)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = looping.Detect(cancelled, img)
	test.That(t, err, test.ShouldEqual, context.Canceled)
}

func TestRecordedDetectorErrors(t *testing.T) {
	_, err := NewRecordedDetectorFromFile(filepath.Join(t.TempDir(), "missing.jsonl"), false)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ReadRecording(strings.NewReader("[{\"id\": 1}]\nnot json\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "line 2")
}

func TestDrawMarkersAndAxes(t *testing.T) {
	model := testCameraModel(t)
	pose := MarkerPose{ID: 3, Rotation: r3.Vector{X: 2.9}, Translation: r3.Vector{Z: 400}}
	m := syntheticMarker(t, 3, pose, model)
	frame := image.NewRGBA(image.Rect(0, 0, 640, 480))

	outlined := DrawMarkers(frame, []Marker{m})
	test.That(t, outlined.Bounds(), test.ShouldResemble, frame.Bounds())
	_, g, _, _ := outlined.At(int(m.Corners[1].X), int(m.Corners[1].Y)).RGBA()
	test.That(t, g, test.ShouldBeGreaterThan, 0)
	// The input frame is untouched.
	test.That(t, frame.RGBAAt(int(m.Corners[1].X), int(m.Corners[1].Y)).G, test.ShouldEqual, uint8(0))

	withAxes, err := DrawAxes(frame, []MarkerPose{pose, {Translation: r3.Vector{Z: -5}}}, model, testMarkerLength/2)
	test.That(t, err, test.ShouldBeNil)
	origin, err := ProjectPoints([]r3.Vector{{}}, pose, model)
	test.That(t, err, test.ShouldBeNil)
	r, g, b, _ := withAxes.At(int(origin[0].X), int(origin[0].Y)).RGBA()
	test.That(t, r+g+b, test.ShouldBeGreaterThan, 0)

	_, err = DrawAxes(frame, []MarkerPose{pose}, nil, 1)
	test.That(t, err, test.ShouldNotBeNil)
}
