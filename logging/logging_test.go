package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.input)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "loud")
}

func TestLevelJSON(t *testing.T) {
	data, err := json.Marshal(WARN)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, `"Warn"`)

	var level Level
	test.That(t, json.Unmarshal([]byte(`"error"`), &level), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, ERROR)
	test.That(t, json.Unmarshal([]byte(`"nope"`), &level), test.ShouldNotBeNil)
}

func TestObservedLevels(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Debug("one")
	logger.Infof("two %d", 2)
	test.That(t, logs.Len(), test.ShouldEqual, 2)

	logger.SetLevel(WARN)
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)
	test.That(t, logger.Level(), test.ShouldEqual, zapcore.WarnLevel)
	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warnw("kept", "frame", 7)
	logger.Error("kept too")

	entries := logs.All()
	test.That(t, entries, test.ShouldHaveLength, 4)
	test.That(t, entries[1].Message, test.ShouldEqual, "two 2")
	test.That(t, entries[2].Level, test.ShouldEqual, zapcore.WarnLevel)
	test.That(t, entries[2].ContextMap()["frame"], test.ShouldEqual, int64(7))
	test.That(t, entries[3].Level, test.ShouldEqual, zapcore.ErrorLevel)
}

func TestSubloggerSharesLevel(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("tracker")
	subsub := sub.Sublogger("policy")

	subsub.Info("hello")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].LoggerName, test.ShouldEqual, "tracker.policy")

	logger.SetLevel(ERROR)
	sub.Info("quiet")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
}

func TestWithFields(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	withCam := logger.WithFields("camera", "webcam")
	withCam.Infow("frame", "markers", 3)
	logger.Info("bare")

	entries := logs.All()
	test.That(t, entries, test.ShouldHaveLength, 2)
	ctx := entries[0].ContextMap()
	test.That(t, ctx["camera"], test.ShouldEqual, "webcam")
	test.That(t, ctx["markers"], test.ShouldEqual, int64(3))
	test.That(t, entries[1].ContextMap(), test.ShouldBeEmpty)

	logs.TakeAll()
	withCam.Infow("odd", "dangling")
	ctx = logs.All()[0].ContextMap()
	test.That(t, ctx["dangling"], test.ShouldNotBeNil)
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markerar.log")
	logger, closer := NewFileLogger("file", INFO, FileConfig{Path: path, MaxSizeMB: 1})
	logger.Debug("not written")
	logger.Infow("written", "id", 23)
	test.That(t, closer(), test.ShouldBeNil)

	//nolint:gosec
	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	test.That(t, lines, test.ShouldHaveLength, 1)

	var entry map[string]any
	test.That(t, json.Unmarshal([]byte(lines[0]), &entry), test.ShouldBeNil)
	test.That(t, entry["msg"], test.ShouldEqual, "written")
	test.That(t, entry["logger"], test.ShouldEqual, "file")
	test.That(t, entry["level"], test.ShouldEqual, "INFO")
	test.That(t, entry["id"], test.ShouldEqual, 23.0)
}

func TestGlobal(t *testing.T) {
	prev := Global()
	defer ReplaceGlobal(prev)

	logger := NewTestLogger(t)
	ReplaceGlobal(logger)
	test.That(t, Global(), test.ShouldEqual, logger)
}
