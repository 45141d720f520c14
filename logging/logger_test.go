package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("droidslam")
	logger.AddAppender(NewWriterAppender(&buf))

	logger.Infow("trajectory written", "poses", 3)
	parts := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\t")
	test.That(t, parts, test.ShouldHaveLength, 6)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "droidslam")
	test.That(t, parts[3], test.ShouldContainSubstring, ".go:")
	test.That(t, parts[4], test.ShouldEqual, "trajectory written")
	test.That(t, parts[5], test.ShouldEqual, `{"poses": 3}`)
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("run", INFO, NewWriterAppender(&buf))
	engine := logger.Sublogger("engine")

	engine.Debug("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.SetLevel(DEBUG)
	test.That(t, engine.GetLevel(), test.ShouldEqual, DEBUG)
	engine.Debug("shown")
	test.That(t, buf.String(), test.ShouldContainSubstring, "run.engine")
	test.That(t, buf.String(), test.ShouldContainSubstring, "shown")
}

func TestAppendersAreShared(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	stream := logger.Sublogger("stream")

	var buf bytes.Buffer
	logger.AddAppender(NewWriterAppender(&buf))
	stream.Warnw("cannot show frame", "index", 7)

	test.That(t, buf.String(), test.ShouldContainSubstring, "cannot show frame")
	entries := observed.FilterMessage("cannot show frame").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].LoggerName, test.ShouldEqual, "stream")
	test.That(t, entries[0].ContextMap()["index"], test.ShouldEqual, int64(7))
}

func TestWithFields(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	run := logger.WithFields("exp_it", "00003")
	run.Sublogger("engine").WithFields("engine", "fake").Infow("engine created", "height", 384)
	logger.Info("no run fields")

	entries := observed.All()
	test.That(t, entries, test.ShouldHaveLength, 2)
	test.That(t, entries[0].ContextMap(), test.ShouldResemble, map[string]interface{}{
		"exp_it": "00003",
		"engine": "fake",
		"height": int64(384),
	})
	test.That(t, entries[1].ContextMap(), test.ShouldBeEmpty)
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "droidslam.log")
	appender, closer := NewFileAppender(path, 1)
	logger := NewBlankLogger("run")
	logger.AddAppender(appender)

	logger.WithFields("exp_it", "00001").Infow("trajectory written", "poses", 12)
	logger.Debug("written at debug")
	test.That(t, logger.Sync(), test.ShouldBeNil)
	test.That(t, closer.Close(), test.ShouldBeNil)

	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	test.That(t, lines, test.ShouldHaveLength, 2)

	var first map[string]interface{}
	test.That(t, json.Unmarshal([]byte(lines[0]), &first), test.ShouldBeNil)
	test.That(t, first["msg"], test.ShouldEqual, "trajectory written")
	test.That(t, first["logger"], test.ShouldEqual, "run")
	test.That(t, first["exp_it"], test.ShouldEqual, "00001")
	test.That(t, first["poses"], test.ShouldEqual, 12.)
	test.That(t, lines[1], test.ShouldContainSubstring, `"level":"DEBUG"`)
}
