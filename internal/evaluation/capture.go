package evaluation

import (
	"bytes"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// captureHook records the formatted lines of one evaluation and forwards
// each entry to the service logger.
type captureHook struct {
	formatter logrus.Formatter
	forward   logrus.FieldLogger

	mu  sync.Mutex
	buf bytes.Buffer
}

func (h *captureHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *captureHook) Fire(e *logrus.Entry) error {
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.buf.Write(line)
	h.mu.Unlock()

	if h.forward != nil {
		h.forward.WithFields(e.Data).Log(e.Level, e.Message)
	}
	return nil
}

func (h *captureHook) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.String()
}

// captureLogger returns a logger whose output goes only through the hook.
// It records at Info or the parent's level, whichever is more verbose; the
// parent still filters what is forwarded to it.
func captureLogger(parent logrus.FieldLogger) (*logrus.Logger, *captureHook) {
	hook := &captureHook{
		formatter: &logrus.TextFormatter{DisableColors: true, DisableTimestamp: true},
		forward:   parent,
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	level := levelOf(parent)
	if level < logrus.InfoLevel {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	l.AddHook(hook)
	return l, hook
}

func levelOf(l logrus.FieldLogger) logrus.Level {
	switch v := l.(type) {
	case *logrus.Logger:
		return v.GetLevel()
	case *logrus.Entry:
		return v.Logger.GetLevel()
	default:
		return logrus.InfoLevel
	}
}
