package logging

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// fileHook writes every entry to w with its own formatter.
type fileHook struct {
	mu        sync.Mutex
	w         io.Writer
	formatter logrus.Formatter
}

func newFileHook(w io.Writer, json bool) *fileHook {
	var formatter logrus.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: true,
	}
	if json {
		formatter = &logrus.JSONFormatter{}
	}
	return &fileHook{w: w, formatter: formatter}
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(e *logrus.Entry) error {
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(line)
	return err
}
