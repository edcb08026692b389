package dashlink

import (
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

type presenterHook struct {
	presenter Presenter
	levels    []log.Level
}

// NewLogHook returns a logrus hook that hands every entry at min or more severe to
// p.OnLog, so the presenter can show diagnostics next to the telemetry.
func NewLogHook(p Presenter, min log.Level) log.Hook {
	var levels []log.Level
	for _, l := range log.AllLevels {
		if l <= min {
			levels = append(levels, l)
		}
	}
	return &presenterHook{
		presenter: p,
		levels:    levels,
	}
}

func (h *presenterHook) Levels() []log.Level {
	return h.levels
}

func (h *presenterHook) Fire(e *log.Entry) error {
	h.presenter.OnLog(e.Level, formatEntry(e))
	return nil
}

func formatEntry(e *log.Entry) string {
	if len(e.Data) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(e.Message)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, e.Data[k])
	}
	return sb.String()
}
