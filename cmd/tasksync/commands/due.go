package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var dueLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

// parseDue parses due dates, either absolute ("2026-05-01") or in natural
// language relative to now ("tomorrow 5pm", "next friday").
func parseDue(text string, now time.Time) (*time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, text, now.Location()); err == nil {
			return &t, nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(text, now)
	if err != nil {
		return nil, fmt.Errorf("could not parse due date %q: %w", text, err)
	}
	if r == nil {
		return nil, fmt.Errorf("unknown due date %q", text)
	}

	return &r.Time, nil
}
