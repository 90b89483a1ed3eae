// Package clicks decodes the click event stream swaybar and i3bar write
// to a status command's stdin once click_events is enabled.
package clicks

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
)

// Click is a single click event.
type Click struct {
	Name      string   `json:"name"`
	Instance  string   `json:"instance,omitempty"`
	Button    int      `json:"button"`
	X         int      `json:"x"`
	Y         int      `json:"y"`
	Modifiers []string `json:"modifiers"`
}

// Read consumes the click stream until r is exhausted. The stream is an
// endless JSON array: an opening bracket followed by one object per
// line, every object after the first prefixed with a comma.
//
// Events are dropped when out is full so that a slow consumer never
// stalls the reader. Read returns nil on EOF.
func Read(r io.Reader, out chan<- Click, log *slog.Logger) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		line = bytes.TrimPrefix(line, []byte("["))
		line = bytes.TrimPrefix(line, []byte(","))
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var c Click
		if err := json.Unmarshal(line, &c); err != nil {
			log.Warn("parse click", "err", err)
			continue
		}
		select {
		case out <- c:
		default:
			log.Debug("click dropped", "name", c.Name)
		}
	}
	return sc.Err()
}
