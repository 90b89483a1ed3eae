package blocks

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"taskbar/loop"
)

// WatchFile shows the first line of path, prefixed by prefix, in b and
// updates it whenever the file changes. Scripts drive such blocks by
// writing to the file (for example a volume or brightness level).
//
// The parent directory is watched rather than the file so that editors
// and scripts replacing the file by rename keep working. The watch is
// torn down when l quits.
func WatchFile(l *loop.Loop, b *StatusBlock, path, prefix string, log *slog.Logger) error {
	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	apply := func() {
		b.Apply(readFileLine(path, prefix))
	}
	apply()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if l.Post(apply) != nil {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("file watch", "path", path, "err", err)
			}
		}
	}()

	return l.Track(func() {
		w.Close()
		<-stopped
	})
}

func readFileLine(path, prefix string) (Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return Reading{}, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return Reading{}, err
		}
		return Reading{}, errors.New("empty file")
	}
	line := strings.TrimSpace(sc.Text())
	if prefix != "" {
		line = prefix + " " + line
	}
	return Reading{Text: line}, nil
}
