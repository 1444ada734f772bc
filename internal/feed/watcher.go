// Package feed turns lines appended to a file into a stream of values.
package feed

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
)

// LineWatcher tails a file and emits every complete line appended to it.
type LineWatcher struct {
	path      string
	fromStart bool
	onError   func(error)
}

// Option configures a [LineWatcher].
type Option func(*LineWatcher)

// OnError sets where errors from fsnotify and from reading the file are
// reported. Watching continues after an error. By default they are
// dropped.
func OnError(fn func(error)) Option {
	return func(w *LineWatcher) {
		if fn != nil {
			w.onError = fn
		}
	}
}

// NewLineWatcher creates a watcher for path. When fromStart is true the
// lines already in the file are emitted first; otherwise only lines
// appended after Watch are.
func NewLineWatcher(path string, fromStart bool, opts ...Option) *LineWatcher {
	w := &LineWatcher{path: path, fromStart: fromStart, onError: func(error) {}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch starts watching and returns the channel of lines. The channel is
// closed when ctx is done or the watcher fails. A truncated or recreated
// file is read again from the beginning.
func (w *LineWatcher) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(w.path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch file %s: %w", w.path, err)
	}

	var offset int64
	if !w.fromStart {
		if info, err := os.Stat(w.path); err == nil {
			offset = info.Size()
		}
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer watcher.Close()

		t := tail{path: w.path, offset: offset, report: w.onError}
		if w.fromStart && !t.emit(ctx, out) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if !t.emit(ctx, out) {
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.onError(fmt.Errorf("watch %s: %w", w.path, err))
			}
		}
	}()

	return out, nil
}

// tail remembers how far the file has been read and keeps an incomplete
// last line until its newline arrives.
type tail struct {
	path    string
	offset  int64
	partial []byte
	report  func(error)
}

// emit sends the lines appended since the last call. It reports false
// when ctx ended.
func (t *tail) emit(ctx context.Context, out chan<- string) bool {
	lines, err := t.read()
	if err != nil {
		t.report(fmt.Errorf("read %s: %w", t.path, err))
		return true
	}
	for _, line := range lines {
		select {
		case out <- line:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (t *tail) read() ([]string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < t.offset {
		t.offset = 0
		t.partial = nil
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	t.offset += int64(len(data))

	data = append(t.partial, data...)
	last := bytes.LastIndexByte(data, '\n')
	if last < 0 {
		t.partial = data
		return nil, nil
	}
	t.partial = bytes.Clone(data[last+1:])

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data[:last+1]))
	for sc.Scan() {
		if line := bytes.TrimSpace(sc.Bytes()); len(line) > 0 {
			lines = append(lines, string(line))
		}
	}
	return lines, sc.Err()
}
