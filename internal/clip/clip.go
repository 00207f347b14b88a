// Package clip copies bookmark URLs to the system clipboard.
package clip

import (
	"errors"
	"sync"

	"github.com/atotto/clipboard"

	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/rewrite"
)

var ErrUnsupported = errors.New("clipboard is not available on this system")

// Writer puts text on a clipboard.
type Writer interface {
	WriteText(text string) error
}

// System writes to the OS clipboard.
type System struct{}

func (System) WriteText(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

// Recorder keeps the last written text in memory.
type Recorder struct {
	mu   sync.Mutex
	text string
}

func (r *Recorder) WriteText(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = text
	return nil
}

// Text returns the last written text.
func (r *Recorder) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

// CopyURL writes the bookmark's URL and returns what was copied.
func CopyURL(w Writer, b model.Bookmark) (string, error) {
	if err := w.WriteText(b.URL); err != nil {
		return "", err
	}
	return b.URL, nil
}

// CopyConverted writes the bolt.new form of the bookmark's URL. URLs that
// cannot be converted are copied unchanged.
func CopyConverted(w Writer, b model.Bookmark) (string, error) {
	url := rewrite.ToBolt(b.URL)
	if err := w.WriteText(url); err != nil {
		return "", err
	}
	return url, nil
}
