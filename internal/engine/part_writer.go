package engine

import (
	"errors"
	"fmt"
	"os"
)

var errStopped = errors.New("download been stopped")

// partWriter streams a transfer into <destination>.part. Every write checks
// the slot's cancel flag so a cancelled transfer aborts at the next chunk.
type partWriter struct {
	path string
	file *os.File
	slot *slot
	n    int64
}

func createPart(path string, s *slot) (*partWriter, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open part file: %w", err)
	}
	return &partWriter{path: path, file: f, slot: s}, nil
}

func (w *partWriter) Write(p []byte) (int, error) {
	if w.slot != nil && w.slot.isCancelled() {
		return 0, errStopped
	}
	n, err := w.file.Write(p)
	w.n += int64(n)
	return n, err
}

func (w *partWriter) close() error {
	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil

	// Sync to disk and close
	syncErr := f.Sync()
	closeErr := f.Close()
	if syncErr != nil {
		return fmt.Errorf("failed to sync part file: %w", syncErr)
	}
	return closeErr
}

// discard closes and removes the part file.
func (w *partWriter) discard() {
	_ = w.close()
	_ = os.Remove(w.path)
}

// commit replaces destination with the part file.
func (w *partWriter) commit(destination string) error {
	if err := w.close(); err != nil {
		_ = os.Remove(w.path)
		return fmt.Errorf("failed to close part file: %w", err)
	}

	if err := os.Remove(destination); err != nil && !os.IsNotExist(err) {
		_ = os.Remove(w.path)
		return fmt.Errorf("failed to remove old %s: %w", destination, err)
	}

	if err := os.Rename(w.path, destination); err != nil {
		_ = os.Remove(w.path)
		return fmt.Errorf("failed to rename part file: %w", err)
	}
	return nil
}
