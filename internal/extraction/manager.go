package extraction

import (
	"context"
	"errors"
	"fmt"

	"github.com/datallboy/godl/internal/infra/config"
	"github.com/datallboy/godl/internal/infra/logger"
)

var ErrNoExtractor = errors.New("no extractor can handle this file")

// Manager handles multiple extractors and determines which to use. It
// satisfies domain.Extractor.
type Manager struct {
	extractors []Extractor
	log        *logger.Logger
}

// NewManager initializes the available extractors. CLI tools whose binary is
// not on PATH are skipped.
func NewManager(cfg config.ExtractionConfig, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Discard()
	}

	m := &Manager{
		extractors: make([]Extractor, 0),
		log:        log,
	}

	if cfg.NativeZip {
		m.extractors = append(m.extractors, NewNativeZip())
	}

	if unzip, err := NewCLIUnzip(); err == nil {
		m.extractors = append(m.extractors, unzip)
	}

	if sevenZ, err := NewCLI7z(); err == nil {
		m.extractors = append(m.extractors, sevenZ)
	}

	return m
}

// NewManagerWith builds a manager from an explicit extractor list.
func NewManagerWith(log *logger.Logger, extractors ...Extractor) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{extractors: extractors, log: log}
}

// AvailableExtractors returns the names of available extractors
func (m *Manager) AvailableExtractors() []string {
	names := make([]string, len(m.extractors))
	for i, ext := range m.extractors {
		names[i] = ext.Name()
	}
	return names
}

// HasExtractors returns true if any extractors are available
func (m *Manager) HasExtractors() bool {
	return len(m.extractors) > 0
}

// Detect returns the first extractor that accepts filePath.
func (m *Manager) Detect(filePath string) (Extractor, error) {
	for _, extractor := range m.extractors {
		canExtract, err := extractor.CanExtract(filePath)
		if err != nil {
			return nil, fmt.Errorf("error checking if %s can extract %s: %w",
				extractor.Name(), filePath, err)
		}

		if canExtract {
			return extractor, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoExtractor, filePath)
}

// Extract detects the archive type and expands it into targetDir.
func (m *Manager) Extract(ctx context.Context, archivePath, targetDir string) error {
	extractor, err := m.Detect(archivePath)
	if err != nil {
		return err
	}

	m.log.Debug("Extracting %s with %s", archivePath, extractor.Name())

	files, err := extractor.Extract(ctx, archivePath, targetDir)
	if err != nil {
		return fmt.Errorf("%s extraction of %s failed: %w", extractor.Name(), archivePath, err)
	}

	m.log.Info("Extracted %d file(s) from %s", len(files), archivePath)
	return nil
}
