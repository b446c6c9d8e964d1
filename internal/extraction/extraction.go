package extraction

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Extractor defines the behavior for extracting compress archives
type Extractor interface {
	// Extract extracts the archive at the given path to the destination directory.
	// Returns the list of extracted file paths, or an error if extraction fails.
	Extract(ctx context.Context, archivePath string, destDir string) ([]string, error)

	// CanExtract checks if this extractor can handle the given file.
	CanExtract(filename string) (bool, error)

	// Returns the human-readable name of this extractor (e.g. "ZIP", "7-Zip")
	Name() string
}

type CmdFactory func(ctx context.Context, workDir string) *exec.Cmd

// baseExtract runs a CLI tool into a scratch directory next to the archive and
// then moves the result into destDir, keeping relative paths. A cancelled ctx
// kills the tool and stops the move.
func baseExtract(ctx context.Context, archivePath, destDir string, factory CmdFactory) ([]string, error) {
	workDir := filepath.Join(destDir, "_extracted"+filepath.Base(archivePath))

	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create extraction workdir: %w", err)
	}

	defer os.RemoveAll(workDir)

	cmd := factory(ctx, workDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("extraction failed: %w\nOutput: %s", err, strings.TrimSpace(string(output)))
	}

	var finalPaths []string
	err = filepath.WalkDir(workDir, func(path string, d os.DirEntry, err error) error {

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(workDir, path)
		if err != nil {
			return err
		}
		targetPath := filepath.Join(destDir, rel)

		if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(targetPath), err)
		}

		if err := os.Rename(path, targetPath); err != nil {
			return fmt.Errorf("failed to move extracted file %s: %w", rel, err)
		}

		finalPaths = append(finalPaths, targetPath)
		return nil
	})

	return finalPaths, err
}

// hasSignature reports whether the file starts with one of sigs.
func hasSignature(filePath string, sigs ...[]byte) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	longest := 0
	for _, s := range sigs {
		longest = max(longest, len(s))
	}

	header := make([]byte, longest)
	n, err := file.Read(header)
	if err != nil {
		return false, err
	}

	for _, sig := range sigs {
		if n >= len(sig) && string(header[:len(sig)]) == string(sig) {
			return true, nil
		}
	}

	return false, nil
}
