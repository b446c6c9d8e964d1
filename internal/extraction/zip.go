package extraction

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// NativeZip extracts ZIP archives in-process. It needs no external binary and
// is tried before the CLI extractors.
type NativeZip struct{}

func NewNativeZip() *NativeZip { return &NativeZip{} }

func (z *NativeZip) Name() string { return "ZIP (native)" }

func (z *NativeZip) CanExtract(filePath string) (bool, error) {
	return isZip(filePath)
}

// Extract writes every entry below destDir. Entries escaping destDir are
// rejected. ctx is checked between entries and between copy chunks.
func (z *NativeZip) Extract(ctx context.Context, archivePath string, destDir string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip %s: %w", archivePath, err)
	}
	defer r.Close()

	root, err := filepath.Abs(destDir)
	if err != nil {
		return nil, err
	}

	var finalPaths []string
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return finalPaths, err
		}

		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return finalPaths, fmt.Errorf("zip entry %q escapes the target directory", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return finalPaths, err
			}
			continue
		}

		if err := extractEntry(ctx, f, target); err != nil {
			return finalPaths, err
		}
		finalPaths = append(finalPaths, target)
	}

	return finalPaths, nil
}

func extractEntry(ctx context.Context, f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open entry %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	_, err = io.Copy(dst, &ctxReader{ctx: ctx, r: src})
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(target)
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
