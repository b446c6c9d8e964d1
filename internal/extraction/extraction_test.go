package extraction

import (
	"archive/zip"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/godl/internal/infra/config"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestNativeZipExtract(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "bundle.zip")
	writeZip(t, archive, map[string]string{
		"readme.txt":     "hello",
		"nested/data.md": "ZIPDATA",
	})

	files, err := NewNativeZip().Extract(context.Background(), archive, dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	data, err := os.ReadFile(filepath.Join(dir, "nested", "data.md"))
	require.NoError(t, err)
	assert.Equal(t, "ZIPDATA", string(data))
}

func TestNativeZipRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]string{"../outside.txt": "x"})

	_, err := NewNativeZip().Extract(context.Background(), archive, filepath.Join(dir, "out"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "outside.txt"))
}

func TestNativeZipCancelled(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "bundle.zip")
	writeZip(t, archive, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNativeZip().Extract(ctx, archive, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCanExtract(t *testing.T) {
	dir := t.TempDir()

	archive := filepath.Join(dir, "real.zip")
	writeZip(t, archive, map[string]string{"a": "a"})

	fake := filepath.Join(dir, "fake.zip")
	require.NoError(t, os.WriteFile(fake, []byte("not a zip"), 0644))

	other := filepath.Join(dir, "real.tar")
	require.NoError(t, os.WriteFile(other, []byte("PK\x03\x04"), 0644))

	z := NewNativeZip()

	ok, err := z.CanExtract(archive)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = z.CanExtract(fake)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = z.CanExtract(other)
	require.NoError(t, err)
	assert.False(t, ok, "extension must match")
}

func TestManagerExtract(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "bundle.zip")
	writeZip(t, archive, map[string]string{"file.txt": "payload"})

	m := NewManager(config.ExtractionConfig{Enabled: true, NativeZip: true}, nil)
	require.True(t, m.HasExtractors())
	assert.Equal(t, "ZIP (native)", m.AvailableExtractors()[0])

	require.NoError(t, m.Extract(context.Background(), archive, dir))
	assert.FileExists(t, filepath.Join(dir, "file.txt"))

	// Extracting twice is fine
	require.NoError(t, m.Extract(context.Background(), archive, dir))
}

func TestManagerNoExtractor(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(plain, []byte("text"), 0644))

	m := NewManagerWith(nil, NewNativeZip())
	err := m.Extract(context.Background(), plain, dir)
	assert.ErrorIs(t, err, ErrNoExtractor)
}

func TestCLIUnzip(t *testing.T) {
	if _, err := exec.LookPath("unzip"); err != nil {
		t.Skip("unzip not installed")
	}

	dir := t.TempDir()
	archive := filepath.Join(dir, "bundle.zip")
	writeZip(t, archive, map[string]string{"sub/file.txt": "cli"})

	u, err := NewCLIUnzip()
	require.NoError(t, err)

	files, err := u.Extract(context.Background(), archive, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "sub", "file.txt")}, files)
	assert.NoDirExists(t, filepath.Join(dir, "_extractedbundle.zip"))
}
