package container

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(bytes.NewBuffer(nil))
	return l
}

func TestReadWriteDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "com", "example"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "com", "example", "Foo.class"), []byte("classbytes"), 0o644))

	entries, err := Read(dir, discardLog())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "com/example/Foo.class", entries[0].Name)
	assert.Equal(t, []byte("classbytes"), entries[0].Data)

	outDir := t.TempDir()
	require.NoError(t, Write(outDir, entries, discardLog()))
	data, err := os.ReadFile(filepath.Join(outDir, "com", "example", "Foo.class"))
	require.NoError(t, err)
	assert.Equal(t, []byte("classbytes"), data)
}

func TestReadWriteJar(t *testing.T) {
	jarPath := filepath.Join(t.TempDir(), "test.jar")
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("com/example/Foo.class")
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(jarPath, buf.Bytes(), 0o644))

	entries, err := Read(jarPath, discardLog())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "com/example/Foo.class", entries[0].Name)

	outPath := filepath.Join(t.TempDir(), "out.jar")
	require.NoError(t, Write(outPath, entries, discardLog()))

	r, err := zip.OpenReader(outPath)
	require.NoError(t, err)
	defer r.Close()
	require.Len(t, r.File, 1)
	assert.Equal(t, "com/example/Foo.class", r.File[0].Name)
}

func TestJmodStripsAndReaddsClassesPrefix(t *testing.T) {
	jmodPath := filepath.Join(t.TempDir(), "test.jmod")
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("classes/com/example/Foo.class")
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(jmodPath, buf.Bytes(), 0o644))

	entries, err := Read(jmodPath, discardLog())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "com/example/Foo.class", entries[0].Name, "classes/ prefix should be stripped on read")

	outPath := filepath.Join(t.TempDir(), "out.jmod")
	require.NoError(t, Write(outPath, entries, discardLog()))

	r, err := zip.OpenReader(outPath)
	require.NoError(t, err)
	defer r.Close()
	require.Len(t, r.File, 1)
	assert.Equal(t, "classes/com/example/Foo.class", r.File[0].Name, "classes/ prefix should be re-added on write")
}

func TestReadSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Foo.jbc")
	require.NoError(t, os.WriteFile(path, []byte("public class Foo {}"), 0o644))

	entries, err := Read(path, discardLog())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Foo.jbc", entries[0].Name)
}
