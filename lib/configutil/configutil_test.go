package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name     string            `json:"name" validate:"required"`
	Password string            `json:"password"`
	Port     int               `json:"port" validate:"gte=0"`
	Tags     map[string]string `json:"tags"`
}

func write(t testing.TB, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0644)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "app.json5"), `{
		// comments are fine
		name: "default",
		port: 25,
	}`)
	write(t, filepath.Join(dir, "app.local.json5"), `{ port: 587 }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.Equal(t, "default", cfg.Name)
	require.Equal(t, 587, cfg.Port)
}

func TestReadConfigExpandsEnv(t *testing.T) {
	t.Setenv("GRADEWATCH_TEST_PASSWORD", `p"ss\word`)

	dir := t.TempDir()
	write(t, filepath.Join(dir, "app.json5"), `{ name: "x", password: "${GRADEWATCH_TEST_PASSWORD}" }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.Equal(t, `p"ss\word`, cfg.Password)
}

func TestReadConfigMissingEnv(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "app.json5"), `{ name: "${GRADEWATCH_TEST_SURELY_UNSET}" }`)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.ErrorContains(t, err, "GRADEWATCH_TEST_SURELY_UNSET")
}

func TestReadConfigValidates(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "app.json5"), `{ port: 1 }`)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.Error(t, err)
}

func TestReadConfigNotFound(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "nope.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestSplitExt(t *testing.T) {
	name, ext := splitExt("gradewatch.json5")
	require.Equal(t, "gradewatch", name)
	require.Equal(t, "json5", ext)

	name, ext = splitExt("noext")
	require.Equal(t, "noext", name)
	require.Equal(t, "", ext)
}
