package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.env")
	content := "# comment\n\nTEST_SOCIAL_KEY=abc\nTEST_SOCIAL_QUOTED=\"hello world\"\nINVALID LINE\nTEST_SOCIAL_EXISTING=from-file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TEST_SOCIAL_EXISTING", "from-env")
	os.Unsetenv("TEST_SOCIAL_KEY")
	os.Unsetenv("TEST_SOCIAL_QUOTED")
	t.Cleanup(func() {
		os.Unsetenv("TEST_SOCIAL_KEY")
		os.Unsetenv("TEST_SOCIAL_QUOTED")
	})

	LoadEnvFromFile(path, filepath.Join(dir, "missing.env"))

	assert.Equal(t, "abc", os.Getenv("TEST_SOCIAL_KEY"))
	assert.Equal(t, "hello world", os.Getenv("TEST_SOCIAL_QUOTED"), "surrounding quotes are stripped")
	assert.Equal(t, "from-env", os.Getenv("TEST_SOCIAL_EXISTING"), "existing environment wins over the file")
}
