package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePlainText(t *testing.T) {
	v, err := Resolve("hunter2")
	require.NoError(t, err)
	require.Equal(t, "hunter2", v)
}

func TestResolveEnv(t *testing.T) {
	t.Setenv("FCGIAPP_TEST_SECRET", "s3cr3t")
	v, err := Resolve("env:FCGIAPP_TEST_SECRET")
	require.NoError(t, err)
	require.Equal(t, "s3cr3t", v)
}

func TestResolveEnvMissing(t *testing.T) {
	_, err := Resolve("env:FCGIAPP_DOES_NOT_EXIST")
	require.Error(t, err)
}

func TestResolveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pwd.txt")
	require.NoError(t, os.WriteFile(path, []byte("filesecret\n"), 0o600))

	v, err := Resolve("file:" + path)
	require.NoError(t, err)
	require.Equal(t, "filesecret", v)
}
