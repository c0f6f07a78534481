package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir, "1.0")
	require.Error(t, err) // salt is required and has no default
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	conf := "max_connection=10\n" +
		"socket=127.0.0.1:9100,127.0.0.1:9101\n" +
		"irc=9200\n" +
		"db_host=db.internal\n" +
		"db_port=5433\n" +
		"db_user=svc\n" +
		"db_pwd=secret\n" +
		"db_name=appdb\n" +
		"time_zone=UTC\n" +
		"salt=pepper\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(conf), 0o644))

	cfg, err := Load(dir, "1.0")
	require.NoError(t, err)
	require.EqualValues(t, 10, cfg.MaxConnection)
	require.Len(t, cfg.Sockets, 2)
	require.Equal(t, "127.0.0.1:9200", cfg.Control.String())
	require.Equal(t, "db.internal", cfg.DB.Host)
	require.Equal(t, "secret", cfg.DB.Password)
	require.Equal(t, "pepper", cfg.Salt)
}

func TestLoadResolvesEnvIndirectedSecrets(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FCGIAPP_TEST_PWD", "fromenv")
	conf := "db_pwd=env:FCGIAPP_TEST_PWD\n" +
		"salt=salty\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(conf), 0o644))

	cfg, err := Load(dir, "1.0")
	require.NoError(t, err)
	require.Equal(t, "fromenv", cfg.DB.Password)
}

func TestLoadRejectsBadSocket(t *testing.T) {
	dir := t.TempDir()
	conf := "socket=not-an-addr\nsalt=x\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(conf), 0o644))

	_, err := Load(dir, "1.0")
	require.Error(t, err)
}
