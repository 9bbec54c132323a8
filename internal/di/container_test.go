package di

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directorstracker/tracker-server/internal/config"
	"github.com/directorstracker/tracker-server/internal/errors"
)

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	require.NoError(t, l.Close())
	return port
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "movies.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func loadConfig(t *testing.T, dataPath, port string) *config.Config {
	t.Helper()
	cfg, err := config.Load([]string{
		"-data", dataPath,
		"-port", port,
		"-log-level", "error",
		"-env-file", filepath.Join(t.TempDir(), "missing.env"),
	})
	require.NoError(t, err)
	return cfg
}

func TestBootstrap_MissingDirectorColumnStopsStartup(t *testing.T) {
	port := freePort(t)
	path := writeCSV(t, ",Title,Major_Genre,IMDB_Rating,Profit,Release_Year\n0,Iron Man,Action,7.9,400000000,2008\n")

	injector := NewContainerWithConfig(loadConfig(t, path, port))
	t.Cleanup(func() { _ = injector.Shutdown() })

	err := Bootstrap(injector)
	require.Error(t, err)

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr), "got %v", err)
	assert.Equal(t, errors.CodeSchema, domainErr.Code)
	assert.Contains(t, err.Error(), "director")

	conn, dialErr := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", port), 200*time.Millisecond)
	if conn != nil {
		_ = conn.Close()
	}
	assert.Error(t, dialErr, "no page is served after a schema failure")
}

func TestBootstrap_MissingFileStopsStartup(t *testing.T) {
	port := freePort(t)
	injector := NewContainerWithConfig(loadConfig(t, filepath.Join(t.TempDir(), "nope.csv"), port))
	t.Cleanup(func() { _ = injector.Shutdown() })

	err := Bootstrap(injector)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataLoad), "got %v", err)
}
