package os_test

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tmos "github.com/tendermint/ibclight/libs/os"
)

type mockLogger struct{}

func (mockLogger) Info(msg string, keyvals ...interface{}) {}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.False(t, tmos.FileExists(dir))

	require.NoError(t, tmos.EnsureDir(dir, 0700))
	assert.True(t, tmos.FileExists(dir))

	// existing dir
	require.NoError(t, tmos.EnsureDir(dir, 0700))

	file := filepath.Join(dir, "file")
	require.NoError(t, tmos.WriteFile(file, []byte("hello world"), 0600))
	require.Error(t, tmos.EnsureDir(filepath.Join(file, "c"), 0700))
	require.Error(t, tmos.EnsureDir(file, 0700))

	bz, err := tmos.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(bz))
}

func TestTrapSignal(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	ctx, stop := tmos.TrapSignal(context.Background(), mockLogger{})
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not canceled by SIGTERM")
	}
}

func TestTrapSignalStop(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	ctx, stop := tmos.TrapSignal(context.Background(), mockLogger{})
	stop()
	<-ctx.Done()
}
