package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cratewatch/internal/logs"
)

func writeLog(t *testing.T, path, content string, flag int) {
	t.Helper()
	f, err := os.OpenFile(path, flag|os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(content)
	require.NoError(t, err)
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cratewatch.log")
	writeLog(t, path, "a\nb\nc\n", os.O_TRUNC)

	result, err := logs.Tail(path, logs.TailOptions{Offset: -1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, result.Lines)
	assert.EqualValues(t, 6, result.Offset, "offset should sit at end of file")
}

func TestTailFromOffsetLeavesPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cratewatch.log")
	writeLog(t, path, "one\ntwo\npar", os.O_TRUNC)

	result, err := logs.Tail(path, logs.TailOptions{Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"two"}, result.Lines)
	require.EqualValues(t, 8, result.Offset)

	writeLog(t, path, "tial\n", os.O_APPEND)
	result, err = logs.Tail(path, logs.TailOptions{Offset: result.Offset})
	require.NoError(t, err)
	assert.Equal(t, []string{"partial"}, result.Lines)
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(filepath.Join(t.TempDir(), "absent.log"), logs.TailOptions{Offset: -1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, result.Lines)
	assert.Zero(t, result.Offset)
}

func TestTailRestartsAfterTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cratewatch.log")
	writeLog(t, path, "fresh\n", os.O_TRUNC)

	result, err := logs.Tail(path, logs.TailOptions{Offset: 1000})
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, result.Lines)
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cratewatch.log")
	writeLog(t, path, "start\n", os.O_TRUNC)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var mu sync.Mutex
	var seen []string
	done := make(chan int64)
	go func() {
		offset, err := logs.Follow(ctx, path, 6, 10*time.Millisecond, func(line string) {
			mu.Lock()
			seen = append(seen, line)
			mu.Unlock()
		})
		assert.NoError(t, err)
		done <- offset
	}()

	writeLog(t, path, "later\n", os.O_APPEND)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case offset := <-done:
		assert.EqualValues(t, 12, offset)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "follow did not return after cancel")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"later"}, seen)
}
