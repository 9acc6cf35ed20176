package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/litedb/internal/engine"
)

func TestOpenEngine_TempFile(t *testing.T) {
	eng := OpenEngine(t, "", nil)
	assert.True(t, eng.IsOpen())

	_, err := os.Stat(eng.Path())
	assert.NoError(t, err)
}

func TestOpenEngine_Memory(t *testing.T) {
	eng := OpenEngine(t, engine.MemoryPath, nil)
	assert.Equal(t, engine.MemoryPath, eng.Path())

	// Closing early is fine; cleanup skips closed engines.
	require.NoError(t, eng.Close())
}

func TestLogBuffer_CapturesEngineLogs(t *testing.T) {
	logger, logs := NewLogger()
	eng := OpenEngine(t, engine.MemoryPath, logger)

	opened := logs.Find("database opened")
	require.Len(t, opened, 1)
	assert.Equal(t, engine.MemoryPath, opened[0]["path"])

	eng.Interrupt()
	assert.Len(t, logs.Find("interrupt requested"), 1)

	on, err := eng.AutoCommit(context.Background())
	require.NoError(t, err)
	assert.True(t, on)
}

func TestLogBuffer_ThreadSafe(t *testing.T) {
	logger, logs := NewLogger()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Info("tick", "n", i)
		}(i)
	}
	wg.Wait()

	assert.Len(t, logs.Find("tick"), 50)
}
