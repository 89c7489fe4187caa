package hpp

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadIsMemoized(t *testing.T) {
	var calls atomic.Int32
	loader := NewScriptLoaderFunc(func(ctx context.Context) (Bootstrap, error) {
		calls.Add(1)
		return Bootstrap{ScriptURL: "https://cdn.example/lib.js"}, nil
	})

	assert.False(t, loader.Loaded())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := loader.Load(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "https://cdn.example/lib.js", b.ScriptURL)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, loader.Loaded())
}

func TestLoadFailureIsSticky(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("cdn unreachable")
	loader := NewScriptLoaderFunc(func(ctx context.Context) (Bootstrap, error) {
		calls.Add(1)
		return Bootstrap{}, boom
	})

	_, err := loader.Load(context.Background())
	require.ErrorIs(t, err, boom)

	// No retry on subsequent loads; the failure holds for the process.
	_, err = loader.Load(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, loader.Loaded())
}
