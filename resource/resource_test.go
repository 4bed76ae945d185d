package resource_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/faceindex/resource"
)

func TestControllerUnlimited(t *testing.T) {
	rc := resource.NewController(resource.Config{})
	require.NoError(t, rc.AcquireIO(context.Background(), 1<<30))

	// A nil controller is a no-op too.
	var nilRC *resource.Controller
	require.NoError(t, nilRC.AcquireIO(context.Background(), 1<<30))
}

func TestControllerThrottles(t *testing.T) {
	// 1 KiB/s with a 256 byte burst: acquiring 512 bytes needs at least
	// 256 bytes beyond the burst, i.e. ~250ms.
	rc := resource.NewController(resource.Config{IOBytesPerSec: 1024, Burst: 256})

	start := time.Now()
	require.NoError(t, rc.AcquireIO(context.Background(), 512))
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestControllerHonorsCancellation(t *testing.T) {
	rc := resource.NewController(resource.Config{IOBytesPerSec: 1, Burst: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rc.AcquireIO(ctx, 100)
	require.Error(t, err)
}

func TestRateLimitedWriterAndReader(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{IOBytesPerSec: 1 << 20})

	var buf bytes.Buffer
	w := resource.NewWriter(ctx, &buf, rc)
	n, err := w.Write([]byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	r := resource.NewReader(ctx, &buf, rc)
	out := make([]byte, 7)
	n, err = r.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, []byte("payload"), out)

	// Nil controller passes through.
	var buf2 bytes.Buffer
	w2 := resource.NewWriter(ctx, &buf2, nil)
	_, err = w2.Write([]byte("x"))
	require.NoError(t, err)
}
