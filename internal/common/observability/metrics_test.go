package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_RecordsWithoutPanic(t *testing.T) {
	o := New("observability-test")
	require.NotNil(t, o)
	defer o.Shutdown()

	ctx := context.Background()
	o.RecordJobProcessed(ctx, "completed")
	o.RecordJobProcessed(ctx, "failed")
	o.RecordJobDuration(ctx, 150*time.Millisecond, "completed")
	o.RecordGroupSize(ctx, 4)
	o.RecordGroupSize(ctx, 5)
}

func TestObservability_ZeroValueIsSafe(t *testing.T) {
	o := &Observability{}

	ctx := context.Background()
	assert.NotPanics(t, func() {
		o.RecordJobProcessed(ctx, "completed")
		o.RecordJobDuration(ctx, time.Second, "failed")
		o.RecordGroupSize(ctx, 4)
		o.Shutdown()
	})
}
