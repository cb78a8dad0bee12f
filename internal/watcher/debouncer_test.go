package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCoalesceCreateThenModifyStaysCreate(t *testing.T) {
	merged, keep := coalesce(FileEvent{Operation: OpCreate}, FileEvent{Operation: OpModify})
	require.True(t, keep)
	assert.Equal(t, OpCreate, merged.Operation)
}

func TestCoalesceCreateThenDeleteCancelsOut(t *testing.T) {
	_, keep := coalesce(FileEvent{Operation: OpCreate}, FileEvent{Operation: OpDelete})
	assert.False(t, keep)
}

func TestCoalesceDeleteThenCreateBecomesModify(t *testing.T) {
	merged, keep := coalesce(FileEvent{Operation: OpDelete}, FileEvent{Operation: OpCreate, Path: "a.go"})
	require.True(t, keep)
	assert.Equal(t, OpModify, merged.Operation)
}

func TestDebouncerFlushesOneBatchAfterWindow(t *testing.T) {
	d := newDebouncer(10*time.Millisecond, zap.NewNop())
	d.add(FileEvent{Path: "a.go", Operation: OpCreate})
	d.add(FileEvent{Path: "a.go", Operation: OpModify})
	d.add(FileEvent{Path: "b.go", Operation: OpModify})

	select {
	case batch := <-d.output():
		assert.Len(t, batch, 2)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for debounced batch")
	}
	d.stop()
}
