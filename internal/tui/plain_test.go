package tui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlainRendererUpdateProgressOutputFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(Config{Output: buf})

	r.UpdateProgress(ProgressEvent{Stage: StageIndex, Current: 5, Total: 10, CurrentFile: "src/main.go"})

	output := buf.String()
	assert.Contains(t, output, "[Index]")
	assert.Contains(t, output, "5/10")
	assert.Contains(t, output, "src/main.go")
}

func TestPlainRendererUpdateProgressZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(Config{Output: buf})

	r.UpdateProgress(ProgressEvent{Stage: StageScan, CurrentFile: "scanning..."})

	output := buf.String()
	assert.Contains(t, output, "[Scan]")
	assert.NotContains(t, output, "0/0")
}

func TestPlainRendererAddErrorAndWarning(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(Config{Output: buf})

	r.AddError(ErrorEvent{File: "broken.go", Err: errors.New("syntax error"), IsWarn: false})
	r.AddError(ErrorEvent{File: "large.go", Err: errors.New("too big"), IsWarn: true})

	output := buf.String()
	assert.Contains(t, output, "ERROR: broken.go: syntax error")
	assert.Contains(t, output, "WARN: large.go: too big")
}

func TestPlainRendererComplete(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(Config{Output: buf})

	r.Complete(CompletionStats{FilesScanned: 100, FilesUnchanged: 80, FilesFailed: 1, Duration: 5 * time.Second})

	output := buf.String()
	assert.Contains(t, output, "scanned=100")
	assert.Contains(t, output, "unchanged=80")
	assert.Contains(t, output, "failed=1")
}

func TestNewRendererPicksPlainWhenForced(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewRenderer(Config{Output: buf, ForcePlain: true})
	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
}

func TestNewRendererPicksPlainForNonTTY(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewRenderer(Config{Output: buf})
	_, ok := r.(*PlainRenderer)
	assert.True(t, ok, "a bytes.Buffer is never a TTY")
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "Scan", StageScan.String())
	assert.Equal(t, "Index", StageIndex.String())
	assert.Equal(t, "Complete", StageComplete.String())
}
