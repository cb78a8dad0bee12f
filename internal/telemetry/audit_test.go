package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuditLogAppendsJSONLine(t *testing.T) {
	dir := t.TempDir()
	log := NewAuditLog(dir)
	defer log.Close()

	at := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	require.NoError(t, log.Append("req-1", "demo", []byte(`{"status":"success"}`), 92, at))

	raw, err := os.ReadFile(filepath.Join(dir, "audit", "202607.jsonl"))
	require.NoError(t, err)
	line := strings.TrimSpace(string(raw))
	require.Contains(t, line, `"request_id":"req-1"`)
	require.Contains(t, line, `"confidence_score":92`)
}

func TestAuditLogRollsOverOnMonthChange(t *testing.T) {
	dir := t.TempDir()
	log := NewAuditLog(dir)
	defer log.Close()

	require.NoError(t, log.Append("req-1", "demo", []byte("{}"), 100, time.Date(2026, 6, 30, 23, 0, 0, 0, time.UTC)))
	require.NoError(t, log.Append("req-2", "demo", []byte("{}"), 100, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)))

	_, err := os.Stat(filepath.Join(dir, "audit", "202606.jsonl"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "audit", "202607.jsonl"))
	require.NoError(t, err)
}
