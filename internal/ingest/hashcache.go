package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// HashCachePath returns the persisted-state location for a project's
// incremental hash cache: <state_dir>/.graph_hashes_<project>.json,
// the exact name spec §6's persisted-state layout specifies. Path
// separators in project are flattened so a project name can never
// escape state_dir.
func HashCachePath(stateDir, project string) string {
	safe := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(project)
	return filepath.Join(stateDir, ".graph_hashes_"+safe+".json")
}

// LoadHashCache reads a persisted HashCache, returning nil (treated
// as empty by Pipeline.Run) if it doesn't exist yet or is corrupt.
func LoadHashCache(path string) HashCache {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	cache := HashCache{}
	if err := json.Unmarshal(raw, &cache); err != nil {
		return nil
	}
	return cache
}

// SaveHashCache persists cache to path, creating parent directories
// as needed.
func SaveHashCache(path string, cache HashCache) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.Marshal(cache)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
