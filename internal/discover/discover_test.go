package discover

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/model"
)

func TestClassifyExtensionKnownAndUnknown(t *testing.T) {
	cat, lang := ClassifyExtension(".go")
	assert.Equal(t, model.CategoryCode, cat)
	assert.Equal(t, "go", lang)

	cat, lang = ClassifyExtension(".xyz123")
	assert.Equal(t, model.CategoryData, cat)
	assert.Empty(t, lang)
}

func TestSniffBinaryDetectsNullByteAndInvalidUTF8(t *testing.T) {
	assert.True(t, SniffBinary([]byte{0x00, 0x01, 0x02}))
	assert.True(t, SniffBinary([]byte{0xff, 0xfe, 0xfd}))
	assert.False(t, SniffBinary([]byte("package main\n")))
}

func TestIgnorePolicySecurityDenyList(t *testing.T) {
	policy := NewIgnorePolicy("", nil)
	assert.True(t, policy.Ignored(".env"))
	assert.True(t, policy.Ignored(".env.production"))
	assert.True(t, policy.Ignored("secrets/id_rsa"))
	assert.True(t, policy.Ignored("certs/server.pem"))
	assert.False(t, policy.Ignored("internal/model/model.go"))
}

func TestIgnorePolicyGitignoreAndAllowList(t *testing.T) {
	policy := NewIgnorePolicy("*.log\nbuild/\n", []string{"src/**"})
	assert.True(t, policy.Ignored("debug.log"))
	assert.False(t, policy.Ignored("src/vendor/dep.go"), "matches the src/** allow glob")
	assert.False(t, policy.Ignored("src/main.go"))
	assert.True(t, policy.Ignored("docs/readme.md"), "outside the allow list")
}

func TestDiscoverReturnsSortedClassifiedFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("# hello\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("SECRET=x\n"), 0o644))

	log := zap.NewNop()
	policy := NewIgnorePolicy("", nil)
	results, summary, err := Discover(context.Background(), log, root, "proj1", config.DiscoveryConfig{}, policy)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "a.md", results[0].File.Path)
	assert.Equal(t, "b.go", results[1].File.Path)
	assert.Equal(t, model.CategoryDoc, results[0].File.Category)
	assert.Equal(t, model.CategoryCode, results[1].File.Category)
	assert.Equal(t, "go", results[1].File.Language)
	assert.Equal(t, 2, summary.FilesScanned)
	assert.Equal(t, 1, summary.FilesSkipped)
}

func TestDiscoverRespectsMaxFileBytes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), []byte("0123456789"), 0o644))

	log := zap.NewNop()
	policy := NewIgnorePolicy("", nil)
	results, summary, err := Discover(context.Background(), log, root, "proj1", config.DiscoveryConfig{MaxFileBytes: 5}, policy)
	require.NoError(t, err)

	assert.Empty(t, results)
	assert.Equal(t, 1, summary.FilesSkipped)
}

func TestDiscoverProducesDeterministicFileUID(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "x.go"), []byte("package x\n"), 0o644))

	log := zap.NewNop()
	policy := NewIgnorePolicy("", nil)
	results, _, err := Discover(context.Background(), log, root, "proj1", config.DiscoveryConfig{}, policy)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, model.FileUID("proj1", "x.go"), results[0].File.UID)
}
