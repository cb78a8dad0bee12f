package mcpadapter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/query"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	registryPath := filepath.Join(t.TempDir(), "projects.yaml")
	return &Server{
		log:          zap.NewNop(),
		cfg:          config.Default(),
		registryPath: registryPath,
		engine:       &query.Engine{},
	}
}

func TestInvokeToolRegisterAndListProjects(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	out, err := s.InvokeTool(ctx, "register_project", map[string]any{
		"project":  "demo",
		"root_dir": "/repos/demo",
	})
	require.NoError(t, err)
	reg := out.(*RegisterProjectOutput)
	require.True(t, reg.Registered)

	out, err = s.InvokeTool(ctx, "list_projects", nil)
	require.NoError(t, err)
	list := out.(*ListProjectsOutput)
	require.Len(t, list.Projects, 1)
	require.Equal(t, "demo", list.Projects[0].Name)
	require.Equal(t, "realtime", list.Projects[0].WatchMode)
}

func TestInvokeToolRegisterProjectRejectsBadWatchMode(t *testing.T) {
	s := newTestServer(t)
	_, err := s.InvokeTool(context.Background(), "register_project", map[string]any{
		"project":    "demo",
		"root_dir":   "/repos/demo",
		"watch_mode": "nonsense",
	})
	require.Error(t, err)
}

func TestInvokeToolRequiresKnownProject(t *testing.T) {
	s := newTestServer(t)
	_, err := s.InvokeTool(context.Background(), "get_file_relationships", map[string]any{
		"project": "missing",
		"path":    "main.go",
	})
	require.Error(t, err)
}

func TestInvokeToolUnknownToolName(t *testing.T) {
	s := newTestServer(t)
	_, err := s.InvokeTool(context.Background(), "not_a_tool", nil)
	require.Error(t, err)
}
