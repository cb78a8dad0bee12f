package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/veracity-dev/ess/internal/registry"
	"github.com/veracity-dev/ess/internal/tui"
)

// statusInfo is the JSON shape for `essd status`, independent of
// /health's circuit-breaker view (that's `essd doctor`'s job).
type statusInfo struct {
	Project         string             `json:"project"`
	RootDir         string             `json:"root_dir"`
	TargetDirs      []string           `json:"target_dirs,omitempty"`
	WatchMode       registry.WatchMode `json:"watch_mode"`
	DebounceSeconds float64            `json:"debounce_seconds"`
	Enabled         bool               `json:"enabled"`
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <project>",
		Short: "Show a registered project's configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project := args[0]
			p, err := registry.Get(registryFilePath(), project)
			if err != nil {
				return err
			}

			info := statusInfo{
				Project:         project,
				RootDir:         p.RootDir,
				TargetDirs:      p.TargetDirs,
				WatchMode:       p.WatchMode,
				DebounceSeconds: p.DebounceSeconds,
				Enabled:         p.Enabled,
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			renderer := tui.NewStatusRenderer(cmd.OutOrStdout(), tui.DetectNoColor())
			renderer.Render(tui.ProjectStatus{
				Project:         info.Project,
				RootDir:         info.RootDir,
				TargetDirs:      info.TargetDirs,
				WatchMode:       string(info.WatchMode),
				DebounceSeconds: info.DebounceSeconds,
				Enabled:         info.Enabled,
			})
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}
