package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/registry"
)

func newRegisterCmd() *cobra.Command {
	var root string
	var targetDirs []string
	var watchMode string
	var debounce float64
	var disabled bool

	cmd := &cobra.Command{
		Use:   "register <project>",
		Short: "Register a project root in the project registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project := args[0]
			if root == "" {
				return esserr.Validation("register requires --root", nil)
			}
			mode := registry.WatchMode(watchMode)
			switch mode {
			case registry.WatchRealtime, registry.WatchPolling, registry.WatchGitOnly:
			default:
				return esserr.Validation(fmt.Sprintf("invalid --watch-mode %q", watchMode), nil)
			}

			err := registry.Put(registryFilePath(), project, registry.Project{
				RootDir:         root,
				TargetDirs:      targetDirs,
				WatchMode:       mode,
				DebounceSeconds: debounce,
				Enabled:         !disabled,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "registered %q at %s (watch_mode=%s)\n", project, root, mode)
			return err
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "project root directory (required)")
	cmd.Flags().StringSliceVar(&targetDirs, "target-dirs", nil, "subdirectories to scope discovery to (default: whole root)")
	cmd.Flags().StringVar(&watchMode, "watch-mode", string(registry.WatchRealtime), "realtime|polling|git_only")
	cmd.Flags().Float64Var(&debounce, "debounce-seconds", 2, "watcher debounce window in seconds")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "register the project without enabling the watcher")

	return cmd
}
