// Package cmd provides the CLI commands for essd, the thin CLI
// surface over the Engineering Support System core described in
// spec §6.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/logging"
	"github.com/veracity-dev/ess/internal/registry"
	"github.com/veracity-dev/ess/pkg/version"
)

var (
	configPath   string
	registryPath string
)

// NewRootCmd builds the essd command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "essd",
		Short:         "Engineering Support System: evidence-grounded codebase queries",
		Long:          `essd indexes a codebase into a graph and vector store and answers questions against them, every answer backed by a veracity score instead of an LLM's unverified claim.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("essd version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to ess config YAML")
	cmd.PersistentFlags().StringVar(&registryPath, "registry", "", "path to project registry YAML (default ~/.veracity/projects.yaml)")

	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newDaemonCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(cmd.ErrOrStderr(), exitMessage(err))
	return exitCode(err)
}

func registryFilePath() string {
	if registryPath != "" {
		return registryPath
	}
	return registry.DefaultPath()
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Server.LogLevel)
}
