package cmd

import (
	"github.com/spf13/cobra"

	"github.com/G-Research/phononflow/internal/phononflow"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs every configured structure through relax, phonon, q2r and matdyn",
		Args:  cobra.NoArgs,
		RunE:  runBatch,
	}
	return cmd
}

func runBatch(_ *cobra.Command, _ []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	return phononflow.Run(config)
}
