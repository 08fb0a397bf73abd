package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/G-Research/phononflow/internal/common"
	"github.com/G-Research/phononflow/internal/common/util"
	"github.com/G-Research/phononflow/internal/provisioning"
)

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Prints the Slurm batch script requested for one block of each executor",
		Args:  cobra.NoArgs,
		RunE:  render,
	}
	cmd.Flags().String("command", "", "Worker command appended to the script, wrapped by the executor's launcher")
	return cmd
}

func render(cmd *cobra.Command, _ []string) error {
	common.ConfigureCommandLineLogging()
	command, err := cmd.Flags().GetString("command")
	if err != nil {
		return err
	}
	config, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	summary := util.NewTable("EXECUTOR", "ACCOUNT", "WALLTIME", "NODES", "WORKERS/NODE", "CAPACITY")
	scripts := make([]string, 0, len(config.Executors))
	for _, executor := range config.Executors {
		script, err := provisioning.RenderBatchScript(executor, command)
		if err != nil {
			return err
		}
		scripts = append(scripts, fmt.Sprintf("# executor %s\n%s", executor.Label, script))
		summary.Rowf("%s\t%s\t%s\t%d\t%d\t%d",
			executor.Label,
			executor.Provider.Account,
			executor.Provider.Walltime,
			executor.Provider.NodesPerBlock*executor.Provider.MaxBlocks,
			provisioning.WorkersPerNode(executor),
			provisioning.Capacity(executor))
	}
	fmt.Fprintln(out, summary.String())
	for _, script := range scripts {
		fmt.Fprintln(out, script)
	}
	return nil
}
