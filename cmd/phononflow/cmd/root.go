package cmd

import (
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/G-Research/phononflow/internal/common"
	commonconfig "github.com/G-Research/phononflow/internal/common/config"
	"github.com/G-Research/phononflow/internal/phononflow/configuration"
)

const CustomConfigLocation string = "config"

var defaultConfigPath = "./config/phononflow"

func RootCmd() *cobra.Command {
	run := runCmd()
	cmd := &cobra.Command{
		Use:          "phononflow",
		SilenceUsage: true,
		Short:        "Computes phonon densities of states for a batch of bulk crystals",
		Long: `phononflow relaxes each configured crystal, computes its phonons on a q-point grid,
builds real space force constants and interpolates them into a phonon density of states.
Without a sub-command it behaves like "phononflow run".`,
		RunE: run.RunE,
	}

	cmd.PersistentFlags().StringSlice(
		CustomConfigLocation,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")
	if err := viper.BindPFlag(CustomConfigLocation, cmd.PersistentFlags().Lookup(CustomConfigLocation)); err != nil {
		panic(err)
	}

	cmd.AddCommand(
		run,
		renderCmd(),
	)

	return cmd
}

func loadConfig() (configuration.Configuration, error) {
	var config configuration.Configuration
	userSpecifiedConfigs := viper.GetStringSlice(CustomConfigLocation)

	common.LoadConfig(&config, defaultConfigPath, userSpecifiedConfigs)

	err := commonconfig.Validate(config)
	if err != nil {
		commonconfig.LogValidationErrors(err)
		return config, err
	}
	if err := config.Validate(); err != nil {
		if merr, ok := err.(*multierror.Error); ok {
			for _, e := range merr.Errors {
				commonconfig.LogValidationErrors(e)
			}
		}
		return config, err
	}
	return config, config.ExpandPaths()
}
