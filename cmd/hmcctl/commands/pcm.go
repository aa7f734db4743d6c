package commands

import (
	"github.com/spf13/cobra"

	"github.com/openlpar/hmcctl/pkg/hmc"
)

func newPCMCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pcm",
		Short: "Performance and capacity monitoring preferences",
		Long: `Enable, disable and inspect a managed system's performance and capacity
monitoring metric groups. Groups: ltm (long term), stm (short term), am
(aggregation), cltm (compute long term), em (energy).

The console couples some groups: enabling aggregation also enables long
term monitoring, and disabling long term monitoring also disables
aggregation and compute long term monitoring. Coupled changes are reported
as warnings. Energy monitoring is skipped with a warning on systems that
are not capable of it.`,
	}

	cmd.AddCommand(newPCMEnableCommand())
	cmd.AddCommand(newPCMDisableCommand())
	cmd.AddCommand(newPCMFactsCommand())

	return cmd
}

func newPCMEnableCommand() *cobra.Command {
	var metrics []string

	cmd := &cobra.Command{
		Use:   "enable <system>",
		Short: "Enable metric groups",
		Example: `  # Enable long term monitoring and aggregation
  hmcctl pcm enable p9-prod-01 --metrics ltm --metrics am`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := hmc.ParameterSet{
				hmc.ParamSystemName: args[0],
				hmc.ParamMetrics:    metrics,
			}
			return runAction(cmd, hmc.ActionEnablePCM, params, true)
		},
	}

	cmd.Flags().StringSliceVar(&metrics, "metrics", nil, "metric groups to enable (ltm, stm, am, cltm, em)")
	_ = cmd.MarkFlagRequired("metrics")
	return cmd
}

func newPCMDisableCommand() *cobra.Command {
	var metrics []string

	cmd := &cobra.Command{
		Use:   "disable <system>",
		Short: "Disable metric groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := hmc.ParameterSet{
				hmc.ParamSystemName: args[0],
				hmc.ParamMetrics:    metrics,
			}
			return runAction(cmd, hmc.ActionDisablePCM, params, true)
		},
	}

	cmd.Flags().StringSliceVar(&metrics, "metrics", nil, "metric groups to disable (ltm, stm, am, cltm, em)")
	_ = cmd.MarkFlagRequired("metrics")
	return cmd
}

func newPCMFactsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facts <system>",
		Short: "Show current metric group preferences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := hmc.ParameterSet{hmc.ParamSystemName: args[0]}
			return runAction(cmd, hmc.ActionPcmFacts, params, true)
		},
	}
	return cmd
}
