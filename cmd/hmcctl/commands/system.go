package commands

import (
	"github.com/spf13/cobra"

	"github.com/openlpar/hmcctl/pkg/hmc"
)

func newSystemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Managed system lifecycle operations",
		Long: `Operate on a managed system. The system is addressed by name or by its
machine-type/model*serial identifier (for example 9009-42A*1234567), which is
resolved to the name before any operation runs.`,
	}

	cmd.AddCommand(newSystemPowerOnCommand())
	cmd.AddCommand(newSystemPowerOffCommand())
	cmd.AddCommand(newSystemConfigureCommand())
	cmd.AddCommand(newSystemMemoryCommand())
	cmd.AddCommand(newSystemFactsCommand())

	return cmd
}

func newSystemPowerOnCommand() *cobra.Command {
	var timeout int

	cmd := &cobra.Command{
		Use:   "power-on <system>",
		Short: "Power on a managed system",
		Long: `Power on a managed system and wait until it reaches Operating or Standby
state. A system that is already powered on is reported unchanged without any
console mutation.`,
		Example: `  # Power on by name
  hmcctl system power-on p9-prod-01

  # Power on by machine-type/model*serial, with a 30 minute deadline
  hmcctl system power-on 9009-42A*1234567 --timeout 30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := hmc.ParameterSet{hmc.ParamSystemName: args[0]}
			if timeout > 0 {
				params[hmc.ParamTimeout] = timeout
			}
			return runAction(cmd, hmc.ActionPowerOn, params, false)
		},
	}

	cmd.Flags().IntVar(&timeout, "timeout", 0, "convergence deadline in minutes (minimum 10, default 60)")
	return cmd
}

func newSystemPowerOffCommand() *cobra.Command {
	var timeout int

	cmd := &cobra.Command{
		Use:   "power-off <system>",
		Short: "Power off a managed system",
		Long: `Power off a managed system and wait until it reaches Power Off state. A
system that is already powered off is reported unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := hmc.ParameterSet{hmc.ParamSystemName: args[0]}
			if timeout > 0 {
				params[hmc.ParamTimeout] = timeout
			}
			return runAction(cmd, hmc.ActionPowerOff, params, false)
		},
	}

	cmd.Flags().IntVar(&timeout, "timeout", 0, "convergence deadline in minutes (minimum 10, default 60)")
	return cmd
}

func newSystemConfigureCommand() *cobra.Command {
	var (
		newName        string
		powerOffPolicy string
		startPolicy    string
	)

	cmd := &cobra.Command{
		Use:   "configure <system>",
		Short: "Reconcile managed system configuration",
		Long: `Change managed system configuration attributes. The current configuration
is read first; when every requested attribute already holds its desired
value, no mutation is issued.`,
		Example: `  # Rename a system
  hmcctl system configure p9-prod-01 --new-name p9-prod-renamed

  # Set the automatic power-off policy
  hmcctl system configure p9-prod-01 --power-off-policy 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := hmc.ParameterSet{hmc.ParamSystemName: args[0]}
			setIfSet(params, hmc.ParamNewName, newName)
			setIfSet(params, hmc.ParamPowerOffPolicy, powerOffPolicy)
			setIfSet(params, hmc.ParamPowerOnLparStartPolicy, startPolicy)
			return runAction(cmd, hmc.ActionModifySysConfig, params, false)
		},
	}

	cmd.Flags().StringVar(&newName, "new-name", "", "rename the system")
	cmd.Flags().StringVar(&powerOffPolicy, "power-off-policy", "", "automatic power-off policy")
	cmd.Flags().StringVar(&startPolicy, "power-on-lpar-start-policy", "", "partition start policy at power on")
	return cmd
}

func newSystemMemoryCommand() *cobra.Command {
	var (
		hugePages     string
		mirroringMode string
		regionSize    string
	)

	cmd := &cobra.Command{
		Use:   "memory <system>",
		Short: "Reconcile managed system memory settings",
		Long: `Change managed system memory resources. Values that already match the
current (or pending) configuration issue no mutation.`,
		Example: `  # Request huge pages and a pending memory region size
  hmcctl system memory p9-prod-01 --huge-pages 4 --region-size 256`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := hmc.ParameterSet{hmc.ParamSystemName: args[0]}
			setIfSet(params, hmc.ParamHugePages, hugePages)
			setIfSet(params, hmc.ParamMemMirroringMode, mirroringMode)
			setIfSet(params, hmc.ParamPendMemRegionSize, regionSize)
			return runAction(cmd, hmc.ActionModifyHwRes, params, false)
		},
	}

	cmd.Flags().StringVar(&hugePages, "huge-pages", "", "requested number of huge pages")
	cmd.Flags().StringVar(&mirroringMode, "mirroring-mode", "", "memory mirroring mode")
	cmd.Flags().StringVar(&regionSize, "region-size", "", "pending memory region size in MB")
	return cmd
}

func newSystemFactsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facts <system>",
		Short: "Fetch managed system facts",
		Long: `Fetch the managed system's property document from the console's REST
interface and print it as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := hmc.ParameterSet{hmc.ParamSystemName: args[0]}
			return runAction(cmd, hmc.ActionFacts, params, true)
		},
	}
	return cmd
}
