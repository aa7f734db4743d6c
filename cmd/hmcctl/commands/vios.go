package commands

import (
	"github.com/spf13/cobra"

	"github.com/openlpar/hmcctl/pkg/hmc"
)

func newViosCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vios",
		Short: "Virtual I/O Server lifecycle operations",
		Long: `Create, install, maintain and inspect Virtual I/O Server partitions on a
managed system.`,
	}

	cmd.AddCommand(newViosCreateCommand())
	cmd.AddCommand(newViosInstallCommand())
	cmd.AddCommand(newViosAcceptLicenseCommand())
	cmd.AddCommand(newViosFactsCommand())
	cmd.AddCommand(newViosVersionCommand())
	cmd.AddCommand(newViosUpdateCommand())
	cmd.AddCommand(newViosUpgradeCommand())

	return cmd
}

func newViosCreateCommand() *cobra.Command {
	var settings []string

	cmd := &cobra.Command{
		Use:   "create <system> <name>",
		Short: "Create a Virtual I/O Server partition",
		Long: `Create a VIOS partition on a managed system. A partition that already
exists under the name is reported unchanged. Partition settings beyond the
name are passed through to the console unchanged.`,
		Example: `  # Create with explicit resources
  hmcctl vios create p9-prod-01 vios1 \
    --set min_mem=1024 --set desired_mem=4096 --set max_mem=8192`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseSettings(settings)
			if err != nil {
				return err
			}
			params := hmc.ParameterSet{
				hmc.ParamSystemName: args[0],
				hmc.ParamName:       args[1],
			}
			if attrs != nil {
				params[hmc.ParamSettings] = attrs
			}
			return runAction(cmd, hmc.ActionCreateVios, params, false)
		},
	}

	cmd.Flags().StringArrayVar(&settings, "set", nil, "partition setting as key=value (repeatable)")
	return cmd
}

func newViosInstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install a Virtual I/O Server image",
	}
	cmd.AddCommand(newViosInstallNimCommand())
	cmd.AddCommand(newViosInstallDiskCommand())
	return cmd
}

func newViosInstallNimCommand() *cobra.Command {
	var (
		nimIP        string
		nimGateway   string
		nimSubnet    string
		viosIP       string
		profile      string
		locationCode string
		vlanID       string
		vlanPriority string
		timeout      int
	)

	cmd := &cobra.Command{
		Use:   "nim <system> <name>",
		Short: "Install from a NIM server over the network",
		Long: `Network-install a VIOS partition from a NIM server. When no network
adapter location code is given, the partition's adapters are probed and the
first one that can reach the NIM server is used. After the install kicks
off, the command waits until the partition is Running and its management
connection (RMC) is active.`,
		Example: `  # Install, probing for a reachable adapter
  hmcctl vios install nim p9-prod-01 vios1 \
    --nim-ip 10.0.0.10 --nim-gateway 10.0.0.1 \
    --nim-subnetmask 255.255.255.0 --vios-ip 10.0.0.20`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := hmc.ParameterSet{
				hmc.ParamSystemName:    args[0],
				hmc.ParamName:          args[1],
				hmc.ParamNimIP:         nimIP,
				hmc.ParamNimGateway:    nimGateway,
				hmc.ParamNimSubnetmask: nimSubnet,
				hmc.ParamViosIP:        viosIP,
			}
			setIfSet(params, hmc.ParamProfName, profile)
			setIfSet(params, hmc.ParamLocationCode, locationCode)
			setIfSet(params, hmc.ParamNimVlanID, vlanID)
			setIfSet(params, hmc.ParamNimVlanPriority, vlanPriority)
			if timeout > 0 {
				params[hmc.ParamTimeout] = timeout
			}
			return runAction(cmd, hmc.ActionInstallViaNim, params, false)
		},
	}

	cmd.Flags().StringVar(&nimIP, "nim-ip", "", "NIM server IP address")
	cmd.Flags().StringVar(&nimGateway, "nim-gateway", "", "gateway towards the NIM server")
	cmd.Flags().StringVar(&nimSubnet, "nim-subnetmask", "", "subnet mask for the install network")
	cmd.Flags().StringVar(&viosIP, "vios-ip", "", "IP address assigned to the VIOS during install")
	cmd.Flags().StringVar(&profile, "profile", "", "partition profile name")
	cmd.Flags().StringVar(&locationCode, "location-code", "", "network adapter location code (probed when absent)")
	cmd.Flags().StringVar(&vlanID, "vlan-id", "", "VLAN tag for the install network")
	cmd.Flags().StringVar(&vlanPriority, "vlan-priority", "", "VLAN priority for the install network")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "convergence deadline in minutes (minimum 10, default 60)")
	_ = cmd.MarkFlagRequired("nim-ip")
	_ = cmd.MarkFlagRequired("nim-gateway")
	_ = cmd.MarkFlagRequired("nim-subnetmask")
	_ = cmd.MarkFlagRequired("vios-ip")
	return cmd
}

func newViosInstallDiskCommand() *cobra.Command {
	var (
		iso      string
		imageDir string
		viosIP   string
		gateway  string
		subnet   string
		profile  string
		macAddr  string
		label    string
		timeout  int
	)

	cmd := &cobra.Command{
		Use:   "disk <system> <name>",
		Short: "Install from an image stored on the console",
		Long: `Install a VIOS partition from an ISO image held in the console's image
repository. After the install kicks off, the command waits until the
partition is Running and its management connection (RMC) is active.`,
		Example: `  # Install from a repository image
  hmcctl vios install disk p9-prod-01 vios1 \
    --iso vios41.iso --image-dir vios41 --profile default_profile \
    --vios-ip 10.0.0.20 --gateway 10.0.0.1 --subnetmask 255.255.255.0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := hmc.ParameterSet{
				hmc.ParamSystemName:     args[0],
				hmc.ParamViosName:       args[1],
				hmc.ParamViosISO:        iso,
				hmc.ParamImageDir:       imageDir,
				hmc.ParamViosIP:         viosIP,
				hmc.ParamViosGateway:    gateway,
				hmc.ParamViosSubnetmask: subnet,
				hmc.ParamProfName:       profile,
			}
			setIfSet(params, hmc.ParamNetworkMacAddr, macAddr)
			setIfSet(params, hmc.ParamLabel, label)
			if timeout > 0 {
				params[hmc.ParamTimeout] = timeout
			}
			return runAction(cmd, hmc.ActionInstallViaDisk, params, false)
		},
	}

	cmd.Flags().StringVar(&iso, "iso", "", "ISO file name in the image repository")
	cmd.Flags().StringVar(&imageDir, "image-dir", "", "image repository directory")
	cmd.Flags().StringVar(&viosIP, "vios-ip", "", "IP address assigned to the VIOS during install")
	cmd.Flags().StringVar(&gateway, "gateway", "", "default gateway for the VIOS")
	cmd.Flags().StringVar(&subnet, "subnetmask", "", "subnet mask for the VIOS")
	cmd.Flags().StringVar(&profile, "profile", "", "partition profile name")
	cmd.Flags().StringVar(&macAddr, "mac-address", "", "network adapter MAC address to boot from (discovered via a netboot probe when omitted)")
	cmd.Flags().StringVar(&label, "label", "", "media label")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "convergence deadline in minutes (minimum 10, default 60)")
	_ = cmd.MarkFlagRequired("iso")
	_ = cmd.MarkFlagRequired("image-dir")
	_ = cmd.MarkFlagRequired("vios-ip")
	_ = cmd.MarkFlagRequired("gateway")
	_ = cmd.MarkFlagRequired("subnetmask")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func newViosAcceptLicenseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accept-license <system> <name>",
		Short: "Accept the VIOS license",
		Long: `Accept the software license on a running VIOS partition. The partition's
management connection (RMC) must be active.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := hmc.ParameterSet{
				hmc.ParamSystemName: args[0],
				hmc.ParamName:       args[1],
			}
			return runAction(cmd, hmc.ActionAcceptLicense, params, false)
		},
	}
	return cmd
}

func newViosFactsCommand() *cobra.Command {
	var (
		freePVs      bool
		opticalMedia bool
	)

	cmd := &cobra.Command{
		Use:   "facts <system> <name>",
		Short: "Fetch VIOS partition facts",
		Long: `Fetch a VIOS partition's property document from the console's REST
interface. Free physical volumes and virtual optical media can be included
on request.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := hmc.ParameterSet{
				hmc.ParamSystemName: args[0],
				hmc.ParamName:       args[1],
			}
			if freePVs {
				params[hmc.ParamFreePVs] = true
			}
			if opticalMedia {
				params[hmc.ParamVirtualOpticalMedia] = true
			}
			return runAction(cmd, hmc.ActionViosFacts, params, true)
		},
	}

	cmd.Flags().BoolVar(&freePVs, "free-pvs", false, "include free physical volumes")
	cmd.Flags().BoolVar(&opticalMedia, "virtual-optical-media", false, "include virtual optical media")
	return cmd
}

func newViosVersionCommand() *cobra.Command {
	var (
		name string
		id   string
	)

	cmd := &cobra.Command{
		Use:   "version <system>",
		Short: "Show the VIOS software level",
		Long:  `Query the installed software level (ioslevel) of a VIOS partition.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := hmc.ParameterSet{hmc.ParamSystemName: args[0]}
			setIfSet(params, hmc.ParamViosName, name)
			setIfSet(params, hmc.ParamViosID, id)
			return runAction(cmd, hmc.ActionViosVersion, params, false)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "VIOS partition name")
	cmd.Flags().StringVar(&id, "id", "", "VIOS partition ID")
	cmd.MarkFlagsMutuallyExclusive("name", "id")
	return cmd
}
