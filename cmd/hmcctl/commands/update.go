package commands

import (
	"github.com/spf13/cobra"

	"github.com/openlpar/hmcctl/pkg/hmc"
)

// updateFlags are the maintenance flags shared by update and upgrade.
type updateFlags struct {
	name       string
	id         string
	repository string
	imageName  string
	files      []string
	hostName   string
	userID     string
	password   string
	sshKeyFile string
	mountLoc   string
	option     string
	directory  string
	disks      []string
	restart    bool
	save       bool
	timeout    int
}

func (f *updateFlags) register(cmd *cobra.Command, upgrade bool) {
	cmd.Flags().StringVar(&f.name, "name", "", "VIOS partition name")
	cmd.Flags().StringVar(&f.id, "id", "", "VIOS partition ID")
	repos := "nfs, sftp, disk, ibmwebsite"
	if upgrade {
		repos = "nfs, sftp, disk"
	}
	cmd.Flags().StringVar(&f.repository, "repository", "", "image repository type ("+repos+")")
	cmd.Flags().StringVar(&f.imageName, "image-name", "", "name of the image on the console")
	cmd.Flags().StringSliceVar(&f.files, "files", nil, "image files to fetch from the repository")
	cmd.Flags().StringVar(&f.hostName, "host-name", "", "repository host")
	cmd.Flags().StringVar(&f.userID, "user-id", "", "repository user (sftp)")
	cmd.Flags().StringVar(&f.password, "repo-password", "", "repository password (sftp)")
	cmd.Flags().StringVar(&f.sshKeyFile, "ssh-key-file", "", "repository private key file (sftp)")
	cmd.Flags().StringVar(&f.mountLoc, "mount-loc", "", "exported mount location (nfs)")
	cmd.Flags().StringVar(&f.option, "nfs-version", "", "NFS protocol version, for example 4")
	cmd.Flags().StringVar(&f.directory, "directory", "", "directory on the repository host")
	cmd.Flags().IntVar(&f.timeout, "timeout", 0, "convergence deadline in minutes (minimum 10, default 60)")
	cmd.MarkFlagsMutuallyExclusive("name", "id")
	_ = cmd.MarkFlagRequired("repository")

	if upgrade {
		cmd.Flags().StringSliceVar(&f.disks, "disks", nil, "alternate disks to install the new level onto")
	} else {
		cmd.Flags().BoolVar(&f.restart, "restart", false, "restart the VIOS after applying the update")
		cmd.Flags().BoolVar(&f.save, "save", false, "save the fetched image to the console repository")
	}
}

func (f *updateFlags) params(system string) hmc.ParameterSet {
	params := hmc.ParameterSet{
		hmc.ParamSystemName: system,
		hmc.ParamRepository: f.repository,
	}
	setIfSet(params, hmc.ParamViosName, f.name)
	setIfSet(params, hmc.ParamViosID, f.id)
	setIfSet(params, hmc.ParamImageName, f.imageName)
	setIfSet(params, hmc.ParamHostName, f.hostName)
	setIfSet(params, hmc.ParamUserID, f.userID)
	setIfSet(params, hmc.ParamPassword, f.password)
	setIfSet(params, hmc.ParamSSHKeyFile, f.sshKeyFile)
	setIfSet(params, hmc.ParamMountLoc, f.mountLoc)
	setIfSet(params, hmc.ParamOption, f.option)
	setIfSet(params, hmc.ParamDirectory, f.directory)
	if len(f.files) > 0 {
		params[hmc.ParamFiles] = f.files
	}
	if len(f.disks) > 0 {
		params[hmc.ParamDisks] = f.disks
	}
	if f.restart {
		params[hmc.ParamRestart] = true
	}
	if f.save {
		params[hmc.ParamSave] = true
	}
	if f.timeout > 0 {
		params[hmc.ParamTimeout] = f.timeout
	}
	return params
}

func newViosUpdateCommand() *cobra.Command {
	var flags updateFlags

	cmd := &cobra.Command{
		Use:   "update <system>",
		Short: "Update a VIOS to a newer fix level",
		Long: `Apply a fix pack or service pack to a running VIOS partition. The image
is fetched from an NFS export, an SFTP host, the console's own repository
or the vendor website. The software level is read before and after; a VIOS
already at the target level is reported unchanged.`,
		Example: `  # Update from an NFS export
  hmcctl vios update p9-prod-01 --name vios1 --repository nfs \
    --host-name nim01.example.com --mount-loc /export/vios \
    --files update1.iso --files update2.iso

  # Update from the console's image repository
  hmcctl vios update p9-prod-01 --name vios1 --repository disk \
    --image-name vios41-fp1 --restart`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, hmc.ActionUpdateVios, flags.params(args[0]), false)
		},
	}

	flags.register(cmd, false)
	return cmd
}

func newViosUpgradeCommand() *cobra.Command {
	var flags updateFlags

	cmd := &cobra.Command{
		Use:   "upgrade <system>",
		Short: "Upgrade a VIOS to a new release",
		Long: `Upgrade a VIOS partition to a new release onto alternate disks. Upgrades
cannot be fetched from the vendor website; use an NFS export, an SFTP host
or the console's image repository.`,
		Example: `  # Upgrade from SFTP onto alternate disks
  hmcctl vios upgrade p9-prod-01 --name vios1 --repository sftp \
    --host-name repo.example.com --user-id images --ssh-key-file ~/.ssh/id_rsa \
    --directory /images/vios41 --files mksysb_image --disks hdisk1 --disks hdisk2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, hmc.ActionUpgradeVios, flags.params(args[0]), false)
		},
	}

	flags.register(cmd, true)
	return cmd
}
