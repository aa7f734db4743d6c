package hmccli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/openlpar/hmcctl/pkg/hmc"
)

// Runner executes one console command line and returns its stdout. Client
// implements it; tests substitute a scripted fake.
type Runner interface {
	Execute(ctx context.Context, cmd string) (string, error)
}

// Console is the high-level command surface of the management console,
// built from lssyscfg/chsysstate/chsyscfg/chhwres command lines and their
// field-formatted output.
type Console struct {
	runner Runner
}

// NewConsole wraps a command runner with the console command surface.
func NewConsole(runner Runner) *Console {
	return &Console{runner: runner}
}

// PartitionStatus is the coarse per-partition state row reported by the
// console.
type PartitionStatus struct {
	Name     string
	State    string
	RMCState string
	ID       string
}

// NetbootDevice is one row of the netboot I/O adapter probe.
type NetbootDevice struct {
	LocationCode string
	MACAddress   string
	PingResult   string
}

// SystemNameFromMTMS resolves a machine type/model*serial identifier to the
// managed system name.
func (c *Console) SystemNameFromMTMS(ctx context.Context, mtms string) (string, error) {
	out, err := c.runner.Execute(ctx, "lssyscfg -r sys -F name,type_model,serial_num")
	if err != nil {
		return "", err
	}
	for _, line := range splitLines(out) {
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			continue
		}
		if fields[1]+"*"+fields[2] == mtms {
			return fields[0], nil
		}
	}
	return "", &hmc.NotFoundError{Kind: "managed system", Name: mtms}
}

// ListSystemIdentifiers returns every managed system's name and MTMS, the
// identifier set a caller-supplied target must fall into.
func (c *Console) ListSystemIdentifiers(ctx context.Context) ([]string, error) {
	names, err := c.runner.Execute(ctx, "lssyscfg -r sys -F name")
	if err != nil {
		return nil, err
	}
	mtms, err := c.runner.Execute(ctx, "lssyscfg -r sys -F type_model*serial_num")
	if err != nil {
		return nil, err
	}
	return append(splitLines(names), splitLines(mtms)...), nil
}

// SystemDetails fetches the managed system's full attribute mapping.
func (c *Console) SystemDetails(ctx context.Context, system string) (map[string]string, error) {
	out, err := c.runner.Execute(ctx, fmt.Sprintf("lssyscfg -r sys -m %s", quoteArg(system)))
	if err != nil {
		return nil, err
	}
	return parseAttributes(firstLine(out)), nil
}

// SystemState fetches only the coarse operational state of the system.
func (c *Console) SystemState(ctx context.Context, system string) (string, error) {
	out, err := c.runner.Execute(ctx, fmt.Sprintf("lssyscfg -r sys -m %s -F state", quoteArg(system)))
	if err != nil {
		return "", err
	}
	return firstLine(out), nil
}

// PowerOn issues the system power-on command.
func (c *Console) PowerOn(ctx context.Context, system string) error {
	_, err := c.runner.Execute(ctx, fmt.Sprintf("chsysstate -m %s -r sys -o on", quoteArg(system)))
	return err
}

// PowerOff issues the system power-off command.
func (c *Console) PowerOff(ctx context.Context, system string) error {
	_, err := c.runner.Execute(ctx, fmt.Sprintf("chsysstate -m %s -r sys -o off", quoteArg(system)))
	return err
}

// ModifySystemConfig applies general configuration settings to the system.
func (c *Console) ModifySystemConfig(ctx context.Context, system string, attrs map[string]string) error {
	_, err := c.runner.Execute(ctx, fmt.Sprintf("chsyscfg -r sys -m %s -i %s",
		quoteArg(system), quoteArg(renderAttrs(attrs))))
	return err
}

// MemorySettings fetches the system-level memory attribute mapping.
func (c *Console) MemorySettings(ctx context.Context, system string) (map[string]string, error) {
	out, err := c.runner.Execute(ctx, fmt.Sprintf("lshwres -r mem -m %s --level sys", quoteArg(system)))
	if err != nil {
		return nil, err
	}
	return parseAttributes(firstLine(out)), nil
}

// ModifyMemorySettings applies system-level memory settings.
func (c *Console) ModifyMemorySettings(ctx context.Context, system string, attrs map[string]string) error {
	_, err := c.runner.Execute(ctx, fmt.Sprintf("chhwres -r mem -m %s -o s -a %s",
		quoteArg(system), quoteArg(renderAttrs(attrs))))
	return err
}

// PartitionConfig fetches a partition's attribute mapping, optionally for a
// named profile.
func (c *Console) PartitionConfig(ctx context.Context, system, partition, profile string) (map[string]string, error) {
	var cmd string
	if profile != "" {
		cmd = fmt.Sprintf("lssyscfg -r prof -m %s --filter %s",
			quoteArg(system), quoteArg(fmt.Sprintf("lpar_names=%s,profile_names=%s", partition, profile)))
	} else {
		cmd = fmt.Sprintf("lssyscfg -r lpar -m %s --filter %s",
			quoteArg(system), quoteArg("lpar_names="+partition))
	}
	out, err := c.runner.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	line := firstLine(out)
	if line == "" {
		return nil, &hmc.NotFoundError{Kind: "vios", Name: partition}
	}
	return parseAttributes(line), nil
}

// PartitionStatuses lists the name,state,rmc_state,lpar_id rows of every
// partition on the system.
func (c *Console) PartitionStatuses(ctx context.Context, system string) ([]PartitionStatus, error) {
	out, err := c.runner.Execute(ctx, fmt.Sprintf(
		"lssyscfg -r lpar -m %s -F name,state,rmc_state,lpar_id", quoteArg(system)))
	if err != nil {
		return nil, err
	}
	var statuses []PartitionStatus
	for _, line := range splitLines(out) {
		fields := strings.Split(line, ",")
		if len(fields) != 4 {
			continue
		}
		statuses = append(statuses, PartitionStatus{
			Name:     fields[0],
			State:    fields[1],
			RMCState: fields[2],
			ID:       fields[3],
		})
	}
	return statuses, nil
}

// PartitionRefCode fetches the partition's current hardware reference code.
func (c *Console) PartitionRefCode(ctx context.Context, system, partition string) (string, error) {
	out, err := c.runner.Execute(ctx, fmt.Sprintf(
		"lsrefcode -r lpar -m %s --filter %s -F refcode",
		quoteArg(system), quoteArg("lpar_names="+partition)))
	if err != nil {
		return "", err
	}
	return firstLine(out), nil
}

// CreateVios creates a VIOS partition with the given settings; lpar_env is
// forced to vioserver.
func (c *Console) CreateVios(ctx context.Context, system, name string, settings map[string]string) error {
	attrs := map[string]string{"name": name, "lpar_env": "vioserver"}
	for k, v := range settings {
		attrs[k] = v
	}
	_, err := c.runner.Execute(ctx, fmt.Sprintf("mksyscfg -r lpar -m %s -i %s",
		quoteArg(system), quoteArg(renderAttrs(attrs))))
	return err
}

// NimInstallSpec carries the parameters of a network install.
type NimInstallSpec struct {
	System       string
	Partition    string
	Profile      string
	NimIP        string
	Gateway      string
	ViosIP       string
	Subnetmask   string
	VlanID       string
	VlanPriority string
	LocationCode string
}

// NetbootDevices probes the partition's network adapters for installability
// and reports their ping result.
func (c *Console) NetbootDevices(ctx context.Context, spec NimInstallSpec) ([]NetbootDevice, error) {
	out, err := c.runner.Execute(ctx, fmt.Sprintf(
		"lpar_netboot -M -A -n -t ent -D -s auto -d auto -S %s -G %s -C %s -K %s %s %s %s",
		spec.NimIP, spec.Gateway, spec.ViosIP, spec.Subnetmask,
		quoteArg(spec.Partition), quoteArg(spec.Profile), quoteArg(spec.System)))
	if err != nil {
		return nil, err
	}
	var devices []NetbootDevice
	for _, line := range splitLines(out) {
		// Rows look like: ent U9009.42A.1234567-V1-C2-T1 fe01c2aa3344 successful
		fields := strings.Fields(line)
		if len(fields) < 4 || fields[0] != "ent" {
			continue
		}
		devices = append(devices, NetbootDevice{
			LocationCode: fields[1],
			MACAddress:   fields[2],
			PingResult:   fields[3],
		})
	}
	return devices, nil
}

// InstallViosFromNIM starts a network install of the partition from the NIM
// server through the adapter at spec.LocationCode.
func (c *Console) InstallViosFromNIM(ctx context.Context, spec NimInstallSpec) error {
	_, err := c.runner.Execute(ctx, fmt.Sprintf(
		"lpar_netboot -f -i -D -t ent -l %s -s auto -d auto -S %s -G %s -C %s -K %s -V %s -Y %s %s %s %s",
		spec.LocationCode, spec.NimIP, spec.Gateway, spec.ViosIP, spec.Subnetmask,
		spec.VlanID, spec.VlanPriority,
		quoteArg(spec.Partition), quoteArg(spec.Profile), quoteArg(spec.System)))
	return err
}

// DiskInstallSpec carries the parameters of an install from an image held on
// the console's disk.
type DiskInstallSpec struct {
	System     string
	Partition  string
	Profile    string
	ImageDir   string
	ViosISO    string
	ViosIP     string
	Gateway    string
	Subnetmask string
	MACAddress string
	Label      string
}

// InstallViosFromImage starts an install of the partition from an image on
// the console hard disk.
func (c *Console) InstallViosFromImage(ctx context.Context, spec DiskInstallSpec) error {
	cmd := fmt.Sprintf(
		"installios -s %s -p %s -r %s -d /extra/viosimages/%s/%s -i %s -g %s -S %s -m %s -n",
		quoteArg(spec.System), quoteArg(spec.Partition), quoteArg(spec.Profile),
		spec.ImageDir, spec.ViosISO, spec.ViosIP, spec.Gateway, spec.Subnetmask, spec.MACAddress)
	if spec.Label != "" {
		cmd += " -L " + quoteArg(spec.Label)
	}
	_, err := c.runner.Execute(ctx, cmd)
	return err
}

// RunViosCommand runs a command inside the VIOS restricted shell over the
// console's virtual terminal channel.
func (c *Console) RunViosCommand(ctx context.Context, system, partition, viosCmd string) (string, error) {
	return c.runner.Execute(ctx, fmt.Sprintf("viosvrcmd -m %s -p %s -c %s",
		quoteArg(system), quoteArg(partition), quoteArg(viosCmd)))
}

// ViosVersion reports the installed VIOS software level.
func (c *Console) ViosVersion(ctx context.Context, system, partition string) (string, error) {
	out, err := c.RunViosCommand(ctx, system, partition, "ioslevel")
	if err != nil {
		return "", err
	}
	return firstLine(out), nil
}

// UpdateSpec carries the flattened parameters of an update or upgrade run.
// List parameters arrive already comma-joined and the NFS option already in
// its quoted "ver=N" form.
type UpdateSpec struct {
	System     string
	ViosName   string
	ViosID     string
	Upgrade    bool
	Repository string
	ImageName  string
	Files      string
	HostName   string
	UserID     string
	Password   string
	SSHKeyFile string
	MountLoc   string
	Option     string
	Directory  string
	Disks      string
	Restart    bool
	Save       bool
}

// UpdateVios drives the console's VIOS update/upgrade command.
func (c *Console) UpdateVios(ctx context.Context, spec UpdateSpec) error {
	op := "install"
	if spec.Upgrade {
		op = "upgrade"
	}
	cmd := fmt.Sprintf("updvios -t vios -m %s -o %s -r %s", quoteArg(spec.System), op, spec.Repository)
	if spec.ViosName != "" {
		cmd += " -p " + quoteArg(spec.ViosName)
	} else {
		cmd += " --id " + spec.ViosID
	}
	for flag, value := range map[string]string{
		"-i": spec.ImageName,
		"-f": spec.Files,
		"-h": spec.HostName,
		"-u": spec.UserID,
		// The console reads the SFTP password from this option; it never
		// appears in logs because only the command name is logged.
		"--passwd": spec.Password,
		"-k":       spec.SSHKeyFile,
		"-l":       spec.MountLoc,
		"-d":       spec.Directory,
		"-a":       spec.Disks,
	} {
		if value != "" {
			cmd += " " + flag + " " + quoteArg(value)
		}
	}
	if spec.Option != "" {
		// Already quoted as "ver=N".
		cmd += " -x " + spec.Option
	}
	if spec.Restart {
		cmd += " --restart"
	}
	if spec.Save {
		cmd += " --save"
	}
	_, err := c.runner.Execute(ctx, cmd)
	return err
}

// renderAttrs renders an attribute mapping as the k=v,k=v input string of
// chsyscfg/chhwres/mksyscfg, in deterministic key order. Values containing
// commas are wrapped in the console's double-double-quote escaping.
func renderAttrs(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := attrs[k]
		if strings.Contains(v, ",") {
			v = `""` + v + `""`
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

// quoteArg shell-quotes a single command argument.
func quoteArg(arg string) string {
	if arg == "" {
		return `""`
	}
	if !strings.ContainsAny(arg, " \t\"'$`\\*?[]{}()<>|&;") {
		return arg
	}
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`).Replace(arg) + `"`
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func firstLine(out string) string {
	lines := splitLines(out)
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}
