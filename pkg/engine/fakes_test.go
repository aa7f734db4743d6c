package engine

import (
	"context"
	"sync"
	"time"

	"github.com/openlpar/hmcctl/pkg/hmc"
	"github.com/openlpar/hmcctl/pkg/rest"
	"github.com/openlpar/hmcctl/pkg/transports/hmccli"
)

// fakeClock advances virtual time on every sleep, so convergence waits run
// instantly in tests.
type fakeClock struct {
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps++
	c.now = c.now.Add(d)
	return nil
}

// fakeConsole scripts each console call with a function field; unset fields
// return zero values.
type fakeConsole struct {
	nameFromMTMS  func(mtms string) (string, error)
	listIDs       func() ([]string, error)
	sysDetails    func(system string) (map[string]string, error)
	sysState      func(system string) (string, error)
	powerOn       func(system string) error
	powerOff      func(system string) error
	modSysConfig  func(system string, attrs map[string]string) error
	memSettings   func(system string) (map[string]string, error)
	modMem        func(system string, attrs map[string]string) error
	partConfig    func(system, partition, profile string) (map[string]string, error)
	partStatuses  func(system string) ([]hmccli.PartitionStatus, error)
	partRefCode   func(system, partition string) (string, error)
	createVios    func(system, name string, settings map[string]string) error
	netbootProbe  func(spec hmccli.NimInstallSpec) ([]hmccli.NetbootDevice, error)
	installNIM    func(spec hmccli.NimInstallSpec) error
	installImage  func(spec hmccli.DiskInstallSpec) error
	runViosCmd    func(system, partition, viosCmd string) (string, error)
	viosVersion   func(system, partition string) (string, error)
	updateVios    func(spec hmccli.UpdateSpec) error
	mutatingCalls int
}

func (f *fakeConsole) SystemNameFromMTMS(_ context.Context, mtms string) (string, error) {
	if f.nameFromMTMS == nil {
		return mtms, nil
	}
	return f.nameFromMTMS(mtms)
}

func (f *fakeConsole) ListSystemIdentifiers(context.Context) ([]string, error) {
	if f.listIDs == nil {
		return nil, nil
	}
	return f.listIDs()
}

func (f *fakeConsole) SystemDetails(_ context.Context, system string) (map[string]string, error) {
	if f.sysDetails == nil {
		return map[string]string{}, nil
	}
	return f.sysDetails(system)
}

func (f *fakeConsole) SystemState(_ context.Context, system string) (string, error) {
	if f.sysState == nil {
		return "", nil
	}
	return f.sysState(system)
}

func (f *fakeConsole) PowerOn(_ context.Context, system string) error {
	f.mutatingCalls++
	if f.powerOn == nil {
		return nil
	}
	return f.powerOn(system)
}

func (f *fakeConsole) PowerOff(_ context.Context, system string) error {
	f.mutatingCalls++
	if f.powerOff == nil {
		return nil
	}
	return f.powerOff(system)
}

func (f *fakeConsole) ModifySystemConfig(_ context.Context, system string, attrs map[string]string) error {
	f.mutatingCalls++
	if f.modSysConfig == nil {
		return nil
	}
	return f.modSysConfig(system, attrs)
}

func (f *fakeConsole) MemorySettings(_ context.Context, system string) (map[string]string, error) {
	if f.memSettings == nil {
		return map[string]string{}, nil
	}
	return f.memSettings(system)
}

func (f *fakeConsole) ModifyMemorySettings(_ context.Context, system string, attrs map[string]string) error {
	f.mutatingCalls++
	if f.modMem == nil {
		return nil
	}
	return f.modMem(system, attrs)
}

func (f *fakeConsole) PartitionConfig(_ context.Context, system, partition, profile string) (map[string]string, error) {
	if f.partConfig == nil {
		return nil, &hmc.NotFoundError{Kind: "vios", Name: partition}
	}
	return f.partConfig(system, partition, profile)
}

func (f *fakeConsole) PartitionStatuses(_ context.Context, system string) ([]hmccli.PartitionStatus, error) {
	if f.partStatuses == nil {
		return nil, nil
	}
	return f.partStatuses(system)
}

func (f *fakeConsole) PartitionRefCode(_ context.Context, system, partition string) (string, error) {
	if f.partRefCode == nil {
		return "", nil
	}
	return f.partRefCode(system, partition)
}

func (f *fakeConsole) CreateVios(_ context.Context, system, name string, settings map[string]string) error {
	f.mutatingCalls++
	if f.createVios == nil {
		return nil
	}
	return f.createVios(system, name, settings)
}

func (f *fakeConsole) NetbootDevices(_ context.Context, spec hmccli.NimInstallSpec) ([]hmccli.NetbootDevice, error) {
	if f.netbootProbe == nil {
		return nil, nil
	}
	return f.netbootProbe(spec)
}

func (f *fakeConsole) InstallViosFromNIM(_ context.Context, spec hmccli.NimInstallSpec) error {
	f.mutatingCalls++
	if f.installNIM == nil {
		return nil
	}
	return f.installNIM(spec)
}

func (f *fakeConsole) InstallViosFromImage(_ context.Context, spec hmccli.DiskInstallSpec) error {
	f.mutatingCalls++
	if f.installImage == nil {
		return nil
	}
	return f.installImage(spec)
}

func (f *fakeConsole) RunViosCommand(_ context.Context, system, partition, viosCmd string) (string, error) {
	f.mutatingCalls++
	if f.runViosCmd == nil {
		return "", nil
	}
	return f.runViosCmd(system, partition, viosCmd)
}

func (f *fakeConsole) ViosVersion(_ context.Context, system, partition string) (string, error) {
	if f.viosVersion == nil {
		return "", nil
	}
	return f.viosVersion(system, partition)
}

func (f *fakeConsole) UpdateVios(_ context.Context, spec hmccli.UpdateSpec) error {
	f.mutatingCalls++
	if f.updateVios == nil {
		return nil
	}
	return f.updateVios(spec)
}

// fakeRest scripts the REST surface.
type fakeRest struct {
	lookup      func(name string) (string, *rest.SystemDocument, error)
	quick       func(uuid string) (map[string]any, error)
	viosQuick   func(systemUUID string) ([]map[string]any, error)
	freePVs     func(viosUUID string) ([]rest.PhysicalVolume, error)
	getVios     func(viosUUID string) (*rest.ViosDocument, error)
	getPCM      func(systemUUID string) (*rest.PCMPreferences, error)
	updatePCM   func(systemUUID string, prefs *rest.PCMPreferences) error
	pcmWritten  *rest.PCMPreferences
	pcmWriteCnt int
}

func (f *fakeRest) LookupManagedSystem(_ context.Context, name string) (string, *rest.SystemDocument, error) {
	if f.lookup == nil {
		return "uuid-" + name, &rest.SystemDocument{UUID: "uuid-" + name}, nil
	}
	return f.lookup(name)
}

func (f *fakeRest) ManagedSystemQuick(_ context.Context, uuid string) (map[string]any, error) {
	if f.quick == nil {
		return map[string]any{}, nil
	}
	return f.quick(uuid)
}

func (f *fakeRest) ListViosQuick(_ context.Context, systemUUID string) ([]map[string]any, error) {
	if f.viosQuick == nil {
		return nil, nil
	}
	return f.viosQuick(systemUUID)
}

func (f *fakeRest) FreePhysicalVolumes(_ context.Context, viosUUID string) ([]rest.PhysicalVolume, error) {
	if f.freePVs == nil {
		return nil, nil
	}
	return f.freePVs(viosUUID)
}

func (f *fakeRest) GetVios(_ context.Context, viosUUID string) (*rest.ViosDocument, error) {
	if f.getVios == nil {
		return &rest.ViosDocument{}, nil
	}
	return f.getVios(viosUUID)
}

func (f *fakeRest) GetPCMPreferences(_ context.Context, systemUUID string) (*rest.PCMPreferences, error) {
	if f.getPCM == nil {
		return &rest.PCMPreferences{}, nil
	}
	return f.getPCM(systemUUID)
}

func (f *fakeRest) UpdatePCMPreferences(_ context.Context, systemUUID string, prefs *rest.PCMPreferences) error {
	f.pcmWritten = prefs
	f.pcmWriteCnt++
	if f.updatePCM == nil {
		return nil
	}
	return f.updatePCM(systemUUID, prefs)
}

// fakeTracer captures the invocation span lifecycle.
type fakeTracer struct {
	action   string
	target   string
	finished bool
	changed  bool
	err      error
}

func (f *fakeTracer) StartInvocation(ctx context.Context, _, action, target string) (context.Context, func(bool, error)) {
	f.action = action
	f.target = target
	return ctx, func(changed bool, err error) {
		f.finished = true
		f.changed = changed
		f.err = err
	}
}

// fakeRecorder captures invocation history rows.
type fakeRecorder struct {
	mu   sync.Mutex
	recs []InvocationRecord
}

func (f *fakeRecorder) Record(_ context.Context, rec InvocationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return nil
}

// fakeMetrics counts metric callbacks.
type fakeMetrics struct {
	invocations map[string]int
	mutations   int
	polls       int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{invocations: map[string]int{}}
}

func (f *fakeMetrics) ObserveInvocation(action, status string, _ time.Duration) {
	f.invocations[action+"/"+status]++
}

func (f *fakeMetrics) CountMutation(string) { f.mutations++ }
func (f *fakeMetrics) CountPoll(string)     { f.polls++ }

func newTestEngine(console *fakeConsole, r *fakeRest) (*Engine, *fakeClock) {
	clock := newFakeClock()
	e := &Engine{
		Console:      console,
		Rest:         r,
		Clock:        clock,
		PollInterval: 30 * time.Second,
	}
	return e, clock
}

func baseParams() hmc.ParameterSet {
	return hmc.ParameterSet{
		hmc.ParamHost:       "hmc01",
		hmc.ParamAuth:       map[string]any{"username": "hscroot", "password": "secret"},
		hmc.ParamSystemName: "p9-sys",
	}
}
