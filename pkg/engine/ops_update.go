package engine

import (
	"context"
	"fmt"

	"github.com/openlpar/hmcctl/pkg/hmc"
	"github.com/openlpar/hmcctl/pkg/transports/hmccli"
)

func runUpdateVios(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	return runUpdate(ctx, e, system, params, hmc.ActionUpdateVios, false)
}

func runUpgradeVios(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	return runUpdate(ctx, e, system, params, hmc.ActionUpgradeVios, true)
}

func runUpdate(ctx context.Context, e *Engine, system string, params hmc.ParameterSet, action hmc.Action, upgrade bool) (*Result, error) {
	deadline, err := Deadline(params)
	if err != nil {
		return nil, err
	}
	repo := hmc.RepositoryType(params.String(hmc.ParamRepository))
	if repo == hmc.RepoNFS || repo == hmc.RepoSFTP {
		save := params.Bool(hmc.ParamSave)
		image := params.String(hmc.ParamImageName)
		if save && image == "" {
			return nil, &hmc.ConstraintError{Msg: "image_name is mandatory when 'save' is provided"}
		}
		if !save && image != "" {
			return nil, &hmc.ConstraintError{Msg: "image_name is only accepted when 'save' is provided"}
		}
	}

	ids, err := e.Console.ListSystemIdentifiers(ctx)
	if err != nil {
		return nil, hmc.WithAction(action, err)
	}
	if !contains(ids, system) {
		return nil, &hmc.NotFoundError{Kind: "managed system", Name: system}
	}

	status, err := findPartition(ctx, e, system, params.String(hmc.ParamViosName), params.String(hmc.ParamViosID))
	if err != nil {
		return nil, hmc.WithAction(action, err)
	}
	if status.State != BootedState {
		return nil, hmc.WithAction(action,
			fmt.Errorf("vios %s must be in %s state, current state %q", status.Name, BootedState, status.State))
	}

	before, err := e.Console.ViosVersion(ctx, system, status.Name)
	if err != nil {
		return nil, hmc.WithAction(action, err)
	}

	spec := hmccli.UpdateSpec{
		System:     system,
		ViosName:   params.String(hmc.ParamViosName),
		ViosID:     params.String(hmc.ParamViosID),
		Upgrade:    upgrade,
		Repository: params.String(hmc.ParamRepository),
		ImageName:  params.String(hmc.ParamImageName),
		Files:      hmc.FlattenList(params.List(hmc.ParamFiles)),
		HostName:   params.String(hmc.ParamHostName),
		UserID:     params.String(hmc.ParamUserID),
		Password:   params.String(hmc.ParamPassword),
		SSHKeyFile: params.String(hmc.ParamSSHKeyFile),
		MountLoc:   params.String(hmc.ParamMountLoc),
		Directory:  params.String(hmc.ParamDirectory),
		Disks:      hmc.FlattenList(params.List(hmc.ParamDisks)),
		Restart:    params.Bool(hmc.ParamRestart),
		Save:       params.Bool(hmc.ParamSave),
	}
	if v := params.String(hmc.ParamOption); v != "" {
		spec.Option = hmc.NFSMountOption(v)
	}

	if spec.Repository == string(hmc.RepoSFTP) && e.RepoCheck != nil {
		if err := e.RepoCheck.CheckSFTP(ctx, spec); err != nil {
			return nil, hmc.WithAction(action, err)
		}
	}

	e.countMutation(action)
	if err := e.Console.UpdateVios(ctx, spec); err != nil {
		if hmc.Classify(action, err) == hmc.DispositionSoftNoop {
			return &Result{
				Changed: false,
				Info:    "console user lacks the task authority for VIOS maintenance, no change made",
			}, nil
		}
		return nil, hmc.WithAction(action, err)
	}

	outcome, err := e.poller(action).WaitForBoot(ctx, system, status.Name, deadline)
	if err != nil {
		return nil, hmc.WithAction(action, err)
	}
	if outcome.Warning != "" {
		return &Result{Changed: true, Warning: outcome.Warning}, nil
	}

	after, err := e.Console.ViosVersion(ctx, system, status.Name)
	if err != nil {
		return nil, hmc.WithAction(action, err)
	}
	if after == before {
		return &Result{Changed: false, Info: "vios is already at level " + before}, nil
	}
	return &Result{
		Changed: true,
		Facts:   map[string]any{"ioslevel_before": before, "ioslevel_after": after},
	}, nil
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
