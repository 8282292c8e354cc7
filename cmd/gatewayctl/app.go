package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/openclaw/gateway-core/pkg/config"
	"github.com/openclaw/gateway-core/pkg/logger"
	"github.com/openclaw/gateway-core/pkg/provisioner"
	gwsync "github.com/openclaw/gateway-core/svc/sync"
	svctenant "github.com/openclaw/gateway-core/svc/tenant"
)

// app bundles the wired-up services a subcommand needs. Built fresh for
// every invocation: gatewayctl is a one-shot CLI, not a long-running
// process, so there is no background Start/Stop lifecycle here.
type app struct {
	manager *svctenant.Manager
	client  *gwsync.CloudClient
	global  config.Global
}

// newApp loads the global config and wires the tenant manager and cloud
// client from its multiTenant block. Returns an error wrapping
// ErrConfigUnavailable when the block is disabled or absent, or when its
// configRoot or workspaceRoot is unset, per component 4.8.
func newApp() (*app, error) {
	global, err := config.LoadGlobal()
	if err != nil {
		return nil, err
	}
	if !global.MultiTenant.Enabled {
		return nil, fmt.Errorf("%w: multi-tenant core is disabled (multiTenant.enabled=false)", config.ErrConfigUnavailable)
	}

	mt := global.MultiTenant
	if mt.ConfigRoot == "" || mt.WorkspaceRoot == "" {
		return nil, fmt.Errorf("%w: multiTenant.configRoot and multiTenant.workspaceRoot must both be set", config.ErrConfigUnavailable)
	}
	client := gwsync.NewCloudClient(mt.CloudBackendURL, mt.ServiceToken)
	prov := provisioner.New(mt.CloudBackendURL)

	cfg := svctenant.Config{
		ConfigRoot:      mt.ConfigRoot,
		WorkspaceRoot:   mt.WorkspaceRoot,
		TemplatePath:    mt.TemplatePath,
		MaxCachedUsers:  mt.MaxCachedUsers,
		UserIdleTimeout: time.Duration(mt.UserIdleTimeoutMs) * time.Millisecond,
	}
	mgr := svctenant.NewManager(cfg, prov, client, logger.New(logger.WithLevel(slog.LevelInfo)))

	return &app{manager: mgr, client: client, global: global}, nil
}

// newSynchronizer builds a one-shot Synchronizer over the app's client
// and manager, sized from the loaded global config's syncIntervalMs.
func newSynchronizer(a *app) *gwsync.Synchronizer {
	mt := a.global.MultiTenant
	return gwsync.NewSynchronizer(a.client, a.manager, gwsync.Config{
		SyncInterval: time.Duration(mt.SyncIntervalMs) * time.Millisecond,
	}, logger.New(logger.WithLevel(slog.LevelInfo)))
}
