package app

import (
	"context"
	"errors"
	"fmt"

	"labdesk/internal/config"
	"labdesk/internal/engine/auth"
	"labdesk/internal/repo"
)

// ResolveConfig loads the lab config from the DB, seeding the default when
// none has been imported yet. The labdesk.yml in the workspace, if present,
// takes precedence and is synced into the DB.
func ResolveConfig(ctx context.Context, workspace, labOverride string, r repo.Repo) (*config.Config, error) {
	if fileCfg, err := config.LoadOptional(workspace); err != nil {
		return nil, err
	} else if fileCfg != nil {
		if labOverride != "" {
			fileCfg.Lab.ID = labOverride
		}
		if err := r.UpsertLabConfig(ctx, fileCfg); err != nil {
			return nil, fmt.Errorf("sync lab config: %w", err)
		}
		if err := syncRBAC(ctx, r, fileCfg); err != nil {
			return nil, err
		}
		return fileCfg, nil
	}
	cfg, err := r.GetLabConfig(ctx)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		labID := labOverride
		if labID == "" {
			labID = "default-lab"
		}
		cfg = config.Default(labID)
		if err := r.UpsertLabConfig(ctx, cfg); err != nil {
			return nil, fmt.Errorf("seed lab config: %w", err)
		}
		if err := syncRBAC(ctx, r, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ImportConfig validates a config file and persists it, replacing the stored
// RBAC role definitions.
func ImportConfig(ctx context.Context, path string, r repo.Repo) (*config.Config, error) {
	cfg, err := config.FromFile(path)
	if err != nil {
		return nil, err
	}
	if err := r.UpsertLabConfig(ctx, cfg); err != nil {
		return nil, err
	}
	if err := syncRBAC(ctx, r, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func syncRBAC(ctx context.Context, r repo.Repo, cfg *config.Config) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	svc := auth.Service{DB: r.DB}
	if err := svc.SyncConfig(ctx, tx, cfg); err != nil {
		return fmt.Errorf("sync rbac: %w", err)
	}
	return tx.Commit()
}
