package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const catalogDebounce = 500 * time.Millisecond

var (
	catalogFile  string
	catalogWatch bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Permission catalog maintenance",
}

var catalogSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the permission catalog file into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(".")
		if err != nil {
			return err
		}
		initLogger(cfg)

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		path := catalogFile
		if path == "" {
			path = cfg.RBAC.CatalogPath
		}

		if err := syncCatalog(cmd.Context(), a, path); err != nil {
			return err
		}
		if !catalogWatch {
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return watchCatalog(ctx, a, path)
	},
}

func init() {
	catalogSyncCmd.Flags().StringVarP(&catalogFile, "file", "f", "", "catalog file (defaults to rbac.catalog_path)")
	catalogSyncCmd.Flags().BoolVarP(&catalogWatch, "watch", "w", false, "keep running and re-sync whenever the file changes")
	catalogCmd.AddCommand(catalogSyncCmd)
}

func syncCatalog(ctx context.Context, a *app, path string) error {
	res, err := a.Permissions.SyncFile(ctx, path)
	if err != nil {
		return fmt.Errorf("catalog sync failed: %w", err)
	}
	fmt.Printf("%s: %d added, %d updated, %d unchanged, %d errors\n", path, res.Added, res.Updated, res.Unchanged, res.Errors)
	for _, f := range res.Failures {
		fmt.Printf("  %s: %s\n", f.Code, f.Error)
	}
	return nil
}

// watchCatalog watches the directory rather than the file so editors that
// replace the file on save keep triggering events.
func watchCatalog(ctx context.Context, a *app, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	a.Logger.Info("watching permission catalog", "path", abs)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != abs || !evt.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			pending = time.After(catalogDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.Logger.Warn("catalog watcher error", "error", err)
		case <-pending:
			pending = nil
			if err := syncCatalog(ctx, a, path); err != nil {
				a.Logger.Error("catalog re-sync failed", "error", err)
			}
		}
	}
}
