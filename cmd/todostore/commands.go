package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kjk/todostore/api"
	"github.com/kjk/todostore/backup"
	"github.com/kjk/todostore/httputil"
	"github.com/kjk/todostore/log"
	"github.com/kjk/todostore/minioutil"
	"github.com/kjk/todostore/u"
)

func newServeCommand(app *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openStore()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = app.Config.HTTPAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err = httputil.RunServer(ctx, addr, api.New(s).Handler(), nil)
			log.Logf("server stopped\n")
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (overrides http_addr)")
	return cmd
}

func newCreateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create <text>",
		Short: "Create a todo item and print its id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openStore()
			if err != nil {
				return err
			}
			rec, err := s.Create(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			log.Event("todo.create", "id", rec.ID, "size", len(rec.Text))
			fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
			return nil
		},
	}
}

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all todo items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openStore()
			if err != nil {
				return err
			}
			timeStart := time.Now()
			recs, err := s.ReadAll(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, rec := range recs {
				fmt.Fprintf(w, "%s %s\n", rec.ID, rec.Text)
			}
			if app.Config.Verbose {
				n, err := s.LastIssued()
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%d items, last issued id number: %d\n", len(recs), n)
			}
			log.Verbosef("listed %d items in %s\n", len(recs), u.FormatDuration(time.Since(timeStart)))
			return nil
		},
	}
}

func newGetCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print text of a todo item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openStore()
			if err != nil {
				return err
			}
			rec, err := s.ReadOne(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.Text)
			return nil
		},
	}
}

func newUpdateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <text>",
		Short: "Replace text of a todo item",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openStore()
			if err != nil {
				return err
			}
			rec, err := s.Update(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			log.Event("todo.update", "id", rec.ID, "size", len(rec.Text))
			return nil
		},
	}
}

func newDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete todo items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openStore()
			if err != nil {
				return err
			}
			for _, id := range args {
				if err = s.Delete(cmd.Context(), id); err != nil {
					return err
				}
				log.Event("todo.delete", "id", id)
			}
			return nil
		},
	}
}

func newSnapshotCommand(app *App) *cobra.Command {
	var out string
	var upload bool
	var keep int
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save a zip archive of all todo items to a file and/or upload it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" && !upload {
				return fmt.Errorf("need --out or --upload")
			}
			if keep != 0 && (!upload || keep < 0) {
				return fmt.Errorf("--keep needs --upload and a positive number")
			}
			if upload && !app.Config.Backup.IsConfigured() {
				return fmt.Errorf("--upload needs backup section in config")
			}
			if out != "" && !u.DirExists(filepath.Dir(out)) {
				return fmt.Errorf("directory of '%s' doesn't exist", out)
			}
			s, err := app.openStore()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			timeStart := time.Now()
			d, err := backup.Snapshot(ctx, s)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if out != "" {
				if err = backup.WriteSnapshotData(out, d); err != nil {
					return err
				}
				fmt.Fprintf(w, "wrote %s to %s\n", u.FormatSize(int64(len(d))), out)
			}
			if upload {
				mc, err := minioutil.New(ctx, &app.Config.Backup.Config)
				if err != nil {
					return err
				}
				remotePath, err := backup.Upload(ctx, mc, app.Config.Backup.Prefix, d)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "uploaded to %s\n", mc.URLForPath(remotePath))
				if keep > 0 {
					removed, err := backup.Prune(ctx, mc, app.Config.Backup.Prefix, keep)
					for _, p := range removed {
						fmt.Fprintf(w, "removed old snapshot %s\n", p)
					}
					if err != nil {
						return err
					}
				}
			}
			log.EventWithDuration("todo.snapshot", time.Since(timeStart), "size", len(d), "upload", upload)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write snapshot to this file")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload brotli-compressed snapshot to s3-compatible storage")
	cmd.Flags().IntVar(&keep, "keep", 0, "after upload, remove all but this many newest uploaded snapshots")
	return cmd
}

func newRestoreCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <snapshot.zip>",
		Short: "Add todo items from a snapshot, never overwriting existing ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !u.FileExists(args[0]) {
				return fmt.Errorf("snapshot '%s' doesn't exist", args[0])
			}
			d, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			s, err := app.openStore()
			if err != nil {
				return err
			}
			n, err := backup.Restore(s, d)
			if err != nil {
				return fmt.Errorf("restored %d items before failing: %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d items\n", n)
			return nil
		},
	}
}
