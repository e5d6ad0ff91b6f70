package main

import (
	"github.com/spf13/cobra"

	"github.com/kjk/todostore/log"
	"github.com/kjk/todostore/logtastic"
	"github.com/kjk/todostore/store"
	"github.com/kjk/todostore/u"
)

// App holds global flags and state shared by all commands
type App struct {
	ConfigPath string
	DataDir    string
	Verbose    bool

	Config    *Config
	logtastic *logtastic.Client
}

func (a *App) init() error {
	cfg, err := LoadConfig(a.ConfigPath)
	if err != nil {
		return err
	}
	// flags override config file
	if a.DataDir != "" {
		cfg.DataDir = a.DataDir
	}
	if a.Verbose {
		cfg.Verbose = true
	}
	if err = cfg.Validate(); err != nil {
		return err
	}
	a.Config = cfg

	logConfig := &log.Config{
		Dir: cfg.LogDir,
	}
	if cfg.Logtastic.Server != "" {
		a.logtastic = logtastic.New(cfg.Logtastic.Server, cfg.Logtastic.ApiKey)
		logConfig.OnLog = a.logtastic.Log
		logConfig.OnEvent = a.logtastic.LogEvent
		logConfig.OnError = a.logtastic.LogError
	}
	log.Verbose = cfg.Verbose
	log.Init(logConfig)
	log.Verbosef("data dir: %s\n", cfg.DataDir)
	return nil
}

func (a *App) openStore() (*store.Store, error) {
	return store.Open(a.Config.DataDir, a.Config.StoreOptions()...)
}

// Close flushes logs. Safe to call if init() failed or never ran.
func (a *App) Close() {
	if a.logtastic != nil {
		a.logtastic.Stop()
		a.logtastic = nil
	}
	log.Close()
}

func newRootCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "todostore",
		Short:         "A store of todo items, one file per item",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
	}

	cmd.PersistentFlags().StringVarP(&app.ConfigPath, "config", "c", "", "path of yaml config file")
	cmd.PersistentFlags().StringVar(&app.DataDir, "data-dir", "", "directory with todo files (overrides config)")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "verbose logging")
	u.Must(cmd.MarkPersistentFlagFilename("config", "yaml", "yml"))
	u.Must(cmd.MarkPersistentFlagDirname("data-dir"))

	cmd.AddCommand(newServeCommand(app))
	cmd.AddCommand(newCreateCommand(app))
	cmd.AddCommand(newListCommand(app))
	cmd.AddCommand(newGetCommand(app))
	cmd.AddCommand(newUpdateCommand(app))
	cmd.AddCommand(newDeleteCommand(app))
	cmd.AddCommand(newSnapshotCommand(app))
	cmd.AddCommand(newRestoreCommand(app))
	return cmd
}
