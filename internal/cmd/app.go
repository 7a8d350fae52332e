package cmd

import (
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adamancini/appupdate/internal/config"
	"github.com/adamancini/appupdate/internal/output"
	"github.com/adamancini/appupdate/state"
	"github.com/adamancini/appupdate/update"
)

// app holds the collaborators a command runs against.
type app struct {
	configPath string
	cfg        *config.Config
	store      *state.Store
	downloader *update.HTTPDownloader
	orch       *update.Orchestrator
	out        *output.Writer
}

// loadApp finds and loads the config file and wires the orchestrator.
// forceCheck overrides the configured frequency with EachTime.
func loadApp(cmd *cobra.Command, forceCheck bool) (*app, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}

	path, err := config.FindConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if err := setupLogging(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, err
	}
	log.Debugf("using config %s", path)

	ucfg, err := cfg.UpdateConfig()
	if err != nil {
		return nil, err
	}
	if forceCheck {
		ucfg.Frequency = update.EachTime
	}
	if quiet {
		ucfg.ShowProgress = false
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout()}
	store := state.NewFileStore(cfg.StateFile)
	downloader := update.NewHTTPDownloader(cfg.DataDir, ucfg.Platform, client)

	opts := []update.Option{
		update.WithStore(store),
		update.WithDownloader(downloader),
		update.WithFetcher(update.NewHTTPFetcher(client, buildInfo.version)),
		update.WithNotifier(consoleNotifier{w: cmd.ErrOrStderr()}),
	}
	if cfg.AssetsDir != "" {
		opts = append(opts, update.WithAssets(os.DirFS(cfg.AssetsDir)))
	}
	if cfg.InstalledVersion != "" {
		opts = append(opts, update.WithPackageVersion(update.StaticVersion(cfg.InstalledVersion)))
	}
	if len(cfg.Installer.Command) > 0 {
		opts = append(opts, update.WithInstaller(newCommandInstaller(cfg.Installer, cmd.InOrStdin(), cmd.ErrOrStderr())))
	}

	orch, err := update.New(ucfg, opts...)
	if err != nil {
		return nil, err
	}

	return &app{
		configPath: path,
		cfg:        cfg,
		store:      store,
		downloader: downloader,
		orch:       orch,
		out:        output.NewWriter(cmd.OutOrStdout(), format),
	}, nil
}
