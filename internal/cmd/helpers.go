package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/adamancini/ersc/internal/backup"
	"github.com/adamancini/ersc/internal/catalog"
	"github.com/adamancini/ersc/internal/config"
	"github.com/adamancini/ersc/internal/download"
	"github.com/adamancini/ersc/internal/engine"
	"github.com/adamancini/ersc/internal/interactive"
	"github.com/adamancini/ersc/internal/locate"
	"github.com/adamancini/ersc/internal/log"
	"github.com/adamancini/ersc/internal/output"
	"github.com/adamancini/ersc/internal/policy"
)

// env is resolved once per command in PersistentPreRunE.
type env struct {
	cfg      *config.Config
	cfgPath  string
	cacheDir string
	out      *output.Writer
}

// setup wires logging, output and configuration for cmd.
func (a *app) setup(cmd *cobra.Command) error {
	if a.stdin == nil {
		a.stdin = cmd.InOrStdin()
	}
	if a.stdout == nil {
		a.stdout = cmd.OutOrStdout()
	}
	if a.stderr == nil {
		a.stderr = cmd.ErrOrStderr()
	}

	if a.verbose && a.quiet {
		return errors.New("--verbose and --quiet cannot be used together")
	}
	level := log.LevelInfo
	switch {
	case a.verbose:
		level = log.LevelDebug
	case a.quiet:
		level = log.LevelError
	}
	log.SetLogger(log.NewDefaultLogger(a.stderr, level))

	format, err := output.ParseFormat(a.outputFormat)
	if err != nil {
		return err
	}

	var (
		cfg     *config.Config
		cfgPath string
	)
	if cmd.Annotations[annotationSkipConfig] != "" {
		cfg = config.Default()
		cfgPath, err = configTarget(a.configPath)
	} else {
		cfg, cfgPath, err = config.Resolve(a.configPath)
	}
	if err != nil {
		return err
	}
	log.Debugf("using config %s", cfgPath)

	cacheDir, err := cfg.ResolvedCacheDir()
	if err != nil {
		return err
	}

	a.env = &env{
		cfg:      cfg,
		cfgPath:  cfgPath,
		cacheDir: cacheDir,
		out:      output.NewWriter(a.stdout, format),
	}
	return nil
}

// annotationSkipConfig marks commands that must run without loading the
// config file, such as those that create it.
const annotationSkipConfig = "ersc/skip-config"

// configTarget returns the config path a command should write to, whether or
// not the file exists yet.
func configTarget(explicit string) (string, error) {
	if explicit != "" {
		return homedir.Expand(explicit)
	}
	path, err := config.Find("")
	if errors.Is(err, config.ErrNotFound) {
		return config.DefaultPath()
	}
	return path, err
}

// printf writes human-oriented text unless quiet or structured output is set.
func (a *app) printf(format string, args ...any) {
	if a.quiet {
		return
	}
	a.env.out.Printf(format, args...)
}

// installRoot resolves the game directory from --game-dir, the config file
// or detection, in that order.
func (a *app) installRoot(ctx context.Context) (locate.InstallRoot, error) {
	if a.gameDir != "" {
		return locate.ValidateManual(a.gameDir)
	}

	override, err := a.env.cfg.ResolvedInstallPath()
	if err != nil {
		return "", err
	}
	root, err := locate.New(override).Locate(ctx)
	if err != nil {
		if locate.IsNotFound(err) {
			return "", fmt.Errorf("%w\nset the path with 'ersc locate --set PATH' or --game-dir", err)
		}
		return "", err
	}
	if override != "" && !sameDir(override, root.String()) {
		log.Warnf("configured install_path %s is not an Elden Ring install, using %s", override, root)
	}
	return root, nil
}

func sameDir(a, b string) bool {
	ra, err1 := locate.ValidateManual(a)
	rb, err2 := locate.ValidateManual(b)
	return err1 == nil && err2 == nil && ra == rb
}

func (a *app) userAgent() string {
	return "ersc/" + a.version
}

// catalogClient builds a release client from the feed settings.
func (a *app) catalogClient() (*catalog.Client, error) {
	feed := a.env.cfg.Feed
	return catalog.NewClient(catalog.Options{
		APIURL:       feed.APIURL,
		Owner:        feed.Owner,
		Repo:         feed.Repo,
		AssetPattern: feed.AssetPattern,
		Token:        feed.Token,
		UserAgent:    a.userAgent(),
		MaxRetries:   2,
		Snapshot:     catalog.NewSnapshotStore(a.env.cacheDir),
	})
}

// releases lists the catalog, falling back to the last snapshot when the
// feed is unreachable.
func (a *app) releases(ctx context.Context) (*catalog.Catalog, error) {
	client, err := a.catalogClient()
	if err != nil {
		return nil, err
	}
	cat, err := client.ListReleasesOrCached(ctx)
	if cat == nil {
		return nil, err
	}
	return cat, nil
}

func (a *app) backups() *backup.Manager {
	return backup.NewManager(filepath.Join(a.env.cacheDir, "backups"), a.version).WithKeep(a.env.cfg.Keep())
}

// engine builds an install engine sharing the download cache.
func (a *app) engine() (*engine.Engine, error) {
	pol, err := policy.New(a.env.cfg.Protected...)
	if err != nil {
		return nil, err
	}
	downloader := download.NewHTTPDownloader().WithUserAgent(a.userAgent())
	return engine.New(engine.Options{
		Downloader:     downloader,
		Cache:          download.NewCache(filepath.Join(a.env.cacheDir, "downloads"), downloader),
		Policy:         pol,
		Backups:        a.backups(),
		ManagerVersion: a.version,
	}), nil
}

// confirm asks a yes/no question on a terminal. Without a terminal it
// refuses rather than guessing.
func (a *app) confirm(yes bool, ask func() bool) (bool, error) {
	if yes {
		return true, nil
	}
	if !isTerminal() {
		return false, errors.New("confirmation required; rerun with --yes")
	}
	return ask(), nil
}

// isTerminal is replaced in tests.
var isTerminal = interactive.IsTerminal
