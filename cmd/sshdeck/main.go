// sshdeck is the backend for an SSH desktop file manager. It persists
// connection profiles, browses remote directories, moves files in both
// directions, and opens interactive terminal sessions. A GUI front end
// shells into one verb at a time; every verb is a complete operation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"gitlab.bluewillows.net/root/sshdeck/internal/browser"
	"gitlab.bluewillows.net/root/sshdeck/internal/health"
	"gitlab.bluewillows.net/root/sshdeck/internal/metrics"
	"gitlab.bluewillows.net/root/sshdeck/internal/platform"
	"gitlab.bluewillows.net/root/sshdeck/internal/profile"
	"gitlab.bluewillows.net/root/sshdeck/internal/session"
	"gitlab.bluewillows.net/root/sshdeck/internal/settings"
	"gitlab.bluewillows.net/root/sshdeck/internal/transfer"
	"gitlab.bluewillows.net/root/sshdeck/pkg/sshrun"
)

// Version and BuildDate are set via ldflags during build.
// Example: -ldflags="-X main.Version=v1.0.0 -X main.BuildDate=2026-08-29"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

const usage = `Usage: sshdeck [-settings FILE] VERB [ARGS]

Verbs:
  save    -user U -host H -key PATH      persist a connection profile
  load    PROFILE                        print a stored profile as JSON
  list-configs                           list stored profiles
  ls      PROFILE [PATH]                 list a remote directory
  download PROFILE REMOTE LOCAL          copy a remote path here
  upload   PROFILE LOCAL REMOTE          copy a local path there
  connect -user U -host H -key PATH      save and open a terminal session

PROFILE is a stored file name (config.json, config_1.json, ...) or a path.`

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// app carries the wired components every verb draws from.
type app struct {
	cfg    *settings.Settings
	logger *slog.Logger
	family platform.Family
	store  *profile.Store
}

func run(args []string) error {
	global := flag.NewFlagSet("sshdeck", flag.ContinueOnError)
	settingsPath := global.String("settings", os.Getenv("SSHDECK_SETTINGS"), "settings file (yaml or toml)")
	global.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("missing verb")
	}

	cfg, err := settings.Load(*settingsPath)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	metrics.SetBuildInfo(Version, runtime.Version())

	// Gate before any remote operation.
	family, err := platform.Detect()
	if err != nil {
		return err
	}

	logger.Debug("sshdeck starting",
		slog.String("version", Version),
		slog.String("build_date", BuildDate),
		slog.String("platform", family.String()),
		slog.String("backend", cfg.Backend),
	)

	if cfg.MetricsPort > 0 {
		srv := health.New(cfg.MetricsPort,
			health.WithLogger(logger),
			health.WithVersion(Version),
			health.WithBackend(cfg.Backend),
		)
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	store, err := profile.NewStore(cfg.ConfigDir, profile.WithStoreLogger(logger))
	if err != nil {
		return fmt.Errorf("opening profile store: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{cfg: cfg, logger: logger, family: family, store: store}

	verb, verbArgs := rest[0], rest[1:]
	switch verb {
	case "save":
		return a.save(verbArgs)
	case "load":
		return a.load(verbArgs)
	case "list-configs":
		return a.listConfigs()
	case "ls":
		return a.ls(ctx, verbArgs)
	case "download":
		return a.download(ctx, verbArgs)
	case "upload":
		return a.upload(ctx, verbArgs)
	case "connect":
		return a.connect(verbArgs)
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown verb %q", verb)
	}
}

func (a *app) save(args []string) error {
	p, err := parseProfileFlags("save", args)
	if err != nil {
		return err
	}

	stored, err := a.store.Save(p)
	if err != nil {
		return err
	}

	fmt.Println(stored.Path)
	return nil
}

func (a *app) load(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sshdeck load PROFILE")
	}

	p, err := profile.Load(a.resolveProfile(args[0]))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func (a *app) listConfigs() error {
	files, err := a.store.List()
	if err != nil {
		return err
	}

	for _, f := range files {
		fmt.Printf("%s\t%s@%s\n", filepath.Base(f.Path), f.Profile.Username, f.Profile.Host)
	}
	return nil
}

func (a *app) ls(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: sshdeck ls PROFILE [PATH]")
	}

	p, err := profile.Load(a.resolveProfile(args[0]))
	if err != nil {
		return err
	}

	dir := "."
	if len(args) == 2 {
		dir = args[1]
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.ListTimeout)
	defer cancel()

	b := browser.New(a.runner(), browser.WithLogger(a.logger))
	entries, err := b.List(ctx, p, dir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		fmt.Printf("%s\t%s\t%s\t%s\n", e.Kind, e.Permissions, e.HumanSize(), e.Name)
	}
	return nil
}

func (a *app) download(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: sshdeck download PROFILE REMOTE LOCAL")
	}

	p, err := profile.Load(a.resolveProfile(args[0]))
	if err != nil {
		return err
	}

	engine, err := transfer.New(a.copier(), a.family, transfer.WithLogger(a.logger))
	if err != nil {
		return err
	}

	res, err := engine.Download(ctx, p, args[1], args[2])
	if err != nil {
		return err
	}

	fmt.Printf("downloaded %s (%s)\n", args[1], browser.FormatSize(res.BytesHint))
	return nil
}

func (a *app) upload(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: sshdeck upload PROFILE LOCAL REMOTE")
	}

	p, err := profile.Load(a.resolveProfile(args[0]))
	if err != nil {
		return err
	}

	engine, err := transfer.New(a.copier(), a.family, transfer.WithLogger(a.logger))
	if err != nil {
		return err
	}

	res, err := engine.Upload(ctx, p, args[1], args[2])
	if err != nil {
		return err
	}

	fmt.Printf("uploaded %s (%s)\n", args[1], browser.FormatSize(res.BytesHint))
	return nil
}

// connect persists the profile, then opens the terminal session. The
// save happens first so a session launched once is reachable from the
// stored list ever after.
func (a *app) connect(args []string) error {
	p, err := parseProfileFlags("connect", args)
	if err != nil {
		return err
	}

	stored, err := a.store.Save(p)
	if err != nil {
		return err
	}
	a.logger.Debug("profile stored", slog.String("path", stored.Path))

	launcher, err := session.New(a.family,
		session.WithTerminal(a.cfg.Terminal),
		session.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	return launcher.Open(p)
}

// runner builds the configured command execution backend.
func (a *app) runner() sshrun.CommandRunner {
	if a.cfg.Backend == settings.BackendNative {
		return sshrun.NewNativeRunner(sshrun.WithNativeRunnerLogger(a.logger))
	}
	return sshrun.NewExecRunner(sshrun.WithExecRunnerLogger(a.logger))
}

// copier builds the configured file copy backend.
func (a *app) copier() sshrun.Copier {
	if a.cfg.Backend == settings.BackendNative {
		return sshrun.NewNativeCopier(sshrun.WithNativeCopierLogger(a.logger))
	}
	return sshrun.NewExecCopier(sshrun.WithExecCopierLogger(a.logger))
}

// resolveProfile maps a bare stored file name into the config dir;
// anything that looks like a path passes through untouched.
func (a *app) resolveProfile(arg string) string {
	if strings.ContainsRune(arg, os.PathSeparator) || filepath.IsAbs(arg) {
		return arg
	}
	return filepath.Join(a.store.Dir(), arg)
}

func parseProfileFlags(verb string, args []string) (profile.Profile, error) {
	fs := flag.NewFlagSet(verb, flag.ContinueOnError)
	user := fs.String("user", "", "SSH username")
	host := fs.String("host", "", "host name or address")
	key := fs.String("key", "", "path to the private key file")
	if err := fs.Parse(args); err != nil {
		return profile.Profile{}, err
	}

	p := profile.Profile{Username: *user, Host: *host, KeyPath: *key}
	if err := p.Validate(); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

func setupLogger(level, format string) *slog.Logger {
	logLevel := parseLogLevel(level)

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}

	return slog.New(handler)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
