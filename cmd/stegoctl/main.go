package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"stegoctl/internal/codec"
	"stegoctl/internal/config"
	"stegoctl/internal/infrastructure"
	"stegoctl/internal/operation"
	"stegoctl/internal/quota"
	"stegoctl/internal/resources"
	"stegoctl/internal/stats"
	"stegoctl/internal/stego"
	"stegoctl/internal/store/sqlite"
	"stegoctl/internal/version"
)

const usageText = `Usage: stegoctl <command> [flags]

Commands:
  hide         hide a secret file inside a container image or audio file
  extract      recover a hidden payload from a stego file
  info         inspect a prospective container file
  stats        show local usage statistics and achievements
  login-state  show the remote session state
  logout       end the remote session
  version      show build information

Run "stegoctl <command> -h" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}
	switch os.Args[1] {
	case "version":
		fmt.Println(version.Get())
		return
	case "-h", "--help", "help":
		fmt.Print(usageText)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureTraceID(ctx)

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Startup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.close()

	var runErr error
	switch cmd := os.Args[1]; cmd {
	case "hide":
		runErr = app.runHide(ctx, os.Args[2:])
	case "extract":
		runErr = app.runExtract(ctx, os.Args[2:])
	case "info":
		runErr = app.runInfo(ctx, os.Args[2:])
	case "stats":
		runErr = app.runStats(ctx)
	case "login-state":
		runErr = app.runLoginState(ctx)
	case "logout":
		runErr = app.runLogout(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usageText)
		os.Exit(2)
	}

	if runErr != nil {
		logger.Error("Command failed", slog.String("error", runErr.Error()))
		fmt.Fprintln(os.Stderr, "error:", runErr)
		os.Exit(1)
	}
}

// app holds the wired collaborators shared by all commands.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *sqlite.Store
	client     *stego.Client
	session    *stego.Session
	gate       *quota.Gate
	ledger     *stats.Ledger
	tracker    *resources.Tracker
	controller *operation.Controller
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := sqlite.Open(cfg.Paths.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	client, err := stego.NewClient(cfg.Service.BaseURL, cfg.Service.Timeout, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	gate, err := quota.NewGate(ctx, quota.Limits{
		Hide:    cfg.Quota.HideLimit,
		Extract: cfg.Quota.ExtractLimit,
	}, store, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize usage gate: %w", err)
	}

	ledger, err := stats.NewLedger(ctx, store, client, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize stats ledger: %w", err)
	}

	tracker, err := resources.NewTracker(cfg.Paths.ResultsDir, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize result tracker: %w", err)
	}

	opCfg := operation.NewConfig()
	opCfg.MaxFileSize = cfg.Limits.MaxFileSize

	session := stego.NewSession()
	controller := operation.NewController(operation.Deps{
		Service: client,
		Gate:    gate,
		Ledger:  ledger,
		Tracker: tracker,
		Session: session,
		Sink:    consoleSink{},
	}, opCfg, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		client:     client,
		session:    session,
		gate:       gate,
		ledger:     ledger,
		tracker:    tracker,
		controller: controller,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close state database", slog.String("error", err.Error()))
	}
}

// refreshSession pulls the remote profile so quota and stats decisions see
// the current authentication state. Unreachable service leaves the session
// anonymous.
func (a *app) refreshSession(ctx context.Context) {
	profile, err := a.client.User(ctx)
	if err != nil {
		a.logger.Warn("Session check failed, continuing anonymously",
			slog.String("error", err.Error()))
		return
	}
	a.session.Update(profile)
	if err := a.gate.ObserveAuthentication(ctx, a.session.Authenticated()); err != nil {
		a.logger.Warn("Failed to record session state", slog.String("error", err.Error()))
	}
}

func (a *app) runHide(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("hide", flag.ExitOnError)
	container := fs.String("container", "", "container image or audio file (.png .bmp .tiff .tif .wav)")
	secret := fs.String("secret", "", "file to hide")
	method := fs.String("method", "lsb", "steganography method: lsb | audio_lsb")
	password := fs.String("password", "", "optional password protecting the payload")
	fs.Parse(args)

	if *container == "" || *secret == "" {
		return fmt.Errorf("hide requires -container and -secret")
	}

	a.refreshSession(ctx)
	sec := operation.FileInput{Path: *secret}
	return a.runOperation(ctx, operation.Request{
		Kind:      stego.KindHide,
		Method:    stego.Method(*method),
		Primary:   operation.FileInput{Path: *container},
		Secondary: &sec,
		Password:  *password,
	})
}

func (a *app) runExtract(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	file := fs.String("file", "", "stego file to extract from")
	password := fs.String("password", "", "password used when hiding, if any")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("extract requires -file")
	}

	a.refreshSession(ctx)
	return a.runOperation(ctx, operation.Request{
		Kind:     stego.KindExtract,
		Primary:  operation.FileInput{Path: *file},
		Password: *password,
	})
}

func (a *app) runOperation(ctx context.Context, req operation.Request) error {
	h, err := a.controller.Start(ctx, req)
	if err != nil {
		if operation.IsQuotaExceeded(err) {
			limit := a.gate.Limit(req.Kind)
			fmt.Fprintf(os.Stderr, "Anonymous %s limit of %d reached. Sign in on the service to continue.\n", req.Kind, limit)
		}
		return err
	}

	h.Wait()
	result, err := h.Result()
	if err != nil {
		return err
	}

	fmt.Printf("Saved %s (%d bytes) to %s\n", result.OutputName, result.Metrics.OutputSize, result.OutputPath)

	if snapshot, unlocked := a.ledger.Snapshot(); len(unlocked) > 0 {
		a.logger.Info("Operation recorded",
			slog.Int64("files_processed", snapshot.FilesProcessed),
			slog.Int("achievements", len(unlocked)))
	}
	return nil
}

func (a *app) runInfo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	file := fs.String("file", "", "file to inspect")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("info requires -file")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", *file, err)
	}
	if int64(len(data)) > a.cfg.Limits.MaxFileSize {
		return fmt.Errorf("%s exceeds the %d byte file limit", *file, a.cfg.Limits.MaxFileSize)
	}

	encoded, err := codec.EncodeBytes(ctx, data)
	if err != nil {
		return err
	}

	info, err := a.client.FileInfo(ctx, stego.FileInfoRequest{
		File:     encoded,
		Filename: resources.SanitizeName(*file),
	})
	if err != nil {
		return err
	}
	if info.Error != "" {
		return fmt.Errorf("service could not inspect file: %s", info.Error)
	}

	fmt.Printf("Type:   %s (%s)\n", info.Type, info.Format)
	fmt.Printf("Size:   %d bytes\n", info.Size)
	switch info.Type {
	case "image":
		fmt.Printf("Image:  %dx%d %s\n", info.Width, info.Height, info.Mode)
	case "audio":
		fmt.Printf("Audio:  %d Hz, %d channel(s), %.1fs\n", info.SampleRate, info.Channels, info.Duration)
	}
	if info.CapacityEstimate > 0 {
		fmt.Printf("Capacity: ~%d bytes\n", info.CapacityEstimate)
	}
	return nil
}

func (a *app) runStats(ctx context.Context) error {
	snapshot, unlocked := a.ledger.Snapshot()

	fmt.Printf("Files processed:       %d\n", snapshot.FilesProcessed)
	fmt.Printf("Data hidden:           %d bytes\n", snapshot.DataHiddenBytes)
	fmt.Printf("Successful operations: %d\n", snapshot.SuccessfulOperations)
	fmt.Printf("Level:                 %s\n", a.ledger.Level())
	fmt.Printf("Hide quota remaining:  %d of %d (anonymous)\n",
		a.gate.Remaining(stego.KindHide), a.gate.Limit(stego.KindHide))
	fmt.Printf("Extract quota remaining: %d of %d (anonymous)\n",
		a.gate.Remaining(stego.KindExtract), a.gate.Limit(stego.KindExtract))

	if len(unlocked) == 0 {
		fmt.Println("Achievements:          none yet")
		return nil
	}
	fmt.Println("Achievements:")
	byID := make(map[string]stats.Achievement)
	for _, ach := range stats.Catalog() {
		byID[ach.ID] = ach
	}
	for _, id := range unlocked {
		if ach, ok := byID[id]; ok {
			fmt.Printf("  %s - %s\n", ach.Name, ach.Description)
		} else {
			fmt.Printf("  %s\n", id)
		}
	}
	return nil
}

func (a *app) runLoginState(ctx context.Context) error {
	profile, err := a.client.User(ctx)
	if err != nil {
		return fmt.Errorf("failed to query session state: %w", err)
	}
	a.session.Update(profile)
	if err := a.gate.ObserveAuthentication(ctx, profile.LoggedIn); err != nil {
		a.logger.Warn("Failed to record session state", slog.String("error", err.Error()))
	}

	if !profile.LoggedIn {
		fmt.Println("Not signed in. Anonymous quotas apply.")
		return nil
	}

	fmt.Printf("Signed in as %s <%s>\n", profile.Name, profile.Email)
	if profile.Stats != nil {
		fmt.Printf("Remote stats: %d files, %d bytes hidden, %d successful\n",
			profile.Stats.FilesProcessed, profile.Stats.DataHidden, profile.Stats.SuccessfulOperations)
	}
	return nil
}

func (a *app) runLogout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	a.session.Clear()
	if err := a.gate.ObserveAuthentication(ctx, false); err != nil {
		a.logger.Warn("Failed to record session state", slog.String("error", err.Error()))
	}
	fmt.Println("Signed out.")
	return nil
}

// consoleSink prints lifecycle progress for interactive runs.
type consoleSink struct{}

func (consoleSink) OperationStarted(id string, kind stego.Kind) {
	fmt.Printf("Running %s operation %s...\n", kind, id[:8])
}

func (consoleSink) OperationFinished(id string, status operation.Status, result *operation.Result, err error) {
	if status == operation.StatusSucceeded {
		return
	}
	fmt.Printf("Operation %s finished: %s\n", id[:8], status)
}
