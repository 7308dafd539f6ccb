package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/wailsapp/wails/v3/pkg/application"

	"go.aimuz.me/supermacro/config"
	"go.aimuz.me/supermacro/history"
	"go.aimuz.me/supermacro/inputhook"
	"go.aimuz.me/supermacro/internal/app"
	"go.aimuz.me/supermacro/macro"
	"go.aimuz.me/supermacro/synth"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (default: user config dir)")
		macroArg   = flag.String("macro", "", "macro file or library name to load at start")
		debug      = flag.Bool("debug", false, "enable debug logging")
		headless   = flag.Bool("headless", false, "run without the tray, hotkeys only")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))
	slog.Info("starting app", "version", version, "commit", commit, "date", date)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		cfg = config.Default()
	}

	macroDir := cfg.MacroDir
	if macroDir == "" {
		if macroDir, err = macro.DefaultDir(); err != nil {
			slog.Error("get macro dir", "error", err)
			os.Exit(1)
		}
	}

	runs := openHistory()
	if runs != nil {
		defer runs.Close()
	}

	sy := synth.New()
	svc := app.New(app.Options{
		Config:   cfg,
		Library:  macro.NewLibrary(macroDir),
		History:  runs,
		Synth:    sy,
		Resolver: sy,
		Hub:      inputhook.NewHub(),
	})

	if *headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go preload(svc, *macroArg)
		if err := svc.Run(ctx); err != nil {
			slog.Error("run", "error", err)
		}
		return
	}

	runTray(svc, *macroArg)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// openHistory returns nil when the run log is unavailable. Playback works
// without it.
func openHistory() *history.Store {
	dir, err := history.DefaultDir()
	if err != nil {
		slog.Error("get history dir", "error", err)
		return nil
	}
	s, err := history.Open(dir)
	if err != nil {
		slog.Error("open history", "path", dir, "error", err)
		return nil
	}
	return s
}

// preload treats arg as a file path when it looks like one, otherwise as a
// library name.
func preload(svc *app.Service, arg string) {
	if arg == "" {
		return
	}
	var err error
	if strings.HasSuffix(arg, ".json") || strings.ContainsRune(arg, filepath.Separator) {
		err = svc.OpenFile(arg)
	} else {
		err = svc.LoadMacro(arg)
	}
	if err != nil {
		slog.Error("load macro", "macro", arg, "error", err)
	}
}

func runTray(svc *app.Service, macroArg string) {
	wapp := application.New(application.Options{
		Name:        "SuperMacro",
		Description: "Mouse and keyboard macro recorder",
		Services: []application.Service{
			application.NewService(svc),
		},
		Mac: application.MacOptions{
			ApplicationShouldTerminateAfterLastWindowClosed: false,
		},
	})
	svc.Init(wapp)

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := svc.Run(ctx); err != nil {
			slog.Error("run", "error", err)
		}
	}()
	go preload(svc, macroArg)

	systemTray := wapp.SystemTray.New()
	systemTray.SetLabel("SM")

	trayMenu := wapp.NewMenu()
	trayMenu.Add("Start recording").OnClick(func(*application.Context) {
		logErr("start recording", svc.StartRecording())
	})
	trayMenu.Add("Stop recording").OnClick(func(*application.Context) {
		logErr("stop recording", svc.StopRecording())
	})
	trayMenu.AddSeparator()
	trayMenu.Add("Play").OnClick(func(*application.Context) {
		logErr("start playback", svc.StartPlayback())
	})
	trayMenu.Add("Stop playback").OnClick(func(*application.Context) {
		logErr("stop playback", svc.StopPlayback())
	})
	trayMenu.AddSeparator()
	trayMenu.Add("Quit").
		SetAccelerator("CmdOrCtrl+Q").
		OnClick(func(*application.Context) {
			cancel()
			<-loopDone
			wapp.Quit()
		})
	systemTray.SetMenu(trayMenu)

	if err := wapp.Run(); err != nil {
		slog.Error("run app", "error", err)
	}
	cancel()
	<-loopDone
}

func logErr(msg string, err error) {
	if err != nil {
		slog.Warn(msg, "error", err)
	}
}
