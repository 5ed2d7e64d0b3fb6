package commands

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/wincast/internal/api"
	"github.com/bryanchriswhite/wincast/internal/capture"
	"github.com/bryanchriswhite/wincast/internal/config"
	"github.com/bryanchriswhite/wincast/internal/driver"
	"github.com/bryanchriswhite/wincast/internal/logger"
	"github.com/bryanchriswhite/wincast/internal/session"
	"github.com/bryanchriswhite/wincast/internal/shell"
	"github.com/bryanchriswhite/wincast/internal/viewer"
	"github.com/bryanchriswhite/wincast/internal/watcher"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the focus-following mirror",
	Long: `Open the viewer window and mirror whichever window has input focus.

Capture sessions are opened lazily as windows gain focus and closed when
their window goes away. Close the viewer window (or press Ctrl+C) to exit.`,
	Example: `  # Run with defaults (60 fps)
  wincast run

  # Run at 30 fps with the status API enabled
  wincast run --fps 30 --api

  # Run with a specific config file
  wincast run --config /path/to/config.yaml`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// sessionMirror is a thread-safe shadow of the registry's window set,
// maintained through registry hooks. The registry itself belongs to the
// supervisor goroutine; the status API and the shell read from here.
type sessionMirror struct {
	mu   sync.Mutex
	wins map[xproto.Window]struct{}
}

func newSessionMirror() *sessionMirror {
	return &sessionMirror{wins: make(map[xproto.Window]struct{})}
}

func (m *sessionMirror) add(win xproto.Window) {
	m.mu.Lock()
	m.wins[win] = struct{}{}
	m.mu.Unlock()
}

func (m *sessionMirror) remove(win xproto.Window) {
	m.mu.Lock()
	delete(m.wins, win)
	m.mu.Unlock()
}

func (m *sessionMirror) snapshot() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	wins := make([]uint32, 0, len(m.wins))
	for win := range m.wins {
		wins = append(wins, uint32(win))
	}
	sort.Slice(wins, func(i, j int) bool { return wins[i] < wins[j] })
	return wins
}

func runRun(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	cfg := configMgr.Get()

	// Flag overrides
	if viper.IsSet("fps") && viper.GetInt("fps") > 0 {
		cfg.FPS = viper.GetInt("fps")
	}
	if viper.IsSet("log_level") && viper.GetString("log_level") != "" {
		cfg.LogLevel = viper.GetString("log_level")
	}
	if viper.IsSet("api_enabled") && viper.GetBool("api_enabled") {
		cfg.API.Enabled = true
	}
	if viper.IsSet("api_port") && viper.GetInt("api_port") > 0 {
		cfg.API.Port = viper.GetInt("api_port")
		cfg.API.Enabled = true
	}

	logger.Init(cfg.LogLevel, cfg.LogPretty)
	log := logger.WithComponent("main")
	log.Info().Str("config", configMgr.Path()).Int("fps", cfg.FPS).Msg("starting wincast")

	src, err := capture.NewX11Source(cfg.FPS)
	if err != nil {
		return fmt.Errorf("failed to initialize capture source: %w", err)
	}
	defer src.Close()

	w, err := watcher.New(time.Duration(cfg.FocusPollMs) * time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to initialize focus watcher: %w", err)
	}

	vw, err := viewer.New(cfg.Viewer.Width, cfg.Viewer.Height)
	if err != nil {
		return fmt.Errorf("failed to initialize viewer: %w", err)
	}

	mirror := newSessionMirror()

	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub()
	}

	hooks := session.Hooks{
		SessionOpened: func(win xproto.Window) {
			mirror.add(win)
			if hub != nil {
				hub.Publish(api.Event{Kind: api.EventSessionOpened, Window: uint32(win)})
			}
		},
		SessionClosed: func(win xproto.Window) {
			mirror.remove(win)
			if hub != nil {
				hub.Publish(api.Event{Kind: api.EventSessionClosed, Window: uint32(win)})
			}
		},
	}

	registry := session.NewRegistry(
		func(win xproto.Window, frames chan<- capture.Frame) (chan<- capture.Command, <-chan capture.Status, <-chan struct{}) {
			return capture.Start(src, win, cfg.FPS, frames)
		},
		hooks,
	)

	var drv *driver.Driver

	sh := shell.New(func() string {
		var b strings.Builder
		fmt.Fprintf(&b, "focus: %d\n", uint32(drv.Focus()))
		wins := mirror.snapshot()
		fmt.Fprintf(&b, "sessions: %d", len(wins))
		for _, win := range wins {
			fmt.Fprintf(&b, "\n  window %d", win)
		}
		return b.String()
	})

	params := driver.Params{
		ViewerCmds:    vw.Commands(),
		ViewerMsgs:    vw.Messages(),
		WatcherCmds:   w.Commands(),
		WatcherEvents: w.Events(),
		ShellCmds:     sh.Commands(),
		ShellMsgs:     sh.Messages(),
		Registry:      registry,
	}
	if hub != nil {
		params.OnFocusChange = func(win xproto.Window) {
			hub.Publish(api.Event{Kind: api.EventFocusChanged, Window: uint32(win)})
		}
	}
	drv = driver.New(params)

	if hub != nil {
		server := api.NewServer(hub, mirror.snapshot, func() uint32 { return uint32(drv.Focus()) })
		go func() {
			if err := server.Start(cfg.API.Port); err != nil {
				log.Error().Err(err).Msg("status API stopped")
			}
		}()
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); w.Run() }()
	go func() { defer wg.Done(); vw.Run() }()
	go func() { defer wg.Done(); sh.Run() }()

	// Ctrl+C takes the same path as closing the viewer window.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("interrupt received, shutting down")
		vw.RequestClose()
	}()

	drv.Run()
	wg.Wait()

	log.Info().Msg("wincast stopped")
	return nil
}
