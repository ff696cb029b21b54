// kvmlink - software KVM input sharing
// Captures keyboard and mouse input on a host machine and replays it on
// agent machines over the network.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kvmlink/internal/autostart"
	"kvmlink/internal/capture"
	"kvmlink/internal/config"
	"kvmlink/internal/event"
	"kvmlink/internal/hotkey"
	"kvmlink/internal/inject"
	"kvmlink/internal/logging"
	"kvmlink/internal/network"
	"kvmlink/internal/tray"
)

var slog = logging.NewLogger("kvmlink/main")

var (
	version    = "0.1.0"
	configPath = flag.String("config", "", "Path to config file (defaults to the platform config dir)")
	roleFlag   = flag.String("role", "", "Override the configured role (host or agent)")
	showVer    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("kvmlink version %s\n", version)
		return
	}

	var cfgMgr *config.Manager
	if *configPath != "" {
		cfgMgr = config.NewManagerAt(*configPath)
	} else {
		var err error
		cfgMgr, err = config.NewManager()
		if err != nil {
			slog.Error("failed to initialize config", "error", err)
			os.Exit(1)
		}
	}
	if err := cfgMgr.Load(); err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
	}

	cfg := cfgMgr.Get()
	if *roleFlag != "" {
		cfg.Role = *roleFlag
	}

	if err := logging.SetLogLevel(cfg.LogLevel); err != nil {
		slog.Warn("invalid log level", "level", cfg.LogLevel, "error", err)
	}

	switch cfg.Role {
	case "host":
		runHost(cfgMgr)
	case "agent":
		runAgent(cfg)
	default:
		slog.Error("unknown role, expected host or agent", "role", cfg.Role)
		os.Exit(1)
	}
}

// runHost captures local input and broadcasts it to connected agents. It
// blocks in the tray loop until quit.
func runHost(cfgMgr *config.Manager) {
	cfg := cfgMgr.Get()

	var cats event.CategorySet
	if cfg.CaptureMouse {
		cats = cats.Set(event.CategoryMouse)
	}
	if cfg.CaptureKeyboard {
		cats = cats.Set(event.CategoryKeyboard)
	}
	if cats == 0 {
		slog.Error("nothing to capture, enable capture_mouse or capture_keyboard")
		os.Exit(1)
	}

	session, err := capture.Start(capture.Policy{
		ShouldConsume: cfg.ConsumeInput,
		Categories:    cats,
	})
	if err != nil {
		slog.Error("failed to start input capture", "error", err)
		os.Exit(1)
	}

	server := network.NewServer(cfg.Token)
	go func() {
		if err := server.Start(cfg.ListenAddr); err != nil {
			slog.Error("server error", "error", err)
		}
	}()

	t := tray.New("kvmlink", "kvmlink input sharing host")

	setConsume := func(consume bool) {
		session.SetShouldConsume(consume)
		cur := cfgMgr.Get()
		cur.ConsumeInput = consume
		cfgMgr.Set(cur)
		if err := cfgMgr.Save(); err != nil {
			slog.Warn("failed to save config", "error", err)
		}
	}

	consumeItem := t.AddCheckItem("Consume local input", cfg.ConsumeInput, setConsume)

	// Emergency escape: Ctrl+Alt+Esc always hands input back to the local
	// machine, even when every agent is unreachable.
	watcher := hotkey.NewWatcher()
	watcher.Register([]uint32{hotkey.VKControl, hotkey.VKMenu, hotkey.VKEscape}, func() {
		slog.Warn("escape chord pressed, releasing local input")
		setConsume(false)
		consumeItem.SetChecked(false)
	})

	go func() {
		for {
			re, ok := session.Relay().Receive()
			if !ok {
				return
			}
			if kt, ok := re.Event.(event.KeyTransition); ok {
				watcher.Observe(kt)
			}
			server.BroadcastEvent(re.Event)
			re.Release()
		}
	}()

	t.AddCheckItem("Forward mouse", cfg.CaptureMouse, func(checked bool) {
		toggleCategory(session, cfgMgr, event.CategoryMouse, checked)
	})
	t.AddCheckItem("Forward keyboard", cfg.CaptureKeyboard, func(checked bool) {
		toggleCategory(session, cfgMgr, event.CategoryKeyboard, checked)
	})

	t.AddSeparator()

	t.AddCheckItem("Start at login", autostart.IsEnabled(), func(checked bool) {
		var err error
		if checked {
			err = autostart.Enable()
		} else {
			err = autostart.Disable()
		}
		if err != nil {
			slog.Warn("failed to update login registration", "error", err)
		}
	})

	t.AddSeparator()
	t.AddItem("Quit", func() {
		t.Stop()
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		t.Stop()
	}()

	slog.Info("host running", "listen", cfg.ListenAddr, "categories", cats)
	t.Run()

	session.Stop()
	if err := session.Err(); err != nil {
		slog.Warn("capture stopped with error", "error", err)
	}
	server.Close()
}

func toggleCategory(session *capture.Session, cfgMgr *config.Manager, cat event.Category, enabled bool) {
	cfg := cfgMgr.Get()
	switch cat {
	case event.CategoryMouse:
		cfg.CaptureMouse = enabled
	case event.CategoryKeyboard:
		cfg.CaptureKeyboard = enabled
	}
	cfgMgr.Set(cfg)
	if err := cfgMgr.Save(); err != nil {
		slog.Warn("failed to save config", "error", err)
	}

	var cats event.CategorySet
	if cfg.CaptureMouse {
		cats = cats.Set(event.CategoryMouse)
	}
	if cfg.CaptureKeyboard {
		cats = cats.Set(event.CategoryKeyboard)
	}
	session.SetCapturedCategories(cats)
}

// runAgent connects to the host and replays every received event on a
// virtual input device. It blocks until interrupted.
func runAgent(cfg *config.Config) {
	if cfg.HostAddr == "" {
		slog.Error("agent role requires host_addr")
		os.Exit(1)
	}

	dev, err := inject.OpenUinput(cfg.DeviceName)
	if err != nil {
		slog.Error("failed to open virtual input device", "error", err)
		os.Exit(1)
	}
	defer dev.Close()

	client := network.NewClient(cfg.HostAddr, cfg.Token)
	client.Start()
	defer client.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	slog.Info("agent running", "host", cfg.HostAddr, "device", cfg.DeviceName)
	for {
		select {
		case ev := <-client.Events():
			if err := inject.EmitEvent(dev, ev); err != nil {
				slog.Warn("failed to replay event", "error", err)
			}
		case <-sigCh:
			slog.Info("shutting down")
			return
		}
	}
}
