package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/scpilot/scpilot/internal/config"
	"github.com/scpilot/scpilot/internal/engine"
	"github.com/scpilot/scpilot/internal/midiin"
	"github.com/scpilot/scpilot/internal/monitor"
	"github.com/scpilot/scpilot/internal/music"
	"github.com/scpilot/scpilot/internal/piano"
	"github.com/scpilot/scpilot/internal/synth"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	bootScript := flag.String("boot-script", "", "Override boot script path")
	midiInput := flag.String("midi", "", "Use a MIDI input matching this name instead of the terminal piano")
	monitorMode := flag.Bool("monitor", false, "Serve the websocket status monitor")
	forceQuit := flag.Bool("force-quit", false, "Kill every engine launcher process and exit")
	flag.Parse()

	// A .env next to the binary overrides nothing already exported.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("main: .env: %v", err)
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *bootScript != "" {
		cfg.Engine.BootScript = *bootScript
	}

	eng, err := engine.New(cfg.EngineConfig())
	if err != nil {
		log.Fatalf("Failed to create engine session: %v", err)
	}

	if *forceQuit {
		eng.Quit(true)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.Boot(ctx); err != nil {
		var portErr *engine.PortInUseError
		if errors.As(err, &portErr) {
			log.Fatalf("Port %d is taken, is another session already running?", portErr.Port)
		}
		log.Fatalf("Failed to boot engine: %v", err)
	}
	defer eng.Quit(false)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		eng.Quit(false)
		os.Exit(0)
	}()

	if cfg.Monitor.Enabled || *monitorMode {
		broadcaster := monitor.NewBroadcaster(eng, cfg.Monitor.SnapshotInterval)
		defer broadcaster.Stop()

		mux := http.NewServeMux()
		monitor.NewServer(broadcaster).SetupRoutes(mux)
		go func() {
			if err := monitor.ListenAndServe(cfg.Monitor.Host, cfg.Monitor.Port, mux); err != nil {
				log.Printf("monitor: server error: %v", err)
			}
		}()
	}

	sc := synth.NewSCSynth(eng)

	if *midiInput != "" {
		runMIDI(sc, *midiInput, sigCh)
		return
	}
	runPiano(sc, cfg.Piano)
}

func runPiano(sc *synth.SCSynth, cfg config.PianoConfig) {
	model := piano.New(sc, piano.Options{
		Velocity: cfg.Velocity,
		Gate:     cfg.Gate,
		ModParam: cfg.ModParam,
		ModCurve: music.ModCurve(cfg.ModCurve),
		ModMin:   cfg.ModMin,
		ModMax:   cfg.ModMax,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		log.Printf("piano: %v", err)
	}
}

func runMIDI(sc *synth.SCSynth, pattern string, sigCh chan os.Signal) {
	in, err := midiin.Open(sc, pattern)
	if err != nil {
		log.Fatalf("Failed to open MIDI input: %v", err)
	}
	defer in.Close()

	log.Printf("Playing from %s, press Ctrl-C to quit", in.Port())
	<-sigCh
}
