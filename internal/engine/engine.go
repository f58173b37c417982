// Package engine manages the lifecycle of one external SuperCollider
// instance: booting its process, confirming liveness over OSC/UDP,
// sending control messages, and tearing it down gracefully or forcibly.
package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chabad360/go-osc/osc"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	DefaultHost        = "127.0.0.1"
	DefaultEnginePort  = 57120
	DefaultListenPort  = 57121
	DefaultBootTimeout = 15 * time.Second
	DefaultMsgTimeout  = time.Second
)

const (
	launcherBin          = "sclang"
	launcherProbeTimeout = 3 * time.Second
	bootPollInterval     = 500 * time.Millisecond
	termGrace            = 2 * time.Second
)

// Config carries the session parameters. The zero value is usable:
// every unset field falls back to its Default constant.
type Config struct {
	Host        string
	EnginePort  int           // port the engine listens on (outbound)
	ListenPort  int           // port this session listens on (inbound)
	BootScript  string        // path to the sclang boot script
	BootTimeout time.Duration // ceiling for Boot liveness polling and graceful Quit
	MsgTimeout  time.Duration // per-message round-trip ceiling
	Includes    []string      // extra resource files exported to the boot script
	Debug       bool
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.EnginePort == 0 {
		c.EnginePort = DefaultEnginePort
	}
	if c.ListenPort == 0 {
		c.ListenPort = DefaultListenPort
	}
	if c.BootTimeout == 0 {
		c.BootTimeout = DefaultBootTimeout
	}
	if c.MsgTimeout == 0 {
		c.MsgTimeout = DefaultMsgTimeout
	}
	return c
}

// sender is the outbound half of the OSC transport. *osc.Client
// satisfies it; tests inject fakes.
type sender interface {
	Send(osc.Packet) error
}

// Engine owns the relationship to one external engine process. A
// single Engine instance exclusively owns its outbound client, inbound
// listener, and any process it spawned.
//
// Status queries are not pipelined: the engine correlates replies by
// recency only, so concurrent Status calls from multiple goroutines
// have undefined ordering. Callers must serialize status queries.
type Engine struct {
	cfg        Config
	client     sender
	dispatcher *osc.StandardDispatcher

	// statusCh is the single-slot hand-off between the inbound
	// listener goroutine and a synchronous Status caller.
	statusCh chan []interface{}

	mu        sync.Mutex
	ready     bool
	conn      net.PacketConn
	serveDone chan struct{}
	cmd       *exec.Cmd
	exited    chan struct{} // closed once the boot-managed process is reaped

	// killAll, probe, and launch are swapped out in tests to avoid
	// scanning real processes or requiring a launcher binary.
	killAll func() int
	probe   func(ctx context.Context) error
	launch  func(script string) *exec.Cmd
}

// New prepares a session. No network or process resource is acquired
// here; the inbound listener binds in StartListener and the engine
// process spawns in Boot.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:        cfg,
		client:     osc.NewClient(cfg.Host, cfg.EnginePort),
		dispatcher: osc.NewStandardDispatcher(),
		statusCh:   make(chan []interface{}, 1),
	}
	e.killAll = e.killLaunchers
	e.probe = e.probeLauncher
	e.launch = func(script string) *exec.Cmd {
		return exec.Command(launcherBin, script)
	}
	if err := e.dispatcher.AddMsgHandler(addrStatusReply, e.onStatusReply); err != nil {
		return nil, fmt.Errorf("registering %s handler: %w", addrStatusReply, err)
	}
	log.Printf("engine: session configured (engine port %d, listen port %d)", cfg.EnginePort, cfg.ListenPort)
	return e, nil
}

// Ready reports whether the session completed a successful boot and
// has not quit since.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

func (e *Engine) setReady(v bool) {
	e.mu.Lock()
	e.ready = v
	e.mu.Unlock()
}

// StartListener binds the inbound UDP listener and services it on a
// background goroutine. Idempotent: a second call while listening logs
// and returns nil.
func (e *Engine) StartListener() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn != nil {
		log.Printf("engine: inbound OSC listener already running")
		return nil
	}

	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.ListenPort))
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return &PortInUseError{Port: e.cfg.ListenPort, Err: err}
	}

	srv := &osc.Server{Addr: addr, Dispatcher: e.dispatcher}
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Serve returns once conn is closed by StopListener.
		_ = srv.Serve(conn)
	}()

	e.conn = conn
	e.serveDone = done
	log.Printf("engine: inbound OSC listener started on %s", addr)
	return nil
}

// StopListener shuts the inbound listener down and releases its
// socket. No-op if not listening.
func (e *Engine) StopListener() {
	e.mu.Lock()
	conn, done := e.conn, e.serveDone
	e.conn, e.serveDone = nil, nil
	e.mu.Unlock()
	if conn == nil {
		return
	}
	conn.Close()
	<-done
	log.Printf("engine: inbound OSC listener stopped")
}

func (e *Engine) onStatusReply(msg *osc.Message) {
	select {
	case e.statusCh <- msg.Arguments:
	default:
		// A reply is already pending; the slot stays single.
	}
}

// Status queries the engine for its current health. A missing reply
// within the message timeout is a normal outcome (the engine may not
// be ready yet) and returns (nil, nil); errors are reserved for send
// failures and malformed replies.
func (e *Engine) Status() (*StatusReply, error) {
	// Drop any stale reply so the next one can only belong to this
	// query.
	select {
	case <-e.statusCh:
	default:
	}

	if err := e.client.Send(osc.NewMessage(addrStatus)); err != nil {
		return nil, fmt.Errorf("sending %s: %w", addrStatus, err)
	}

	select {
	case args := <-e.statusCh:
		st, err := parseStatusReply(args)
		if err != nil {
			return nil, err
		}
		e.debugf("engine: status reply: %+v", st)
		return st, nil
	case <-time.After(e.cfg.MsgTimeout):
		e.debugf("engine: no status reply within %v (probably not ready)", e.cfg.MsgTimeout)
		return nil, nil
	}
}

// IsAlive reports whether the engine answered a status query and
// declared itself running.
func (e *Engine) IsAlive() bool {
	st, err := e.Status()
	return err == nil && st != nil && st.Running
}

const defaultRTTSamples = 5

// MeasureRTT averages the round trip of consecutive status queries.
// samples <= 0 uses the default sample count. Unlike Status, a sample
// that gets no reply is an error here: RTT over a non-answering engine
// is meaningless.
func (e *Engine) MeasureRTT(samples int) (time.Duration, error) {
	if !e.Ready() {
		return 0, &NotReadyError{Op: "rtt measurement"}
	}
	if samples <= 0 {
		samples = defaultRTTSamples
	}

	var total time.Duration
	for i := 0; i < samples; i++ {
		select {
		case <-e.statusCh:
		default:
		}

		start := time.Now()
		if err := e.client.Send(osc.NewMessage(addrStatus)); err != nil {
			return 0, fmt.Errorf("sending %s: %w", addrStatus, err)
		}
		select {
		case <-e.statusCh:
			total += time.Since(start)
		case <-time.After(e.cfg.MsgTimeout):
			return 0, fmt.Errorf("no status reply for rtt sample %d within %v", i+1, e.cfg.MsgTimeout)
		}
	}

	rtt := total / time.Duration(samples)
	e.debugf("engine: rtt %v over %d samples", rtt, samples)
	return rtt, nil
}

// EstimateLatency approximates the one-way control latency: half the
// measured round trip plus the scheduling latency the engine reports,
// when its protocol variant carries one.
func (e *Engine) EstimateLatency() (time.Duration, error) {
	rtt, err := e.MeasureRTT(defaultRTTSamples)
	if err != nil {
		return 0, err
	}

	latency := rtt / 2
	st, err := e.Status()
	if err != nil {
		return 0, err
	}
	if st != nil && st.HasSchedLatency {
		latency += time.Duration(st.SchedLatency * float64(time.Second))
	}
	return latency, nil
}

// Boot starts the inbound listener and brings the engine up. If an
// engine instance is already answering status queries the session
// attaches to it without spawning anything. Otherwise the launcher is
// spawned on the boot script and polled for liveness every 500ms until
// it answers or the boot timeout elapses; on timeout the spawned
// process is cleaned up before the error surfaces.
func (e *Engine) Boot(ctx context.Context) error {
	if err := e.StartListener(); err != nil {
		return err
	}

	if e.IsAlive() {
		log.Printf("engine: already running, attaching to existing instance")
		e.setReady(true)
		return nil
	}

	if e.cfg.BootScript == "" {
		return &BootScriptNotFoundError{}
	}
	if fi, err := os.Stat(e.cfg.BootScript); err != nil || fi.IsDir() {
		return &BootScriptNotFoundError{Path: e.cfg.BootScript}
	}
	if err := e.probe(ctx); err != nil {
		return err
	}

	log.Printf("engine: booting %s with script %s", launcherBin, e.cfg.BootScript)

	cmd := e.launch(e.cfg.BootScript)
	cmd.Env = append(childEnv(os.Environ()), e.launchEnv()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("attaching %s output pipe: %w", launcherBin, err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", launcherBin, err)
	}
	log.Printf("engine: %s started (pid %d)", launcherBin, cmd.Process.Pid)

	outDone := make(chan struct{})
	go func() {
		defer close(outDone)
		forwardOutput(stdout)
	}()
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		<-outDone // drain combined output before reaping
		_ = cmd.Wait()
	}()

	e.mu.Lock()
	e.cmd, e.exited = cmd, exited
	e.mu.Unlock()

	deadline := time.NewTimer(e.cfg.BootTimeout)
	defer deadline.Stop()
	poll := time.NewTicker(bootPollInterval)
	defer poll.Stop()

	for {
		if e.IsAlive() {
			log.Printf("engine: booted successfully")
			e.setReady(true)
			return nil
		}
		select {
		case <-ctx.Done():
			e.cleanupProcess()
			return ctx.Err()
		case <-deadline.C:
			e.cleanupProcess()
			return &BootTimeoutError{Timeout: e.cfg.BootTimeout}
		case <-poll.C:
		}
	}
}

// probeLauncher checks that the launcher binary is reachable on PATH
// via a short version probe.
func (e *Engine) probeLauncher(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, launcherProbeTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, launcherBin, "--version")
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		e.debugf("engine: %s probe failed: %v", launcherBin, err)
		return &LauncherNotFoundError{Launcher: launcherBin, Err: err}
	}
	return nil
}

// forwardOutput relays the combined stdout/stderr of the spawned
// process to the log, line by line, until the stream closes.
func forwardOutput(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		log.Printf("[%s] %s", launcherBin, sc.Text())
	}
}

// Quit shuts the engine down. By default it asks nicely over OSC and
// waits for the boot-managed process to exit; on send failure or wait
// timeout it escalates to killing every launcher process on the host.
// Cleanup (tracked process, inbound listener, readiness) always runs,
// so Quit never fails: shutdown either succeeds or is forced.
func (e *Engine) Quit(force bool) {
	log.Printf("engine: shutting down")

	if !force {
		if err := e.client.Send(osc.NewMessage(addrQuit)); err != nil {
			log.Printf("engine: quit message failed (%v), forcing shutdown", err)
			force = true
		} else {
			e.debugf("engine: sent %s", addrQuit)
			e.mu.Lock()
			exited := e.exited
			e.mu.Unlock()
			if exited != nil {
				select {
				case <-exited:
					log.Printf("engine: shut down gracefully")
				case <-time.After(e.cfg.BootTimeout):
					log.Printf("engine: no response to quit, forcing shutdown")
					force = true
				}
			}
		}
	}

	if force {
		n := e.killAll()
		log.Printf("engine: forcefully killed %d %s process(es)", n, launcherBin)
	}

	e.cleanupProcess()
	e.StopListener()
	e.setReady(false)
}

// cleanupProcess terminates the boot-managed process if it is still
// tracked: SIGTERM, a short grace period, then SIGKILL. Every boot and
// quit failure path funnels through here so no process handle is ever
// orphaned.
func (e *Engine) cleanupProcess() {
	e.mu.Lock()
	cmd, exited := e.cmd, e.exited
	e.cmd, e.exited = nil, nil
	e.mu.Unlock()
	if cmd == nil {
		return
	}

	select {
	case <-exited:
		return
	default:
	}

	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-exited:
	case <-time.After(termGrace):
		_ = cmd.Process.Kill()
		<-exited
	}
}

// killLaunchers scans OS processes and kills every one whose name or
// first command-line argument matches the launcher binary. Best
// effort: processes that already exited or are inaccessible are
// skipped, never fatal. Launcher instances owned by other sessions are
// killed too.
func (e *Engine) killLaunchers() int {
	procs, err := process.Processes()
	if err != nil {
		log.Printf("engine: process scan failed: %v", err)
		return 0
	}
	killed := 0
	for _, p := range procs {
		if !matchesLauncher(p) {
			continue
		}
		if err := p.Kill(); err != nil {
			e.debugf("engine: could not kill pid %d: %v", p.Pid, err)
			continue
		}
		killed++
		e.debugf("engine: killed %s (pid %d)", launcherBin, p.Pid)
	}
	return killed
}

func matchesLauncher(p *process.Process) bool {
	if name, err := p.Name(); err == nil && strings.Contains(name, launcherBin) {
		return true
	}
	if args, err := p.CmdlineSlice(); err == nil && len(args) > 0 && strings.Contains(args[0], launcherBin) {
		return true
	}
	return false
}

func (e *Engine) debugf(format string, args ...interface{}) {
	if e.cfg.Debug {
		log.Printf(format, args...)
	}
}
