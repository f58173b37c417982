package engine

import (
	"fmt"
	"time"
)

// PortInUseError is returned when the inbound OSC listener cannot bind
// its UDP port.
type PortInUseError struct {
	Port int
	Err  error
}

func (e *PortInUseError) Error() string {
	return fmt.Sprintf("cannot bind inbound OSC listener on port %d (port may be in use by another application): %v", e.Port, e.Err)
}

func (e *PortInUseError) Unwrap() error { return e.Err }

// BootScriptNotFoundError is returned by Boot when the configured boot
// script is missing or was never set.
type BootScriptNotFoundError struct {
	Path string
}

func (e *BootScriptNotFoundError) Error() string {
	if e.Path == "" {
		return "engine is not running and no boot script was provided"
	}
	return fmt.Sprintf("boot script not found: %s", e.Path)
}

// LauncherNotFoundError is returned by Boot when the engine launcher
// binary is not on PATH.
type LauncherNotFoundError struct {
	Launcher string
	Err      error
}

func (e *LauncherNotFoundError) Error() string {
	return fmt.Sprintf("%s is not available in PATH; install SuperCollider and ensure %s is accessible", e.Launcher, e.Launcher)
}

func (e *LauncherNotFoundError) Unwrap() error { return e.Err }

// BootTimeoutError is returned by Boot when the engine never reported
// itself alive within the boot timeout. The spawned process has already
// been cleaned up by the time this error surfaces.
type BootTimeoutError struct {
	Timeout time.Duration
}

func (e *BootTimeoutError) Error() string {
	return fmt.Sprintf("engine failed to boot within %v; check that the boot script is correct and SuperCollider is properly installed", e.Timeout)
}

// NotReadyError is returned by every message-sending operation invoked
// before a successful Boot. No message is sent when this is returned.
type NotReadyError struct {
	Op string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("engine session is not ready for %s; call Boot first", e.Op)
}
