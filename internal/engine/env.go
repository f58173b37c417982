package engine

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
)

// Environment variables exported to the spawned boot script. The
// session serializes its launch configuration into the child process
// environment at spawn time; the parent environment is never mutated.
const (
	EnvEnginePort = "SCPILOT_SC_PORT"
	EnvListenPort = "SCPILOT_LISTEN_PORT"
	EnvIncludes   = "SCPILOT_INCLUDES" // semicolon-joined absolute paths
	EnvDebug      = "SCPILOT_DEBUG"

	envPrefix = "SCPILOT_"
)

// childEnv is the inherited environment with every session variable
// stripped. Unset fields must stay unset in the child: a stale
// SCPILOT_INCLUDES inherited from the parent would make the boot
// script load includes this session never asked for.
func childEnv(parent []string) []string {
	out := make([]string, 0, len(parent))
	for _, kv := range parent {
		if strings.HasPrefix(kv, envPrefix) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func (e *Engine) launchEnv() []string {
	env := []string{
		fmt.Sprintf("%s=%d", EnvEnginePort, e.cfg.EnginePort),
		fmt.Sprintf("%s=%d", EnvListenPort, e.cfg.ListenPort),
	}

	if len(e.cfg.Includes) > 0 {
		abs := make([]string, 0, len(e.cfg.Includes))
		for _, p := range e.cfg.Includes {
			a, err := filepath.Abs(p)
			if err != nil {
				a = p
			}
			abs = append(abs, a)
		}
		env = append(env, EnvIncludes+"="+strings.Join(abs, ";"))
		log.Printf("engine: including %d resource file(s)", len(abs))
	} else {
		log.Printf("engine: no additional resource files to include")
	}

	if e.cfg.Debug {
		env = append(env, EnvDebug+"=1")
	}
	return env
}
