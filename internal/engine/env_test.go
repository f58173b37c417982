package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func envValue(env []string, key string) (string, bool) {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return strings.TrimPrefix(kv, prefix), true
		}
	}
	return "", false
}

func TestLaunchEnvPorts(t *testing.T) {
	e, _ := newTestEngine(t, Config{EnginePort: 57130, ListenPort: 57131})

	env := e.launchEnv()
	if v, _ := envValue(env, EnvEnginePort); v != "57130" {
		t.Errorf("%s = %q, want 57130", EnvEnginePort, v)
	}
	if v, _ := envValue(env, EnvListenPort); v != "57131" {
		t.Errorf("%s = %q, want 57131", EnvListenPort, v)
	}
	if _, ok := envValue(env, EnvIncludes); ok {
		t.Errorf("%s set without include files", EnvIncludes)
	}
	if _, ok := envValue(env, EnvDebug); ok {
		t.Errorf("%s set without debug flag", EnvDebug)
	}
}

func TestLaunchEnvIncludes(t *testing.T) {
	e, _ := newTestEngine(t, Config{
		Includes: []string{"a.scd", "/abs/b.scd"},
	})

	env := e.launchEnv()
	v, ok := envValue(env, EnvIncludes)
	if !ok {
		t.Fatalf("%s not set", EnvIncludes)
	}
	paths := strings.Split(v, ";")
	if len(paths) != 2 {
		t.Fatalf("%s = %q, want 2 paths", EnvIncludes, v)
	}
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			t.Errorf("include path %q is not absolute", p)
		}
	}
	if paths[1] != "/abs/b.scd" {
		t.Errorf("second path = %q, want /abs/b.scd", paths[1])
	}
}

func TestLaunchEnvDebug(t *testing.T) {
	e, _ := newTestEngine(t, Config{Debug: true})

	env := e.launchEnv()
	if v, _ := envValue(env, EnvDebug); v != "1" {
		t.Errorf("%s = %q, want 1", EnvDebug, v)
	}
}

func TestChildEnvStripsSessionVars(t *testing.T) {
	parent := []string{
		"PATH=/usr/bin",
		EnvIncludes + "=stale.scd",
		EnvDebug + "=1",
		"HOME=/home/user",
	}

	env := childEnv(parent)

	if len(env) != 2 {
		t.Fatalf("childEnv() = %v, want 2 entries", env)
	}
	for _, key := range []string{EnvIncludes, EnvDebug} {
		if _, ok := envValue(env, key); ok {
			t.Errorf("%s survived into the child environment", key)
		}
	}
	if _, ok := envValue(env, "PATH"); !ok {
		t.Error("PATH was stripped from the child environment")
	}
}

func TestChildEnvDropsStaleIncludes(t *testing.T) {
	// A stale includes value inherited from the parent (say, a leftover
	// .env export) must not reach a session that configured none.
	e, _ := newTestEngine(t, Config{})

	parent := []string{"PATH=/usr/bin", EnvIncludes + "=stale.scd"}
	env := append(childEnv(parent), e.launchEnv()...)

	if v, ok := envValue(env, EnvIncludes); ok {
		t.Errorf("child environment carries %s=%q without configured includes", EnvIncludes, v)
	}
	if v, _ := envValue(env, EnvListenPort); v == "" {
		t.Errorf("%s missing from merged child environment", EnvListenPort)
	}
}

func TestLaunchEnvNeverMutatesParent(t *testing.T) {
	e, _ := newTestEngine(t, Config{Includes: []string{"x.scd"}, Debug: true})
	e.launchEnv()

	for _, key := range []string{EnvEnginePort, EnvListenPort, EnvIncludes, EnvDebug} {
		if v, ok := os.LookupEnv(key); ok {
			t.Errorf("parent environment gained %s=%q", key, v)
		}
	}
}
