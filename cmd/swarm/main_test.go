package main

import "testing"

func TestEnvOr_EnvSet(t *testing.T) {
	t.Setenv("TEST_SWARM_ENV", "hello")
	if got := envOr("TEST_SWARM_ENV", "default"); got != "hello" {
		t.Fatalf("envOr with set env: got %q, want %q", got, "hello")
	}
}

func TestEnvOr_EnvUnset(t *testing.T) {
	if got := envOr("TEST_SWARM_UNSET_KEY_XYZ", "fallback"); got != "fallback" {
		t.Fatalf("envOr with unset env: got %q, want %q", got, "fallback")
	}
}

func TestEnvOr_EmptyEnv(t *testing.T) {
	t.Setenv("TEST_SWARM_EMPTY", "")
	if got := envOr("TEST_SWARM_EMPTY", "default"); got != "default" {
		t.Fatalf("envOr with empty env: got %q, want %q", got, "default")
	}
}
