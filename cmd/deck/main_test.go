package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/zulandar/crewdeck/internal/config"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "deck dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestRootCmd_ListsSubcommands(t *testing.T) {
	out, err := runCommand(t, "--help")
	if err != nil {
		t.Fatalf("--help failed: %v", err)
	}
	for _, sub := range []string{"serve", "watch", "check", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help missing subcommand %q:\n%s", sub, out)
		}
	}
}

func TestServeCmd_Help(t *testing.T) {
	out, err := runCommand(t, "serve", "--help")
	if err != nil {
		t.Fatalf("serve --help failed: %v", err)
	}
	if !strings.Contains(out, "aggregation server") {
		t.Errorf("expected help to mention 'aggregation server', got: %s", out)
	}
	if !strings.Contains(out, "--port") || !strings.Contains(out, "--config") {
		t.Errorf("expected help to list flags, got: %s", out)
	}
}

func TestServeCmd_MissingConfig(t *testing.T) {
	_, err := runCommand(t, "serve", "--config", "/nonexistent/crewdeck.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestServeCmd_DefaultConfigPath(t *testing.T) {
	cmd := newServeCmd()
	flag := cmd.Flags().Lookup("config")
	if flag == nil {
		t.Fatal("--config flag not found")
	}
	if flag.DefValue != "crewdeck.yaml" {
		t.Errorf("default config = %q, want %q", flag.DefValue, "crewdeck.yaml")
	}
}

func TestWatchCmd_Defaults(t *testing.T) {
	cmd := newWatchCmd()
	if got := cmd.Flags().Lookup("server").DefValue; got != "http://localhost:8080" {
		t.Errorf("default server = %q", got)
	}
	if got := cmd.Flags().Lookup("interval").DefValue; got != "30" {
		t.Errorf("default interval = %q, want 30", got)
	}
}

func TestCheckCmd_UnreachableServer(t *testing.T) {
	_, err := runCommand(t, "check", "--server", "http://127.0.0.1:1")
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
	if !strings.Contains(err.Error(), "check http://127.0.0.1:1") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestBuildRouter_NoAdaptersConfigured(t *testing.T) {
	router, err := buildRouter(context.Background(), config.NotifyConfig{})
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}
	if router != nil {
		t.Error("expected nil router with no tokens configured")
	}
}

func TestBuildRouter_Discord(t *testing.T) {
	router, err := buildRouter(context.Background(), config.NotifyConfig{
		Discord: config.DiscordConfig{Token: "tok", Channel: "chan-1"},
	})
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}
	if router == nil {
		t.Fatal("expected a router")
	}
	if err := router.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
