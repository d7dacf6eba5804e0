package main

import "testing"

func TestRootCommandParsesFlags(t *testing.T) {
	cmd := newRootCommand()
	if err := cmd.ParseFlags([]string{
		"--listen", "127.0.0.1:9999",
		"--relay", "http://relay.example.com:8080",
		"--log-level", "debug",
	}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	listen, err := cmd.Flags().GetString("listen")
	if err != nil || listen != "127.0.0.1:9999" {
		t.Fatalf("expected --listen to parse to 127.0.0.1:9999, got %q (err %v)", listen, err)
	}

	relay, err := cmd.Flags().GetString("relay")
	if err != nil || relay != "http://relay.example.com:8080" {
		t.Fatalf("expected --relay to parse, got %q (err %v)", relay, err)
	}

	level, err := cmd.Flags().GetString("log-level")
	if err != nil || level != "debug" {
		t.Fatalf("expected --log-level to parse to debug, got %q (err %v)", level, err)
	}
}

func TestRootCommandDefaults(t *testing.T) {
	cmd := newRootCommand()
	listen, _ := cmd.Flags().GetString("listen")
	if listen == "" {
		t.Fatal("expected a non-empty default --listen value")
	}
	uppercase, _ := cmd.Flags().GetBool("uppercase-bodies")
	if uppercase {
		t.Fatal("expected --uppercase-bodies to default to false")
	}
}
