// Package main defines the CLI structure using kong.
package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Connect  ConnectCmd  `cmd:"" help:"Open a live session against the gateway"`
	Tail     TailCmd     `cmd:"" help:"Follow a session event stream from NATS (development)"`
	Replay   ReplayCmd   `cmd:"" help:"Play back a recorded showcase"`
	Showcase ShowcaseCmd `cmd:"" help:"Manage the showcase catalog"`
	Setup    SetupCmd    `cmd:"" help:"Interactive setup wizard"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`

	Config string `help:"Config file path (default: cockpit.toml)"`
}

// ConnectCmd opens a live session.
type ConnectCmd struct {
	URL string `help:"Gateway WebSocket URL (overrides config)"`
}

// TailCmd follows a NATS event stream and prints the folded session. Used
// for local development without a gateway.
type TailCmd struct {
	URL     string `help:"NATS server URL (overrides config)"`
	Events  string `help:"Event subject (overrides config)"`
	Command string `help:"Command subject (overrides config)"`
}

// ReplayCmd plays one showcase.
type ReplayCmd struct {
	ID    string  `arg:"" help:"Showcase id from index.json"`
	Dir   string  `help:"Showcase catalog directory (overrides config)"`
	Speed float64 `help:"Initial playback speed, clamped to [0.5, 5]"`
	Skip  bool    `help:"Jump straight to the materialized end state"`
}

// ShowcaseCmd groups catalog operations.
type ShowcaseCmd struct {
	List  ShowcaseListCmd  `cmd:"" help:"List catalog entries"`
	Build ShowcaseBuildCmd `cmd:"" help:"Compile showcase.yaml manifests into the JSON catalog"`
}

// ShowcaseListCmd lists the catalog.
type ShowcaseListCmd struct {
	Dir   string `help:"Showcase catalog directory (overrides config)"`
	Watch bool   `help:"Keep running and print the list when the catalog changes"`
}

// ShowcaseBuildCmd compiles manifests into index.json and meta.json files.
type ShowcaseBuildCmd struct {
	Dir string `help:"Showcase catalog directory (overrides config)"`
}

// SetupCmd runs the interactive setup wizard.
type SetupCmd struct {
	Output string `short:"o" default:"cockpit.toml" help:"Where to write the config"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
