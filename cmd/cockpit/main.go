// Package main is the entry point for the cockpit client: live agent
// sessions over the gateway, and deterministic showcase replay.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/openclaw/cockpit/internal/checkpoint"
	"github.com/openclaw/cockpit/internal/config"
	"github.com/openclaw/cockpit/internal/gateway"
	"github.com/openclaw/cockpit/internal/logging"
	"github.com/openclaw/cockpit/internal/protocol"
	"github.com/openclaw/cockpit/internal/replay"
	"github.com/openclaw/cockpit/internal/session"
	"github.com/openclaw/cockpit/internal/setup"
	"github.com/openclaw/cockpit/internal/showcase"
	"github.com/openclaw/cockpit/internal/tui"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func init() {
	// Load .env for gateway tokens and the like.
	_ = godotenv.Load()
}

type appContext struct {
	cfg    *config.Config
	logger *logging.Logger
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("cockpit"),
		kong.Description("Terminal client for live agent sessions and showcase replay."),
		kong.UsageOnError(),
		kongVars(),
	)

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New()
	logger.SetLevel(logging.ParseLevel(cfg.Logging.Level))

	if err := ctx.Run(&appContext{cfg: cfg, logger: logger}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.LoadDefault()
}

// Run opens a live session and hands it to the TUI.
func (c *ConnectCmd) Run(app *appContext) error {
	url := c.URL
	if url == "" {
		url = app.cfg.Gateway.URL
	}
	if url == "" {
		return fmt.Errorf("no gateway URL: set gateway.url in cockpit.toml or pass --url")
	}

	snapshots, err := checkpoint.NewStore(filepath.Join(app.cfg.SandboxStateDir(), "checkpoints"))
	if err != nil {
		return err
	}

	var sess *session.Session
	sess = session.New(app.logger,
		session.WithOnCheckpoint(func(ev protocol.TriggerCheckpointSaveEvent) {
			files := make(map[string]string)
			for _, f := range sess.Files() {
				files[f.Path] = f.Content
			}
			if _, err := snapshots.Save(ev.ProjectID, files); err != nil {
				app.logger.Warn("checkpoint save failed", map[string]interface{}{"error": err.Error()})
			}
		}),
	)
	client := gateway.NewClient(gateway.Options{
		URL:               url,
		HeartbeatInterval: app.cfg.HeartbeatInterval(),
		ReconnectAttempts: app.cfg.Gateway.ReconnectAttempts,
		ReconnectBase:     app.cfg.ReconnectBase(),
		CallTimeout:       app.cfg.ToolTimeout(),
	}, sess, app.logger)

	dialCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := client.Connect(dialCtx); err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer client.Disconnect()

	return tui.RunLive(client, sess, "cockpit — live")
}

// Run follows a NATS event stream, printing the rendered session on every
// change. Development convenience: the same envelopes, a different pipe.
func (c *TailCmd) Run(app *appContext) error {
	url := firstOf(c.URL, app.cfg.NATS.URL, "nats://127.0.0.1:4222")
	events := firstOf(c.Events, app.cfg.NATS.EventSubject, "cockpit.events")
	command := firstOf(c.Command, app.cfg.NATS.CommandSubject, "cockpit.commands")

	sess := session.New(app.logger)
	source, err := gateway.ConnectNATS(url, events, command, sess, app.logger)
	if err != nil {
		return err
	}
	defer source.Close()

	sess.OnChange(func() {
		fmt.Print("\033[H\033[2J") // clear
		fmt.Println(tui.RenderSession(sess, 100))
	})

	fmt.Printf("following %s on %s (ctrl+c to stop)\n", events, url)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}

// Run plays one showcase through the shared session reducers.
func (c *ReplayCmd) Run(app *appContext) error {
	dir := firstOf(c.Dir, app.cfg.Replay.Dir)

	cat, err := showcase.NewCatalog(dir, app.logger)
	if err != nil {
		return err
	}
	sc, err := cat.Get(c.ID)
	if err != nil {
		return err
	}

	speed := c.Speed
	if speed == 0 {
		speed = app.cfg.Replay.Speed
	}

	sess := session.New(app.logger)
	sched, err := replay.NewScheduler(sc.Recording, sess, app.logger,
		replay.WithSpeed(speed),
		replay.WithMaxDelay(app.cfg.ReplayMaxDelay()),
		replay.WithOnReset(sess.Reset),
	)
	if err != nil {
		return err
	}

	if c.Skip {
		sched.Skip()
		fmt.Println(tui.RenderSession(sess, 100))
		return nil
	}
	return tui.RunReplay(sched, sess, "cockpit — "+sc.Meta.Title)
}

// Run lists the catalog, optionally following changes.
func (c *ShowcaseListCmd) Run(app *appContext) error {
	dir := firstOf(c.Dir, app.cfg.Replay.Dir)

	cat, err := showcase.NewCatalog(dir, app.logger)
	if err != nil {
		return err
	}
	printIndex(cat.Index())

	if !c.Watch {
		return nil
	}
	if err := cat.Watch(func(index []showcase.Summary) {
		fmt.Println()
		printIndex(index)
	}); err != nil {
		return err
	}
	defer cat.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}

func printIndex(index []showcase.Summary) {
	if len(index) == 0 {
		fmt.Println("no showcases")
		return
	}
	for _, s := range index {
		dur := time.Duration(s.DurationMS) * time.Millisecond
		fmt.Printf("%-24s %-40s %s\n", s.ID, s.Title, dur.Round(time.Second))
	}
}

// Run compiles manifests into the JSON catalog.
func (c *ShowcaseBuildCmd) Run(app *appContext) error {
	dir := firstOf(c.Dir, app.cfg.Replay.Dir)
	index, err := showcase.BuildIndex(dir, app.logger)
	if err != nil {
		return err
	}
	fmt.Printf("built %d showcase(s) in %s\n", len(index), dir)
	return nil
}

// Run starts the setup wizard.
func (c *SetupCmd) Run(app *appContext) error {
	return setup.Run(c.Output)
}

// Run prints version information.
func (c *VersionCmd) Run(app *appContext) error {
	fmt.Printf("cockpit version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
