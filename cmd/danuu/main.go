// Command danuu runs the DANUU-MD WhatsApp bot.
package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/Deneth123456789/My-new-bot/internal/config"
	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/paths"
)

var version = "0.1.0"

// Globals are flags shared by every subcommand.
type Globals struct {
	Config      string `help:"Path to danuu.json (default ./danuu.json, then ~/.danuu/danuu.json)" env:"DANUU_CONFIG" type:"path"`
	Prefix      string `help:"Override the command prefix" env:"DANUU_PREFIX"`
	LogLevel    string `help:"Log level: trace, debug, info, warn, error" env:"DANUU_LOG_LEVEL" name:"log-level"`
	NoReconnect bool   `help:"Exit when the connection drops instead of reconnecting" env:"DANUU_NO_RECONNECT" name:"no-reconnect"`
}

// CLI is the command tree.
type CLI struct {
	Globals

	Run     RunCmd     `cmd:"" default:"1" help:"Connect to WhatsApp and run the bot"`
	Unlink  UnlinkCmd  `cmd:"" help:"Delete the stored WhatsApp session so the next run pairs again"`
	Status  StatusCmd  `cmd:"" help:"Show the linked device and the last known connection state"`
	Init    InitCmd    `cmd:"" help:"Write a danuu.json with the default settings"`
	Version VersionCmd `cmd:"" help:"Print the version"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("danuu"),
		kong.Description("DANUU-MD WhatsApp bot"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}

// configPath returns the file to load, or "" when none exists.
func (g *Globals) configPath() (string, error) {
	if g.Config != "" {
		return g.Config, nil
	}
	return paths.ConfigPath()
}

// overrides turns flags and environment into a config overlay.
func (g *Globals) overrides() *config.Config {
	return &config.Config{
		Prefix:    g.Prefix,
		Reconnect: config.ReconnectConfig{Disabled: g.NoReconnect},
		Logging:   config.LoggingConfig{Level: g.LogLevel},
	}
}

// load reads the config file and applies the overlay.
func (g *Globals) load() (*config.Config, string, error) {
	path, err := g.configPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if err := cfg.Merge(g.overrides()); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func initLogging(cfg config.LoggingConfig) {
	Init(&LogConfig{
		Level:      ParseLevel(cfg.Level),
		Format:     cfg.Format,
		TimeFormat: "15:04:05",
	})
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	fmt.Printf("danuu %s\n", version)
	return nil
}
