package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sweeney/ces-device/internal/config"
)

// newApp creates the CLI application with all commands. Command output
// goes to out.
func newApp(out io.Writer) *cli.App {
	app := &cli.App{
		Name:    "ces-device",
		Usage:   "CES therapy device simulator",
		Version: Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, EnvVars: []string{"CES_DEVICE_CONFIG"}, Usage: "YAML config file (missing file uses defaults)"},
		},
		Commands: []*cli.Command{
			runCmd(),
			tuiCmd(),
			configCmd(out),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// settingsFlags override values from the config file.
func settingsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "broker", Usage: "MQTT broker address (empty disables publishing)"},
		&cli.StringFlag{Name: "client-id", Usage: "MQTT client ID"},
		&cli.StringFlag{Name: "http", Usage: "HTTP status address (empty disables)"},
		&cli.DurationFlag{Name: "poll", Usage: "Timer polling interval"},
		&cli.DurationFlag{Name: "tick", Usage: "Length of one simulated second"},
		&cli.DurationFlag{Name: "grace", Usage: "Skin contact grace period"},
		&cli.DurationFlag{Name: "heartbeat", Usage: "Heartbeat interval"},
		&cli.BoolFlag{Name: "start-powered", Usage: "Power the device on at startup"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	overlay := &config.Config{
		Broker:      c.String("broker"),
		ClientID:    c.String("client-id"),
		HTTPAddr:    c.String("http"),
		Poll:        c.Duration("poll"),
		Tick:        c.Duration("tick"),
		GracePeriod: c.Duration("grace"),
		Heartbeat:   c.Duration("heartbeat"),
		LogLevel:    c.String("log-level"),
	}
	if c.IsSet("start-powered") {
		v := c.Bool("start-powered")
		overlay.StartPowered = &v
	}

	cfg = config.Merge(cfg, overlay)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the headless daemon (HTTP API, MQTT events, commands on stdin)",
		Flags: settingsFlags(),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log := newLogger(os.Stderr, cfg.LogLevel)
			return run(cfg, log, os.Stdin, c.App.Writer)
		},
	}
}

func tuiCmd() *cli.Command {
	flags := append(settingsFlags(),
		&cli.StringFlag{Name: "log-file", Usage: "Write logs to this file (default: discard)"},
	)
	return &cli.Command{
		Name:  "tui",
		Usage: "Run the interactive terminal UI",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			var logOut io.Writer = io.Discard
			if path := c.String("log-file"); path != "" {
				f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logOut = f
			}
			return runTUI(cfg, newLogger(logOut, cfg.LogLevel))
		},
	}
}

func configCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration as YAML",
		Flags: settingsFlags(),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = out.Write(data)
			return err
		},
	}
}
