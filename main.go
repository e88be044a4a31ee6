package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/soocke/stereo-view-go/app"
	"github.com/soocke/stereo-view-go/config"
	"github.com/soocke/stereo-view-go/debug"
	"github.com/soocke/stereo-view-go/domain/source"
)

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = "stereo-view"
	cliApp.Usage = "Stereoscopic dual-camera viewer"
	cliApp.HideVersion = true
	cliApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to the YAML configuration file",
			Value: "config.yaml",
		},
		cli.BoolFlag{
			Name:  "pattern",
			Usage: "use synthetic test pattern sources instead of cameras",
		},
		cli.StringFlag{
			Name:  "listen",
			Usage: "override the stream listen address",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging and runtime instrumentation",
		},
	}
	cliApp.Action = run
	cliApp.Commands = []cli.Command{
		{
			Name:   "devices",
			Usage:  "probe available capture devices",
			Action: listDevices,
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.GlobalBool("pattern") {
		cfg.Cameras.Backend = "pattern"
	}
	if addr := c.GlobalString("listen"); addr != "" {
		cfg.Stream.Addr = addr
		cfg.Stream.Enabled = true
	}
	if c.GlobalBool("debug") {
		cfg.Debug = true
	}

	logger := NewLogger(cfg.Debug)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Debug {
		debug.StartMemLogger(ctx, 5*time.Second, logger)
		debug.StartGoroutineLogger(ctx, 5*time.Second, logger)
	}

	container, err := app.BuildContainer(cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close()

	return app.New(container).Run(ctx)
}

func listDevices(c *cli.Context) error {
	devices := source.ProbeDevices(8)
	if len(devices) == 0 {
		fmt.Println("no capture devices found")
		return nil
	}
	for _, d := range devices {
		fmt.Printf("index %d: %s\n", d.Index, d.Description)
	}
	return nil
}
