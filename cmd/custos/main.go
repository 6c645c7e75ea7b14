package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/semmidev/custos/internal/adapter/tools"
	"github.com/semmidev/custos/internal/app"
	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cliApp := &cli.App{
		Name:  "custos",
		Usage: "backup, restore and user administration for a PostgreSQL or MySQL database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/config.yaml",
				Usage:   "path to config yaml",
				EnvVars: []string{"CUSTOS_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the management API and the backup scheduler",
				Action: serve,
			},
			{
				Name:  "backup",
				Usage: "take one backup using the stored connection profile",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "file name prefix (defaults to the database name)"},
					&cli.StringFlag{Name: "dir", Usage: "target directory (defaults to backup.default_location)"},
				},
				Action: func(c *cli.Context) error {
					return oneShot(c, func(ctx context.Context, a *app.App) domain.Outcome {
						return a.Backup(ctx, domain.BackupRequest{
							Name:      c.String("name"),
							Directory: c.String("dir"),
							Trigger:   domain.TriggerManual,
						})
					})
				},
			},
			{
				Name:  "restore",
				Usage: "restore a backup file into the stored database",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Required: true, Usage: "path to the backup file"},
				},
				Action: func(c *cli.Context) error {
					return oneShot(c, func(ctx context.Context, a *app.App) domain.Outcome {
						return a.Restore(ctx, c.String("from"))
					})
				},
			},
			{
				Name:  "tools",
				Usage: "show dump and restore tool paths found on PATH",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "save", Usage: "write the detected paths to the config file"},
				},
				Action: detectTools,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg, path)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		application.Shutdown(shutdownCtx)
	}()

	return application.Run(ctx)
}

func oneShot(c *cli.Context, run func(ctx context.Context, a *app.App) domain.Outcome) error {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg, path)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		application.Shutdown(shutdownCtx)
	}()

	out := run(ctx, application)
	if !out.Success {
		return cli.Exit(out.Message, 1)
	}
	fmt.Println(out.Message)
	return nil
}

func detectTools(c *cli.Context) error {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store := config.NewStore(path, cfg)
	merged := tools.Merge(store.Tools(), tools.Lookup())

	for _, t := range []struct{ name, path string }{
		{tools.PgDump, merged.PgDump},
		{tools.PgRestore, merged.PgRestore},
		{tools.MySQLDump, merged.MySQLDump},
		{tools.MySQL, merged.MySQL},
	} {
		p := t.path
		if p == "" {
			p = "Not found"
		}
		fmt.Printf("%-11s %s\n", t.name, p)
	}

	if !c.Bool("save") {
		return nil
	}
	store.SetTools(merged)
	if err := store.Save(); err != nil {
		return fmt.Errorf("save tools: %w", err)
	}
	fmt.Printf("Saved to %s\n", path)
	return nil
}
