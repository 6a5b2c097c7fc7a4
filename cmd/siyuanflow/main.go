package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/siyuanflow/internal"
	"github.com/starford/siyuanflow/internal/batch"
	"github.com/starford/siyuanflow/internal/journal"
	"github.com/starford/siyuanflow/internal/mcpserver"
	pkgconfig "github.com/starford/siyuanflow/pkg/config"
)

var version = "dev"

// loadConfig reads the config file when present and applies the connection
// flags and any command overrides on top of it before validating.
func loadConfig(cmd *cli.Command, overrides ...func(*internal.Config)) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.IsSet("url") {
		cfg.SiYuan.URL = cmd.String("url")
	}
	if cmd.IsSet("token") {
		cfg.SiYuan.Token = cmd.String("token")
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// cliLogger logs text to stderr; stdout carries command output.
func cliLogger(cfg *internal.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseParams merges a JSON object with key=value pairs. Pairs win.
func parseParams(raw string, pairs []string) (map[string]any, error) {
	params := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return nil, fmt.Errorf("--params must be a JSON object: %w", err)
		}
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("--param %q: want key=value", p)
		}
		params[k] = v
	}
	return params, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := cliLogger(cfg)
	client, err := internal.NewClient(cfg, logger)
	if err != nil {
		return err
	}
	srv := mcpserver.New(internal.NewCatalog(cfg), client, version, logger)
	return srv.ServeStdio()
}

func callOperation(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return errors.New("usage: siyuanflow call <operation> [--params JSON] [--param key=value]")
	}
	params, err := parseParams(cmd.String("params"), cmd.StringSlice("param"))
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := internal.NewClient(cfg, cliLogger(cfg))
	if err != nil {
		return err
	}
	out, err := internal.NewCatalog(cfg).Invoke(ctx, client, name, params)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, out)
}

func listOperations(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, internal.NewCatalog(cfg).Operations())
}

func runBatch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	data, err := readInput(cmd.String("file"))
	if err != nil {
		return err
	}
	var items []batch.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("batch file must be a JSON array of {operation, params}: %w", err)
	}

	logger := cliLogger(cfg)
	client, err := internal.NewClient(cfg, logger)
	if err != nil {
		return err
	}
	opts := []batch.Option{
		batch.WithContinueOnFail(cmd.Bool("continue-on-fail")),
		batch.WithLogger(logger),
	}
	if cfg.Journal.Enabled() {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("init journal: %w", err)
		}
		defer j.Close()
		opts = append(opts, batch.WithRecorder(j))
	}

	run, runErr := batch.NewExecutor(internal.NewCatalog(cfg), client, opts...).Run(ctx, items)
	if err := printJSON(os.Stdout, run); err != nil {
		return err
	}
	return runErr
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func importVault(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, vaultOverrides(cmd), func(cfg *internal.Config) {
		if cmd.IsSet("prune") {
			cfg.Importer.Prune = cmd.Bool("prune")
		}
	})
	if err != nil {
		return err
	}
	if !cfg.Importer.Enabled() {
		return errors.New("no vault configured: set importer.vault or --vault")
	}

	logger := cliLogger(cfg)
	client, err := internal.NewClient(cfg, logger)
	if err != nil {
		return err
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}
	defer j.Close()

	im, err := internal.NewImporter(cfg, client, j, logger)
	if err != nil {
		return err
	}

	if cmd.Bool("watch") {
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return im.Watch(ctx, cfg.Importer.Debounce, nil)
	}

	report, syncErr := im.Sync(ctx)
	if report != nil {
		if err := printJSON(os.Stdout, report); err != nil {
			return err
		}
	}
	return syncErr
}

func exportNotebook(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, vaultOverrides(cmd))
	if err != nil {
		return err
	}
	if !cfg.Importer.Enabled() || cfg.Importer.Notebook == "" {
		return errors.New("export needs a vault and a notebook")
	}

	logger := cliLogger(cfg)
	client, err := internal.NewClient(cfg, logger)
	if err != nil {
		return err
	}
	im, err := internal.NewImporter(cfg, client, nil, logger)
	if err != nil {
		return err
	}
	written, exportErr := im.Export(ctx)
	if err := printJSON(os.Stdout, written); err != nil {
		return err
	}
	return exportErr
}

func ping(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := internal.NewClient(cfg, cliLogger(cfg))
	if err != nil {
		return err
	}
	v, err := client.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "kernel %s at %s\n", v, client.BaseURL())
	return nil
}

func vaultOverrides(cmd *cli.Command) func(*internal.Config) {
	return func(cfg *internal.Config) {
		if cmd.IsSet("vault") {
			cfg.Importer.Vault = cmd.String("vault")
		}
		if cmd.IsSet("notebook") {
			cfg.Importer.Notebook = cmd.String("notebook")
		}
	}
}

func vaultFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "vault", Usage: "Markdown vault directory"},
		&cli.StringFlag{Name: "notebook", Aliases: []string{"n"}, Usage: "Target notebook ID"},
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "siyuanflow",
		Usage:   "Typed client, gateway and MCP tools for the SiYuan kernel API",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "url",
				Usage:   "Kernel base URL",
				Sources: cli.EnvVars("SIYUAN_API_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Kernel API token",
				Sources: cli.EnvVars("SIYUAN_API_TOKEN"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP gateway",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the operations as MCP tools on stdio",
				Action: serveMCP,
			},
			{
				Name:      "call",
				Usage:     "Run one operation and print its result",
				ArgsUsage: "<operation>",
				Action:    callOperation,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "params", Aliases: []string{"p"}, Usage: "Parameters as a JSON object"},
					&cli.StringSliceFlag{Name: "param", Usage: "Parameter as key=value (repeatable)"},
				},
			},
			{
				Name:   "operations",
				Usage:  "List the available operations",
				Action: listOperations,
			},
			{
				Name:   "batch",
				Usage:  "Run a JSON array of operations",
				Action: runBatch,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Batch file, - for stdin", Value: "-"},
					&cli.BoolFlag{Name: "continue-on-fail", Usage: "Record failures and keep going"},
				},
			},
			{
				Name:   "import",
				Usage:  "Sync the markdown vault into a notebook",
				Action: importVault,
				Flags: append(vaultFlags(),
					&cli.BoolFlag{Name: "prune", Usage: "Remove documents whose file is gone"},
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Keep syncing on file changes"},
				),
			},
			{
				Name:   "export",
				Usage:  "Write a notebook's documents into the vault",
				Action: exportNotebook,
				Flags:  vaultFlags(),
			},
			{
				Name:   "ping",
				Usage:  "Check the kernel connection and token",
				Action: ping,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
