package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/regmesh-go/internal/cli/config"
	"github.com/yndnr/regmesh-go/internal/cli/connection"
	"github.com/yndnr/regmesh-go/internal/cli/output"
	"github.com/yndnr/regmesh-go/internal/infra/buildinfo"
)

const metaConfig = "cliConfig"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "regmesh-cli",
		Usage:   "RegMesh command-line management tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			LoaderCommand(),
			ServiceCommand(),
			InstanceCommand(),
			SystemCommand(),
			ConfigCommand(),
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if c.App.Metadata == nil {
				c.App.Metadata = make(map[string]any)
			}
			c.App.Metadata[metaConfig] = cfg
			return nil
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "RegMesh admin address (e.g. 127.0.0.1:8848)",
			EnvVars: []string{"REGMESH_SERVER"},
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"REGMESH_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
		},
	}
}

// cliConfig returns the loaded CLI config, or the defaults.
func cliConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

// remote is one resolved target node plus the output settings.
type remote struct {
	client  *connection.HTTPClient
	format  output.Format
	wide    bool
	timeout time.Duration
	out     io.Writer
}

func newRemote(c *cli.Context) (*remote, error) {
	cfg := cliConfig(c)

	server, err := cfg.Target(c.String("server"))
	if err != nil {
		return nil, err
	}

	outputFlag := c.String("output")
	if outputFlag == "" {
		outputFlag = cfg.DefaultOutput
	}
	format, err := output.ParseFormat(outputFlag)
	if err != nil {
		return nil, err
	}

	timeout := c.Duration("timeout")
	if timeout <= 0 {
		timeout = cfg.RequestTimeout()
	}

	return &remote{
		client:  connection.NewHTTPClient(server, timeout),
		format:  format,
		wide:    c.Bool("wide"),
		timeout: timeout,
		out:     c.App.Writer,
	}, nil
}

func (r *remote) context(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, r.timeout)
}

// print renders data with the selected formatter.
func (r *remote) print(data any) error {
	return output.NewFormatter(r.format, r.wide).Format(r.out, data)
}

// printTable renders table in table mode and data otherwise.
func (r *remote) printTable(table *output.Table, data any) error {
	if r.format == output.FormatTable {
		return table.Render(r.out)
	}
	return r.print(data)
}

// printMessage prints msg in table mode and data otherwise.
func (r *remote) printMessage(msg string, data any) error {
	if r.format == output.FormatTable {
		_, err := fmt.Fprintln(r.out, msg)
		return err
	}
	return r.print(data)
}
