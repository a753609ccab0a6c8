package command

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/regmesh-go/internal/cli/config"
	"github.com/yndnr/regmesh-go/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI configuration and server profiles",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show CLI configuration",
				Action: configShow,
			},
			{
				Name:      "set-profile",
				Usage:     "Create or update a server profile",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "Admin address of the node", Required: true},
					&cli.DurationFlag{Name: "request-timeout", Usage: "Request timeout for this profile"},
				},
				Action: configSetProfile,
			},
			{
				Name:      "use",
				Usage:     "Switch the current profile; empty switches back to the default server",
				ArgsUsage: "[NAME]",
				Action:    configUse,
			},
			{
				Name:      "delete-profile",
				Usage:     "Delete a server profile",
				ArgsUsage: "NAME",
				Action:    configDeleteProfile,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg := cliConfig(c)
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return output.NewFormatter(format, false).Format(c.App.Writer, cfg)
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Config file:     %s\n", c.String("config"))
	fmt.Fprintf(out, "Default server:  %s\n", cfg.DefaultServer)
	fmt.Fprintf(out, "Default output:  %s\n", cfg.DefaultOutput)
	fmt.Fprintf(out, "Timeout:         %s\n", cfg.Timeout)
	fmt.Fprintf(out, "Current profile: %s\n\n", orDash(cfg.CurrentProfile))

	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	table := &output.Table{Headers: []string{"PROFILE", "SERVER", "TIMEOUT", "CURRENT"}}
	for _, name := range names {
		p := cfg.Profiles[name]
		timeout := "-"
		if p.Timeout > 0 {
			timeout = p.Timeout.String()
		}
		current := ""
		if name == cfg.CurrentProfile {
			current = "*"
		}
		table.AddRow(name, p.Server, timeout, current)
	}
	return table.Render(out)
}

func configSetProfile(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("profile name required")
	}
	cfg := cliConfig(c)
	cfg.Profiles[name] = config.Profile{
		Server:  c.String("address"),
		Timeout: c.Duration("request-timeout"),
	}
	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Profile %s saved\n", name)
	return nil
}

func configUse(c *cli.Context) error {
	name := c.Args().First()
	cfg := cliConfig(c)
	if name != "" {
		if _, ok := cfg.Profiles[name]; !ok {
			return fmt.Errorf("profile %q not found", name)
		}
	}
	cfg.CurrentProfile = name
	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}
	if name == "" {
		fmt.Fprintf(c.App.Writer, "Using default server %s\n", cfg.DefaultServer)
	} else {
		fmt.Fprintf(c.App.Writer, "Using profile %s\n", name)
	}
	return nil
}

func configDeleteProfile(c *cli.Context) error {
	name := c.Args().First()
	cfg := cliConfig(c)
	if _, ok := cfg.Profiles[name]; !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	delete(cfg.Profiles, name)
	if cfg.CurrentProfile == name {
		cfg.CurrentProfile = ""
	}
	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Profile %s deleted\n", name)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
