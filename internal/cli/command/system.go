package command

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/regmesh-go/internal/cli/connection"
	"github.com/yndnr/regmesh-go/internal/cli/output"
	"github.com/yndnr/regmesh-go/internal/server/httpserver/handler"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Node health, metrics and backups",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check node health",
				Action: systemStatus("/health", "healthy"),
			},
			{
				Name:   "ready",
				Usage:  "Check node readiness",
				Action: systemStatus("/ready", "ready"),
			},
			{
				Name:   "metrics",
				Usage:  "Dump the Prometheus metrics of the node",
				Action: systemMetrics,
			},
			{
				Name:   "peers",
				Usage:  "Ping every cluster peer from the node",
				Action: systemPeers,
			},
			{
				Name:  "backup",
				Usage: "Download a backup of the node's registry store",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Output file", Required: true},
				},
				Action: systemBackup,
			},
		},
	}
}

func systemStatus(path, want string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := newRemote(c)
		if err != nil {
			return err
		}
		ctx, cancel := r.context(c)
		defer cancel()

		resp, err := r.client.Get(ctx, path, nil)
		if err != nil {
			return err
		}
		var result map[string]string
		if err := connection.ParseResponse(resp, &result); err != nil {
			return err
		}
		if r.format != output.FormatTable {
			return r.print(result)
		}

		if result["status"] != want {
			return fmt.Errorf("%s is %s", r.client.BaseURL(), result["status"])
		}
		fmt.Fprintf(r.out, "✓ %s is %s\n", r.client.BaseURL(), want)
		if v := result["version"]; v != "" {
			fmt.Fprintf(r.out, "  Version: %s\n", v)
		}
		return nil
	}
}

func systemMetrics(c *cli.Context) error {
	r, err := newRemote(c)
	if err != nil {
		return err
	}
	ctx, cancel := r.context(c)
	defer cancel()

	resp, err := r.client.Get(ctx, "/metrics", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return connection.ParseResponse(resp, nil)
	}
	defer resp.Body.Close()
	_, err = io.Copy(r.out, resp.Body)
	return err
}

func systemPeers(c *cli.Context) error {
	r, err := newRemote(c)
	if err != nil {
		return err
	}
	ctx, cancel := r.context(c)
	defer cancel()

	resp, err := r.client.Get(ctx, "/v1/system/peers", nil)
	if err != nil {
		return err
	}
	var result handler.PeersResponse
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	if r.format != output.FormatTable {
		return r.print(result)
	}

	table := &output.Table{Headers: []string{"ADDRESS", "REACHABLE", "MEMBERS", "LATENCY_MS", "ERROR"}}
	for _, p := range result.Peers {
		errCell := "-"
		if p.Error != "" {
			errCell = p.Error
		}
		table.AddRow(p.Address, strconv.FormatBool(p.Reachable), strconv.Itoa(p.Members),
			strconv.FormatInt(p.LatencyMs, 10), errCell)
	}
	if err := table.Render(r.out); err != nil {
		return err
	}
	_, err = fmt.Fprintf(r.out, "\nReachable: %d/%d\n", result.Reachable, result.Total)
	return err
}

func systemBackup(c *cli.Context) error {
	r, err := newRemote(c)
	if err != nil {
		return err
	}
	ctx, cancel := r.context(c)
	defer cancel()

	resp, err := r.client.Get(ctx, "/v1/system/backup", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return connection.ParseResponse(resp, nil)
	}
	defer resp.Body.Close()

	path := c.String("file")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return r.printMessage(fmt.Sprintf("✓ Backup written to %s (%d bytes)", path, n),
		map[string]any{"file": path, "bytes": n})
}
