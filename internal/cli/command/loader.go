package command

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/regmesh-go/internal/cli/connection"
	"github.com/yndnr/regmesh-go/internal/cli/output"
	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/core/loader"
	"github.com/yndnr/regmesh-go/internal/server/httpserver/handler"
)

const loaderPath = "/v1/console/loader/"

// LoaderCommand returns the loader subcommand group.
func LoaderCommand() *cli.Command {
	countFlag := &cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "Connection count", Required: true}
	redirectFlag := &cli.StringFlag{Name: "redirect", Usage: "Address expelled clients reconnect to"}

	return &cli.Command{
		Name:    "loader",
		Aliases: []string{"ld"},
		Usage:   "Connection load rebalancing",
		Subcommands: []*cli.Command{
			{
				Name:   "current",
				Usage:  "List connections held by the node",
				Action: loaderCurrent,
			},
			{
				Name:    "metrics",
				Aliases: []string{"clustermetric"},
				Usage:   "Show cluster load statistics",
				Action:  loaderMetrics,
			},
			{
				Name:   "max",
				Usage:  "Cap SDK connections on the node",
				Flags:  []cli.Flag{countFlag},
				Action: loaderMax,
			},
			{
				Name:   "reload",
				Usage:  "Shed node connections above count",
				Flags:  []cli.Flag{countFlag, redirectFlag},
				Action: loaderReload,
			},
			{
				Name:   "reload-cluster",
				Usage:  "Shed connections above count on every member",
				Flags:  []cli.Flag{countFlag, redirectFlag},
				Action: loaderReloadCluster,
			},
			{
				Name:  "smart-reload",
				Usage: "Rebalance connections from over-limit to under-limit members",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "factor", Usage: "Tolerance factor in [0,1); server default when unset"},
				},
				Action: loaderSmartReload,
			},
			{
				Name:  "reload-single",
				Usage: "Expel one connection",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "connection-id", Aliases: []string{"id"}, Usage: "Connection ID", Required: true},
					redirectFlag,
				},
				Action: loaderReloadSingle,
			},
		},
	}
}

// loaderGet calls a loader console route and decodes its data.
func loaderGet(c *cli.Context, r *remote, route string, query url.Values, target any) error {
	ctx, cancel := r.context(c)
	defer cancel()

	resp, err := r.client.Get(ctx, loaderPath+route, query)
	if err != nil {
		return err
	}
	return connection.ParseResponse(resp, target)
}

func countQuery(c *cli.Context) url.Values {
	q := url.Values{"count": {strconv.Itoa(c.Int("count"))}}
	if redirect := c.String("redirect"); redirect != "" {
		q.Set("redirectAddress", redirect)
	}
	return q
}

func loaderCurrent(c *cli.Context) error {
	r, err := newRemote(c)
	if err != nil {
		return err
	}
	var result handler.CurrentResponse
	if err := loaderGet(c, r, "current", nil, &result); err != nil {
		return err
	}
	if r.format == output.FormatTable {
		if err := r.print(result.Connections); err != nil {
			return err
		}
		_, err := fmt.Fprintf(r.out, "\nTotal: %d\n", result.Total)
		return err
	}
	return r.print(result)
}

func loaderMetrics(c *cli.Context) error {
	r, err := newRemote(c)
	if err != nil {
		return err
	}
	var stats domain.LoadStatistics
	if err := loaderGet(c, r, "clustermetric", nil, &stats); err != nil {
		return err
	}
	if r.format != output.FormatTable {
		return r.print(stats)
	}

	fmt.Fprintf(r.out, "Members: %d  Responded: %d  Total: %d\n", stats.MemberCount, stats.MetricsCount, stats.Total)
	fmt.Fprintf(r.out, "Max: %d  Min: %d  Avg: %d  Threshold: %g\n\n", stats.Max, stats.Min, stats.Avg, stats.Threshold)
	return loadTable(stats.Detail).Render(r.out)
}

// loadTable renders per-member load, ordered by address.
func loadTable(detail []domain.LoadMetric) *output.Table {
	rows := append([]domain.LoadMetric(nil), detail...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Address < rows[j].Address })

	table := &output.Table{Headers: []string{"ADDRESS", "SDK_CONNECTIONS", "CONNECTIONS", "LIMIT", "LOAD", "CPU"}}
	for _, m := range rows {
		table.AddRow(m.Address,
			metricCell(m.Metric, domain.MetricSDKConCount),
			metricCell(m.Metric, domain.MetricConCount),
			metricCell(m.Metric, domain.MetricLimitRule),
			metricCell(m.Metric, domain.MetricLoad),
			metricCell(m.Metric, domain.MetricCPU))
	}
	return table
}

func metricCell(metric map[string]string, key string) string {
	if v := metric[key]; v != "" {
		return v
	}
	return "-"
}

func loaderMax(c *cli.Context) error {
	r, err := newRemote(c)
	if err != nil {
		return err
	}
	var result handler.MaxClientsResponse
	if err := loaderGet(c, r, "max", countQuery(c), &result); err != nil {
		return err
	}
	return r.printMessage(fmt.Sprintf("Max clients set to %d", result.Count), result)
}

func loaderReload(c *cli.Context) error {
	r, err := newRemote(c)
	if err != nil {
		return err
	}
	var result string
	if err := loaderGet(c, r, "reload", countQuery(c), &result); err != nil {
		return err
	}
	return r.printMessage(fmt.Sprintf("Reload to %d connections: %s", c.Int("count"), result), result)
}

func loaderReloadCluster(c *cli.Context) error {
	r, err := newRemote(c)
	if err != nil {
		return err
	}
	var report loader.Report
	if err := loaderGet(c, r, "reloadcluster", countQuery(c), &report); err != nil {
		return err
	}
	return printReport(r, &report, report)
}

func loaderSmartReload(c *cli.Context) error {
	r, err := newRemote(c)
	if err != nil {
		return err
	}
	var query url.Values
	if c.IsSet("factor") {
		query = url.Values{"loaderFactor": {strconv.FormatFloat(c.Float64("factor"), 'f', -1, 64)}}
	}
	var result loader.SmartReloadResult
	if err := loaderGet(c, r, "smartReload", query, &result); err != nil {
		return err
	}
	if r.format != output.FormatTable {
		return r.print(result)
	}

	if p := result.Plan; p != nil {
		fmt.Fprintf(r.out, "Factor: %g  Avg: %d  Over limit: %d  Under limit: %d\n\n",
			p.Factor, p.Avg, p.OverLimitCount, p.LowLimitCount)
	}
	if result.Report == nil || len(result.Report.Outcomes) == 0 {
		_, err := fmt.Fprintln(r.out, "Cluster is balanced, nothing to reload")
		return err
	}
	return printReport(r, result.Report, result)
}

func printReport(r *remote, report *loader.Report, data any) error {
	if r.format != output.FormatTable {
		return r.print(data)
	}
	if err := r.print(report.Outcomes); err != nil {
		return err
	}
	_, err := fmt.Fprintf(r.out, "\nSubmitted: %d  Succeeded: %d  Failed: %d  Timed out: %d\n",
		report.Submitted, report.Succeeded, report.Failed, report.TimedOut)
	return err
}

func loaderReloadSingle(c *cli.Context) error {
	r, err := newRemote(c)
	if err != nil {
		return err
	}
	query := url.Values{"connectionId": {c.String("connection-id")}}
	if redirect := c.String("redirect"); redirect != "" {
		query.Set("redirectAddress", redirect)
	}
	var result string
	if err := loaderGet(c, r, "reloadsingle", query, &result); err != nil {
		return err
	}
	return r.printMessage(fmt.Sprintf("Connection %s expelled", c.String("connection-id")), result)
}
