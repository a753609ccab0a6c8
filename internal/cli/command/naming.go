package command

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/regmesh-go/internal/cli/connection"
	"github.com/yndnr/regmesh-go/internal/cli/output"
	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/server/httpserver/handler"
)

const (
	servicePath  = "/v1/ns/service"
	instancePath = "/v1/ns/instance"
)

func namespaceFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "namespace",
		Aliases: []string{"ns"},
		Usage:   "Namespace ID",
		Value:   domain.DefaultNamespace,
	}
}

func serviceFlag() cli.Flag {
	return &cli.StringFlag{Name: "service", Aliases: []string{"name"}, Usage: "Service name", Required: true}
}

// ServiceCommand returns the service subcommand group.
func ServiceCommand() *cli.Command {
	return &cli.Command{
		Name:    "service",
		Aliases: []string{"svc"},
		Usage:   "Service registry and checksum commands",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List services and their checksums",
				Flags:  []cli.Flag{namespaceFlag()},
				Action: serviceList,
			},
			{
				Name:   "get",
				Usage:  "Show a service and its instances",
				Flags:  []cli.Flag{namespaceFlag(), serviceFlag()},
				Action: serviceGet,
			},
			{
				Name:   "checksum",
				Usage:  "Show the checksum of a service",
				Flags:  []cli.Flag{namespaceFlag(), serviceFlag()},
				Action: serviceChecksum,
			},
			{
				Name:  "report",
				Usage: "Send a checksum report on behalf of a member",
				Flags: []cli.Flag{
					namespaceFlag(),
					&cli.StringFlag{Name: "client-ip", Usage: "Reporting member address", Required: true},
					&cli.StringFlag{Name: "statuses", Usage: "Checksum vector (JSON or legacy format)"},
					&cli.StringFlag{Name: "statuses-file", Usage: "Read the checksum vector from a file"},
				},
				Action: serviceReport,
			},
		},
	}
}

// InstanceCommand returns the instance subcommand group.
func InstanceCommand() *cli.Command {
	flags := []cli.Flag{
		namespaceFlag(),
		serviceFlag(),
		&cli.StringFlag{Name: "ip", Usage: "Instance IP", Required: true},
		&cli.IntFlag{Name: "port", Usage: "Instance port", Required: true},
		&cli.StringFlag{Name: "cluster", Usage: "Cluster name", Value: domain.DefaultClusterName},
	}
	return &cli.Command{
		Name:    "instance",
		Aliases: []string{"inst"},
		Usage:   "Register and deregister service instances",
		Subcommands: []*cli.Command{
			{
				Name:  "register",
				Usage: "Register an instance",
				Flags: append(append([]cli.Flag(nil), flags...),
					&cli.Float64Flag{Name: "weight", Usage: "Instance weight", Value: 1},
					&cli.BoolFlag{Name: "ephemeral", Usage: "Ephemeral instance", Value: true},
					&cli.BoolFlag{Name: "healthy", Usage: "Healthy instance", Value: true},
					&cli.BoolFlag{Name: "enabled", Usage: "Enabled instance", Value: true},
					&cli.StringSliceFlag{Name: "metadata", Aliases: []string{"m"}, Usage: "Metadata as KEY=VALUE, repeatable"},
				),
				Action: instanceRegister,
			},
			{
				Name:   "deregister",
				Usage:  "Deregister an instance",
				Flags:  flags,
				Action: instanceDeregister,
			},
		},
	}
}

func serviceList(c *cli.Context) error {
	r, err := newRemote(c)
	if err != nil {
		return err
	}
	ctx, cancel := r.context(c)
	defer cancel()

	resp, err := r.client.Get(ctx, servicePath+"/list", url.Values{"namespaceId": {c.String("namespace")}})
	if err != nil {
		return err
	}
	var vector domain.ChecksumVector
	if err := connection.ParseResponse(resp, &vector); err != nil {
		return err
	}

	names := make([]string, 0, len(vector.Entries))
	for name := range vector.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	table := &output.Table{Headers: []string{"SERVICE", "CHECKSUM"}}
	for _, name := range names {
		table.AddRow(name, vector.Entries[name])
	}
	return r.printTable(table, vector)
}

func serviceGet(c *cli.Context) error {
	r, err := newRemote(c)
	if err != nil {
		return err
	}
	ctx, cancel := r.context(c)
	defer cancel()

	resp, err := r.client.Get(ctx, servicePath, url.Values{
		"namespaceId": {c.String("namespace")},
		"serviceName": {c.String("service")},
	})
	if err != nil {
		return err
	}
	var svc domain.Service
	if err := connection.ParseResponse(resp, &svc); err != nil {
		return err
	}
	if r.format != output.FormatTable {
		return r.print(svc)
	}

	fmt.Fprintf(r.out, "Service: %s  Namespace: %s  Instances: %d\n\n", svc.Name, svc.NamespaceID, len(svc.Instances))
	return r.print(svc.Instances)
}

func serviceChecksum(c *cli.Context) error {
	r, err := newRemote(c)
	if err != nil {
		return err
	}
	ctx, cancel := r.context(c)
	defer cancel()

	resp, err := r.client.Put(ctx, servicePath+"/checksum", url.Values{
		"namespaceId": {c.String("namespace")},
		"serviceName": {c.String("service")},
	})
	if err != nil {
		return err
	}
	var result handler.ChecksumResponse
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	return r.printMessage(result.Checksum, result)
}

func serviceReport(c *cli.Context) error {
	statuses := c.String("statuses")
	if path := c.String("statuses-file"); path != "" {
		if statuses != "" {
			return fmt.Errorf("--statuses and --statuses-file are mutually exclusive")
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read statuses: %w", err)
		}
		statuses = strings.TrimSpace(string(raw))
	}
	if statuses == "" {
		return fmt.Errorf("one of --statuses or --statuses-file is required")
	}

	r, err := newRemote(c)
	if err != nil {
		return err
	}
	body, err := json.Marshal(handler.StatusReport{Statuses: statuses, ClientIP: c.String("client-ip")})
	if err != nil {
		return err
	}

	ctx, cancel := r.context(c)
	defer cancel()
	resp, err := r.client.PostRaw(ctx, servicePath+"/status",
		url.Values{"namespaceId": {c.String("namespace")}},
		strings.NewReader(url.QueryEscape(string(body))),
		"application/x-www-form-urlencoded")
	if err != nil {
		return err
	}
	var result handler.StatusReportResponse
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	return r.print(result)
}

func instanceForm(c *cli.Context) url.Values {
	return url.Values{
		"namespaceId": {c.String("namespace")},
		"serviceName": {c.String("service")},
		"ip":          {c.String("ip")},
		"port":        {strconv.Itoa(c.Int("port"))},
		"clusterName": {c.String("cluster")},
	}
}

// parseMetadata turns KEY=VALUE pairs into a JSON object.
func parseMetadata(pairs []string) (string, error) {
	if len(pairs) == 0 {
		return "", nil
	}
	meta := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return "", fmt.Errorf("invalid metadata %q, want KEY=VALUE", p)
		}
		meta[strings.TrimSpace(k)] = v
	}
	raw, err := json.Marshal(meta)
	return string(raw), err
}

func instanceRegister(c *cli.Context) error {
	meta, err := parseMetadata(c.StringSlice("metadata"))
	if err != nil {
		return err
	}
	r, err := newRemote(c)
	if err != nil {
		return err
	}

	form := instanceForm(c)
	form.Set("weight", strconv.FormatFloat(c.Float64("weight"), 'f', -1, 64))
	form.Set("ephemeral", strconv.FormatBool(c.Bool("ephemeral")))
	form.Set("healthy", strconv.FormatBool(c.Bool("healthy")))
	form.Set("enabled", strconv.FormatBool(c.Bool("enabled")))
	if meta != "" {
		form.Set("metadata", meta)
	}

	ctx, cancel := r.context(c)
	defer cancel()
	resp, err := r.client.PostForm(ctx, instancePath, form)
	if err != nil {
		return err
	}
	var result string
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	return r.printMessage(fmt.Sprintf("Registered %s:%d to %s", c.String("ip"), c.Int("port"), c.String("service")), result)
}

func instanceDeregister(c *cli.Context) error {
	r, err := newRemote(c)
	if err != nil {
		return err
	}
	ctx, cancel := r.context(c)
	defer cancel()

	resp, err := r.client.Delete(ctx, instancePath, instanceForm(c))
	if err != nil {
		return err
	}
	var result string
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	return r.printMessage(fmt.Sprintf("Deregistered %s:%d from %s", c.String("ip"), c.Int("port"), c.String("service")), result)
}
