package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/allisson/uapf-mcp/internal/config"
	"github.com/allisson/uapf-mcp/internal/engine"
	"github.com/allisson/uapf-mcp/internal/scope"
)

// RunCheckConfig validates the configuration without contacting the engine.
func RunCheckConfig(cfg *config.Config, writer io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	_, err := fmt.Fprintf(writer, "configuration is valid (transport=%s, mode=%s, security=%s)\n",
		cfg.Transport, cfg.Mode, cfg.GetSecurityMode())
	return err
}

// RunProbe fetches the engine metadata document and prints the advertised mode.
func RunProbe(
	ctx context.Context,
	client engine.Client,
	engineURL string,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	meta, err := client.GetMeta(ctx)
	if err != nil {
		return fmt.Errorf("failed to probe engine: %w", err)
	}
	logger.Debug("engine probed", slog.String("engine_url", engineURL), slog.String("mode", meta.Mode()))

	if format == FormatJSON {
		return writeJSON(writer, map[string]any{
			"engineUrl": engineURL,
			"mode":      meta.Mode(),
			"meta":      meta,
		})
	}

	mode := meta.Mode()
	if mode == "" {
		mode = "unknown"
	}
	fmt.Fprintf(writer, "Engine: %s\n", engineURL)
	fmt.Fprintf(writer, "Mode:   %s\n", mode)

	keys := make([]string, 0, len(meta))
	for k := range meta {
		if k != "mode" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(writer, "  %s: %v\n", k, meta[k])
	}
	return nil
}

// RunPackages prints the packages visible in the resolved scope.
func RunPackages(sc *scope.Scope, writer io.Writer, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	if format == FormatJSON {
		return writeJSON(writer, map[string]any{
			"mode":     sc.Mode,
			"packages": sc.Packages,
		})
	}

	fmt.Fprintf(writer, "Mode: %s (%d package(s))\n", sc.Mode, len(sc.Packages))
	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PACKAGE\tVERSION\tPROCESSES\tDECISIONS\tCLAIMS")
	for _, p := range sc.Packages {
		claims := strings.Join(p.RequiredClaims, ",")
		if claims == "" {
			claims = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", p.PackageID, p.Version, len(p.Processes), len(p.Decisions), claims)
	}
	return tw.Flush()
}
