package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/graphstore"
	"github.com/veracity-dev/ess/internal/vectorstore"
)

// healthReport mirrors the GET /health contract from spec §6, rendered
// for a terminal instead of an HTTP response.
type healthReport struct {
	Status    string                 `json:"status"` // healthy | degraded | unhealthy
	Services  map[string]serviceInfo `json:"services"`
	Timestamp string                 `json:"timestamp"`
}

type serviceInfo struct {
	Reachable bool   `json:"reachable"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newDoctorCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Probe graph and vector backends and report health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return esserr.Config("failed to load config", err)
			}
			log, err := newLogger(cfg)
			if err != nil {
				return esserr.Internal("failed to build logger", err)
			}
			defer log.Sync() //nolint:errcheck

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			report := healthReport{
				Services:  map[string]serviceInfo{},
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}

			start := time.Now()
			graph, graphErr := graphstore.Open(ctx, cfg.Graph, log)
			graphLatency := time.Since(start).Milliseconds()
			if graphErr == nil {
				report.Services["graph"] = serviceInfo{Reachable: true, LatencyMs: graphLatency}
				graph.Close(ctx) //nolint:errcheck
			} else {
				report.Services["graph"] = serviceInfo{Reachable: false, Error: esserr.Redact(graphErr.Error())}
			}

			start = time.Now()
			vector, vectorErr := vectorstore.Open(cfg.Vector, log)
			if vectorErr == nil {
				vectorErr = vector.EnsureCollection(ctx, "essd_doctor_probe")
			}
			vectorLatency := time.Since(start).Milliseconds()
			if vector != nil {
				defer vector.Close() //nolint:errcheck
			}
			if vectorErr == nil {
				report.Services["vector"] = serviceInfo{Reachable: true, LatencyMs: vectorLatency}
			} else {
				report.Services["vector"] = serviceInfo{Reachable: false, Error: esserr.Redact(vectorErr.Error())}
			}

			report.Status = overallStatus(report.Services)

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status: %s\n", report.Status)
			for _, name := range []string{"graph", "vector"} {
				svc := report.Services[name]
				if svc.Reachable {
					fmt.Fprintf(out, "  %-8s ok (%dms)\n", name, svc.LatencyMs)
				} else {
					fmt.Fprintf(out, "  %-8s unreachable: %s\n", name, svc.Error)
				}
			}
			if report.Status != "healthy" {
				return esserr.Backend("doctor", "one or more backends unreachable", nil)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

// overallStatus implements spec §6's three-way health classification:
// degraded when exactly one store is unreachable, unhealthy when both
// are.
func overallStatus(services map[string]serviceInfo) string {
	down := 0
	for _, s := range services {
		if !s.Reachable {
			down++
		}
	}
	switch down {
	case 0:
		return "healthy"
	case len(services):
		return "unhealthy"
	default:
		return "degraded"
	}
}
