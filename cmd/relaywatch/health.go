package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/axionhq/relaywatch/internal/queue"
	"github.com/axionhq/relaywatch/internal/supervisor"
)

// heartbeatStale is how old a heartbeat may be before the watcher counts as
// stuck or stopped.
const heartbeatStale = 10 * time.Second

type healthReport struct {
	Healthy       bool     `json:"healthy"`
	Heartbeat     string   `json:"heartbeat"`
	HeartbeatAge  float64  `json:"heartbeat_age_seconds,omitempty"`
	JobsProcessed int64    `json:"jobs_processed,omitempty"`
	CurrentJob    string   `json:"current_job,omitempty"`
	Pending       []string `json:"pending,omitempty"`
	Processing    []string `json:"processing,omitempty"`
}

func healthCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check watcher liveness and queue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			lay, _ := resolveLayout()
			q := queue.New(lay.QueueDir())
			report := buildHealthReport(lay.HeartbeatFile(), q)

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			if report.Healthy {
				fmt.Printf("[OK] Last beat: %.0fs ago\n", report.HeartbeatAge)
				fmt.Printf("Jobs processed: %d\n", report.JobsProcessed)
				if report.CurrentJob != "" {
					fmt.Printf("Currently processing: %s\n", report.CurrentJob)
				}
			} else {
				fmt.Printf("[WARNING] %s\n", report.Heartbeat)
			}
			fmt.Printf("Pending jobs: %d\n", len(report.Pending))
			for _, p := range report.Pending {
				fmt.Printf("  %s\n", p)
			}
			fmt.Printf("Processing jobs: %d\n", len(report.Processing))
			for _, p := range report.Processing {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the report as JSON")
	return cmd
}

func buildHealthReport(heartbeatPath string, q *queue.Queue) healthReport {
	var report healthReport

	rec, ok := supervisor.ReadHeartbeat(heartbeatPath)
	switch {
	case !ok:
		report.Heartbeat = "No heartbeat file - watcher may not be running"
	case rec.Age() > heartbeatStale:
		report.Heartbeat = fmt.Sprintf("Heartbeat stale (%.0fs old) - watcher may be stuck or stopped", rec.Age().Seconds())
	default:
		report.Healthy = true
		report.Heartbeat = rec.Activity
		report.HeartbeatAge = rec.Age().Seconds()
		report.JobsProcessed = rec.JobsProcessed
		report.CurrentJob = rec.CurrentJob
	}

	paths, err := q.Scan()
	if err != nil {
		return report
	}
	for _, path := range paths {
		j, ok := q.LoadPath(path)
		if !ok {
			continue
		}
		preview := j.Message
		if len(preview) > 40 {
			preview = preview[:40] + "..."
		}
		line := fmt.Sprintf("%s (%s): %s", j.ID, j.EffectiveProject(), preview)
		switch j.Status {
		case queue.StatusPending, queue.StatusAnswersProvided:
			report.Pending = append(report.Pending, line)
		case queue.StatusProcessing:
			report.Processing = append(report.Processing, line)
		}
	}
	return report
}
