package output

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"paritybit-setup/internal/models"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidFormat reports whether format is one of text, json, yaml.
func ValidFormat(format string) bool {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

func encode(w io.Writer, format string, v interface{}) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported output format %q", format)
}

/**
 * Print a Run Outcome
 * @param {io.Writer} w - destination
 * @param {string} format - text, json or yaml
 * @param {*models.RunOutcome} o - outcome
 * @returns {error} Encoding or write error
 * @description
 * - Text lists steps, then all warnings together, then operator notices
 */
func Outcome(w io.Writer, format string, o *models.RunOutcome) error {
	if format != FormatText {
		return encode(w, format, o)
	}
	fmt.Fprintf(w, "Run %s (%s)\n", o.RunID, o.FinishedAt.Sub(o.StartedAt).Round(time.Millisecond))
	if o.Manager != "" {
		fmt.Fprintf(w, "Package manager: %s\n", o.Manager)
	}
	if o.Revision != "" {
		fmt.Fprintf(w, "Workspace revision: %s\n", o.Revision)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nSTEP\tSTATUS\tDURATION\tDETAIL")
	for _, s := range o.Steps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Status, s.Duration.Round(time.Millisecond), s.Detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	writeServices(w, o.Services, o.Proxy)

	if len(o.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings (%d):\n", len(o.Warnings))
		for _, wn := range o.Warnings {
			fmt.Fprintf(w, "  - %s\n", wn)
		}
	}
	if len(o.Notices) > 0 {
		fmt.Fprintln(w, "\nAction required:")
		for _, n := range o.Notices {
			fmt.Fprintf(w, "  - %s\n", n)
		}
	}
	if o.Fatal != "" {
		fmt.Fprintf(w, "\nFAILED: %s\n", o.Fatal)
	} else {
		fmt.Fprintln(w, "\nProvisioning complete.")
	}
	return nil
}

// Status prints a live status report.
func Status(w io.Writer, format string, r models.StatusReport) error {
	if format != FormatText {
		return encode(w, format, r)
	}
	fmt.Fprintf(w, "Overall: %s\n", r.OverallStatus)
	writeServices(w, r.Services, r.Proxy)

	a := r.Artifacts
	fmt.Fprintln(w, "\nArtifacts:")
	if a.LatestMarker != "" && a.MarkerTime != nil {
		fmt.Fprintf(w, "  last crawl: %s (%s, %d marker(s))\n", a.MarkerTime.Format(time.RFC3339), a.LatestMarker, a.MarkerCount)
	} else {
		fmt.Fprintln(w, "  last crawl: none")
	}
	fmt.Fprintf(w, "  results: %s\n", entries(a.ResultsPresent, a.ResultsEntries))
	fmt.Fprintf(w, "  dead endpoints: %s\n", entries(a.DeadEndpointsPresent, a.DeadEndpoints))
	for _, p := range a.Problems {
		fmt.Fprintf(w, "  problem: %s\n", p)
	}

	if r.LastRun != nil {
		result := "succeeded"
		if !r.LastRun.Succeeded() {
			result = "failed: " + r.LastRun.Fatal
		}
		fmt.Fprintf(w, "\nLast run: %s at %s, %s, %d warning(s)\n",
			r.LastRun.RunID, r.LastRun.FinishedAt.Format(time.RFC3339), result, len(r.LastRun.Warnings))
	}
	return nil
}

func writeServices(w io.Writer, states []models.ServiceState, proxy *models.ProxyProbe) {
	if len(states) == 0 && proxy == nil {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nSERVICE\tSTATE\tHINT")
	for _, s := range states {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.State, s.Hint)
	}
	if proxy != nil {
		state := "unreachable"
		if proxy.Reachable {
			state = "reachable"
		}
		fmt.Fprintf(tw, "socks %s\t%s\t\n", proxy.Address, state)
	}
	tw.Flush()
}

func entries(present bool, n int) string {
	switch {
	case !present:
		return "absent"
	case n < 0:
		return "unreadable"
	}
	if n == 1 {
		return "1 entry"
	}
	return fmt.Sprintf("%d entries", n)
}
