// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docmark/internal/manifest"
	"github.com/pdiddy/docmark/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded conversion runs",
	Long: `History reads the conversion manifest. Without filters it lists recent
batch jobs. With --job, --name or --status it lists the matching document
results instead.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	jobID, _ := cmd.Flags().GetString("job")
	name, _ := cmd.Flags().GetString("name")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	path := cfg.Manifest.Path
	if path == "" {
		path = manifest.DefaultPath(cfg.Output.Dir)
	}
	w := cmd.OutOrStdout()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(w, "No manifest at %s.\n", path)
		return nil
	}
	store, err := manifest.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()

	if jobID == "" && name == "" && status == "" {
		jobs, err := store.Jobs(ctx, limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(w, jobs)
		}
		printJobs(w, jobs)
		return nil
	}

	docs, err := store.Documents(ctx, manifest.DocumentQuery{
		JobID:      jobID,
		Name:       name,
		Status:     types.ConversionStatus(status),
		WithImages: jsonOutput,
		Limit:      limit,
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(w, docs)
	}
	printDocuments(w, docs)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJobs(w io.Writer, jobs []manifest.JobRecord) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs recorded.")
		return
	}
	fmt.Fprintf(w, "%-8s  %-16s  %5s  %5s  %5s  %5s  %5s  %6s  %s\n",
		"Job", "Started", "Total", "Done", "Part", "Skip", "Fail", "Images", "Duration")
	fmt.Fprintln(w, strings.Repeat("-", 84))
	for _, j := range jobs {
		s := j.Stats
		fmt.Fprintf(w, "%-8s  %-16s  %5d  %5d  %5d  %5d  %5d  %6d  %s\n",
			shortID(j.ID), j.StartedAt.Local().Format("2006-01-02 15:04"),
			s.Total, s.Converted, s.Partial, s.Skipped, s.Failed, s.Images,
			s.Duration.Round(time.Millisecond))
	}
}

func printDocuments(w io.Writer, docs []manifest.DocumentRecord) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return
	}
	fmt.Fprintf(w, "%-8s  %-40s  %-9s  %-12s  %6s  %s\n",
		"Job", "Document", "Status", "Converter", "Images", "Detail")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, d := range docs {
		r := d.Result
		detail := r.Error
		if detail == "" && r.Unresolved > 0 {
			detail = fmt.Sprintf("%d unresolved", r.Unresolved)
		}
		fmt.Fprintf(w, "%-8s  %-40s  %-9s  %-12s  %6d  %s\n",
			shortID(d.JobID), truncate(r.DocName, 40), r.Status, r.Converter, r.Images, detail)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	historyCmd.Flags().String("job", "", "show documents of this job (ID prefix)")
	historyCmd.Flags().String("name", "", "show documents whose name contains this text")
	historyCmd.Flags().String("status", "", "show documents with this status (converted, partial, none, failed)")
	historyCmd.Flags().Int("limit", 20, "maximum rows")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}
