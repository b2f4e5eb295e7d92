package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/inspection-review/internal/model"
)

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "Inspect saved inspection submissions",
	Long:  "Commands for listing, viewing, and summarizing persisted submissions across all owners.",
}

// -- submissions list --

var submissionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List submissions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter, err := submissionFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		subs, err := st.ListSubmissions(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "submissions list")
		}

		if len(subs) == 0 {
			fmt.Fprintln(os.Stderr, "No submissions found.")
			return nil
		}

		formatSubmissionsList(os.Stdout, subs)
		return nil
	},
}

// -- submissions get --

var submissionsGetCmd = &cobra.Command{
	Use:   "get <submission-id>",
	Short: "Show a submission as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sub, err := st.GetSubmission(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "submissions get")
		}
		return printJSON(os.Stdout, sub)
	},
}

// -- submissions stats --

var submissionsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show submission counts by compliance status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter, err := submissionFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		filter.Limit = 10000 // high limit for stats

		subs, err := st.ListSubmissions(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "submissions stats")
		}
		formatSubmissionStats(os.Stdout, computeSubmissionStats(subs))
		return nil
	},
}

func submissionFilterFromFlags(cmd *cobra.Command) (model.SubmissionFilter, error) {
	owner, _ := cmd.Flags().GetString("owner")
	facility, _ := cmd.Flags().GetString("facility")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	f := model.SubmissionFilter{
		OwnerID:       owner,
		FacilityName:  facility,
		OverallStatus: model.OverallStatus(status),
		Limit:         limit,
	}
	if f.OverallStatus != "" && !f.OverallStatus.IsValid() {
		return f, eris.Errorf("invalid status %q (want compliant, non-compliant, needs-attention)", status)
	}
	return f, nil
}

func addSubmissionFilterFlags(cmd *cobra.Command, limit int) {
	cmd.Flags().String("owner", "", "filter by owner id")
	cmd.Flags().String("facility", "", "filter by facility name (substring)")
	cmd.Flags().String("status", "", "filter by overall status (compliant, non-compliant, needs-attention)")
	cmd.Flags().Int("limit", limit, "max number of submissions")
}

func init() {
	addSubmissionFilterFlags(submissionsListCmd, 50)
	addSubmissionFilterFlags(submissionsStatsCmd, 0)

	submissionsCmd.AddCommand(submissionsListCmd)
	submissionsCmd.AddCommand(submissionsGetCmd)
	submissionsCmd.AddCommand(submissionsStatsCmd)
	rootCmd.AddCommand(submissionsCmd)
}

// submissionStats holds aggregate counts over a set of submissions.
type submissionStats struct {
	Total          int
	Compliant      int
	NonCompliant   int
	NeedsAttention int
	FailedItems    int
	OpenActions    int
	Edited         int
}

func computeSubmissionStats(subs []model.Submission) submissionStats {
	var s submissionStats
	s.Total = len(subs)
	for _, sub := range subs {
		switch sub.Index.OverallStatus {
		case model.OverallCompliant:
			s.Compliant++
		case model.OverallNonCompliant:
			s.NonCompliant++
		case model.OverallNeedsAttention:
			s.NeedsAttention++
		}
		c := countsOf(&sub.Data)
		s.FailedItems += c.Fail
		s.OpenActions += c.OpenActions
		if c.Edited {
			s.Edited++
		}
	}
	return s
}

// recordCounts summarizes one record's checklist and actions.
type recordCounts struct {
	Pass, Fail, NA int
	OpenActions    int
	Edited         bool
}

func countsOf(d *model.InspectionData) recordCounts {
	var c recordCounts
	for _, it := range d.ChecklistItems {
		switch it.Status {
		case model.ItemStatusPass:
			c.Pass++
		case model.ItemStatusFail:
			c.Fail++
		case model.ItemStatusNA:
			c.NA++
		}
		c.Edited = c.Edited || it.Edited()
	}
	for _, a := range d.CorrectiveActions {
		if !a.Completed {
			c.OpenActions++
		}
		c.Edited = c.Edited || a.Edited()
	}
	c.Edited = c.Edited || len(d.FieldEdits) > 0 || len(d.ResolvedDeadletterFields) > 0
	return c
}

// formatSubmissionsList writes a tabular list of submissions to w.
func formatSubmissionsList(out io.Writer, subs []model.Submission) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFACILITY\tPERMIT\tDATE\tSTATUS\tFAIL\tOWNER\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t--------\t------\t----\t------\t----\t-----\t-------")

	for _, s := range subs {
		facility := s.Index.FacilityName
		if len(facility) > 30 {
			facility = facility[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			truncateID(s.ID),
			facility,
			s.Index.PermitNumber,
			s.Index.InspectionDate,
			s.Index.OverallStatus,
			countsOf(&s.Data).Fail,
			s.OwnerID,
			s.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatSubmissionStats writes aggregate stats to w.
func formatSubmissionStats(out io.Writer, s submissionStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total submissions:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Compliant:\t%d\n", s.Compliant)
	_, _ = fmt.Fprintf(w, "Non-compliant:\t%d\n", s.NonCompliant)
	_, _ = fmt.Fprintf(w, "Needs attention:\t%d\n", s.NeedsAttention)
	_, _ = fmt.Fprintf(w, "Failed items:\t%d\n", s.FailedItems)
	_, _ = fmt.Fprintf(w, "Open actions:\t%d\n", s.OpenActions)
	_, _ = fmt.Fprintf(w, "Human-edited:\t%d\n", s.Edited)
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
