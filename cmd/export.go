package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/inspection-review/internal/model"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export submissions to an XLSX workbook",
	Long:  "Writes one row per submission to a Submissions sheet and one row per checklist item to a Checklist sheet.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out, _ := cmd.Flags().GetString("out")

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
			return eris.Wrap(err, "export")
		}

		if err := writeWorkbook(out, subs); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d submission(s) to %s\n", len(subs), out)
		return nil
	},
}

var submissionHeader = []string{
	"ID", "Owner", "File", "Facility", "Address", "Permit", "Inspection Date",
	"Inspector", "Weather", "Rain Event", "Overall Status", "Pass", "Fail", "N/A",
	"Open Actions", "Pending Deadletter", "Edited", "PDF Key", "Created", "Updated",
}

var checklistHeader = []string{
	"Submission ID", "Facility", "Section", "Description", "Status", "Notes", "Edited By", "Edit Type",
}

// writeWorkbook writes subs to an XLSX file at path.
func writeWorkbook(path string, subs []model.Submission) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Submissions")
	if err != nil {
		return eris.Wrap(err, "xlsx: add submissions sheet")
	}
	items, err := f.AddSheet("Checklist")
	if err != nil {
		return eris.Wrap(err, "xlsx: add checklist sheet")
	}
	addStringRow(summary, submissionHeader...)
	addStringRow(items, checklistHeader...)

	for _, s := range subs {
		d := &s.Data
		c := countsOf(d)

		row := summary.AddRow()
		for _, v := range []string{s.ID, s.OwnerID, s.FileName, d.FacilityName, d.FacilityAddress,
			d.PermitNumber, d.InspectionDate, d.InspectorName, d.WeatherConditions} {
			row.AddCell().SetString(v)
		}
		rain := row.AddCell()
		if d.RainEvent != nil {
			rain.SetBool(*d.RainEvent)
		}
		row.AddCell().SetString(string(d.OverallStatus))
		for _, n := range []int{c.Pass, c.Fail, c.NA, c.OpenActions, len(d.Deadletter)} {
			row.AddCell().SetInt(n)
		}
		row.AddCell().SetBool(c.Edited)
		row.AddCell().SetString(s.PDFStorageKey)
		row.AddCell().SetDateTime(s.CreatedAt)
		row.AddCell().SetDateTime(s.UpdatedAt)

		for _, it := range d.ChecklistItems {
			var by, typ string
			if it.EditMeta != nil {
				by, typ = it.EditMeta.EditedBy, string(it.EditMeta.EditType)
			}
			addStringRow(items, s.ID, d.FacilityName, it.Section, it.Description, string(it.Status), it.Notes, by, typ)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func addStringRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func init() {
	exportCmd.Flags().String("out", "submissions.xlsx", "output file")
	addSubmissionFilterFlags(exportCmd, 1000)
	rootCmd.AddCommand(exportCmd)
}
