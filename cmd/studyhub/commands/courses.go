package commands

import (
	"fmt"
	"strconv"

	"studyhub-backend/lib/report"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newCoursesCmd(g *globals) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "courses [--state <state>] [--format json|table]",
		Short: "Fetches the course listing and prints it.",
		Long: "Fetches one page of the canvas course listing filtered by enrollment state. " +
			"The json format prints the response indented by 4 spaces, or \"Error: <code>\" " +
			"when canvas does not answer with 200.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.canvasClient()
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return report.Courses(cmd.Context(), client, g.cfg.EnrollmentState, cmd.OutOrStdout())
			case "table":
				courses, err := client.ListCourses(cmd.Context(), g.cfg.EnrollmentState)
				if err != nil {
					return err
				}
				t := newTable(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"ID", "Name", "Code", "State"})
				for _, c := range courses {
					t.AppendRow(table.Row{strconv.FormatInt(c.ID, 10), c.Name, c.CourseCode, c.WorkflowState})
				}
				t.Render()
				return nil
			default:
				return fmt.Errorf("unknown format %q, expected json or table", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "The output format, json or table.")
	return cmd
}
