package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"studyhub-backend/lib/platforms/canvas"
	"studyhub-backend/lib/report"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func resolveFeed(ctx context.Context, client *canvas.Client, target string) (string, error) {
	if strings.Contains(target, "://") {
		return target, nil
	}
	course, err := client.GetCourse(ctx, target)
	if err != nil {
		return "", fmt.Errorf("get course %s: %w", target, err)
	}
	if course.Calendar == nil || course.Calendar.ICS == "" {
		return "", fmt.Errorf("course %s has no calendar feed", target)
	}
	return course.Calendar.ICS, nil
}

func newEventsCmd(g *globals) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "events <course-id|feed-url> [--format json|table]",
		Short: "Fetches and prints the calendar events of a course.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.canvasClient()
			if err != nil {
				return err
			}
			feed, err := resolveFeed(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}
			calendar, err := client.FetchCalendar(cmd.Context(), feed)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				out, err := json.MarshalIndent(calendar, "", report.Indent)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			case "table":
				t := newTable(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Summary", "Start", "End"})
				for _, e := range calendar.Events {
					t.AppendRow(table.Row{e["SUMMARY"], eventTime(e, "DTSTART"), eventTime(e, "DTEND")})
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

// eventTime finds a time property regardless of its parameters, e.g.
// DTSTART or DTSTART;VALUE=DATE.
func eventTime(e canvas.Event, name string) string {
	if v, ok := e[name]; ok {
		return v
	}
	for k, v := range e {
		if strings.HasPrefix(k, name+";") {
			return v
		}
	}
	return ""
}
