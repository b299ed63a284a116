package commands

import (
	"fmt"
	"log/slog"

	"studyhub-backend/lib/coursestore"
	"studyhub-backend/lib/platforms/canvas"

	"github.com/spf13/cobra"
)

func newSyncCmd(g *globals) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "sync --user <id> [--state <state>]",
		Short: "Stores the current classes of a student in the course store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return fmt.Errorf("--user is required")
			}

			client, err := g.canvasClient()
			if err != nil {
				return err
			}
			courses, err := client.ListCourses(cmd.Context(), g.cfg.EnrollmentState)
			if err != nil {
				return err
			}
			names := canvas.CurrentCourseNames(courses)

			store, err := coursestore.Open(cmd.Context(), g.cfg.Store)
			if err != nil {
				return fmt.Errorf("open course store: %w", err)
			}
			defer store.Close()

			err = store.SetClasses(cmd.Context(), user, names)
			if err != nil {
				return fmt.Errorf("store classes: %w", err)
			}
			slog.Info("classes updated", "user", user, "count", len(names))
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "The id of the user the classes belong to.")
	return cmd
}
