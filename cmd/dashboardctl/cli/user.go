package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	persistence "example.com/dashboard/internal/persistence/postgres"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage dashboard users",
}

func newUserSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or update a user and their weekly workout goal",
		Long: "Create or update a user. Only the flags given are written; " +
			"omitted fields keep their stored values.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("id")
			update, err := userUpdateFromFlags(cmd)
			if err != nil {
				return err
			}

			pool, _, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := persistence.NewRepository(pool).UpsertUser(cmd.Context(), userID, update); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s saved\n", userID)
			return nil
		},
	}
	cmd.Flags().String("id", "", "user id")
	cmd.Flags().String("email", "", "email address")
	cmd.Flags().String("name", "", "full name")
	cmd.Flags().Int("weekly-goal", 0, "workouts per week; 0 clears the goal")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// userUpdateFromFlags maps the flags the caller actually passed onto a profile update.
func userUpdateFromFlags(cmd *cobra.Command) (persistence.UserUpdate, error) {
	var update persistence.UserUpdate
	flags := cmd.Flags()

	if flags.Changed("email") {
		email, _ := flags.GetString("email")
		update.Email = &email
	}
	if flags.Changed("name") {
		name, _ := flags.GetString("name")
		update.FullName = &name
	}
	if flags.Changed("weekly-goal") {
		goal, _ := flags.GetInt("weekly-goal")
		if goal < 0 {
			return persistence.UserUpdate{}, fmt.Errorf("--weekly-goal must be >= 0")
		}
		update.WeeklyGoal = &goal
	}
	return update, nil
}

func init() {
	userCmd.AddCommand(newUserSetCmd())
}
