package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dosada05/uniplay/config"
	"github.com/Dosada05/uniplay/cricsheet"
	"github.com/Dosada05/uniplay/db"
	"github.com/Dosada05/uniplay/middleware"
	"github.com/Dosada05/uniplay/services"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.StorageDriverPostgres {
				return fmt.Errorf("migrate requires STORAGE_DRIVER=%s", config.StorageDriverPostgres)
			}
			dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
			if err != nil {
				return err
			}
			defer closeDB(dbConn, logger)()

			if err := db.Migrate(cmd.Context(), dbConn); err != nil {
				return err
			}
			logger.Info("schema migrated")
			return nil
		},
	}
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Event schedule tasks",
	}
	cmd.AddCommand(scheduleGenerateCmd())
	return cmd
}

func scheduleGenerateCmd() *cobra.Command {
	var eventID int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the fixtures of an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventID <= 0 {
				return errors.New("--event must be a positive event id")
			}
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStores(cfg, logger)
			if err != nil {
				return err
			}
			defer st.close()

			svc := services.NewScheduleService(st.tx, st.events, st.fixtures, st.teams, nil, logger, cfg.ScheduleLocation)
			result, err := svc.GenerateSchedule(cmd.Context(), eventID)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTAGE\tROUND\tTEAMS\tTIME\tVENUE")
			for _, f := range result.Fixtures {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s v %s\t%s\t%s\n",
					f.ID, f.Stage, f.Round, teamLabel(f.TeamA), teamLabel(f.TeamB),
					f.ScheduledTime.Format("2006-01-02 15:04"), f.Venue)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&eventID, "event", 0, "Event ID")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func teamLabel(id *int) string {
	if id == nil {
		return "TBD"
	}
	return fmt.Sprintf("#%d", *id)
}

func cricsheetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cricsheet",
		Short: "Cricsheet scorecard tools",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "inspect FILE",
		Short: "Validate a Cricsheet JSON file and print its innings totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			sc, err := cricsheet.Parse(data)
			if err != nil {
				var verr *cricsheet.ValidationError
				if errors.As(err, &verr) {
					for _, p := range verr.Problems {
						fmt.Fprintln(cmd.ErrOrStderr(), "  -", p)
					}
				}
				return err
			}
			return printScorecard(cmd, sc)
		},
	})
	return cmd
}

func printScorecard(cmd *cobra.Command, sc *cricsheet.Scorecard) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s v %s (%s) at %s\n", sc.Info.Teams[0], sc.Info.Teams[1], sc.Info.MatchType, sc.Info.Venue)
	if sc.Info.TossWinner != "" {
		fmt.Fprintf(out, "Toss: %s, chose to %s\n", sc.Info.TossWinner, sc.Info.TossDecision)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INNINGS\tTEAM\tBALLS\tSCORE")
	for i, t := range sc.Totals() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d/%d\n", i+1, t.Team, t.Balls, t.Runs, t.Wickets)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d players\n", len(sc.Players))
	return nil
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Access token tasks",
	}

	var (
		userID int
		role   string
		ttl    time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for a scorer or admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := middleware.Role(role)
			if r != middleware.RoleAdmin && r != middleware.RoleScorer {
				return fmt.Errorf("--role must be %q or %q", middleware.RoleAdmin, middleware.RoleScorer)
			}
			if userID <= 0 {
				return errors.New("--user must be a positive user id")
			}
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := middleware.NewAuthenticator(cfg.JWTSecretKey).IssueToken(userID, r, ttl)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
				"token":      token,
				"role":       r,
				"expires_in": int(ttl.Seconds()),
			})
		},
	}
	issue.Flags().IntVar(&userID, "user", 0, "User ID carried in the token")
	issue.Flags().StringVar(&role, "role", string(middleware.RoleScorer), "Role: admin or scorer")
	issue.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	cmd.AddCommand(issue)
	return cmd
}

