package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"conftalks/internal/store"
)

const recentRunLimit = 5

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var runs int
	var check bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show table row counts and recent harvest runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			path := cfg.DatabasePath()
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				fprintf(out, "No database at %s\n", path)
				return nil
			}

			st, err := store.Open(path, store.WithoutMigrations())
			if err != nil {
				return err
			}
			defer st.Close()

			version, err := st.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			if version < store.LatestVersion() {
				return fmt.Errorf("database schema at version %d, run 'conftalks schema migrate' to reach %d", version, store.LatestVersion())
			}

			counts, err := st.Counts(cmd.Context())
			if err != nil {
				return err
			}
			tables := counts.Tables()
			rows := make([][]string, 0, len(tables))
			for _, table := range tables {
				rows = append(rows, []string{table.Name, strconv.FormatInt(table.Count, 10)})
			}
			fprintf(out, "Database: %s\n", path)
			if check {
				ok, err := st.IntegrityCheck(cmd.Context())
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("integrity check failed for %s", path)
				}
				fprintf(out, "Integrity: ok\n")
			}
			fprintf(out, "%s\n", renderTable([]string{"Table", "Rows"}, rows, []columnAlignment{alignLeft, alignRight}))

			recent, err := st.RecentRuns(cmd.Context(), runs)
			if err != nil {
				return err
			}
			if len(recent) == 0 {
				fprintf(out, "No recorded runs\n")
				return nil
			}
			runRows := make([][]string, 0, len(recent))
			for _, run := range recent {
				runRows = append(runRows, []string{
					run.ID,
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Duration().Round(time.Millisecond).String(),
					strconv.Itoa(run.Processed),
					strconv.Itoa(run.Created),
					strconv.Itoa(run.Existing),
					strconv.Itoa(run.Failed),
					strconv.Itoa(run.Topics),
				})
			}
			fprintf(out, "%s\n", renderTable(
				[]string{"Run", "Started", "Duration", "Processed", "Created", "Existing", "Failed", "Topics"},
				runRows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&runs, "runs", recentRunLimit, "Number of recent runs to list")
	cmd.Flags().BoolVar(&check, "check", false, "Run an SQLite integrity check first")
	return cmd
}
