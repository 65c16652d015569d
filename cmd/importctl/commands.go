package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	app "github.com/mohammadpnp/member-import/internal/application/member"
	"github.com/mohammadpnp/member-import/internal/bootstrap"
	"github.com/mohammadpnp/member-import/internal/config"
	domain "github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/infrastructure/db/migrations"
)

func newMigrateCommand() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.DefaultEnvFiles...)
			if err != nil {
				return err
			}
			logger := cfg.Logger()

			db, err := bootstrap.OpenDatabase(cmd.Context(), cfg.DatabaseURL, false, logger)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if down {
				if err := migrations.Down(cmd.Context(), sqlDB); err != nil {
					return err
				}
			} else if _, err := migrations.Up(cmd.Context(), sqlDB); err != nil {
				return err
			}

			version, err := migrations.Version(cmd.Context(), sqlDB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the latest migration instead")
	return cmd
}

func newPreviewCommand() *cobra.Command {
	var (
		uploadedBy string
		commit     bool
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Validate a spreadsheet and cache its preview",
		Long: "Validate a spreadsheet and cache its preview. Without REDIS_ADDR the preview only lives in\n" +
			"this process, so pass --commit to write the valid rows in the same run.",
		Args: cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			report, err := s.services.Preview.Execute(cmd.Context(), app.PreviewInput{
				FileName:   filepath.Base(args[0]),
				Data:       data,
				UploadedBy: uploadedBy,
			})
			if err != nil {
				return err
			}
			printPreview(cmd, report, verbose)

			if !commit {
				return nil
			}
			batch, err := s.services.Commit.Execute(cmd.Context(), app.CommitInput{FileKey: report.FileKey, UploadedBy: uploadedBy})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), batch)
		}),
	}
	cmd.Flags().StringVar(&uploadedBy, "uploaded-by", "", "operator recorded on the batch")
	cmd.Flags().BoolVar(&commit, "commit", false, "commit every valid row right after the preview")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every invalid row")
	return cmd
}

func printPreview(cmd *cobra.Command, report domain.PreviewReport, verbose bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "file key: %s\nrows: %d total, %d valid, %d invalid\n",
		report.FileKey, report.TotalRows, report.ValidRows, report.InvalidRows)
	if !verbose {
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tERRORS")
	for _, row := range report.Rows {
		if row.Valid {
			continue
		}
		fmt.Fprintf(tw, "%d\t%v\n", row.RowNumber, row.Errors)
	}
	_ = tw.Flush()
}

func newCommitCommand() *cobra.Command {
	var (
		uploadedBy string
		rows       []int
	)
	cmd := &cobra.Command{
		Use:   "commit FILE_KEY",
		Short: "Commit a cached preview",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			in := app.CommitInput{FileKey: args[0], UploadedBy: uploadedBy}
			if cmd.Flags().Changed("rows") {
				in.RowNumbers = rows
			}
			batch, err := s.services.Commit.Execute(cmd.Context(), in)
			if err != nil && batch.ID == "" {
				return err
			}
			if printErr := printJSON(cmd.OutOrStdout(), batch); printErr != nil {
				return printErr
			}
			return err
		}),
	}
	cmd.Flags().StringVar(&uploadedBy, "uploaded-by", "", "operator recorded on the batch")
	cmd.Flags().IntSliceVar(&rows, "rows", nil, "row numbers to import (default: every valid row)")
	return cmd
}

func newHistoryCommand() *cobra.Command {
	var (
		status string
		limit  int
		offset int
		since  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "history [IMPORT_ID]",
		Short: "List import batches or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			if len(args) == 1 {
				return showBatch(cmd, s, args[0])
			}

			in := app.ListImportsInput{Status: status, Limit: limit, Offset: offset}
			if since > 0 {
				from := time.Now().Add(-since)
				in.From = &from
			}
			out, err := s.services.History.List(cmd.Context(), in)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tFILE\tSTATUS\tTOTAL\tOK\tFAILED\tSKIPPED\tDUPLICATE")
			for _, b := range out.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
					b.ID, b.CreatedAt.Format(time.DateTime), b.FileName, b.Status,
					b.Counters.TotalRows, b.Counters.SuccessCount, b.Counters.FailedCount,
					b.Counters.SkippedCount, b.Counters.DuplicateCount)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d\n", len(out.Items), out.Total)
			return nil
		}),
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	cmd.Flags().DurationVar(&since, "since", 0, "only batches created within this window")
	return cmd
}

func showBatch(cmd *cobra.Command, s *session, id string) error {
	ctx := cmd.Context()
	batch, err := s.services.History.Get(ctx, id)
	if err != nil {
		return err
	}
	stats, err := s.services.Activation.Stats(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), struct {
		Batch      domain.ImportBatch     `json:"batch"`
		Activation domain.ActivationStats `json:"activation"`
	}{batch, stats})
}

func newResendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resend MEMBER_ID...",
		Short: "Issue a fresh activation link",
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			var failed int
			for _, id := range args {
				if err := resend(cmd.Context(), s, id); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", id, err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: activation link sent\n", id)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d resends failed", failed, len(args))
			}
			return nil
		}),
	}
}

func resend(ctx context.Context, s *session, memberID string) error {
	_, err := s.services.Activation.Resend(ctx, memberID)
	return err
}
