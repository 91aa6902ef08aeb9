package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/memohai/supportdesk/internal/config"
	"github.com/memohai/supportdesk/internal/logger"
	"github.com/memohai/supportdesk/internal/records"
)

const tableCommandTimeout = 2 * time.Minute

func newTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Provision and inspect the Feishu chat record table",
	}

	var baseName, tableName, folder string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a base and chat record table, then save its location",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTableBackend(cmd, false, func(ctx context.Context, cfg config.Config, backend records.Backend, loc config.FeishuLocation) error {
				return runTableInit(ctx, cfg, backend, records.InitOptions{
					BaseName:    baseName,
					TableName:   tableName,
					FolderToken: folder,
					BaseURL:     cfg.Feishu.OpenBaseURL,
				}, cmd.OutOrStdout())
			})
		},
	}
	initCmd.Flags().StringVar(&baseName, "name", records.DefaultBaseName, "Base name")
	initCmd.Flags().StringVar(&tableName, "table", records.DefaultTableName, "Table name")
	initCmd.Flags().StringVar(&folder, "folder", "", "Drive folder token for the new base")

	addFieldsCmd := &cobra.Command{
		Use:   "add-fields",
		Short: "Add any missing chat record columns to the configured table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTableBackend(cmd, true, func(ctx context.Context, _ config.Config, backend records.Backend, loc config.FeishuLocation) error {
				return runTableAddFields(ctx, backend, loc, cmd.OutOrStdout())
			})
		},
	}

	var skipProbe bool
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "List the table columns and append a probe record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTableBackend(cmd, true, func(ctx context.Context, _ config.Config, backend records.Backend, loc config.FeishuLocation) error {
				return runTableCheck(ctx, backend, loc, !skipProbe, cmd.OutOrStdout())
			})
		},
	}
	checkCmd.Flags().BoolVar(&skipProbe, "no-write", false, "Only list columns, do not append a probe record")

	cmd.AddCommand(initCmd, addFieldsCmd, checkCmd)
	return cmd
}

type tableAction func(ctx context.Context, cfg config.Config, backend records.Backend, loc config.FeishuLocation) error

// withTableBackend loads config and builds a bitable client. When needLoc is
// set the table location must resolve, and the client targets its base URL.
func withTableBackend(cmd *cobra.Command, needLoc bool, action tableAction) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.L.With(slog.String("command", cmd.Name()))

	ctx, cancel := context.WithTimeout(cmd.Context(), tableCommandTimeout)
	defer cancel()

	var loc config.FeishuLocation
	baseURL := cfg.Feishu.OpenBaseURL
	if needLoc {
		loc, err = config.ResolveFeishuLocation(cfg)
		if err != nil {
			return fmt.Errorf("resolve table location (run \"table init\" first): %w", err)
		}
		baseURL = loc.BaseURL
	}
	client, err := records.NewClient(ctx, records.Options{
		Feishu:  cfg.Feishu,
		BaseURL: baseURL,
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("build feishu client: %w", err)
	}
	return action(ctx, cfg, client, loc)
}

func runTableInit(ctx context.Context, cfg config.Config, backend records.Backend, opts records.InitOptions, out io.Writer) error {
	loc, err := records.InitTable(ctx, backend, opts)
	if err != nil {
		if loc.AppToken != "" {
			fmt.Fprintf(out, "base created but table failed: %s\n", records.AccessURL(loc.AppToken))
		}
		return err
	}
	path := cfg.LocationPath()
	if err := config.SaveFeishuLocation(path, loc); err != nil {
		return err
	}
	fmt.Fprintf(out, "app_token: %s\n", loc.AppToken)
	fmt.Fprintf(out, "table_id:  %s\n", loc.TableID)
	fmt.Fprintf(out, "url:       %s\n", records.AccessURL(loc.AppToken))
	fmt.Fprintf(out, "saved to:  %s\n", path)
	return nil
}

func runTableAddFields(ctx context.Context, backend records.Backend, loc config.FeishuLocation, out io.Writer) error {
	added, err := records.EnsureFields(ctx, backend, loc)
	for _, name := range added {
		fmt.Fprintf(out, "added: %s\n", name)
	}
	if err != nil {
		return err
	}
	if len(added) == 0 {
		fmt.Fprintln(out, "all columns present")
		return nil
	}
	fmt.Fprintf(out, "%d columns added\n", len(added))
	return nil
}

func runTableCheck(ctx context.Context, backend records.Backend, loc config.FeishuLocation, probe bool, out io.Writer) error {
	fields, err := backend.ListFields(ctx, loc)
	if err != nil {
		return fmt.Errorf("list fields: %w", err)
	}
	fmt.Fprintf(out, "table %s has %d columns\n", loc.TableID, len(fields))
	for _, f := range fields {
		fmt.Fprintf(out, "  %s (type %d)\n", f.Name, f.Type)
	}
	if missing := records.MissingColumns(fields); len(missing) > 0 {
		fmt.Fprintf(out, "missing columns: %s\n", strings.Join(missing, ", "))
	}
	if !probe {
		return nil
	}

	sink := records.NewSink(backend, loc, nil)
	res, err := sink.AppendChatRecord(ctx, records.ChatRecord{
		SessionID:       "probe-" + uuid.NewString(),
		CustomerMessage: "connectivity check",
		AIResponse:      "ok",
	})
	if err != nil {
		return fmt.Errorf("append probe record: %w", err)
	}
	fmt.Fprintf(out, "probe record appended: %s\n", strings.Join(res.RecordIDs, ", "))
	fmt.Fprintf(out, "url: %s\n", records.AccessURL(loc.AppToken))
	return nil
}
