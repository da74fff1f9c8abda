package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"agency-sync-server/internal/config"
	"agency-sync-server/internal/logger"
	"agency-sync-server/internal/service"
	"agency-sync-server/internal/store"

	"github.com/spf13/cobra"
)

const commandTimeout = 2 * time.Minute

// withStore runs fn against an initialized store. Commands refuse to work
// on seed fallback data, which would be written over the real document.
func withStore(fn func(ctx context.Context, cfg *config.Config, s *store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	s, err := openStore(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.Degraded() {
		return errors.New("remote document unavailable")
	}
	return fn(ctx, cfg, s)
}

func runSync(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, cfg *config.Config, s *store.Store) error {
		svc := service.NewSyncService(s,
			service.WithWindow(cfg.Sync.ThrottleWindow),
			service.WithLogger(logger.For("sync")),
		)
		rollup, err := svc.SyncAllData(ctx, forceSync)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rollup)
	})
}

func runReport(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, cfg *config.Config, s *store.Store) error {
		svc := service.NewSyncService(s)
		return printReport(cmd.OutOrStdout(), service.GenerateReport(svc.Current()))
	})
}

func runSeed(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, cfg *config.Config, s *store.Store) error {
		fmt.Fprintf(cmd.OutOrStdout(), "document ready at revision %s\n", s.Revision())
		return nil
	})
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, report service.Report) error {
	if report.GeneratedAt == 0 {
		fmt.Fprintln(w, "no rollup has been computed yet; run `sync` first")
		return nil
	}
	fmt.Fprintf(w, "Report as of %s\n", time.UnixMilli(report.GeneratedAt).Format(time.RFC3339))
	for _, line := range report.Summary {
		fmt.Fprintf(w, "  - %s\n", line)
	}
	fmt.Fprintln(w, "Health:")
	fmt.Fprintf(w, "  financial health:      %s\n", flag(report.Health.FinancialHealth))
	fmt.Fprintf(w, "  application backlog:   %s\n", flag(report.Health.ApplicationBacklog))
	fmt.Fprintf(w, "  communication backlog: %s\n", flag(report.Health.CommunicationBacklog))
	fmt.Fprintf(w, "  content active:        %s\n", flag(report.Health.ContentActive))
	return nil
}

func flag(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
