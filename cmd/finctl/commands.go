package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"finmanager/internal/amqp"
	"finmanager/internal/config"
	"finmanager/internal/database"
	"finmanager/internal/logger"
	"finmanager/internal/middleware"
	"finmanager/internal/notification"
	"finmanager/internal/server"
	"finmanager/internal/services"
)

// dbOpener returns a migrated database handle and a func releasing it.
type dbOpener func(cfg *config.Config) (*gorm.DB, func() error, error)

func openDatabase(cfg *config.Config) (*gorm.DB, func() error, error) {
	m, err := database.NewManager(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := m.Migrate(); err != nil {
		_ = m.Close()
		return nil, nil, err
	}
	return m.DB(), m.Close, nil
}

// cli carries state shared by the subcommands of one invocation.
type cli struct {
	open    dbOpener
	cfg     *config.Config
	svcs    *server.Services
	closers []func() error
}

func newRootCmd(open dbOpener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "finctl",
		Short:         "Operate a finmanager ledger from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger.Init(os.Getenv("ENV"))
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			c.cfg = cfg
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return c.close()
		},
	}

	root.AddCommand(c.importCmd())
	root.AddCommand(c.reportCmd())
	root.AddCommand(c.checkCmd())
	root.AddCommand(c.tokenCmd())
	return root
}

// services opens the database on first use.
func (c *cli) services() (*server.Services, error) {
	if c.svcs != nil {
		return c.svcs, nil
	}

	db, closeDB, err := c.open(c.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	c.closers = append(c.closers, closeDB)

	var publisher notification.Publisher
	if c.cfg.AMQPURL != "" {
		client, err := amqp.NewClient(c.cfg.AMQPURL, c.cfg.AMQPExchange, c.cfg.AMQPRoutingKey)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
		}
		c.closers = append(c.closers, client.Close)
		publisher = client
	}

	c.svcs = server.NewServices(db, notification.NewStore(), c.cfg, publisher)
	return c.svcs, nil
}

func (c *cli) close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) importCmd() *cobra.Command {
	var defaultCategory string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import transactions from a CSV file",
		Long: `Import transactions from a CSV file with the columns
date,amount,description[,category[,type]]. A first line containing "date"
is treated as a header.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := c.services()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			var categoryID *string
			if defaultCategory != "" {
				categoryID = &defaultCategory
			}

			result, err := svcs.Imports.ImportCSV(cmd.Context(), f, categoryID)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}

	cmd.Flags().StringVar(&defaultCategory, "default-category", "", "category id for lines without a category column")
	return cmd
}

func (c *cli) reportCmd() *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "report [current-month|last-month|last-days N]",
		Short: "Print a financial summary",
		Long: `Print a financial summary for the current month, the last month,
the last N days, or the window given by --start and --end.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := c.services()
			if err != nil {
				return err
			}

			summary, err := summaryFor(svcs.Reports, args, start, end)
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "window start (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&end, "end", "", "window end (YYYY-MM-DD or RFC3339, inclusive)")
	return cmd
}

func summaryFor(reports services.ReportServicer, args []string, start, end string) (*services.FinancialSummary, error) {
	if len(args) == 0 {
		if start == "" || end == "" {
			return reports.GetCurrentMonthSummary()
		}
		from, err := parseFlagTime(start, false)
		if err != nil {
			return nil, fmt.Errorf("invalid --start: %w", err)
		}
		to, err := parseFlagTime(end, true)
		if err != nil {
			return nil, fmt.Errorf("invalid --end: %w", err)
		}
		return reports.GetSummary(from, to)
	}

	switch args[0] {
	case "current-month":
		return reports.GetCurrentMonthSummary()
	case "last-month":
		return reports.GetLastMonthSummary()
	case "last-days":
		if len(args) != 2 {
			return nil, fmt.Errorf("last-days needs a day count")
		}
		days, err := strconv.Atoi(args[1])
		if err != nil || days < 0 {
			return nil, fmt.Errorf("invalid day count %q", args[1])
		}
		return reports.GetLastNDaysSummary(days)
	default:
		return nil, fmt.Errorf("unknown report %q (use current-month, last-month, or last-days)", args[0])
	}
}

// parseFlagTime accepts RFC3339 or a bare date. A bare date used as an upper
// bound covers the whole day.
func parseFlagTime(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// scanFunc runs one notification scan and reports how many notifications it
// created.
type scanFunc func(ctx context.Context, n services.NotificationServicer) (int, error)

func (c *cli) checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a notification scan once",
	}

	cmd.AddCommand(c.scanCmd("budgets", "Notify about active budgets over their threshold",
		func(ctx context.Context, n services.NotificationServicer) (int, error) {
			return n.CheckBudgetThresholds(ctx)
		}))
	cmd.AddCommand(c.scanCmd("goals", "Remind about active saving goals",
		func(ctx context.Context, n services.NotificationServicer) (int, error) {
			return n.CheckSavingGoalContributions(ctx)
		}))
	return cmd
}

func (c *cli) scanCmd(use, short string, scan scanFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svcs, err := c.services()
			if err != nil {
				return err
			}
			created, err := scan(cmd.Context(), svcs.Notifications)
			if err != nil {
				return err
			}
			logger.Get().Infow("scan finished", "scan", use, "created", created)
			return printJSON(cmd, svcs.Notifications.GetUnread())
		},
	}
}

func (c *cli) tokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ttl == 0 {
				ttl = c.cfg.JWTExpirationDur
			}
			token, err := middleware.GenerateToken(c.cfg.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "finctl", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_EXPIRES_IN)")
	return cmd
}
