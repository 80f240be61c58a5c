package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"bajeti/internal/auth"
	"bajeti/internal/config"
	"bajeti/internal/core"
	"bajeti/internal/log"
	"bajeti/internal/report"
	"bajeti/internal/services"
	"bajeti/internal/sheets"
	gsheet "bajeti/internal/sheets/google"
	"bajeti/internal/storage"
)

// App holds what the commands need. The Open functions are resolved lazily
// so that commands which do not touch a store never open one.
type App struct {
	Out    io.Writer
	Config *config.Config
	Logger *log.Logger
	Now    func() time.Time

	OpenStore  func(ctx context.Context) (storage.Store, func() error, error)
	OpenLedger func(ctx context.Context) (sheets.LedgerReader, error)
}

// NewApp wires the configured backend and spreadsheet.
func NewApp(cfg *config.Config, logger *log.Logger, out io.Writer) *App {
	return &App{
		Out:    out,
		Config: cfg,
		Logger: logger,
		Now:    time.Now,
		OpenStore: func(ctx context.Context) (storage.Store, func() error, error) {
			res, err := OpenBackend(ctx, cfg, logger)
			if err != nil {
				return nil, nil, err
			}
			return res.Store, res.Cleanup, nil
		},
		OpenLedger: func(ctx context.Context) (sheets.LedgerReader, error) {
			return gsheet.New(ctx, gsheet.Config{
				SpreadsheetID:   cfg.GoogleSpreadsheetID,
				SheetName:       cfg.GoogleSheetName,
				CredentialsJSON: cfg.GoogleServiceAccountJSON,
				CredentialsFile: cfg.GoogleServiceAccountFile,
			})
		},
	}
}

func (a *App) withStore(ctx context.Context, fn func(storage.Store) error) error {
	store, cleanup, err := a.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(store)
}

// NewRootCommand builds the bajeti-cli command tree.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "bajeti-cli",
		Short:         "Administer bajeti and report on budgets from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.Out)
	root.AddCommand(
		newMigrateCommand(app),
		newCreateUserCommand(app),
		newOverviewCommand(app),
		newStatsCommand(app),
		newLedgerCommand(app),
	)
	return root
}

func newMigrateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// opening a sqlite or auto-migrating postgres store applies the schema
			app.Config.PostgresAutoMigrate = true
			return app.withStore(cmd.Context(), func(s storage.Store) error {
				if err := s.Ping(cmd.Context()); err != nil {
					return fmt.Errorf("ping store: %w", err)
				}
				pterm.Fprintln(app.Out, pterm.Success.Sprintf("Schema up to date (%s backend)", app.Config.DataBackend))
				return nil
			})
		},
	}
}

func newCreateUserCommand(app *App) *cobra.Command {
	var r auth.Registration
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register a user with its Monthly budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withStore(cmd.Context(), func(s storage.Store) error {
				svc := auth.NewService(s, auth.NewTokens(app.Config.JWTSecret, app.Config.AccessTokenTTL)).
					WithCost(app.Config.BcryptCost)
				u, err := svc.Register(cmd.Context(), r)
				if err != nil {
					return fmt.Errorf("create user: %s", core.Detail(err, err.Error()))
				}
				pterm.Fprintln(app.Out, pterm.Success.Sprintf("Created user %d <%s>", u.ID, u.Email))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&r.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&r.Password, "password", "", "password, at least 8 characters (required)")
	cmd.Flags().StringVar(&r.FirstName, "first-name", "", "first name (required)")
	cmd.Flags().StringVar(&r.LastName, "last-name", "", "last name (required)")
	cmd.Flags().StringVar(&r.SecurityAnswer, "security-answer", "", "answer used to reset the password (required)")
	for _, name := range []string{"email", "password", "first-name", "last-name", "security-answer"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// outputFlags are shared by the report commands.
type outputFlags struct {
	email  string
	month  string
	format string
	output string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.email, "email", "", "user email (required)")
	cmd.Flags().StringVar(&o.month, "month", "", "month as YYYY-MM (default current month)")
	cmd.Flags().StringVarP(&o.format, "format", "f", "table", "output format: table, json, csv, pdf or xlsx")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "directory for report files")
	_ = cmd.MarkFlagRequired("email")
}

func (o *outputFlags) resolve(app *App) (report.Format, string, error) {
	format, err := report.ParseFormat(o.format)
	if err != nil {
		return "", "", err
	}
	month, err := core.ResolveMonth(o.month, app.Now().UTC())
	if err != nil {
		return "", "", fmt.Errorf("--month: %s", core.Detail(err, "invalid month"))
	}
	return format, month, nil
}

func findUser(ctx context.Context, s storage.Store, email string) (core.User, error) {
	u, err := s.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("no user with email %s", email)
	}
	return u, err
}

func (a *App) printPath(path string) {
	if path != "" {
		pterm.Fprintln(a.Out, pterm.Success.Sprintf("Report written to %s", path))
	}
}

func newOverviewCommand(app *App) *cobra.Command {
	var flags outputFlags
	var budgetID int64
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Show how a budget's allocations were used in a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, month, err := flags.resolve(app)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return app.withStore(ctx, func(s storage.Store) error {
				u, err := findUser(ctx, s, flags.email)
				if err != nil {
					return err
				}
				svc := services.New(services.Deps{Store: s, Now: app.Now})
				if budgetID == 0 {
					b, err := svc.Budgets.Current(ctx, u.ID)
					if err != nil {
						return fmt.Errorf("current budget: %s", core.Detail(err, err.Error()))
					}
					budgetID = b.ID
				}
				ov, err := svc.Reports.BudgetOverview(ctx, u.ID, budgetID, month)
				if err != nil {
					return fmt.Errorf("overview: %s", core.Detail(err, err.Error()))
				}
				path, err := report.NewRenderer(app.Out, flags.output).Overview(ov, format)
				app.printPath(path)
				return err
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().Int64Var(&budgetID, "budget", 0, "budget id (default the current budget)")
	return cmd
}

func newStatsCommand(app *App) *cobra.Command {
	var flags outputFlags
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show spending, transfers and balance per expense category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, month, err := flags.resolve(app)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return app.withStore(ctx, func(s storage.Store) error {
				u, err := findUser(ctx, s, flags.email)
				if err != nil {
					return err
				}
				svc := services.New(services.Deps{Store: s, Now: app.Now})
				stats, err := svc.Reports.CategoryStatsForMonth(ctx, u.ID, month)
				if err != nil {
					return fmt.Errorf("stats: %w", err)
				}
				path, err := report.NewRenderer(app.Out, flags.output).Stats(stats, month, format)
				app.printPath(path)
				return err
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newLedgerCommand(app *App) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List the ledger events exported to the spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if year == 0 {
				year = app.Now().UTC().Year()
			}
			reader, err := app.OpenLedger(cmd.Context())
			if err != nil {
				return err
			}
			events, err := reader.ListEvents(cmd.Context(), year)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				pterm.Fprintln(app.Out, pterm.Info.Sprintf("No ledger events for %d", year))
				return nil
			}
			data := pterm.TableData{{"Occurred", "Kind", "User", "Category", "Description", "Amount"}}
			for _, e := range events {
				data = append(data, []string{
					e.OccurredAt.UTC().Format("2006-01-02 15:04"),
					e.Kind,
					strconv.FormatInt(e.UserID, 10),
					e.Category,
					e.Description,
					e.Amount,
				})
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
			if err != nil {
				return err
			}
			pterm.Fprintln(app.Out, table)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year of the ledger sheet (default current year)")
	return cmd
}
