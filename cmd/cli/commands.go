package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledgerplan/internal/app"
	"github.com/dvloznov/ledgerplan/internal/clock"
	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/gcs"
	"github.com/dvloznov/ledgerplan/internal/live"
	"github.com/dvloznov/ledgerplan/internal/normalize"
	"github.com/dvloznov/ledgerplan/internal/pipeline"
	"github.com/dvloznov/ledgerplan/internal/recurrence"
	"github.com/dvloznov/ledgerplan/internal/statement"
	"github.com/dvloznov/ledgerplan/internal/store"
)

var errUsage = errors.New("invalid arguments")

func newFlagSet(env *cliEnv, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.out)
	return fs
}

func required(fs *flag.FlagSet, names ...string) error {
	for _, n := range names {
		if f := fs.Lookup(n); f == nil || f.Value.String() == "" {
			return fmt.Errorf("%w: -%s is required", errUsage, n)
		}
	}
	return nil
}

func (env *cliEnv) money(d decimal.Decimal) string {
	return normalize.FormatAmount(d, env.cfg.CurrencySymbol)
}

func runImport(ctx context.Context, env *cliEnv, args []string) error {
	fs := newFlagSet(env, "import")
	userID := fs.String("user", "", "User ID")
	cardID := fs.String("card", "", "Card that pays these obligations (optional)")
	file := fs.String("file", "", "Local path or gs:// URI of the file")
	commit := fs.String("commit", "", "Commit mode after preview: all or non_duplicates")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "user", "file"); err != nil {
		return err
	}

	req := pipeline.ImportRequest{UserID: *userID, CardID: *cardID}
	if gcs.IsURI(*file) {
		req.URI = *file
	} else {
		data, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("runImport: reading file: %w", err)
		}
		req.Data = data
		req.Filename = filepath.Base(*file)
	}

	svc := app.NewImportService(env.backend, env.cfg, env.clock, env.log)
	p, err := svc.Preview(ctx, req)
	if err != nil {
		return fmt.Errorf("runImport: %w", err)
	}

	fmt.Fprintf(env.out, "\n=== Preview: %s (%s) ===\n", p.Filename, p.Source)
	fmt.Fprintf(env.out, "Batch:      %s\n", p.BatchID)
	fmt.Fprintf(env.out, "Records:    %d\n", len(p.Drafts))
	fmt.Fprintf(env.out, "Duplicates: %d\n", len(p.Duplicates))
	fmt.Fprintf(env.out, "Skipped:    %d\n", len(p.Skipped))
	for _, d := range p.Drafts {
		o := d.Obligation
		fmt.Fprintf(env.out, "  %-24s %10s  %-9s %-15s day %d\n", o.Name, env.money(o.Amount), o.Frequency, o.Category, o.AnchorDay)
	}
	for _, d := range p.Duplicates {
		fmt.Fprintf(env.out, "  duplicate: %s %s\n", d.Obligation.Name, env.money(d.Obligation.Amount))
	}
	for _, s := range p.Skipped {
		fmt.Fprintf(env.out, "  line %d skipped: %s\n", s.Line, s.Reason)
	}

	if *commit == "" {
		fmt.Fprintln(env.out, "\nNothing saved. Re-run with -commit all or -commit non_duplicates.")
		return nil
	}
	mode, err := pipeline.ParseMode(*commit)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	res, err := svc.Commit(ctx, p, mode)
	if err != nil {
		return fmt.Errorf("runImport: %w", err)
	}
	fmt.Fprintf(env.out, "\nSaved %d of %d (%d duplicates skipped, %d already imported, %d failed).\n",
		res.Succeeded, res.Attempted+res.SkippedDuplicates+res.AlreadyImported,
		res.SkippedDuplicates, res.AlreadyImported, res.Failed)
	for _, f := range res.Failures {
		fmt.Fprintf(env.out, "  line %d %s: %s\n", f.Line, f.Name, f.Error)
	}
	return nil
}

func runCalendar(ctx context.Context, env *cliEnv, args []string) error {
	fs := newFlagSet(env, "calendar")
	userID := fs.String("user", "", "User ID")
	months := fs.Int("months", live.DefaultMonths, "Months to project, starting this month")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "user"); err != nil {
		return err
	}
	if *months < 1 {
		return fmt.Errorf("%w: -months must be positive", errUsage)
	}

	list, err := env.backend.Store.ListObligations(ctx, *userID)
	if err != nil {
		return fmt.Errorf("runCalendar: %w", err)
	}
	printCalendar(env, recurrence.Upcoming(list, clock.Today(env.clock), *months))
	return nil
}

func printCalendar(env *cliEnv, occ []recurrence.Occurrence) {
	fmt.Fprintf(env.out, "\n=== Upcoming payments (%d) ===\n", len(occ))
	total := decimal.Zero
	for _, o := range occ {
		fmt.Fprintf(env.out, "%s  %-24s %-15s %10s\n", normalize.FormatDate(o.Date), o.Name, o.Category, env.money(o.Amount))
		total = total.Add(o.Amount)
	}
	fmt.Fprintf(env.out, "Total: %s\n", env.money(total))
}

func loadCard(ctx context.Context, env *cliEnv, userID, cardID string) (*domain.Account, []domain.Transaction, error) {
	account, err := env.backend.Store.GetAccount(ctx, userID, cardID)
	if err != nil {
		return nil, nil, err
	}
	txs, err := env.backend.Store.ListTransactions(ctx, store.TransactionFilter{UserID: userID, CardID: cardID})
	if err != nil {
		return nil, nil, err
	}
	return account, txs, nil
}

func runStatements(ctx context.Context, env *cliEnv, args []string) error {
	fs := newFlagSet(env, "statements")
	userID := fs.String("user", "", "User ID")
	cardID := fs.String("card", "", "Card ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "user", "card"); err != nil {
		return err
	}

	account, txs, err := loadCard(ctx, env, *userID, *cardID)
	if err != nil {
		return fmt.Errorf("runStatements: %w", err)
	}
	printStatements(env, *account, statement.AvailableStatements(txs, *account, clock.Today(env.clock)))
	return nil
}

func printStatements(env *cliEnv, account domain.Account, stmts []domain.MonthlyStatement) {
	fmt.Fprintf(env.out, "\n=== Statements for %s (%s, %d) ===\n", account.ID, account.Type, len(stmts))
	for _, s := range stmts {
		fmt.Fprintf(env.out, "%s  out %10s  in %10s  net %10s  %d txns", s.Period,
			env.money(s.TotalOutflow), env.money(s.TotalInflow), env.money(s.NetChange), len(s.Transactions))
		if s.MinimumPayment != nil && s.DueDate != nil {
			fmt.Fprintf(env.out, "  min %s due %s", env.money(*s.MinimumPayment), normalize.FormatDate(*s.DueDate))
		}
		fmt.Fprintln(env.out)
	}
}

func runExport(ctx context.Context, env *cliEnv, args []string) error {
	fs := newFlagSet(env, "export")
	userID := fs.String("user", "", "User ID")
	cardID := fs.String("card", "", "Card ID")
	periodStr := fs.String("period", "", "Statement month, YYYY-MM")
	out := fs.String("out", "-", "Destination: - for stdout, a file or directory path, or a gs:// URI")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "user", "card", "period"); err != nil {
		return err
	}
	period, err := domain.ParsePeriod(*periodStr)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	account, txs, err := loadCard(ctx, env, *userID, *cardID)
	if err != nil {
		return fmt.Errorf("runExport: %w", err)
	}
	s, ok := statement.Find(statement.Build(txs, *account, clock.Today(env.clock)), period)
	if !ok {
		return fmt.Errorf("runExport: no transactions in %s", period)
	}
	if s.Availability != domain.AvailabilityAvailable {
		return fmt.Errorf("runExport: statement %s is not available yet", period)
	}

	var buf bytes.Buffer
	if err := statement.WriteCSV(&buf, s); err != nil {
		return fmt.Errorf("runExport: %w", err)
	}

	dest := *out
	switch {
	case dest == "-":
		_, err = io.Copy(env.out, &buf)
		return err
	case gcs.IsURI(dest):
		if env.backend.Files == nil {
			return fmt.Errorf("runExport: GCS is not configured (set GCS_BUCKET)")
		}
		if strings.HasSuffix(dest, "/") {
			dest += statement.ExportFilename(s)
		}
		if err := env.backend.Files.Upload(ctx, dest, "text/csv", &buf); err != nil {
			return fmt.Errorf("runExport: %w", err)
		}
	default:
		if info, statErr := os.Stat(dest); statErr == nil && info.IsDir() {
			dest = filepath.Join(dest, statement.ExportFilename(s))
		}
		if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("runExport: %w", err)
		}
	}
	fmt.Fprintf(env.out, "Exported %d transactions to %s\n", len(s.Transactions), dest)
	return nil
}

func runAccount(ctx context.Context, env *cliEnv, args []string) error {
	fs := newFlagSet(env, "account")
	userID := fs.String("user", "", "User ID")
	id := fs.String("id", "", "Card ID (generated when empty)")
	name := fs.String("name", "", "Display name")
	kind := fs.String("type", "", "credit or debit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "user", "type"); err != nil {
		return err
	}
	t, ok := domain.ParseAccountType(*kind)
	if !ok {
		return fmt.Errorf("%w: -type must be credit or debit", errUsage)
	}

	a := &domain.Account{ID: *id, UserID: *userID, Name: *name, Type: t}
	if err := env.backend.Store.SaveAccount(ctx, a); err != nil {
		return fmt.Errorf("runAccount: %w", err)
	}
	fmt.Fprintf(env.out, "Saved %s card %s\n", a.Type, a.ID)
	return nil
}

// transactionNamespace keys IDs of transactions loaded from CSV, so
// loading the same file twice overwrites instead of duplicating.
var transactionNamespace = uuid.MustParse("0b7e4f52-8d1c-5a36-b2e9-4c6f1d3a8e70")

func runTransactions(ctx context.Context, env *cliEnv, args []string) error {
	fs := newFlagSet(env, "transactions")
	userID := fs.String("user", "", "User ID")
	cardID := fs.String("card", "", "Card ID")
	file := fs.String("file", "", "Statement CSV (Date,Description,Category,Amount,Type)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "user", "card", "file"); err != nil {
		return err
	}

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("runTransactions: %w", err)
	}
	defer f.Close()

	txs, err := statement.ReadCSV(f, *userID, *cardID)
	if err != nil {
		return fmt.Errorf("runTransactions: %w", err)
	}
	for i := range txs {
		tx := &txs[i]
		key := fmt.Sprintf("%s|%s|%d|%s|%s|%s", tx.UserID, tx.CardID, i, tx.Date, tx.Amount, tx.Description)
		tx.ID = uuid.NewSHA1(transactionNamespace, []byte(key)).String()
		if err := env.backend.Store.SaveTransaction(ctx, tx); err != nil {
			return fmt.Errorf("runTransactions: %w", err)
		}
	}
	fmt.Fprintf(env.out, "Loaded %d transactions onto %s\n", len(txs), *cardID)
	return nil
}

func runUpload(ctx context.Context, env *cliEnv, args []string) error {
	fs := newFlagSet(env, "upload")
	file := fs.String("file", "", "Local file to upload")
	uri := fs.String("uri", "", "Destination gs:// URI (default gs://$GCS_BUCKET/uploads/<date>/<file>)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "file"); err != nil {
		return err
	}
	if env.backend.Files == nil {
		return fmt.Errorf("runUpload: GCS is not configured (set GCS_BUCKET)")
	}

	dest := *uri
	if dest == "" {
		if env.cfg.GCSBucket == "" {
			return fmt.Errorf("%w: -uri or GCS_BUCKET is required", errUsage)
		}
		object := fmt.Sprintf("uploads/%s/%s", env.clock.Now().Format("2006/01/02"), filepath.Base(*file))
		dest = gcs.ObjectURI(env.cfg.GCSBucket, object)
	}

	if err := env.backend.Files.UploadFile(ctx, dest, *file); err != nil {
		return fmt.Errorf("runUpload: %w", err)
	}
	fmt.Fprintf(env.out, "Uploaded %s to %s\n", *file, dest)
	return nil
}

func runWatch(ctx context.Context, env *cliEnv, args []string) error {
	fs := newFlagSet(env, "watch")
	userID := fs.String("user", "", "User ID")
	months := fs.Int("months", live.DefaultMonths, "Months to project")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "user"); err != nil {
		return err
	}

	accounts, err := env.backend.Store.ListAccounts(ctx, *userID)
	if err != nil {
		return fmt.Errorf("runWatch: %w", err)
	}

	board := live.NewBoard(live.Config{
		Feed:     env.backend.Store,
		UserID:   *userID,
		Accounts: accounts,
		Months:   *months,
		Clock:    env.clock,
		Logger:   env.log,
		OnChange: func(s live.Snapshot) {
			fmt.Fprintf(env.out, "\n--- update %d at %s ---\n", s.Version, s.UpdatedAt.Format(time.RFC3339))
			printCalendar(env, s.Calendar)
			for _, a := range accounts {
				printStatements(env, a, s.Statements[a.ID])
			}
		},
	})
	board.Start()
	defer board.Stop()

	<-ctx.Done()
	return nil
}
