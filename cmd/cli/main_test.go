package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledgerplan/internal/app"
	"github.com/dvloznov/ledgerplan/internal/clock"
	"github.com/dvloznov/ledgerplan/internal/config"
	"github.com/dvloznov/ledgerplan/internal/store"
)

func newTestEnv(t *testing.T) (*cliEnv, *bytes.Buffer) {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) string { return "" })
	require.NoError(t, err)
	backend, err := app.Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	var out bytes.Buffer
	return &cliEnv{
		cfg:     cfg,
		log:     zerolog.Nop(),
		backend: backend,
		clock:   clock.NewFixedDate(civil.Date{Year: 2026, Month: time.March, Day: 22}),
		out:     &out,
	}, &out
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

const bills = "Company,Amount,Frequency,Category,Date\n" +
	"Netflix,£12.99,Monthly,Entertainment,15\n" +
	",£5,Monthly,Other,1\n" +
	"Gym,£30.00,Monthly,Health,1\n"

func TestImportPreviewThenCommit(t *testing.T) {
	env, out := newTestEnv(t)
	ctx := context.Background()
	file := writeFile(t, "bills.csv", bills)

	require.NoError(t, runImport(ctx, env, []string{"-user", "u1", "-file", file}))
	assert.Contains(t, out.String(), "Records:    2")
	assert.Contains(t, out.String(), "line 3 skipped")
	assert.Contains(t, out.String(), "Nothing saved")
	list, _ := env.backend.Store.ListObligations(ctx, "u1")
	assert.Empty(t, list)

	out.Reset()
	require.NoError(t, runImport(ctx, env, []string{"-user", "u1", "-file", file, "-commit", "non_duplicates"}))
	assert.Contains(t, out.String(), "Saved 2 of 2")

	out.Reset()
	require.NoError(t, runCalendar(ctx, env, []string{"-user", "u1", "-months", "1"}))
	assert.Contains(t, out.String(), "01/03/2026  Gym")
	assert.Contains(t, out.String(), "15/03/2026  Netflix")
	assert.Contains(t, out.String(), "Total: £42.99")

	err := runImport(ctx, env, []string{"-file", file})
	assert.ErrorIs(t, err, errUsage)
	err = runImport(ctx, env, []string{"-user", "u1", "-file", file, "-commit", "some"})
	assert.ErrorIs(t, err, errUsage)
}

func TestStatementsAndExport(t *testing.T) {
	env, out := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, runAccount(ctx, env, []string{"-user", "u1", "-id", "c1", "-name", "Amex", "-type", "credit"}))
	assert.ErrorIs(t, runAccount(ctx, env, []string{"-user", "u1", "-type", "savings"}), errUsage)

	csvFile := writeFile(t, "feb.csv", "Date,Description,Category,Amount,Type\n"+
		"03/02/2026,Tesco,Groceries,-40.00,Expense\n"+
		"10/02/2026,Refund,Shopping,5.00,Income\n"+
		"04/03/2026,Shell,Transport,-60.00,Expense\n")
	require.NoError(t, runTransactions(ctx, env, []string{"-user", "u1", "-card", "c1", "-file", csvFile}))
	require.NoError(t, runTransactions(ctx, env, []string{"-user", "u1", "-card", "c1", "-file", csvFile}))
	txs, err := env.backend.Store.ListTransactions(ctx, storeFilter("u1", "c1"))
	require.NoError(t, err)
	assert.Len(t, txs, 3, "reloading the same file is idempotent")

	out.Reset()
	require.NoError(t, runStatements(ctx, env, []string{"-user", "u1", "-card", "c1"}))
	assert.Contains(t, out.String(), "2026-03")
	assert.Contains(t, out.String(), "2026-02  out     £40.00")
	assert.Contains(t, out.String(), "due 25/03/2026")

	dir := t.TempDir()
	out.Reset()
	require.NoError(t, runExport(ctx, env, []string{"-user", "u1", "-card", "c1", "-period", "2026-02", "-out", dir}))
	data, err := os.ReadFile(filepath.Join(dir, "statement-c1-2026-02.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Date,Description,Category,Amount,Type\n"))
	assert.Contains(t, string(data), "03/02/2026,Tesco,Groceries,-40.00,Expense")

	out.Reset()
	require.NoError(t, runExport(ctx, env, []string{"-user", "u1", "-card", "c1", "-period", "2026-03"}))
	assert.Contains(t, out.String(), "Shell")

	assert.Error(t, runExport(ctx, env, []string{"-user", "u1", "-card", "c1", "-period", "2025-12"}))
	assert.Error(t, runExport(ctx, env, []string{"-user", "u1", "-card", "c1", "-period", "2026-02", "-out", "gs://bucket/"}))
}

func TestUploadRequiresGCS(t *testing.T) {
	env, _ := newTestEnv(t)
	err := runUpload(context.Background(), env, []string{"-file", "x.csv"})
	assert.ErrorContains(t, err, "GCS is not configured")
}

func TestWatchPrintsUntilCancelled(t *testing.T) {
	env, out := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, runWatch(ctx, env, []string{"-user", "u1"}))
	assert.Contains(t, out.String(), "--- update 2")
}

func TestFindCommand(t *testing.T) {
	_, ok := findCommand("import")
	assert.True(t, ok)
	_, ok = findCommand("reparse")
	assert.False(t, ok)

	var buf bytes.Buffer
	printUsage(&buf)
	for _, c := range commands {
		assert.Contains(t, buf.String(), c.name)
	}
}

func storeFilter(userID, cardID string) store.TransactionFilter {
	return store.TransactionFilter{UserID: userID, CardID: cardID}
}
