// Package bigquery stores obligations, transactions and accounts in
// BigQuery. Change feeds are served by polling.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/store"
)

const (
	obligationsTable  = "recurring_obligations"
	transactionsTable = "transactions"
	accountsTable     = "accounts"

	defaultPollInterval = 15 * time.Second
)

// Repository is the BigQuery implementation of store.Store. It holds a
// shared client; call Close when done.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string

	obligationFeed  *store.Poller[domain.RecurringObligation]
	transactionFeed *store.Poller[domain.Transaction]
}

// Options configures NewRepository.
type Options struct {
	ProjectID    string
	DatasetID    string
	PollInterval time.Duration
	Logger       zerolog.Logger
}

// NewRepository creates a client for opts.ProjectID.
func NewRepository(ctx context.Context, opts Options) (*Repository, error) {
	if opts.ProjectID == "" || opts.DatasetID == "" {
		return nil, fmt.Errorf("NewRepository: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, opts.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return newRepository(client, opts), nil
}

func newRepository(client *bigquery.Client, opts Options) *Repository {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	r := &Repository{client: client, projectID: opts.ProjectID, datasetID: opts.DatasetID}
	r.obligationFeed = store.NewPoller(interval, r.ListObligations, opts.Logger)
	r.transactionFeed = store.NewPoller(interval, func(ctx context.Context, userID string) ([]domain.Transaction, error) {
		return r.ListTransactions(ctx, store.TransactionFilter{UserID: userID})
	}, opts.Logger)
	return r
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Client exposes the underlying client for migrations.
func (r *Repository) Client() *bigquery.Client {
	return r.client
}

func (r *Repository) table(name string) string {
	return tableRef(r.projectID, r.datasetID, name)
}

func tableRef(projectID, datasetID, name string) string {
	return fmt.Sprintf("`%s.%s.%s`", projectID, datasetID, name)
}

// runDML executes a statement and returns the number of affected rows.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job failed: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}

// readRows drains a query into a slice of T.
func readRows[T any](ctx context.Context, q *bigquery.Query) ([]T, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading query: %w", err)
	}

	var rows []T
	for {
		var row T
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

const obligationColumns = `
	obligation_id, user_id, name, description, amount, frequency, category,
	anchor_day, next_occurrence, status, owner_card_id, linked_target_id,
	created_ts, updated_ts`

// ListObligations implements store.ObligationRepository.
func (r *Repository) ListObligations(ctx context.Context, userID string) ([]domain.RecurringObligation, error) {
	q := r.client.Query(`SELECT` + obligationColumns + `
		FROM ` + r.table(obligationsTable) + `
		WHERE user_id = @user_id
		ORDER BY LOWER(name), obligation_id`)
	q.Parameters = []bigquery.QueryParameter{{Name: "user_id", Value: userID}}

	rows, err := readRows[ObligationRow](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ListObligations: %w", err)
	}

	out := make([]domain.RecurringObligation, 0, len(rows))
	for _, row := range rows {
		o, err := RowToObligation(row)
		if err != nil {
			return nil, fmt.Errorf("ListObligations: %w", err)
		}
		out = append(out, o)
	}
	return out, nil
}

// GetObligation implements store.ObligationRepository.
func (r *Repository) GetObligation(ctx context.Context, userID, id string) (*domain.RecurringObligation, error) {
	q := r.client.Query(`SELECT` + obligationColumns + `
		FROM ` + r.table(obligationsTable) + `
		WHERE user_id = @user_id AND obligation_id = @id
		LIMIT 1`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "id", Value: id},
	}

	rows, err := readRows[ObligationRow](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("GetObligation: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("obligation %s: %w", id, store.ErrNotFound)
	}
	o, err := RowToObligation(rows[0])
	if err != nil {
		return nil, fmt.Errorf("GetObligation: %w", err)
	}
	return &o, nil
}

// SaveObligation implements store.ObligationRepository with a MERGE upsert.
func (r *Repository) SaveObligation(ctx context.Context, o *domain.RecurringObligation) error {
	if o.UserID == "" {
		return fmt.Errorf("SaveObligation: user ID is required")
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	row := ObligationToRow(*o)

	q := r.client.Query(`
		MERGE ` + r.table(obligationsTable) + ` T
		USING (SELECT @obligation_id AS obligation_id) S
		ON T.obligation_id = S.obligation_id
		WHEN MATCHED THEN UPDATE SET
			user_id = @user_id,
			name = @name,
			description = NULLIF(@description, ''),
			amount = @amount,
			frequency = @frequency,
			category = @category,
			anchor_day = @anchor_day,
			next_occurrence = @next_occurrence,
			status = @status,
			owner_card_id = NULLIF(@owner_card_id, ''),
			linked_target_id = NULLIF(@linked_target_id, ''),
			updated_ts = CURRENT_TIMESTAMP()
		WHEN NOT MATCHED THEN INSERT (` + obligationColumns + `) VALUES (
			@obligation_id, @user_id, @name, NULLIF(@description, ''), @amount,
			@frequency, @category, @anchor_day, @next_occurrence, @status,
			NULLIF(@owner_card_id, ''), NULLIF(@linked_target_id, ''),
			@created_ts, CURRENT_TIMESTAMP())`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "obligation_id", Value: row.ObligationID},
		{Name: "user_id", Value: row.UserID},
		{Name: "name", Value: row.Name},
		{Name: "description", Value: row.Description.StringVal},
		{Name: "amount", Value: row.Amount},
		{Name: "frequency", Value: row.Frequency},
		{Name: "category", Value: row.Category},
		{Name: "anchor_day", Value: row.AnchorDay},
		{Name: "next_occurrence", Value: row.NextOccurrence},
		{Name: "status", Value: row.Status},
		{Name: "owner_card_id", Value: row.OwnerCardID.StringVal},
		{Name: "linked_target_id", Value: row.LinkedTargetID.StringVal},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("SaveObligation: %w", err)
	}
	return nil
}

// DeleteObligation implements store.ObligationRepository.
func (r *Repository) DeleteObligation(ctx context.Context, userID, id string) error {
	q := r.client.Query(`
		DELETE FROM ` + r.table(obligationsTable) + `
		WHERE user_id = @user_id AND obligation_id = @id`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "id", Value: id},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("DeleteObligation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("obligation %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// ListTransactions implements store.TransactionRepository.
func (r *Repository) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]domain.Transaction, error) {
	q := r.client.Query(`
		SELECT transaction_id, user_id, account_id, transaction_date, amount,
			raw_description, category_name
		FROM ` + r.table(transactionsTable) + `
		WHERE user_id = @user_id
		  AND (@account_id = '' OR account_id = @account_id)
		ORDER BY transaction_date, transaction_id`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: filter.UserID},
		{Name: "account_id", Value: filter.CardID},
	}

	rows, err := readRows[TransactionRow](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}

	out := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := RowToTransaction(row)
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// SaveTransaction implements store.TransactionRepository with a MERGE upsert.
func (r *Repository) SaveTransaction(ctx context.Context, t *domain.Transaction) error {
	if t.UserID == "" || t.CardID == "" {
		return fmt.Errorf("SaveTransaction: user ID and card ID are required")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := TransactionToRow(*t)

	q := r.client.Query(`
		MERGE ` + r.table(transactionsTable) + ` T
		USING (SELECT @transaction_id AS transaction_id) S
		ON T.transaction_id = S.transaction_id
		WHEN MATCHED THEN UPDATE SET
			user_id = @user_id,
			account_id = @account_id,
			transaction_date = @transaction_date,
			amount = @amount,
			raw_description = @raw_description,
			category_name = NULLIF(@category_name, '')
		WHEN NOT MATCHED THEN INSERT (
			transaction_id, user_id, account_id, transaction_date, amount,
			raw_description, category_name
		) VALUES (
			@transaction_id, @user_id, @account_id, @transaction_date, @amount,
			@raw_description, NULLIF(@category_name, ''))`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "user_id", Value: row.UserID},
		{Name: "account_id", Value: row.AccountID},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "amount", Value: row.Amount},
		{Name: "raw_description", Value: row.RawDescription},
		{Name: "category_name", Value: row.CategoryName.StringVal},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("SaveTransaction: %w", err)
	}
	return nil
}

// DeleteTransaction implements store.TransactionRepository.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	q := r.client.Query(`
		DELETE FROM ` + r.table(transactionsTable) + `
		WHERE user_id = @user_id AND transaction_id = @id`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "id", Value: id},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// GetAccount implements store.AccountRepository.
func (r *Repository) GetAccount(ctx context.Context, userID, id string) (*domain.Account, error) {
	q := r.client.Query(`
		SELECT account_id, user_id, account_name, account_type
		FROM ` + r.table(accountsTable) + `
		WHERE user_id = @user_id AND account_id = @id
		LIMIT 1`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "id", Value: id},
	}

	rows, err := readRows[AccountRow](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("account %s: %w", id, store.ErrNotFound)
	}
	a, err := RowToAccount(rows[0])
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	return &a, nil
}

// ListAccounts implements store.AccountRepository.
func (r *Repository) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	q := r.client.Query(`
		SELECT account_id, user_id, account_name, account_type
		FROM ` + r.table(accountsTable) + `
		WHERE user_id = @user_id
		ORDER BY account_id`)
	q.Parameters = []bigquery.QueryParameter{{Name: "user_id", Value: userID}}

	rows, err := readRows[AccountRow](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}

	out := make([]domain.Account, 0, len(rows))
	for _, row := range rows {
		a, err := RowToAccount(row)
		if err != nil {
			return nil, fmt.Errorf("ListAccounts: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// SaveAccount implements store.AccountRepository with a MERGE upsert.
func (r *Repository) SaveAccount(ctx context.Context, a *domain.Account) error {
	if a.UserID == "" {
		return fmt.Errorf("SaveAccount: user ID is required")
	}
	if _, ok := domain.ParseAccountType(string(a.Type)); !ok {
		return fmt.Errorf("SaveAccount: invalid account type %q", a.Type)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := AccountToRow(*a)

	q := r.client.Query(`
		MERGE ` + r.table(accountsTable) + ` T
		USING (SELECT @account_id AS account_id) S
		ON T.account_id = S.account_id
		WHEN MATCHED THEN UPDATE SET
			user_id = @user_id, account_name = @account_name, account_type = @account_type
		WHEN NOT MATCHED THEN INSERT (account_id, user_id, account_name, account_type)
			VALUES (@account_id, @user_id, @account_name, @account_type)`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: row.AccountID},
		{Name: "user_id", Value: row.UserID},
		{Name: "account_name", Value: row.AccountName},
		{Name: "account_type", Value: row.AccountType},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("SaveAccount: %w", err)
	}
	return nil
}

// SubscribeObligations implements store.ObligationFeed by polling.
func (r *Repository) SubscribeObligations(userID string, onData func([]domain.RecurringObligation)) store.Unsubscribe {
	return r.obligationFeed.Subscribe(userID, onData)
}

// SubscribeTransactions implements store.TransactionFeed by polling.
func (r *Repository) SubscribeTransactions(userID string, onData func([]domain.Transaction)) store.Unsubscribe {
	return r.transactionFeed.Subscribe(userID, onData)
}

var _ store.Store = (*Repository)(nil)
