package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/luminahr/formpipe"
	"go.uber.org/zap"
)

// DB is the subset of pgxpool.Pool the persistence layer needs. pgxmock
// satisfies it for unit tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	submissionColumnsCount = 4
	responseColumnsCount   = 3

	defaultResponseBatchSize = 500
)

// PostgresGateway implements the PersistenceGateway contract over the
// submissions/responses tables.
type PostgresGateway struct {
	db                DB
	responseBatchSize int
}

// NewPostgresGateway creates a gateway over db. A non-positive batch size
// falls back to 500 rows per response insert.
func NewPostgresGateway(db DB, responseBatchSize int) *PostgresGateway {
	if responseBatchSize <= 0 {
		responseBatchSize = defaultResponseBatchSize
	}
	return &PostgresGateway{db: db, responseBatchSize: responseBatchSize}
}

// Begin opens one chunk-scoped transaction.
func (g *PostgresGateway) Begin(ctx context.Context) (formpipe.ImportTx, error) {
	tx, err := g.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &pgImportTx{tx: tx, responseBatchSize: g.responseBatchSize}, nil
}

// InsertSubmission inserts one submission immediately and returns its
// generated identifier. Streaming import path.
func (g *PostgresGateway) InsertSubmission(ctx context.Context, record formpipe.SubmissionRecord) (int64, error) {
	var id int64
	err := g.db.QueryRow(ctx,
		`INSERT INTO submissions (template_id, owner_id, status, submitted_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		record.TemplateID, record.OwnerID, record.Status, record.SubmittedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	return id, nil
}

// InsertResponses inserts response rows immediately, sub-batched. Streaming
// import path.
func (g *PostgresGateway) InsertResponses(ctx context.Context, records []formpipe.ResponseRecord) error {
	return insertResponseBatches(ctx, g.db.Exec, records, g.responseBatchSize)
}

// QueryRecentSubmissions returns the newest submission ids for one
// template/owner pair, newest first.
func (g *PostgresGateway) QueryRecentSubmissions(ctx context.Context, templateID int64, ownerID uuid.UUID, limit int) ([]int64, error) {
	rows, err := g.db.Query(ctx,
		`SELECT id FROM submissions WHERE template_id = $1 AND owner_id = $2 ORDER BY id DESC LIMIT $3`,
		templateID, ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent submissions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan submission id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission ids: %w", err)
	}
	return ids, nil
}

// ListSubmissions loads all submissions for a template together with their
// response values, joined with employee identity fields for export.
func (g *PostgresGateway) ListSubmissions(ctx context.Context, templateID int64) ([]*formpipe.Submission, error) {
	rows, err := g.db.Query(ctx,
		`SELECT s.id, s.template_id, t.title, s.owner_id, e.full_name, e.email, s.status, s.submitted_at,
		        COALESCE(s.reviewed_by, ''), COALESCE(s.comments, '')
		 FROM submissions s
		 JOIN form_templates t ON t.id = s.template_id
		 JOIN employees e ON e.id = s.owner_id
		 WHERE s.template_id = $1
		 ORDER BY s.id`,
		templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var subs []*formpipe.Submission
	byID := make(map[int64]*formpipe.Submission)
	for rows.Next() {
		sub := &formpipe.Submission{Responses: make(map[int64]string)}
		if err := rows.Scan(
			&sub.ID, &sub.TemplateID, &sub.TemplateTitle, &sub.OwnerID,
			&sub.OwnerName, &sub.OwnerEmail, &sub.Status, &sub.SubmittedAt,
			&sub.ReviewedBy, &sub.Comments,
		); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
		byID[sub.ID] = sub
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	if len(subs) == 0 {
		return subs, nil
	}

	respRows, err := g.db.Query(ctx,
		`SELECT r.submission_id, r.field_id, r.value
		 FROM responses r
		 JOIN submissions s ON s.id = r.submission_id
		 WHERE s.template_id = $1`,
		templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer respRows.Close()

	for respRows.Next() {
		var submissionID, fieldID int64
		var value string
		if err := respRows.Scan(&submissionID, &fieldID, &value); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		if sub, ok := byID[submissionID]; ok {
			sub.Responses[fieldID] = value
		}
	}
	if err := respRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	return subs, nil
}

// pgImportTx is one chunk transaction over pgx.
type pgImportTx struct {
	tx                pgx.Tx
	responseBatchSize int
}

// InsertSubmissions bulk-inserts the staged submission rows with a single
// multi-row VALUES clause and returns the generated ids, index-aligned
// with the input.
func (t *pgImportTx) InsertSubmissions(ctx context.Context, records []formpipe.SubmissionRecord) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}

	valuesClause, args := buildSubmissionValuesClause(records)
	query := fmt.Sprintf(
		"INSERT INTO submissions (template_id, owner_id, status, submitted_at) VALUES %s RETURNING id",
		valuesClause,
	)
	zap.S().Debugw("insert submissions", "rows", len(records))

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert submissions: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, len(records))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan generated submission id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generated submission ids: %w", err)
	}
	return ids, nil
}

// InsertResponses bulk-inserts response rows in sub-batches.
func (t *pgImportTx) InsertResponses(ctx context.Context, records []formpipe.ResponseRecord) error {
	return insertResponseBatches(ctx, t.tx.Exec, records, t.responseBatchSize)
}

func (t *pgImportTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgImportTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

type execFunc func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)

func insertResponseBatches(ctx context.Context, exec execFunc, records []formpipe.ResponseRecord, batchSize int) error {
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}

		valuesClause, args := buildResponseValuesClause(records[i:end])
		query := fmt.Sprintf(
			"INSERT INTO responses (submission_id, field_id, value) VALUES %s",
			valuesClause,
		)
		zap.S().Debugw("insert responses", "rows", end-i)
		if _, err := exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert responses: %w", err)
		}
	}
	return nil
}

func buildSubmissionValuesClause(records []formpipe.SubmissionRecord) (string, []any) {
	values := make([]string, 0, len(records))
	args := make([]any, 0, len(records)*submissionColumnsCount)
	for idx, record := range records {
		base := idx*submissionColumnsCount + 1
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", base, base+1, base+2, base+3))
		args = append(args, record.TemplateID, record.OwnerID, record.Status, record.SubmittedAt)
	}
	return strings.Join(values, ", "), args
}

func buildResponseValuesClause(records []formpipe.ResponseRecord) (string, []any) {
	values := make([]string, 0, len(records))
	args := make([]any, 0, len(records)*responseColumnsCount)
	for idx, record := range records {
		base := idx*responseColumnsCount + 1
		values = append(values, fmt.Sprintf("($%d, $%d, $%d)", base, base+1, base+2))
		args = append(args, record.SubmissionID, record.FieldID, record.Value)
	}
	return strings.Join(values, ", "), args
}
