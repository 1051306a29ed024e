package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/turtacn/smartscanon/internal/domain/rule"
	"github.com/turtacn/smartscanon/internal/infrastructure/database/postgres"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/pkg/errors"
)

type postgresRuleRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresRuleRepo returns the PostgreSQL rule repository.
func NewPostgresRuleRepo(conn *postgres.Connection, log logging.Logger) rule.Repository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresRuleRepo{conn: conn, log: log}
}

func (r *postgresRuleRepo) executor() queryExecutor {
	return r.conn.DB()
}

func (r *postgresRuleRepo) Create(ctx context.Context, ru *rule.Rule) error {
	if err := ru.Validate(); err != nil {
		return err
	}
	if ru.ID == uuid.Nil {
		ru.ID = uuid.New()
	}
	query := `INSERT INTO rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.executor().ExecContext(ctx, query,
		ru.ID, ru.Library, ru.Name, ru.Pattern, ru.Canonical, string(ru.Kind), ru.Embedding, pq.Array(ru.Tags), ru.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.New(errors.ErrCodeRuleAlreadyExists, "rule with this canonical form already exists").
				WithDetail(ru.Canonical)
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert rule")
	}
	return nil
}

// BulkInsert uses COPY into a temporary staging table when a pgx pool is
// available and falls back to a prepared statement inside a transaction.
func (r *postgresRuleRepo) BulkInsert(ctx context.Context, rules []*rule.Rule) (int64, error) {
	if len(rules) == 0 {
		return 0, nil
	}
	for _, ru := range rules {
		if err := ru.Validate(); err != nil {
			return 0, err
		}
	}
	if r.conn.Pool() != nil {
		return r.copyInsert(ctx, rules)
	}
	return r.txInsert(ctx, rules)
}

func (r *postgresRuleRepo) copyInsert(ctx context.Context, rules []*rule.Rule) (int64, error) {
	tx, err := r.conn.Pool().Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `CREATE TEMP TABLE rules_staging (LIKE rules INCLUDING DEFAULTS) ON COMMIT DROP`); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create staging table")
	}

	rows := make([][]interface{}, 0, len(rules))
	for _, ru := range rules {
		rows = append(rows, []interface{}{
			ru.ID, ru.Library, ru.Name, ru.Pattern, ru.Canonical, string(ru.Kind), ru.Embedding, ru.Tags, ru.CreatedAt,
		})
	}
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"rules_staging"}, ruleCopyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to copy rules")
	}

	tag, err := tx.Exec(ctx, `INSERT INTO rules (`+ruleColumns+`)
		SELECT DISTINCT ON (library, embedding, canonical) `+ruleColumns+` FROM rules_staging
		ORDER BY library, embedding, canonical, created_at
		ON CONFLICT (library, embedding, canonical) DO NOTHING`)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to merge staged rules")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit rules")
	}

	r.log.Debug("rules bulk inserted",
		logging.Int64("copied", copied),
		logging.Int64("inserted", tag.RowsAffected()),
	)
	return tag.RowsAffected(), nil
}

func (r *postgresRuleRepo) txInsert(ctx context.Context, rules []*rule.Rule) (int64, error) {
	tx, err := r.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (library, embedding, canonical) DO NOTHING`)
	if err != nil {
		tx.Rollback()
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to prepare rule insert")
	}
	defer stmt.Close()

	var inserted int64
	for _, ru := range rules {
		res, err := stmt.ExecContext(ctx,
			ru.ID, ru.Library, ru.Name, ru.Pattern, ru.Canonical, string(ru.Kind), ru.Embedding, pq.Array(ru.Tags), ru.CreatedAt,
		)
		if err != nil {
			tx.Rollback()
			return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert rule")
		}
		n, _ := res.RowsAffected()
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit rules")
	}
	return inserted, nil
}

func (r *postgresRuleRepo) FindByCanonical(ctx context.Context, canonical string) ([]*rule.Rule, error) {
	rows, err := r.executor().QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE canonical = $1 ORDER BY library, created_at`, canonical)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query rules")
	}
	defer rows.Close()
	return collectRules(rows)
}

func (r *postgresRuleRepo) List(ctx context.Context, filter rule.ListFilter) ([]*rule.Rule, int64, error) {
	var where []string
	var args []interface{}
	if filter.Library != "" {
		args = append(args, filter.Library)
		where = append(where, fmt.Sprintf("library = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.executor().QueryRowContext(ctx, `SELECT COUNT(*) FROM rules`+clause, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count rules")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM rules%s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		ruleColumns, clause, len(args)-1, len(args))

	rows, err := r.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list rules")
	}
	defer rows.Close()
	out, err := collectRules(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *postgresRuleRepo) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return errors.InvalidParam("invalid rule id").WithDetail(id)
	}
	res, err := r.executor().ExecContext(ctx, `DELETE FROM rules WHERE id = $1`, uid)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete rule")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeRuleNotFound, "rule not found").WithDetail(id)
	}
	return nil
}

//Personal.AI order the ending
