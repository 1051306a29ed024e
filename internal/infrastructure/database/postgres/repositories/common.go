// Package repositories implements the domain repositories on PostgreSQL.
package repositories

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"

	"github.com/turtacn/smartscanon/internal/domain/rule"
	"github.com/turtacn/smartscanon/pkg/errors"
)

// ruleCopyColumns is the column order of every rule read and write.
var ruleCopyColumns = []string{"id", "library", "name", "pattern", "canonical", "kind", "embedding", "tags", "created_at"}

var ruleColumns = strings.Join(ruleCopyColumns, ", ")

// queryExecutor is satisfied by *sql.DB and *sql.Tx.
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(s scanner) (*rule.Rule, error) {
	var (
		ru   rule.Rule
		kind string
	)
	if err := s.Scan(&ru.ID, &ru.Library, &ru.Name, &ru.Pattern, &ru.Canonical, &kind, &ru.Embedding,
		pq.Array(&ru.Tags), &ru.CreatedAt); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan rule")
	}
	ru.Kind = rule.Kind(kind)
	return &ru, nil
}

func collectRules(rows *sql.Rows) ([]*rule.Rule, error) {
	var out []*rule.Rule
	for rows.Next() {
		ru, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ru)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read rules")
	}
	return out, nil
}

//Personal.AI order the ending
