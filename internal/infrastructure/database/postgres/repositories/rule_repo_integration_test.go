//go:build integration

package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/smartscanon/internal/config"
	"github.com/turtacn/smartscanon/internal/domain/rule"
	"github.com/turtacn/smartscanon/internal/infrastructure/database/postgres"
	"github.com/turtacn/smartscanon/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/pkg/errors"
)

// startPostgres launches PostgreSQL 16, applies the embedded migrations and
// returns the connection.
func startPostgres(t *testing.T) *postgres.Connection {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "smartscanon_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	conn, err := postgres.NewConnection(ctx, config.DatabaseConfig{
		Enabled:  true,
		Host:     host,
		Port:     port.Int(),
		User:     "test",
		Password: "test",
		DBName:   "smartscanon_test",
		SSLMode:  "disable",
		MaxConns: 5,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.RunMigrations())
	return conn
}

func mustRule(t *testing.T, library, name, pattern, canonical string) *rule.Rule {
	t.Helper()
	r, err := rule.NewRule(library, name, pattern, canonical, "drugbank", []string{"alert"})
	require.NoError(t, err)
	return r
}

func TestRuleRepo_Postgres(t *testing.T) {
	conn := startPostgres(t)
	repo := repositories.NewPostgresRuleRepo(conn, logging.NewNopLogger())
	ctx := context.Background()

	n, err := repo.BulkInsert(ctx, []*rule.Rule{
		mustRule(t, "pains", "hydroxyl", "OC", "[O][C]"),
		mustRule(t, "pains", "hydroxyl-2", "CO", "[O][C]"),
		mustRule(t, "pains", "amine", "CN", "[N][C]"),
		mustRule(t, "pains", "swap", "CN>>OC", "[N][C]>>[O][C]"),
		mustRule(t, "brenk", "amine", "NC", "[N][C]"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n, "the second [O][C] in pains is skipped")

	n, err = repo.BulkInsert(ctx, []*rule.Rule{mustRule(t, "pains", "again", "OC", "[O][C]")})
	require.NoError(t, err)
	assert.Zero(t, n)

	err = repo.Create(ctx, mustRule(t, "pains", "dup", "NC", "[N][C]"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeRuleAlreadyExists), "%v", err)

	found, err := repo.FindByCanonical(ctx, "[N][C]")
	require.NoError(t, err)
	require.Len(t, found, 2)
	libs := []string{found[0].Library, found[1].Library}
	assert.ElementsMatch(t, []string{"pains", "brenk"}, libs)
	assert.Equal(t, []string{"alert"}, found[0].Tags)

	page, total, err := repo.List(ctx, rule.ListFilter{Library: "pains", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)

	reactions, total, err := repo.List(ctx, rule.ListFilter{Kind: rule.KindReaction, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, reactions, 1)
	assert.Equal(t, "swap", reactions[0].Name)

	require.NoError(t, repo.Delete(ctx, reactions[0].ID.String()))
	err = repo.Delete(ctx, reactions[0].ID.String())
	assert.True(t, errors.IsCode(err, errors.ErrCodeRuleNotFound), "%v", err)
}

//Personal.AI order the ending
