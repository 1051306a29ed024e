package repositories

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/smartscanon/internal/domain/rule"
	"github.com/turtacn/smartscanon/internal/infrastructure/database/postgres"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/smartscanon/pkg/errors"
)

type RuleRepoTestSuite struct {
	suite.Suite
	db   *sql.DB
	mock sqlmock.Sqlmock
	repo rule.Repository
}

func (s *RuleRepoTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.Require().NoError(err)
	conn := postgres.NewConnectionWithDB(s.db, nil, logging.NewNopLogger())
	s.repo = NewPostgresRuleRepo(conn, logging.NewNopLogger())
}

func (s *RuleRepoTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *RuleRepoTestSuite) newRule(pattern, canonical string) *rule.Rule {
	r, err := rule.NewRule("pains", "", pattern, canonical, "drugbank", []string{"alert"})
	s.Require().NoError(err)
	return r
}

func ruleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "library", "name", "pattern", "canonical", "kind", "embedding", "tags", "created_at"})
}

func (s *RuleRepoTestSuite) TestCreate_Success() {
	r := s.newRule("CO", "[O][C]")
	s.mock.ExpectExec("INSERT INTO rules").
		WithArgs(r.ID, "pains", "", "CO", "[O][C]", "pattern", "drugbank", pq.Array([]string{"alert"}), r.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.repo.Create(context.Background(), r))
}

func (s *RuleRepoTestSuite) TestCreate_Duplicate() {
	r := s.newRule("CO", "[O][C]")
	s.mock.ExpectExec("INSERT INTO rules").WillReturnError(&pq.Error{Code: "23505"})

	err := s.repo.Create(context.Background(), r)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeRuleAlreadyExists), "%v", err)
}

func (s *RuleRepoTestSuite) TestCreate_Invalid() {
	err := s.repo.Create(context.Background(), &rule.Rule{Library: "x"})
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))
}

func (s *RuleRepoTestSuite) TestBulkInsert_SkipsConflicts() {
	a := s.newRule("CO", "[O][C]")
	b := s.newRule("OC", "[O][C]")
	c := s.newRule("CN", "[N][C]")

	s.mock.ExpectBegin()
	prep := s.mock.ExpectPrepare("INSERT INTO rules .* ON CONFLICT \\(library, embedding, canonical\\) DO NOTHING")
	prep.ExpectExec().WithArgs(a.ID, sqlmock.AnyArg(), sqlmock.AnyArg(), "CO", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	n, err := s.repo.BulkInsert(context.Background(), []*rule.Rule{a, b, c})
	s.NoError(err)
	s.Equal(int64(2), n)
}

func (s *RuleRepoTestSuite) TestBulkInsert_RollsBackOnError() {
	a := s.newRule("CO", "[O][C]")

	s.mock.ExpectBegin()
	prep := s.mock.ExpectPrepare("INSERT INTO rules")
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	s.mock.ExpectRollback()

	_, err := s.repo.BulkInsert(context.Background(), []*rule.Rule{a})
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
}

func (s *RuleRepoTestSuite) TestBulkInsert_Empty() {
	n, err := s.repo.BulkInsert(context.Background(), nil)
	s.NoError(err)
	s.Zero(n)
}

func (s *RuleRepoTestSuite) TestFindByCanonical() {
	id := uuid.New()
	now := time.Now()
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM rules WHERE canonical = $1")).
		WithArgs("[O][C]").
		WillReturnRows(ruleRows().
			AddRow(id.String(), "pains", "alcohol", "CO", "[O][C]", "pattern", "drugbank", "{alert,toxic}", now))

	out, err := s.repo.FindByCanonical(context.Background(), "[O][C]")
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal(id, out[0].ID)
	s.Equal(rule.KindPattern, out[0].Kind)
	s.Equal([]string{"alert", "toxic"}, out[0].Tags)
}

func (s *RuleRepoTestSuite) TestList_FilterAndPage() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM rules WHERE library = $1 AND kind = $2")).
		WithArgs("pains", "reaction").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	s.mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at, id LIMIT $3 OFFSET $4")).
		WithArgs("pains", "reaction", 2, 1).
		WillReturnRows(ruleRows().
			AddRow(uuid.NewString(), "pains", "", "C>>O", "[C]>>[O]", "reaction", "drugbank", "{}", time.Now()))

	out, total, err := s.repo.List(context.Background(), rule.ListFilter{Library: "pains", Kind: rule.KindReaction, Limit: 2, Offset: 1})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Len(out, 1)
}

func (s *RuleRepoTestSuite) TestDelete() {
	id := uuid.New()
	s.mock.ExpectExec("DELETE FROM rules").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	s.NoError(s.repo.Delete(context.Background(), id.String()))

	s.mock.ExpectExec("DELETE FROM rules").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))
	err := s.repo.Delete(context.Background(), id.String())
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeRuleNotFound))

	err = s.repo.Delete(context.Background(), "not-a-uuid")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeBadRequest))
}

func TestRuleRepoTestSuite(t *testing.T) {
	suite.Run(t, new(RuleRepoTestSuite))
}

//Personal.AI order the ending
