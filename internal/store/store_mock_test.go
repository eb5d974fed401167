package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"machine-manual-backend/internal/apperr"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// sequence yields the given slugs in order.
func sequence(slugs ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		s := slugs[i]
		i++
		return s, nil
	}
}

const slugCountQuery = `SELECT count(*) FROM "machines" WHERE public_slug = $1`

func TestGormStore_CreateMachineSlugRetry(t *testing.T) {
	testCases := []struct {
		name             string
		candidates       []string
		mockExpectations func(mock sqlmock.Sqlmock)
		expectedSlug     string
		expectedCode     apperr.Code
	}{
		{
			name:       "First candidate is free",
			candidates: []string{"k3x9q2mz"},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(slugCountQuery)).
					WithArgs("k3x9q2mz").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "machines"`)).
					WithArgs("Hydraulikpresse", Any{}, Any{}, Any{}, "k3x9q2mz", Any{}, Any{}).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				mock.ExpectCommit()
			},
			expectedSlug: "k3x9q2mz",
		},
		{
			name:       "Collisions are retried until a free slug is found",
			candidates: []string{"aaaaaaaa", "bbbbbbbb", "cccccccc"},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(slugCountQuery)).
					WithArgs("aaaaaaaa").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectQuery(regexp.QuoteMeta(slugCountQuery)).
					WithArgs("bbbbbbbb").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectQuery(regexp.QuoteMeta(slugCountQuery)).
					WithArgs("cccccccc").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "machines"`)).
					WithArgs("Hydraulikpresse", Any{}, Any{}, Any{}, "cccccccc", Any{}, Any{}).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
				mock.ExpectCommit()
			},
			expectedSlug: "cccccccc",
		},
		{
			name:       "Lookup failure is reported, not retried",
			candidates: []string{"aaaaaaaa"},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(slugCountQuery)).
					WithArgs("aaaaaaaa").
					WillReturnError(errors.New("connection reset by peer"))
			},
			expectedCode: apperr.CodeDatabase,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			s := &gormStore{db: gormDB, nextSlug: sequence(tc.candidates...), now: utcNow}

			tc.mockExpectations(mock)

			m, err := s.CreateMachine(context.Background(), NewMachine{Name: "Hydraulikpresse"})

			if tc.expectedCode != "" {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, tc.expectedCode))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expectedSlug, m.PublicSlug)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%cnc%", likePattern("CNC"))
	assert.Equal(t, "%50!%%", likePattern("50%"))
	assert.Equal(t, "%a!_b%", likePattern("a_b"))
	assert.Equal(t, "%x!!y%", likePattern("x!y"))
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
