package schema

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestDDL_DeclaresTables(t *testing.T) {
	for _, table := range []string{"contacts", "call_logs", "audit_events"} {
		if !strings.Contains(DDL(), "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("expected table %s in schema", table)
		}
	}
	if !strings.Contains(DDL(), "ON DELETE CASCADE") {
		t.Fatalf("expected call_logs to cascade with contacts")
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS contacts")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(t, Migrate(context.Background(), db))

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE")).
		WillReturnError(errors.New("permission denied"))
	assert.Error(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
