package clickhouse

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestDSN(t *testing.T) {
	dsn := DSN(ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "autovalue",
		User:        "default",
		Password:    "p@ss",
		DialTimeout: 5 * time.Second,
		AsyncInsert: true,
	})
	if !strings.HasPrefix(dsn, "clickhouse://default:p%40ss@ch:9000/autovalue?") {
		t.Fatalf("unexpected dsn %s", dsn)
	}
	for _, want := range []string{"dial_timeout=5s", "async_insert=1"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %s missing %s", dsn, want)
		}
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Fatalf("expected host error")
	}
}

func TestInitSchemaStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE DATABASE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("syntax"))

	c := NewFromDB(db, "autovalue")
	err = c.InitSchema(context.Background(), []string{
		"CREATE DATABASE IF NOT EXISTS autovalue",
		"CREATE TABLE broken",
		"CREATE TABLE never_run",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
