package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestApplySchemaRunsFilesInOrder(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	files := fstest.MapFS{
		"schema/002_b.sql": {Data: []byte("CREATE TABLE b (id INT)")},
		"schema/001_a.sql": {Data: []byte("CREATE TABLE a (id INT)")},
	}
	mock.ExpectExec(`CREATE TABLE a`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE b`).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := applySchema(context.Background(), db, files, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplySchemaStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	files := fstest.MapFS{
		"schema/001_a.sql": {Data: []byte("CREATE TABLE a (id INT)")},
		"schema/002_b.sql": {Data: []byte("CREATE TABLE b (id INT)")},
	}
	mock.ExpectExec(`CREATE TABLE a`).WillReturnError(errors.New("boom"))

	if err := applySchema(context.Background(), db, files, nil); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClosingOpenerReleases(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	mock.ExpectClose()

	handle, release, err := ClosingOpener(db)(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if handle != db {
		t.Fatal("expected wrapped handle")
	}
	release()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected close: %v", err)
	}
}

func TestConnectRequiresURL(t *testing.T) {
	if _, err := Connect(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error for empty URL")
	}
}
