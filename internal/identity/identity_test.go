package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestAdmit(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
		want error
	}{
		{"fresh", Identity{FreeCount: 0}, nil},
		{"at limit", Identity{FreeCount: 3}, nil},
		{"over limit", Identity{FreeCount: 4}, ErrPaymentRequired},
		{"over limit but paid", Identity{FreeCount: 40, Paid: true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Admit(tt.id, DefaultFreeLimit); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	mock.ExpectQuery(`SELECT email, free_count, paid_status FROM users WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"email", "free_count", "paid_status"}).AddRow("a@example.com", 2, true))
	mock.ExpectQuery(`FROM users`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"email", "free_count", "paid_status"}))

	id, err := store.Lookup(context.Background(), 4)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if id.ID != 4 || id.FreeCount != 2 || !id.Paid || id.Email != "a@example.com" {
		t.Fatalf("unexpected identity %+v", id)
	}

	if _, err := store.Lookup(context.Background(), 5); !errors.Is(err, ErrUnknownRequester) {
		t.Fatalf("expected ErrUnknownRequester, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordUsage(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	mock.ExpectExec(`UPDATE users SET free_count = free_count \+ 1 WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.RecordUsage(context.Background(), 4); err != nil {
		t.Fatalf("record usage: %v", err)
	}
	if err := store.RecordUsage(context.Background(), 9); !errors.Is(err, ErrUnknownRequester) {
		t.Fatalf("expected ErrUnknownRequester, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
