package tokens

import (
	"context"
	"errors"
	"io/fs"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"frameworks/herald/internal/platform"
	"frameworks/herald/pkg/database"
	schema "frameworks/herald/pkg/database/sql"
)

var recordCols = []string{"user_id", "facebook", "instagram", "linkedin", "expires_at", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, time.Time) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(database.SharedOpener(db), nil)
	store.now = func() time.Time { return now }
	return store, mock, now
}

func TestSaveOrUpdateForcesOneHourExpiry(t *testing.T) {
	store, mock, now := newMockStore(t)
	requested := now.Add(30 * 24 * time.Hour)

	mock.ExpectQuery(`INSERT INTO social_media_tokens .* ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(int64(7), "fb-token", nil, nil, now.Add(time.Hour)).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(int64(7), "fb-token", nil, nil, now.Add(time.Hour), now, now))

	rec, err := store.SaveOrUpdate(context.Background(), 7, ForPlatform(platform.Facebook, "fb-token"), &requested)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !rec.ExpiresAt.Equal(now.Add(time.Hour)) || rec.Facebook != "fb-token" || rec.Instagram != "" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveOrUpdateTwiceKeepsLatestValues(t *testing.T) {
	store, mock, now := newMockStore(t)
	upsert := `INSERT INTO social_media_tokens .* ON CONFLICT \(user_id\) DO UPDATE`
	later := now.Add(10 * time.Minute)

	mock.ExpectQuery(upsert).
		WithArgs(int64(7), "fb-old", nil, nil, now.Add(time.Hour)).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(int64(7), "fb-old", nil, nil, now.Add(time.Hour), now, now))
	mock.ExpectQuery(upsert).
		WithArgs(int64(7), "fb-new", nil, nil, later.Add(time.Hour)).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(int64(7), "fb-new", nil, nil, later.Add(time.Hour), now, later))

	if _, err := store.SaveOrUpdate(context.Background(), 7, ForPlatform(platform.Facebook, "fb-old"), nil); err != nil {
		t.Fatalf("first save: %v", err)
	}
	store.now = func() time.Time { return later }
	rec, err := store.SaveOrUpdate(context.Background(), 7, ForPlatform(platform.Facebook, "fb-new"), nil)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if rec.Facebook != "fb-new" || !rec.ExpiresAt.Equal(later.Add(time.Hour)) {
		t.Fatalf("expected latest values, got %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

// The upsert relies on one token row per requester.
func TestSchemaKeepsOneTokenRowPerRequester(t *testing.T) {
	ddl, err := fs.ReadFile(schema.Content, "schema/001_herald.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	table := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS social_media_tokens \((.*?)\);`).FindSubmatch(ddl)
	if table == nil {
		t.Fatal("social_media_tokens table not found in schema")
	}
	if !regexp.MustCompile(`user_id\s+BIGINT NOT NULL UNIQUE`).Match(table[1]) {
		t.Fatalf("expected user_id to be unique, got:\n%s", table[1])
	}
}

func TestSaveOrUpdateRejectsEmptyCredentials(t *testing.T) {
	store, _, _ := newMockStore(t)
	if _, err := store.SaveOrUpdate(context.Background(), 7, Credentials{}, nil); err == nil {
		t.Fatal("expected error for empty credentials")
	}
}

func TestUpdateHonoursExplicitExpiry(t *testing.T) {
	store, mock, now := newMockStore(t)
	expiry := now.Add(48 * time.Hour)
	token := "li-token"

	mock.ExpectQuery(`UPDATE social_media_tokens SET`).
		WithArgs(int64(7), nil, nil, "li-token", expiry).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(int64(7), "fb", nil, "li-token", expiry, now, now))

	rec, err := store.Update(context.Background(), 7, Credentials{LinkedIn: &token}, &expiry)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !rec.ExpiresAt.Equal(expiry) || rec.LinkedIn != "li-token" || rec.Facebook != "fb" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestUpdateMissingRecord(t *testing.T) {
	store, mock, _ := newMockStore(t)
	mock.ExpectQuery(`UPDATE social_media_tokens SET`).
		WillReturnRows(sqlmock.NewRows(recordCols))

	if _, err := store.Update(context.Background(), 7, Credentials{}, nil); !errors.Is(err, ErrNoRecord) {
		t.Fatalf("expected ErrNoRecord, got %v", err)
	}
}

func TestGetValidOutcomes(t *testing.T) {
	cases := []struct {
		name   string
		rows   func(now time.Time) *sqlmock.Rows
		want   Status
		wantTk string
	}{
		{
			name: "no row",
			rows: func(time.Time) *sqlmock.Rows { return sqlmock.NewRows(recordCols) },
			want: NotFound,
		},
		{
			name: "empty column",
			rows: func(now time.Time) *sqlmock.Rows {
				return sqlmock.NewRows(recordCols).AddRow(int64(7), nil, "ig", nil, now.Add(time.Hour), now, now)
			},
			want: NotFound,
		},
		{
			name: "expired",
			rows: func(now time.Time) *sqlmock.Rows {
				return sqlmock.NewRows(recordCols).AddRow(int64(7), "fb", nil, nil, now.Add(-time.Second), now, now)
			},
			want: Expired,
		},
		{
			name: "null expiry",
			rows: func(now time.Time) *sqlmock.Rows {
				return sqlmock.NewRows(recordCols).AddRow(int64(7), "fb", nil, nil, nil, now, now)
			},
			want: Expired,
		},
		{
			name: "valid",
			rows: func(now time.Time) *sqlmock.Rows {
				return sqlmock.NewRows(recordCols).AddRow(int64(7), "fb", nil, nil, now.Add(time.Minute), now, now)
			},
			want:   Valid,
			wantTk: "fb",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock, now := newMockStore(t)
			mock.ExpectQuery(`SELECT user_id, facebook, instagram, linkedin, expires_at`).
				WithArgs(int64(7)).
				WillReturnRows(tc.rows(now))

			got, err := store.GetValid(context.Background(), 7, platform.Facebook)
			if err != nil {
				t.Fatalf("get valid: %v", err)
			}
			if got.Status != tc.want || got.Token != tc.wantTk {
				t.Fatalf("got %+v, want status %v token %q", got, tc.want, tc.wantTk)
			}
		})
	}
}

func TestGetValidSurfacesStorageErrors(t *testing.T) {
	store, mock, _ := newMockStore(t)
	mock.ExpectQuery(`SELECT user_id`).WillReturnError(errors.New("connection reset"))

	if _, err := store.GetValid(context.Background(), 7, platform.Facebook); err == nil {
		t.Fatal("expected storage error")
	}
}

func TestGetValidReleasesConnectionOnEveryPath(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	store := NewStore(database.ClosingOpener(db), nil)

	mock.ExpectQuery(`SELECT user_id`).WillReturnError(errors.New("boom"))
	mock.ExpectClose()

	if _, err := store.GetValid(context.Background(), 7, platform.Instagram); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("connection not released: %v", err)
	}
}

func TestClear(t *testing.T) {
	store, mock, _ := newMockStore(t)
	mock.ExpectExec(`UPDATE social_media_tokens SET instagram = NULL`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE social_media_tokens SET linkedin = NULL`).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Clear(context.Background(), 7, platform.Instagram); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(context.Background(), 8, platform.LinkedIn); !errors.Is(err, ErrNoRecord) {
		t.Fatalf("expected ErrNoRecord, got %v", err)
	}
	if err := store.Clear(context.Background(), 8, platform.Unresolved); err == nil {
		t.Fatal("expected error for unresolved platform")
	}
}
