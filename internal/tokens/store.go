// Package tokens stores per-requester social platform credentials.
package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"frameworks/herald/internal/platform"
	"frameworks/herald/pkg/database"
	"frameworks/herald/pkg/logging"
)

// SaveTTL is the lifetime every SaveOrUpdate stamps on the record.
const SaveTTL = time.Hour

var ErrNoRecord = errors.New("token record not found")

// Credentials is a partial set of platform tokens; nil fields are left
// untouched on write.
type Credentials struct {
	Facebook  *string
	Instagram *string
	LinkedIn  *string
}

// Empty reports whether no field is set.
func (c Credentials) Empty() bool {
	return c.Facebook == nil && c.Instagram == nil && c.LinkedIn == nil
}

// ForPlatform returns credentials carrying only token for p.
func ForPlatform(p platform.Platform, token string) Credentials {
	var c Credentials
	switch p {
	case platform.Facebook:
		c.Facebook = &token
	case platform.Instagram:
		c.Instagram = &token
	case platform.LinkedIn:
		c.LinkedIn = &token
	}
	return c
}

// Record is the stored row for one requester.
type Record struct {
	RequesterID int64
	Facebook    string
	Instagram   string
	LinkedIn    string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Token returns the stored token for p, empty when unset.
func (r Record) Token(p platform.Platform) string {
	switch p {
	case platform.Facebook:
		return r.Facebook
	case platform.Instagram:
		return r.Instagram
	case platform.LinkedIn:
		return r.LinkedIn
	default:
		return ""
	}
}

// Status is the outcome of a validity check.
type Status int

const (
	NotFound Status = iota
	Expired
	Valid
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	default:
		return "not_found"
	}
}

// Lookup is the result of GetValid. Token is set only when Status is Valid.
type Lookup struct {
	Status    Status
	Token     string
	ExpiresAt time.Time
}

// Store reads and writes social_media_tokens. Every call opens its own
// connection through open and releases it before returning.
type Store struct {
	open   database.Opener
	logger logging.Logger
	now    func() time.Time
}

func NewStore(open database.Opener, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Store{open: open, logger: logger, now: time.Now}
}

const recordColumns = `user_id, facebook, instagram, linkedin, expires_at, created_at, updated_at`

// SaveOrUpdate upserts the requester's record. Set fields overwrite, unset
// fields keep their stored value. The expiry is always reset to SaveTTL from
// now; a caller-supplied expiry is not honoured here (use Update for that).
func (s *Store) SaveOrUpdate(ctx context.Context, requesterID int64, creds Credentials, requestedExpiry *time.Time) (Record, error) {
	if creds.Empty() {
		return Record{}, fmt.Errorf("no token supplied")
	}
	expiresAt := s.now().Add(SaveTTL).UTC()
	if requestedExpiry != nil && !requestedExpiry.Equal(expiresAt) {
		s.logger.WithFields(logging.Fields{
			"requester_id": requesterID,
			"requested":    requestedExpiry.UTC(),
			"stored":       expiresAt,
		}).Debug("Token expiry reset to save TTL")
	}

	db, release, err := s.open(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("open database: %w", err)
	}
	defer release()

	row := db.QueryRowContext(ctx,
		`INSERT INTO social_media_tokens (user_id, facebook, instagram, linkedin, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
			facebook = COALESCE(EXCLUDED.facebook, social_media_tokens.facebook),
			instagram = COALESCE(EXCLUDED.instagram, social_media_tokens.instagram),
			linkedin = COALESCE(EXCLUDED.linkedin, social_media_tokens.linkedin),
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		 RETURNING `+recordColumns,
		requesterID, creds.Facebook, creds.Instagram, creds.LinkedIn, expiresAt,
	)
	rec, err := scanRecord(row)
	if err != nil {
		return Record{}, fmt.Errorf("save tokens: %w", err)
	}
	return rec, nil
}

// Update patches an existing record. A non-nil expiresAt replaces the stored
// expiry.
func (s *Store) Update(ctx context.Context, requesterID int64, creds Credentials, expiresAt *time.Time) (Record, error) {
	db, release, err := s.open(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("open database: %w", err)
	}
	defer release()

	var expiry any
	if expiresAt != nil {
		expiry = expiresAt.UTC()
	}

	row := db.QueryRowContext(ctx,
		`UPDATE social_media_tokens SET
			facebook = COALESCE($2, facebook),
			instagram = COALESCE($3, instagram),
			linkedin = COALESCE($4, linkedin),
			expires_at = COALESCE($5, expires_at),
			updated_at = NOW()
		 WHERE user_id = $1
		 RETURNING `+recordColumns,
		requesterID, creds.Facebook, creds.Instagram, creds.LinkedIn, expiry,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNoRecord
	}
	if err != nil {
		return Record{}, fmt.Errorf("update tokens: %w", err)
	}
	return rec, nil
}

// Get returns the full record.
func (s *Store) Get(ctx context.Context, requesterID int64) (Record, error) {
	db, release, err := s.open(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("open database: %w", err)
	}
	defer release()

	rec, err := scanRecord(db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM social_media_tokens WHERE user_id = $1`, requesterID))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNoRecord
	}
	if err != nil {
		return Record{}, fmt.Errorf("get tokens: %w", err)
	}
	return rec, nil
}

// GetValid checks the token for p at call time. Missing rows, empty columns
// and past expiries are outcomes, not errors.
func (s *Store) GetValid(ctx context.Context, requesterID int64, p platform.Platform) (Lookup, error) {
	if !p.Resolved() {
		return Lookup{Status: NotFound}, nil
	}
	rec, err := s.Get(ctx, requesterID)
	if errors.Is(err, ErrNoRecord) {
		return Lookup{Status: NotFound}, nil
	}
	if err != nil {
		return Lookup{}, err
	}

	token := rec.Token(p)
	if token == "" {
		return Lookup{Status: NotFound}, nil
	}
	if rec.ExpiresAt.IsZero() || !rec.ExpiresAt.After(s.now()) {
		return Lookup{Status: Expired, ExpiresAt: rec.ExpiresAt}, nil
	}
	return Lookup{Status: Valid, Token: token, ExpiresAt: rec.ExpiresAt}, nil
}

var clearQueries = map[platform.Platform]string{
	platform.Facebook:  `UPDATE social_media_tokens SET facebook = NULL, updated_at = NOW() WHERE user_id = $1`,
	platform.Instagram: `UPDATE social_media_tokens SET instagram = NULL, updated_at = NOW() WHERE user_id = $1`,
	platform.LinkedIn:  `UPDATE social_media_tokens SET linkedin = NULL, updated_at = NOW() WHERE user_id = $1`,
}

// Clear removes the token for one platform.
func (s *Store) Clear(ctx context.Context, requesterID int64, p platform.Platform) error {
	query, ok := clearQueries[p]
	if !ok {
		return fmt.Errorf("unsupported platform %q", p)
	}

	db, release, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer release()

	res, err := db.ExecContext(ctx, query, requesterID)
	if err != nil {
		return fmt.Errorf("clear %s token: %w", p, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNoRecord
	}
	return nil
}

func scanRecord(row *sql.Row) (Record, error) {
	var (
		rec                           Record
		facebook, instagram, linkedin sql.NullString
		expiresAt                     sql.NullTime
	)
	if err := row.Scan(&rec.RequesterID, &facebook, &instagram, &linkedin, &expiresAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	rec.Facebook = facebook.String
	rec.Instagram = instagram.String
	rec.LinkedIn = linkedin.String
	if expiresAt.Valid {
		rec.ExpiresAt = expiresAt.Time
	}
	return rec, nil
}
