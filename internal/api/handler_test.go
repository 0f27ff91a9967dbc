package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"frameworks/herald/internal/conversations"
	"frameworks/herald/internal/identity"
	"frameworks/herald/internal/platform"
	"frameworks/herald/internal/progress"
	"frameworks/herald/internal/taskqueue"
	"frameworks/herald/internal/tokens"
	"frameworks/herald/pkg/auth"
	"frameworks/herald/pkg/testutil"
)

var jwts = testutil.NewJWTHelper()

// echoQueue plays a worker: every submitted job immediately gets a
// checkpoint, some content and an end event on its channel.
type echoQueue struct {
	channel *progress.Channel
	depth   int

	mu        sync.Mutex
	submitted []taskqueue.Job
	err       error
}

func (q *echoQueue) Submit(ctx context.Context, job taskqueue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.submitted = append(q.submitted, job)
	go func() {
		ctx := context.Background()
		_ = q.channel.Publish(ctx, job.ChannelID, progress.Checkpoint("thread-1"))
		_ = q.channel.Publish(ctx, job.ChannelID, progress.Content("done: "+job.RequestText))
		_ = q.channel.Publish(ctx, job.ChannelID, progress.End())
	}()
	return nil
}

func (q *echoQueue) Depth(context.Context) (int, error) { return q.depth, nil }

func (q *echoQueue) Consume(context.Context) (taskqueue.Job, error) {
	return taskqueue.Job{}, taskqueue.ErrQueueClosed
}

func (q *echoQueue) Done(context.Context, taskqueue.Job) error { return nil }

func (q *echoQueue) jobs() []taskqueue.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]taskqueue.Job(nil), q.submitted...)
}

type fakeIdentities struct {
	mu    sync.Mutex
	users map[int64]identity.Identity
	usage map[int64]int
}

func (f *fakeIdentities) Lookup(_ context.Context, id int64) (identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	who, ok := f.users[id]
	if !ok {
		return identity.Identity{}, identity.ErrUnknownRequester
	}
	return who, nil
}

func (f *fakeIdentities) RecordUsage(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usage == nil {
		f.usage = map[int64]int{}
	}
	f.usage[id]++
	return nil
}

type fakeTokens struct {
	rec      *tokens.Record
	lookup   tokens.Lookup
	saved    tokens.Credentials
	expiry   *time.Time
	cleared  []platform.Platform
	clearErr error
}

func (f *fakeTokens) SaveOrUpdate(_ context.Context, id int64, creds tokens.Credentials, _ *time.Time) (tokens.Record, error) {
	f.saved = creds
	rec := tokens.Record{RequesterID: id, ExpiresAt: time.Now().Add(tokens.SaveTTL)}
	if creds.Facebook != nil {
		rec.Facebook = *creds.Facebook
	}
	f.rec = &rec
	return rec, nil
}

func (f *fakeTokens) Update(_ context.Context, _ int64, creds tokens.Credentials, expiresAt *time.Time) (tokens.Record, error) {
	if f.rec == nil {
		return tokens.Record{}, tokens.ErrNoRecord
	}
	f.saved = creds
	f.expiry = expiresAt
	if expiresAt != nil {
		f.rec.ExpiresAt = *expiresAt
	}
	return *f.rec, nil
}

func (f *fakeTokens) Get(context.Context, int64) (tokens.Record, error) {
	if f.rec == nil {
		return tokens.Record{}, tokens.ErrNoRecord
	}
	return *f.rec, nil
}

func (f *fakeTokens) GetValid(context.Context, int64, platform.Platform) (tokens.Lookup, error) {
	return f.lookup, nil
}

func (f *fakeTokens) Clear(_ context.Context, _ int64, p platform.Platform) error {
	f.cleared = append(f.cleared, p)
	return f.clearErr
}

type fakeHistory struct {
	threads []conversations.Thread
	limit   int
}

func (f *fakeHistory) History(_ context.Context, _ int64, limit int) ([]conversations.Thread, error) {
	f.limit = limit
	return f.threads, nil
}

type fixture struct {
	router     *gin.Engine
	queue      *echoQueue
	identities *fakeIdentities
	tokens     *fakeTokens
	history    *fakeHistory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	channel := progress.NewChannel(client, nil)

	f := &fixture{
		queue: &echoQueue{channel: channel},
		identities: &fakeIdentities{users: map[int64]identity.Identity{
			1: {ID: 1, Email: "free@example.com", FreeCount: 0},
			2: {ID: 2, Email: "spent@example.com", FreeCount: 4},
			3: {ID: 3, Email: "paid@example.com", FreeCount: 9, Paid: true},
		}},
		tokens:  &fakeTokens{},
		history: &fakeHistory{},
	}
	h := &Handler{
		Queue:      f.queue,
		Channel:    channel,
		Identities: f.identities,
		Tokens:     f.tokens,
		History:    f.history,
		FreeLimit:  identity.DefaultFreeLimit,
	}
	f.router = gin.New()
	RegisterRoutes(f.router, h, auth.JWTAuthMiddleware(jwts.Secret))
	return f
}

func (f *fixture) do(t *testing.T, requesterID int64, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Authorization", testutil.Bearer(jwts.Token(t, requesterID)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func sseEvents(t *testing.T, body string) []progress.Event {
	t.Helper()
	var events []progress.Event
	for _, frame := range strings.Split(body, "\n\n") {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			continue
		}
		var ev progress.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &ev); err != nil {
			t.Fatalf("bad frame %q: %v", frame, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestChatRequiresAuth(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"hi"}`))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if len(f.queue.jobs()) != 0 {
		t.Fatal("no job may be queued without auth")
	}
}

func TestChatRejectsExpiredToken(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Authorization", testutil.Bearer(jwts.ExpiredToken(t, 1)))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, 1, http.MethodPost, "/api/v1/chat", `{"message":"   "}`)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "message is required") {
		t.Fatalf("expected 400 message is required, got %d %s", w.Code, w.Body.String())
	}
}

func TestChatPaymentRequired(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, 2, http.MethodPost, "/api/v1/chat", `{"message":"Facebook text post about tea"}`)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", w.Code)
	}
	if w.Body.String() != `{"error":"Payment required"}` {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if len(f.queue.jobs()) != 0 {
		t.Fatal("rejected requester must not queue a job")
	}
}

func TestChatUnknownRequester(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, 99, http.MethodPost, "/api/v1/chat", `{"message":"hi"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestChatStreamsUntilEnd(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, 3, http.MethodPost, "/api/v1/chat", `{"message":"LinkedIn text post about hiring","checkpoint_id":" abc "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}

	events := sseEvents(t, w.Body.String())
	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	if strings.Join(types, ",") != "checkpoint,content,end" {
		t.Fatalf("unexpected event order %v", types)
	}
	if events[1].Content != "done: LinkedIn text post about hiring" {
		t.Fatalf("unexpected content %q", events[1].Content)
	}

	jobs := f.queue.jobs()
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs))
	}
	job := jobs[0]
	if job.RequesterID != 3 || job.CheckpointID != "abc" {
		t.Fatalf("unexpected job %+v", job)
	}
	if !strings.HasPrefix(job.ChannelID, "chat_3_") {
		t.Fatalf("unexpected channel id %q", job.ChannelID)
	}
	if f.identities.usage[3] != 1 {
		t.Fatalf("expected usage recorded once, got %d", f.identities.usage[3])
	}
}

func TestChatAnnouncesQueuePosition(t *testing.T) {
	f := newFixture(t)
	f.queue.depth = 2
	w := f.do(t, 1, http.MethodPost, "/api/v1/chat", `{"message":"Instagram image post about coffee"}`)
	events := sseEvents(t, w.Body.String())
	if len(events) < 2 {
		t.Fatalf("expected queue status plus job events, got %v", events)
	}
	first := events[0]
	if first.Type != progress.TypeQueueStatus || first.Position != 2 || first.Message != "You are #2 in queue. Please wait..." {
		t.Fatalf("unexpected first event %+v", first)
	}
	if events[len(events)-1].Type != progress.TypeEnd {
		t.Fatalf("stream must end with end, got %+v", events[len(events)-1])
	}
}

func TestChatSubmitFailure(t *testing.T) {
	f := newFixture(t)
	f.queue.err = errors.New("redis down")
	w := f.do(t, 1, http.MethodPost, "/api/v1/chat", `{"message":"hi"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if f.identities.usage[1] != 0 {
		t.Fatal("usage must not be recorded for an unqueued request")
	}
}

func TestChannelIDsAreUnique(t *testing.T) {
	a, b := ChannelID(5), ChannelID(5)
	if a == b {
		t.Fatalf("channel ids collided: %s", a)
	}
}

func TestChatHistory(t *testing.T) {
	f := newFixture(t)
	f.history.threads = []conversations.Thread{{ThreadID: "t-1", Title: "Tea"}}

	w := f.do(t, 1, http.MethodGet, "/api/v1/chat/history?limit=5", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "t-1") {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
	if f.history.limit != 5 {
		t.Fatalf("expected limit 5, got %d", f.history.limit)
	}

	w = f.do(t, 1, http.MethodGet, "/api/v1/chat/history?limit=zero", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestSaveAndReadTokens(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, 1, http.MethodGet, "/api/v1/tokens", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before save, got %d", w.Code)
	}

	w = f.do(t, 1, http.MethodPost, "/api/v1/tokens", `{"facebook":"fb-token"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	if f.tokens.saved.Facebook == nil || *f.tokens.saved.Facebook != "fb-token" || f.tokens.saved.LinkedIn != nil {
		t.Fatalf("unexpected saved credentials %+v", f.tokens.saved)
	}

	w = f.do(t, 1, http.MethodGet, "/api/v1/tokens", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"facebook":"fb-token"`) {
		t.Fatalf("unexpected token view %d %s", w.Code, w.Body.String())
	}
}

func TestSaveTokensRequiresAField(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, 1, http.MethodPost, "/api/v1/tokens", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSaveTokensRejectsExpiryOnly(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, 1, http.MethodPost, "/api/v1/tokens", `{"expires_at":"2030-01-02T03:04:05Z"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", w.Code, w.Body.String())
	}
	if f.tokens.rec != nil {
		t.Fatal("expected no save without a token")
	}
}

func TestSavePlatformToken(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, 1, http.MethodPut, "/api/v1/tokens/facebook", `{"token":" fb-token "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	if f.tokens.saved.Facebook == nil || *f.tokens.saved.Facebook != "fb-token" {
		t.Fatalf("expected facebook token saved, got %+v", f.tokens.saved)
	}
	if f.tokens.saved.Instagram != nil || f.tokens.saved.LinkedIn != nil {
		t.Fatalf("expected other platforms untouched, got %+v", f.tokens.saved)
	}

	w = f.do(t, 1, http.MethodPut, "/api/v1/tokens/facebook", `{"token":"  "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank token, got %d", w.Code)
	}
	w = f.do(t, 1, http.MethodPut, "/api/v1/tokens/myspace", `{"token":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown platform, got %d", w.Code)
	}
}

func TestPatchTokensHonoursExpiry(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, 1, http.MethodPatch, "/api/v1/tokens", `{"linkedin":"li"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a record, got %d", w.Code)
	}

	f.tokens.rec = &tokens.Record{RequesterID: 1}
	w = f.do(t, 1, http.MethodPatch, "/api/v1/tokens", `{"expires_at":"2030-01-02T03:04:05Z"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	want := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	if f.tokens.expiry == nil || !f.tokens.expiry.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, f.tokens.expiry)
	}
}

func TestValidateToken(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, 1, http.MethodGet, "/api/v1/tokens/facebook", "")
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "invalid" || body["message"] != "No valid facebook token found" || body["has_token"] != false {
		t.Fatalf("unexpected invalid body %v", body)
	}

	f.tokens.lookup = tokens.Lookup{Status: tokens.Valid, Token: "x", ExpiresAt: time.Now().Add(time.Hour)}
	w = f.do(t, 1, http.MethodGet, "/api/v1/tokens/facebook", "")
	body = nil
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "valid" || body["message"] != "Valid facebook token found" || body["has_token"] != true {
		t.Fatalf("unexpected valid body %v", body)
	}

	w = f.do(t, 1, http.MethodGet, "/api/v1/tokens/myspace", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown platform, got %d", w.Code)
	}
}

func TestDeleteToken(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, 1, http.MethodDelete, "/api/v1/tokens/LinkedIn", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(f.tokens.cleared) != 1 || f.tokens.cleared[0] != platform.LinkedIn {
		t.Fatalf("unexpected clears %v", f.tokens.cleared)
	}

	f.tokens.clearErr = tokens.ErrNoRecord
	w = f.do(t, 1, http.MethodDelete, "/api/v1/tokens/facebook", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
