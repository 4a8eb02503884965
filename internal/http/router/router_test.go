package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/feedback-escalation/internal/config"
	"github.com/ignatzorin/feedback-escalation/internal/db"
	"github.com/ignatzorin/feedback-escalation/internal/domain/notification"
	"github.com/ignatzorin/feedback-escalation/internal/http/handlers"
	"github.com/ignatzorin/feedback-escalation/internal/http/middleware"
	"github.com/ignatzorin/feedback-escalation/internal/infrastructure/persistence"
	"github.com/ignatzorin/feedback-escalation/internal/interface/http/handler"
	"github.com/ignatzorin/feedback-escalation/internal/service"
	"github.com/ignatzorin/feedback-escalation/internal/usecase/escalation"
	"github.com/ignatzorin/feedback-escalation/internal/ws"
)

const testSecret = "router-test-secret-0123456789abcdef"

type sentNotification struct {
	kind   notification.Kind
	caseID uuid.UUID
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (d *recordingDispatcher) Notify(_ context.Context, kind notification.Kind, caseID uuid.UUID, _ notification.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentNotification{kind: kind, caseID: caseID})
}

func (d *recordingDispatcher) kinds() []notification.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]notification.Kind, 0, len(d.sent))
	for _, s := range d.sent {
		out = append(out, s.kind)
	}
	return out
}

type testServer struct {
	engine   *gin.Engine
	tokens   *service.TokenManager
	notifier *recordingDispatcher
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

type snapshotBody struct {
	Feedback struct {
		ID          uuid.UUID  `json:"id"`
		Priority    string     `json:"priority"`
		Status      string     `json:"status"`
		EscalatedAt *time.Time `json:"escalated_at"`
		SLADeadline *time.Time `json:"sla_deadline"`
	} `json:"feedback"`
	MissingRoles                []string `json:"missing_roles"`
	PendingLabel                string   `json:"pending_label"`
	QuorumComplete              bool     `json:"quorum_complete"`
	ArchiveConfirmationRequired bool     `json:"archive_confirmation_required"`
}

func newTestServer(t *testing.T, rateLimit int64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	conn, err := db.NewSQLite(ctx, filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.RunMigrations(ctx, conn, filepath.Join("..", "..", "..", "migrations", "sqlite")))

	cfg := &config.Config{
		Env:             "test",
		AllowedOrigins:  []string{"http://localhost:3000"},
		RateLimitLimit:  rateLimit,
		RateLimitPeriod: time.Minute,
	}
	tokens := service.NewTokenManager(testSecret, time.Minute)
	store, err := middleware.NewRateLimitStore(nil)
	require.NoError(t, err)

	notifier := &recordingDispatcher{}
	feedbackRepo := persistence.NewFeedbackRepositoryAdapter(conn)
	tracker := escalation.NewQuorumTracker(persistence.NewApprovalRepositoryAdapter(conn))
	feedbackHandler := handler.NewFeedbackHandler(
		escalation.NewRegisterFeedbackUseCase(feedbackRepo, notifier),
		escalation.NewGetCaseUseCase(feedbackRepo, tracker),
		escalation.NewMarkViewedUseCase(feedbackRepo, tracker),
		escalation.NewOnCategoryChangedUseCase(feedbackRepo, tracker, notifier),
		escalation.NewOnApproveUseCase(feedbackRepo, tracker, notifier),
		escalation.NewConfirmArchiveUseCase(feedbackRepo, tracker, notifier),
		escalation.NewListEscalationLogUseCase(feedbackRepo, persistence.NewEscalationLogRepositoryAdapter(conn)),
	)

	engine := SetupRouter(cfg, tokens, store,
		handlers.NewHealthHandler(conn, nil),
		handlers.NewWSHandler(ws.NewHub(), cfg.AllowedOrigins),
		feedbackHandler,
	)
	return &testServer{engine: engine, tokens: tokens, notifier: notifier}
}

func (s *testServer) token(t *testing.T, role string) string {
	t.Helper()
	token, _, err := s.tokens.Issue(service.Identity{UserID: uuid.New(), Role: role})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decodeSnapshot(t *testing.T, env envelope) snapshotBody {
	t.Helper()
	var snap snapshotBody
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	return snap
}

func (s *testServer) registerCase(t *testing.T, category string) snapshotBody {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/feedback", s.token(t, "store_manager"),
		map[string]string{"category": category, "store_id": "store-12", "market_id": "market-3"})
	require.Equal(t, http.StatusCreated, code)
	return decodeSnapshot(t, env)
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t, 100)

	code, env := s.do(t, http.MethodPost, "/api/feedback", "", map[string]string{"category": "Rude Service"})
	assert.Equal(t, http.StatusUnauthorized, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	code, _ = s.do(t, http.MethodGet, "/api/feedback/"+uuid.NewString(), "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t, 100)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"healthy"`)
}

func TestRouter_CriticalLifecycle(t *testing.T) {
	s := newTestServer(t, 100)

	created := s.registerCase(t, "Rude Service")
	assert.Equal(t, "critical", created.Feedback.Priority)
	assert.Equal(t, "escalated", created.Feedback.Status)
	require.NotNil(t, created.Feedback.EscalatedAt)
	require.NotNil(t, created.Feedback.SLADeadline)
	assert.Equal(t, []string{"ceo", "vp", "director", "dm"}, created.MissingRoles)
	assert.Equal(t, "pending: CEO, VP, Director, DM", created.PendingLabel)

	casePath := "/api/feedback/" + created.Feedback.ID.String()

	// Архивация до кворума отклоняется с перечнем недостающих ролей.
	code, env := s.do(t, http.MethodPost, casePath+"/archive", s.token(t, "vp"), nil)
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "QUORUM_INCOMPLETE", env.Error.Code)
	assert.Contains(t, env.Error.Details, "missing_roles")

	for i, role := range []string{"ceo", "vp", "director", "dm"} {
		code, env = s.do(t, http.MethodPost, casePath+"/approvals", s.token(t, role), nil)
		require.Equal(t, http.StatusCreated, code, role)

		var result struct {
			Recorded                    bool     `json:"recorded"`
			QuorumComplete              bool     `json:"quorum_complete"`
			MissingRoles                []string `json:"missing_roles"`
			ArchiveConfirmationRequired bool     `json:"archive_confirmation_required"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.True(t, result.Recorded)
		assert.Len(t, result.MissingRoles, 3-i)
		assert.Equal(t, i == 3, result.QuorumComplete)
		assert.Equal(t, i == 3, result.ArchiveConfirmationRequired)
	}

	code, env = s.do(t, http.MethodGet, casePath, s.token(t, "store_manager"), nil)
	require.Equal(t, http.StatusOK, code)
	snap := decodeSnapshot(t, env)
	assert.Equal(t, "escalated", snap.Feedback.Status)
	assert.True(t, snap.ArchiveConfirmationRequired)

	// Подтверждать архивацию может только роль из кворума.
	code, _ = s.do(t, http.MethodPost, casePath+"/archive", s.token(t, "store_manager"), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodPost, casePath+"/archive", s.token(t, "director"), nil)
	require.Equal(t, http.StatusOK, code)
	snap = decodeSnapshot(t, env)
	assert.Equal(t, "resolved", snap.Feedback.Status)

	code, env = s.do(t, http.MethodGet, casePath+"/log", s.token(t, "dm"), nil)
	require.Equal(t, http.StatusOK, code)
	var logBody struct {
		Entries []struct {
			FromStatus string `json:"from_status"`
			ToStatus   string `json:"to_status"`
			Reason     string `json:"reason"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &logBody))
	require.Len(t, logBody.Entries, 3)
	assert.Equal(t, "escalated", logBody.Entries[0].ToStatus)
	assert.Equal(t, "quorum_complete", logBody.Entries[1].Reason)
	assert.Equal(t, "escalated", logBody.Entries[1].FromStatus)
	assert.Equal(t, "escalated", logBody.Entries[1].ToStatus)
	assert.Equal(t, "resolved", logBody.Entries[2].ToStatus)
	assert.Equal(t, "archive_confirmed", logBody.Entries[2].Reason)

	assert.Equal(t, []notification.Kind{
		notification.KindCriticalEscalated,
		notification.KindApprovalRecorded,
		notification.KindApprovalRecorded,
		notification.KindApprovalRecorded,
		notification.KindApprovalRecorded,
		notification.KindQuorumComplete,
		notification.KindCaseResolved,
	}, s.notifier.kinds())
}

func TestRouter_ApprovalRules(t *testing.T) {
	s := newTestServer(t, 100)

	critical := s.registerCase(t, "Rude Service")
	path := "/api/feedback/" + critical.Feedback.ID.String() + "/approvals"

	code, env := s.do(t, http.MethodPost, path, s.token(t, "store_manager"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INELIGIBLE_ROLE", env.Error.Code)

	vp := s.token(t, "vp")
	code, _ = s.do(t, http.MethodPost, path, vp, nil)
	assert.Equal(t, http.StatusCreated, code)
	code, env = s.do(t, http.MethodPost, path, vp, nil)
	assert.Equal(t, http.StatusOK, code, "repeat approval is a no-op")
	assert.Contains(t, string(env.Data), `"recorded":false`)

	medium := s.registerCase(t, "Slow Service")
	code, env = s.do(t, http.MethodPost, "/api/feedback/"+medium.Feedback.ID.String()+"/approvals", s.token(t, "ceo"), nil)
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CASE_NOT_CRITICAL", env.Error.Code)
}

func TestRouter_ViewAndCategoryChange(t *testing.T) {
	s := newTestServer(t, 100)

	created := s.registerCase(t, "Slow Service")
	assert.Equal(t, "unopened", created.Feedback.Status)
	casePath := "/api/feedback/" + created.Feedback.ID.String()
	token := s.token(t, "store_manager")

	code, env := s.do(t, http.MethodPost, casePath+"/view", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "opened", decodeSnapshot(t, env).Feedback.Status)

	code, env = s.do(t, http.MethodPatch, casePath+"/category", token, map[string]string{"category": "Rude Service"})
	require.Equal(t, http.StatusOK, code)
	snap := decodeSnapshot(t, env)
	assert.Equal(t, "critical", snap.Feedback.Priority)
	assert.Equal(t, "escalated", snap.Feedback.Status)

	code, env = s.do(t, http.MethodPatch, casePath+"/category", token, map[string]string{"category": "Slow Service"})
	require.Equal(t, http.StatusOK, code)
	snap = decodeSnapshot(t, env)
	assert.Equal(t, "opened", snap.Feedback.Status)
	assert.Nil(t, snap.Feedback.EscalatedAt)

	code, _ = s.do(t, http.MethodPatch, casePath+"/category", token, map[string]string{"category": "  "})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRouter_BadInput(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.token(t, "dm")

	code, _ := s.do(t, http.MethodGet, "/api/feedback/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := s.do(t, http.MethodGet, "/api/feedback/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	code, _ = s.do(t, http.MethodPost, "/api/feedback", token, map[string]string{"store_id": "store-1"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRouter_RateLimitsMutations(t *testing.T) {
	s := newTestServer(t, 2)
	token := s.token(t, "dm")
	body := map[string]string{"category": "Slow Service"}

	for i := 0; i < 2; i++ {
		code, _ := s.do(t, http.MethodPost, "/api/feedback", token, body)
		require.Equal(t, http.StatusCreated, code)
	}

	code, env := s.do(t, http.MethodPost, "/api/feedback", token, body)
	assert.Equal(t, http.StatusTooManyRequests, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)

	// Лимит считается по пользователю.
	code, _ = s.do(t, http.MethodPost, "/api/feedback", s.token(t, "dm"), body)
	assert.Equal(t, http.StatusCreated, code)
}
