package challenges

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sidequest/internal/middleware"
	"sidequest/internal/models"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

type mockChallengeService struct {
	services.ChallengeService
	joined    []int64
	lastLimit int
}

func (m *mockChallengeService) JoinChallenge(ctx context.Context, actor services.Actor, id int64) error {
	if id == 2 {
		return services.NewBusinessError("challenge is full", "CHALLENGE_FULL")
	}
	m.joined = append(m.joined, actor.UserID)
	return nil
}

func (m *mockChallengeService) GetLeaderboard(ctx context.Context, id int64, limit int) ([]*models.ChallengeLeaderboardEntry, error) {
	m.lastLimit = limit
	return []*models.ChallengeLeaderboardEntry{{Rank: 1, UserID: 7, Username: "runner", Score: 30}}, nil
}

func setup() (*mockChallengeService, http.Handler) {
	svc := &mockChallengeService{}
	c := NewChallengeController(svc, zap.NewNop(), response.NewBuilder(nil, zap.NewNop()))

	r := chi.NewRouter()
	r.Post("/api/challenges/{id}/join", c.JoinChallenge)
	r.Get("/api/challenges/{id}/leaderboard", c.Leaderboard)
	return svc, r
}

func joinAs(userID int64, id string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/challenges/"+id+"/join", nil)
	return req.WithContext(middleware.WithAuthContext(req.Context(), &middleware.AuthContext{UserID: userID, Role: models.RoleUser}))
}

func TestJoinChallenge(t *testing.T) {
	svc, h := setup()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, joinAs(7, "1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{7}, svc.joined)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, joinAs(8, "2"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "CHALLENGE_FULL")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/challenges/1/join", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Len(t, svc.joined, 1)
}

func TestLeaderboard(t *testing.T) {
	svc, h := setup()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/challenges/1/leaderboard?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.lastLimit)

	var body struct {
		Data []models.ChallengeLeaderboardEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "runner", body.Data[0].Username)
}
