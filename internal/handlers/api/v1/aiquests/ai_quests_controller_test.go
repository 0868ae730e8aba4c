package aiquests

import (
	"bytes"
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
	"sidequest/internal/questgen"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

type mockAIQuestService struct {
	services.AIQuestService
	generated *services.GenerateQuestRequest
	saved     *services.SaveAIQuestRequest
	actor     services.Actor
}

func sampleOutput(category string) questgen.AIQuestOutput {
	return questgen.AIQuestOutput{
		Title:            "Ten minute stretch",
		ShortDescription: "Loosen up before work",
		Category:         category,
		Difficulty:       "easy",
		DurationMin:      10,
		Description:      "Stretch every major muscle group for ten minutes.",
		Proof:            []string{"photo"},
		XP:               50,
	}
}

func (m *mockAIQuestService) Generate(ctx context.Context, actor services.Actor, req *services.GenerateQuestRequest) (*services.GenerateQuestResponse, error) {
	m.generated = req
	m.actor = actor
	resp := &services.GenerateQuestResponse{
		Quest:          sampleOutput("fitness"),
		Source:         questgen.SourceMock,
		FallbackReason: "provider disabled",
	}
	if req.Save {
		resp.Saved = &models.Quest{ID: 77, Title: resp.Quest.Title, Status: models.QuestStatusDraft}
	}
	return resp, nil
}

func (m *mockAIQuestService) Save(ctx context.Context, actor services.Actor, req *services.SaveAIQuestRequest) (*services.SaveAIQuestResponse, error) {
	m.saved = req
	if req.Quest.Category != "fitness" {
		return nil, services.NewNotFoundError("category not found")
	}
	return &services.SaveAIQuestResponse{Quest: &models.Quest{ID: 78, Title: req.Quest.Title, Status: models.QuestStatusDraft}}, nil
}

func setup() (*mockAIQuestService, http.Handler) {
	svc := &mockAIQuestService{}
	c := NewAIQuestController(svc, zap.NewNop(), response.NewBuilder(nil, zap.NewNop()))

	r := chi.NewRouter()
	r.Post("/api/ai-quests/generate", c.Generate)
	r.Post("/api/ai-quests/save", c.Save)
	return svc, r
}

func post(t *testing.T, h http.Handler, path string, body interface{}, authed bool) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req = req.WithContext(middleware.WithAuthContext(req.Context(), &middleware.AuthContext{UserID: 5, Role: models.RoleUser}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func TestGenerate_Envelope(t *testing.T) {
	svc, h := setup()

	rec, body := post(t, h, "/api/ai-quests/generate", map[string]interface{}{"mode": "quick", "difficulty": "easy"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Nil(t, body["error"])
	assert.Equal(t, int64(5), svc.actor.UserID)
	assert.Equal(t, "easy", svc.generated.Difficulty)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "mock", data["source"])
	assert.Equal(t, "provider disabled", data["fallback_reason"])
	quest := data["quest"].(map[string]interface{})
	assert.Equal(t, "fitness", quest["category"])
	assert.Equal(t, float64(50), quest["xp"])
	assert.Nil(t, data["saved"])
}

func TestGenerate_WithSaveIsCreated(t *testing.T) {
	_, h := setup()

	rec, body := post(t, h, "/api/ai-quests/generate", map[string]interface{}{"difficulty": "easy", "save": true}, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := body["data"].(map[string]interface{})["saved"].(map[string]interface{})
	assert.Equal(t, float64(77), saved["id"])
}

func TestGenerate_RequiresAuthentication(t *testing.T) {
	svc, h := setup()

	rec, body := post(t, h, "/api/ai-quests/generate", map[string]interface{}{"difficulty": "easy"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Nil(t, svc.generated)
}

func TestSave_Envelope(t *testing.T) {
	_, h := setup()

	rec, body := post(t, h, "/api/ai-quests/save", map[string]interface{}{"quest": sampleOutput("fitness")}, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	quest := body["data"].(map[string]interface{})["quest"].(map[string]interface{})
	assert.Equal(t, float64(78), quest["id"])
	assert.Equal(t, "Ten minute stretch", quest["title"])
}

func TestSave_UnknownCategoryIsNotFound(t *testing.T) {
	svc, h := setup()

	rec, body := post(t, h, "/api/ai-quests/save", map[string]interface{}{"quest": sampleOutput("learning")}, true)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "learning", svc.saved.Quest.Category)
	assert.Equal(t, false, body["success"])
	assert.Nil(t, body["data"])

	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, services.ErrTypeNotFound, errBody["type"])
	assert.Equal(t, "category not found", errBody["message"])
}
