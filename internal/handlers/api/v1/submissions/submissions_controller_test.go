package submissions

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
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

type mockSubmissionService struct {
	services.SubmissionService
	upload   *services.FileUploadRequest
	body     []byte
	review   *services.ReviewSubmissionRequest
	submitID int64
}

func (m *mockSubmissionService) Submit(ctx context.Context, actor services.Actor, questID int64, req *services.CreateSubmissionRequest) (*models.Submission, error) {
	if questID == 2 {
		return nil, services.NewConflictError("you have already submitted this quest", "ALREADY_SUBMITTED")
	}
	m.submitID = questID
	return &models.Submission{ID: 11, QuestID: questID, UserID: actor.UserID}, nil
}

func (m *mockSubmissionService) Review(ctx context.Context, actor services.Actor, id int64, req *services.ReviewSubmissionRequest) (*services.ReviewResult, error) {
	m.review = req
	return &services.ReviewResult{Submission: &models.Submission{ID: id}}, nil
}

func (m *mockSubmissionService) UploadMedia(ctx context.Context, actor services.Actor, req *services.FileUploadRequest) (*services.FileUploadResult, error) {
	m.upload = req
	m.body, _ = io.ReadAll(req.File)
	return &services.FileUploadResult{URL: "https://res.example/x.jpg", PublicID: "x", Size: req.Size, Type: "image"}, nil
}

func setup(maxUpload int64) (*mockSubmissionService, http.Handler) {
	svc := &mockSubmissionService{}
	c := NewSubmissionController(svc, maxUpload, zap.NewNop(), response.NewBuilder(nil, zap.NewNop()))
	r := chi.NewRouter()
	r.Post("/api/quests/{id}/submissions", c.Submit)
	r.Post("/api/submissions/{id}/review", c.Review)
	r.Post("/api/submissions/media", c.UploadMedia)
	return svc, r
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithAuthContext(req.Context(), &middleware.AuthContext{UserID: 4, Role: models.RoleModerator}))
}

func multipartBody(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestSubmit(t *testing.T) {
	svc, h := setup(1 << 20)
	payload := []byte(`{"type":"TEXT","caption":"Done before breakfast"}`)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/quests/1/submissions", bytes.NewReader(payload))))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(1), svc.submitID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/quests/2/submissions", bytes.NewReader(payload))))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ALREADY_SUBMITTED")
}

func TestReview_NormalizesDecision(t *testing.T) {
	svc, h := setup(1 << 20)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/submissions/3/review", bytes.NewReader([]byte(`{"decision":" approve "}`)))))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.review)
	assert.Equal(t, "APPROVE", svc.review.Decision)
}

func TestUploadMedia(t *testing.T) {
	svc, h := setup(1 << 20)
	body, contentType := multipartBody(t, "proof.jpg", "image/jpeg", []byte("jpeg-bytes"))

	req := authed(httptest.NewRequest(http.MethodPost, "/api/submissions/media", body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.upload)
	assert.Equal(t, "proof.jpg", svc.upload.Filename)
	assert.Equal(t, "image/jpeg", svc.upload.ContentType)
	assert.Equal(t, int64(10), svc.upload.Size)
	assert.Equal(t, []byte("jpeg-bytes"), svc.body)
}

func TestUploadMedia_MissingFile(t *testing.T) {
	svc, h := setup(1 << 20)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/submissions/media", bytes.NewReader(nil)))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.upload)
}
