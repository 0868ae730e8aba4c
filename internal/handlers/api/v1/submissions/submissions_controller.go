// ===============================
// FILE: internal/handlers/api/v1/submissions/submissions_controller.go
// ===============================

package submissions

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"sidequest/internal/handlers/api/v1/common"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

const (
	mediaFormField = "file"
	// multipart bookkeeping on top of the largest accepted file
	multipartOverhead = 1 << 20
)

// SubmissionController handles completion proofs and their review
type SubmissionController struct {
	common.Base
	submissionService services.SubmissionService
	maxUploadBytes    int64
}

// NewSubmissionController creates a new submission controller
func NewSubmissionController(
	submissionService services.SubmissionService,
	maxUploadBytes int64,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *SubmissionController {
	return &SubmissionController{
		Base:              common.NewBase(logger, responseBuilder),
		submissionService: submissionService,
		maxUploadBytes:    maxUploadBytes,
	}
}

// Submit handles POST /api/quests/{id}/submissions
// @Summary Submit proof of completion
// @Description A user may hold only one pending or approved submission per quest.
// @Tags submissions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Quest ID"
// @Param body body services.CreateSubmissionRequest true "Submission"
// @Success 201 {object} response.APIResponse{data=models.Submission}
// @Failure 409 {object} response.APIResponse
// @Router /quests/{id}/submissions [post]
func (c *SubmissionController) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}
	questID, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}

	var req services.CreateSubmissionRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}

	sub, err := c.submissionService.Submit(r.Context(), actor, questID, &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}

	c.RequestLogger(r).Info("Submission created",
		zap.Int64("submission_id", sub.ID),
		zap.Int64("quest_id", questID),
	)
	c.ResponseBuilder.WriteCreated(w, r, sub)
}

// ListForQuest handles GET /api/quests/{id}/submissions
// @Summary List submissions of a quest
// @Tags submissions
// @Produce json
// @Param id path int true "Quest ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.APIResponse{data=[]models.Submission}
// @Router /quests/{id}/submissions [get]
func (c *SubmissionController) ListForQuest(w http.ResponseWriter, r *http.Request) {
	questID, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}
	params, ok := c.Pagination(w, r)
	if !ok {
		return
	}

	page, err := c.submissionService.ListForQuest(r.Context(), c.Viewer(r), questID, params)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	response.WritePage(c.ResponseBuilder, w, r, page)
}

// ListMine handles GET /api/submissions/mine
// @Summary List the caller's submissions
// @Tags submissions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse{data=[]models.Submission}
// @Router /submissions/mine [get]
func (c *SubmissionController) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}
	params, ok := c.Pagination(w, r)
	if !ok {
		return
	}

	page, err := c.submissionService.ListMine(r.Context(), actor, params)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	response.WritePage(c.ResponseBuilder, w, r, page)
}

// GetSubmission handles GET /api/submissions/{id}
// @Summary Get a submission
// @Tags submissions
// @Produce json
// @Param id path int true "Submission ID"
// @Success 200 {object} response.APIResponse{data=models.Submission}
// @Failure 404 {object} response.APIResponse
// @Router /submissions/{id} [get]
func (c *SubmissionController) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}

	sub, err := c.submissionService.GetSubmission(r.Context(), c.Viewer(r), id)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, sub)
}

// Review handles POST /api/submissions/{id}/review
// @Summary Approve or reject a submission
// @Description Approval awards XP, updates the streak and evaluates badges.
// @Tags submissions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Submission ID"
// @Param body body services.ReviewSubmissionRequest true "Decision"
// @Success 200 {object} response.APIResponse{data=services.ReviewResult}
// @Failure 403 {object} response.APIResponse
// @Router /submissions/{id}/review [post]
func (c *SubmissionController) Review(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}
	id, ok := c.IDParam(w, r, "id")
	if !ok {
		return
	}

	var req services.ReviewSubmissionRequest
	if !c.DecodeJSON(w, r, &req) {
		return
	}
	req.Decision = strings.ToUpper(strings.TrimSpace(req.Decision))

	result, err := c.submissionService.Review(r.Context(), actor, id, &req)
	if err != nil {
		c.WriteError(w, r, err)
		return
	}
	c.ResponseBuilder.WriteSuccess(w, r, result)
}

// UploadMedia handles POST /api/submissions/media
// @Summary Upload a proof photo or video
// @Tags submissions
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Photo or video"
// @Success 201 {object} response.APIResponse{data=services.FileUploadResult}
// @Failure 400 {object} response.APIResponse
// @Failure 503 {object} response.APIResponse
// @Router /submissions/media [post]
func (c *SubmissionController) UploadMedia(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.Actor(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile(mediaFormField)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.WriteError(w, r, services.InvalidInputError(mediaFormField, "exceeds the maximum upload size"))
			return
		}
		c.WriteError(w, r, services.InvalidInputError(mediaFormField, "is required"))
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	result, err := c.submissionService.UploadMedia(r.Context(), actor, &services.FileUploadRequest{
		File:        file,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	})
	if err != nil {
		c.WriteError(w, r, err)
		return
	}

	c.RequestLogger(r).Info("Media uploaded",
		zap.String("public_id", result.PublicID),
		zap.Int64("size", result.Size),
	)
	c.ResponseBuilder.WriteCreated(w, r, result)
}
