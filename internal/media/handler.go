package media

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/artifold/service/internal/middleware"
	"github.com/artifold/service/internal/response"
)

// Handler holds HTTP handlers for upload endpoints.
type Handler struct {
	uploads *UploadService
}

// NewHandler creates a new media Handler.
func NewHandler(uploads *UploadService) *Handler {
	return &Handler{uploads: uploads}
}

type presignRequest struct {
	Scope      string `json:"scope"      example:"artifact"`
	ArtifactID int64  `json:"artifactId,omitempty" example:"42"`
	WorkflowID int64  `json:"workflowId,omitempty"`
	SectionID  int64  `json:"sectionId,omitempty"`
	Ext        string `json:"ext"        example:"png"`
	Bytes      int64  `json:"bytes"      example:"500000"`
}

type deleteUploadRequest struct {
	BaseKey string `json:"baseKey" example:"artifact/42/media/3f1c.../original.png"`
}

// Presign godoc
//
//	@Summary		Presign an upload
//	@Description	Validate a declared upload and return a fresh asset key plus a time-limited presigned PUT URL for the private location. No database row is created; the key stays unreferenced until a later save persists it.
//	@Tags			media
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		presignRequest	true	"Upload intent"
//	@Success		200		{object}	response.Envelope{data=PresignResult}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		415		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/media/presign [post]
func (h *Handler) Presign(w http.ResponseWriter, r *http.Request) {
	actorID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok || actorID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	result, err := h.uploads.Presign(r.Context(), actorID, PresignRequest{
		Scope:      Scope(strings.ToLower(req.Scope)),
		ArtifactID: req.ArtifactID,
		WorkflowID: req.WorkflowID,
		SectionID:  req.SectionID,
		Ext:        req.Ext,
		Bytes:      req.Bytes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, result)
}

// DeleteUpload godoc
//
//	@Summary		Delete an abandoned upload
//	@Description	Remove the private original and any renditions for a key the client no longer intends to attach. The caller must own the key.
//	@Tags			media
//	@Accept			json
//	@Security		BearerAuth
//	@Param			request	body	deleteUploadRequest	true	"Key to delete"
//	@Success		204
//	@Failure		400	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/media/upload [delete]
func (h *Handler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	actorID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok || actorID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req deleteUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.uploads.DeleteUpload(r.Context(), actorID, req.BaseKey); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

// writeError maps the media error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is an infrastructure failure.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrUnsupportedMediaType):
		response.UnsupportedMediaType(w, err.Error())
	case errors.Is(err, ErrPayloadTooLarge):
		response.PayloadTooLarge(w, err.Error())
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrSourceMissing):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrUnprocessableMedia):
		response.UnprocessableEntity(w, err.Error())
	default:
		response.InternalError(w)
	}
}
