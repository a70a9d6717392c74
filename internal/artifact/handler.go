package artifact

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/artifold/service/internal/media"
	"github.com/artifold/service/internal/middleware"
	"github.com/artifold/service/internal/response"
)

// Handler holds HTTP handlers for artifact publish endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new artifact Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Publish godoc
//
//	@Summary		Publish an artifact
//	@Description	Promote the artifact's media (original plus derived renditions) to the public root and flip its visibility to public. Idempotent: republishing an already-public artifact re-copies nothing new.
//	@Tags			artifacts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Artifact ID"
//	@Success		200	{object}	response.Envelope{data=PublishResult}
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		409	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/artifacts/{id}/publish [post]
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.svc.Publish)
}

// Unpublish godoc
//
//	@Summary		Unpublish an artifact
//	@Description	Delete the public copies of the artifact's media and flip its visibility back to private. Private originals are never touched.
//	@Tags			artifacts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Artifact ID"
//	@Success		200	{object}	response.Envelope{data=PublishResult}
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/artifacts/{id}/unpublish [post]
func (h *Handler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.svc.Unpublish)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actorID string, artifactID int64) (*PublishResult, error)) {
	actorID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok || actorID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	artifactID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || artifactID <= 0 {
		response.BadRequest(w, "invalid artifact id")
		return
	}

	result, err := op(r.Context(), actorID, artifactID)
	if err != nil {
		switch {
		case h.svc.IsNotFound(err):
			response.NotFound(w, "artifact not found")
		case errors.Is(err, media.ErrForbidden):
			response.Forbidden(w, err.Error())
		case errors.Is(err, media.ErrSourceMissing):
			response.Conflict(w, err.Error())
		case errors.Is(err, media.ErrUnprocessableMedia):
			response.UnprocessableEntity(w, err.Error())
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}
