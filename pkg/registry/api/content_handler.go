package api

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/render"
	"github.com/tendant/simple-registry/pkg/registry"
)

// PublishContentRequest is the request body for publishing content
type PublishContentRequest struct {
	ContentHash string   `json:"content_hash"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	Price       uint64   `json:"price"`
}

// ContentResponse is the response body for a content
type ContentResponse struct {
	*registry.Content
	AverageRating uint64 `json:"average_rating"`
}

func newContentResponse(c *registry.Content) ContentResponse {
	return ContentResponse{Content: c, AverageRating: c.AverageRating()}
}

// ViewContentRequest is the request body for paying to view content
type ViewContentRequest struct {
	PaidAmount uint64 `json:"paid_amount"`
}

// RateContentRequest is the request body for rating content
type RateContentRequest struct {
	Rating uint8 `json:"rating"`
}

// RatingResponse is the response body for a single rater's rating
type RatingResponse struct {
	ContentID uint64         `json:"content_id"`
	Rater     common.Address `json:"rater"`
	Rating    uint8          `json:"rating"`
}

// AverageRatingResponse is the response body for a content's average rating
type AverageRatingResponse struct {
	ContentID     uint64 `json:"content_id"`
	AverageRating uint64 `json:"average_rating"`
}

// PublishContent publishes content on behalf of the caller
func (h *Handler) PublishContent(w http.ResponseWriter, r *http.Request) {
	var req PublishContentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	content, err := h.service.PublishContent(r.Context(), caller(r), registry.PublishContentRequest{
		ContentHash: req.ContentHash,
		Title:       req.Title,
		Tags:        req.Tags,
		Price:       req.Price,
	})
	if err != nil {
		h.writeServiceError(w, r, "Failed to publish content", err, "caller", caller(r).Hex())
		return
	}

	h.logger.InfoContext(r.Context(), "Content published", "content_id", content.ID, "creator", content.Creator.Hex())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newContentResponse(content))
}

// GetContent returns a content by id
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	content, err := h.service.GetContent(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "Failed to get content", err, "content_id", id)
		return
	}
	render.JSON(w, r, newContentResponse(content))
}

// ListContents lists contents filtered by creator and tag
func (h *Handler) ListContents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := registry.ListContentsRequest{Tag: query.Get("tag")}

	if raw := query.Get("creator"); raw != "" {
		creator, err := parseAddress(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_address", err.Error())
			return
		}
		req.Creator = &creator
	}
	for name, dst := range map[string]*int{"limit": &req.Limit, "offset": &req.Offset} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_argument", name+" must be an integer")
			return
		}
		*dst = n
	}

	contents, err := h.service.ListContents(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "Failed to list contents", err)
		return
	}

	resp := make([]ContentResponse, 0, len(contents))
	for _, c := range contents {
		resp = append(resp, newContentResponse(c))
	}
	render.JSON(w, r, resp)
}

// ViewContent pays the creator and records a view
func (h *Handler) ViewContent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req ViewContentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.service.ViewContent(r.Context(), caller(r), id, req.PaidAmount); err != nil {
		h.writeServiceError(w, r, "Failed to view content", err,
			"content_id", id, "caller", caller(r).Hex(), "paid_amount", req.PaidAmount)
		return
	}

	content, err := h.service.GetContent(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "Failed to get content", err, "content_id", id)
		return
	}
	render.JSON(w, r, newContentResponse(content))
}

// RateContent records the caller's rating
func (h *Handler) RateContent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req RateContentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.service.RateContent(r.Context(), caller(r), id, req.Rating); err != nil {
		h.writeServiceError(w, r, "Failed to rate content", err, "content_id", id, "caller", caller(r).Hex())
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, RatingResponse{ContentID: id, Rater: caller(r), Rating: req.Rating})
}

// GetAverageRating returns the integer average rating of a content
func (h *Handler) GetAverageRating(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	avg, err := h.service.GetAverageRating(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "Failed to get average rating", err, "content_id", id)
		return
	}
	render.JSON(w, r, AverageRatingResponse{ContentID: id, AverageRating: avg})
}

// GetUserRating returns one rater's rating, 0 if they have not rated
func (h *Handler) GetUserRating(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	rater, ok := addressParam(w, r)
	if !ok {
		return
	}

	rating, err := h.service.GetUserRating(r.Context(), id, rater)
	if err != nil {
		h.writeServiceError(w, r, "Failed to get rating", err, "content_id", id, "rater", rater.Hex())
		return
	}
	render.JSON(w, r, RatingResponse{ContentID: id, Rater: rater, Rating: rating})
}
