package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teamace/ballshop/pkg/auth"
	"github.com/teamace/ballshop/pkg/httputil"
	"github.com/teamace/ballshop/pkg/observability"
	"github.com/teamace/ballshop/pkg/store"
	"github.com/teamace/ballshop/pkg/uploads"
)

// maxReviewImageSize bounds multipart review uploads.
const maxReviewImageSize = 10 << 20

// ReviewHandlers serves product reviews, their comments and image uploads.
type ReviewHandlers struct {
	reviews  *store.Reviews
	products *store.Products
	users    UserReader
	images   uploads.ObjectStore
	logger   *observability.Logger
}

// NewReviewHandlers creates the review handlers. images may be nil when no
// object storage is configured; uploads then return an error while plain
// reviews keep working.
func NewReviewHandlers(reviews *store.Reviews, products *store.Products, users UserReader, images uploads.ObjectStore, logger *observability.Logger) *ReviewHandlers {
	return &ReviewHandlers{
		reviews:  reviews,
		products: products,
		users:    users,
		images:   images,
		logger:   logger,
	}
}

// RegisterRoutes mounts the review endpoints. Reads are public; writes go
// through the RBAC gate.
func (h *ReviewHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/reviews/product/{productId:[0-9]+}", h.ListByProduct).Methods(http.MethodGet)
	router.HandleFunc("/api/reviews/{id:[0-9]+}/comments", h.ListComments).Methods(http.MethodGet)

	router.HandleFunc("/api/reviews/my", h.ListMine).Methods(http.MethodGet)
	router.HandleFunc("/api/reviews", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/api/reviews/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/api/reviews/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/api/reviews/{id:[0-9]+}/image", h.UploadImage).Methods(http.MethodPost)
	router.HandleFunc("/api/reviews/{id:[0-9]+}/comments", h.AddComment).Methods(http.MethodPost)
	router.HandleFunc("/api/reviews/comments/{id:[0-9]+}", h.DeleteComment).Methods(http.MethodDelete)
}

func (h *ReviewHandlers) ListByProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParsePathInt64OrError(w, r, "productId")
	if !ok {
		return
	}

	reviews, err := h.reviews.ListByProduct(r.Context(), productID)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to load reviews"))
		return
	}
	if reviews == nil {
		reviews = []*store.Review{}
	}
	httputil.WriteSuccess(w, reviews)
}

func (h *ReviewHandlers) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}

	reviews, err := h.reviews.ListByNickname(r.Context(), user.Nickname)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to load reviews"))
		return
	}
	if reviews == nil {
		reviews = []*store.Review{}
	}
	httputil.WriteSuccess(w, reviews)
}

func (h *ReviewHandlers) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}

	var req ReviewRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Content, "content") {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		httputil.WriteValidationError(w, "rating must be between 1 and 5")
		return
	}

	if _, err := h.products.Get(r.Context(), req.ProductID); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			httputil.WriteNotFoundError(w, "Product not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to load product"))
		return
	}

	review := &store.Review{
		ProductID: req.ProductID,
		Nickname:  user.Nickname,
		Content:   req.Content,
		Rating:    req.Rating,
	}
	if err := h.reviews.Create(r.Context(), review); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to create review"))
		return
	}
	httputil.WriteCreated(w, review)
}

func (h *ReviewHandlers) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req ReviewRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		httputil.WriteValidationError(w, "rating must be between 1 and 5")
		return
	}

	existing, err := h.reviews.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			httputil.WriteNotFoundError(w, "Review not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to load review"))
		return
	}

	review := &store.Review{
		ID:       id,
		Nickname: user.Nickname,
		Content:  req.Content,
		Rating:   req.Rating,
		ImageURL: existing.ImageURL,
	}
	if err := h.reviews.Update(r.Context(), review); err != nil {
		if errors.Is(err, store.ErrNotReviewAuthor) {
			httputil.WriteForbidden(w, "You can only edit your own reviews")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to update review"))
		return
	}
	httputil.WriteSuccess(w, review)
}

func (h *ReviewHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	// Admins can remove any review; authors only their own.
	requireAuthor := user.Role != auth.RoleAdmin
	err := h.reviews.Delete(r.Context(), id, user.Nickname, requireAuthor)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotReviewAuthor):
			httputil.WriteForbidden(w, "You can only delete your own reviews")
		case errors.Is(err, store.ErrReviewNotFound):
			httputil.WriteNotFoundError(w, "Review not found")
		default:
			httputil.WriteInternalError(w, errors.New("failed to delete review"))
		}
		return
	}
	httputil.WriteNoContent(w)
}

// UploadImage attaches a multipart image to the caller's review.
func (h *ReviewHandlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if h.images == nil {
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "Image uploads are not configured")
		return
	}

	review, err := h.reviews.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			httputil.WriteNotFoundError(w, "Review not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to load review"))
		return
	}
	if review.Nickname != user.Nickname {
		httputil.WriteForbidden(w, "You can only attach images to your own reviews")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReviewImageSize)
	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.WriteBadRequest(w, "image file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	key, err := h.images.StoreReviewImage(r.Context(), user.Nickname, id, header.Filename, file, contentType)
	if err != nil {
		if h.logger != nil {
			h.logger.WithError(err).Error("review image upload failed")
		}
		httputil.WriteInternalError(w, errors.New("failed to store image"))
		return
	}

	review.ImageURL = "/uploads/" + key
	if err := h.reviews.Update(r.Context(), review); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to attach image"))
		return
	}
	httputil.WriteSuccess(w, map[string]string{"imageUrl": review.ImageURL})
}

func (h *ReviewHandlers) AddComment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req CommentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Content, "content") {
		return
	}

	if _, err := h.reviews.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			httputil.WriteNotFoundError(w, "Review not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to load review"))
		return
	}

	comment := &store.ReviewComment{
		ReviewID: id,
		Nickname: user.Nickname,
		Content:  req.Content,
	}
	if err := h.reviews.AddComment(r.Context(), comment); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to create comment"))
		return
	}
	httputil.WriteCreated(w, comment)
}

func (h *ReviewHandlers) ListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	comments, err := h.reviews.ListComments(r.Context(), id)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to load comments"))
		return
	}
	if comments == nil {
		comments = []*store.ReviewComment{}
	}
	httputil.WriteSuccess(w, comments)
}

func (h *ReviewHandlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.reviews.DeleteComment(r.Context(), id, user.Nickname); err != nil {
		if errors.Is(err, store.ErrCommentNotFound) {
			httputil.WriteNotFoundError(w, "Comment not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to delete comment"))
		return
	}
	httputil.WriteNoContent(w)
}
