package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Review errors.
var (
	ErrReviewNotFound  = errors.New("store: review not found")
	ErrCommentNotFound = errors.New("store: review comment not found")
	ErrNotReviewAuthor = errors.New("store: review belongs to another user")
)

// Reviews handles review and comment persistence.
type Reviews struct {
	db *sql.DB
}

// NewReviews creates a review store.
func NewReviews(db *sql.DB) *Reviews {
	return &Reviews{db: db}
}

// Create inserts a review.
func (s *Reviews) Create(ctx context.Context, r *Review) error {
	query := `
		INSERT INTO reviews (product_id, nickname, content, rating, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		r.ProductID, r.Nickname, r.Content, r.Rating, nullString(r.ImageURL), now,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}

	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// Get retrieves a review by ID.
func (s *Reviews) Get(ctx context.Context, id int64) (*Review, error) {
	query := `
		SELECT id, product_id, nickname, content, rating, image_url, created_at, updated_at
		FROM reviews
		WHERE id = $1
	`

	var r Review
	var imageURL sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.ProductID, &r.Nickname, &r.Content, &r.Rating, &imageURL, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	r.ImageURL = imageURL.String
	return &r, nil
}

// ListByProduct retrieves reviews for a product, newest first.
func (s *Reviews) ListByProduct(ctx context.Context, productID int64) ([]*Review, error) {
	query := `
		SELECT id, product_id, nickname, content, rating, image_url, created_at, updated_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
	`
	return s.list(ctx, query, productID)
}

// ListByNickname retrieves reviews authored under the given nickname.
func (s *Reviews) ListByNickname(ctx context.Context, nickname string) ([]*Review, error) {
	query := `
		SELECT id, product_id, nickname, content, rating, image_url, created_at, updated_at
		FROM reviews
		WHERE nickname = $1
		ORDER BY created_at DESC
	`
	return s.list(ctx, query, nickname)
}

func (s *Reviews) list(ctx context.Context, query string, arg interface{}) ([]*Review, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*Review
	for rows.Next() {
		var r Review
		var imageURL sql.NullString
		err := rows.Scan(&r.ID, &r.ProductID, &r.Nickname, &r.Content, &r.Rating, &imageURL, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		r.ImageURL = imageURL.String
		reviews = append(reviews, &r)
	}
	return reviews, rows.Err()
}

// Update modifies a review's content, rating and image. Only the author may
// update; ownership is checked by nickname.
func (s *Reviews) Update(ctx context.Context, r *Review) error {
	query := `
		UPDATE reviews
		SET content = $1, rating = $2, image_url = $3, updated_at = $4
		WHERE id = $5 AND nickname = $6
	`

	now := time.Now()
	result, err := s.db.ExecContext(ctx, query,
		r.Content, r.Rating, nullString(r.ImageURL), now, r.ID, r.Nickname)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotReviewAuthor
	}

	r.UpdatedAt = now
	return nil
}

// Delete removes a review. When requireAuthor is set, the nickname must
// match the author's; admins pass requireAuthor false.
func (s *Reviews) Delete(ctx context.Context, id int64, nickname string, requireAuthor bool) error {
	query := `DELETE FROM reviews WHERE id = $1`
	args := []interface{}{id}
	if requireAuthor {
		query += ` AND nickname = $2`
		args = append(args, nickname)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		if requireAuthor {
			return ErrNotReviewAuthor
		}
		return ErrReviewNotFound
	}
	return nil
}

// AddComment inserts a comment on a review.
func (s *Reviews) AddComment(ctx context.Context, c *ReviewComment) error {
	query := `
		INSERT INTO review_comments (review_id, nickname, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query, c.ReviewID, c.Nickname, c.Content, now).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to create review comment: %w", err)
	}

	c.CreatedAt = now
	return nil
}

// ListComments retrieves comments on a review, oldest first.
func (s *Reviews) ListComments(ctx context.Context, reviewID int64) ([]*ReviewComment, error) {
	query := `
		SELECT id, review_id, nickname, content, created_at
		FROM review_comments
		WHERE review_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list review comments: %w", err)
	}
	defer rows.Close()

	var comments []*ReviewComment
	for rows.Next() {
		var c ReviewComment
		if err := rows.Scan(&c.ID, &c.ReviewID, &c.Nickname, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review comment: %w", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// DeleteComment removes a comment authored under the given nickname.
func (s *Reviews) DeleteComment(ctx context.Context, id int64, nickname string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM review_comments WHERE id = $1 AND nickname = $2`, id, nickname)
	if err != nil {
		return fmt.Errorf("failed to delete review comment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCommentNotFound
	}
	return nil
}
