package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/policy"
)

// ListComments returns an item's comments ordered by creation.
func (s *Service) ListComments(ctx context.Context, access Access, itemID string) ([]domain.ItemComment, error) {
	if _, _, err := s.loadItem(ctx, access, itemID); err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	if comments == nil {
		comments = []domain.ItemComment{}
	}
	return comments, nil
}

// CreateComment posts a comment or reply on an item. Replies to replies are
// attached to the top-level comment so threads stay one level deep.
func (s *Service) CreateComment(ctx context.Context, access Access, itemID string, req domain.CommentRequest) (*domain.ItemComment, error) {
	item, session, err := s.loadItem(ctx, access, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, access, policy.ActionCreateComment, session, policy.ResourceInput{}); err != nil {
		return nil, err
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, domain.NewValidationError("body", "comment cannot be empty")
	}

	parentID := strings.TrimSpace(req.ParentID)
	if parentID != "" {
		parent, err := s.store.GetComment(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to get parent comment: %w", err)
		}
		if parent == nil || parent.ItemID != item.ItemID {
			return nil, domain.NewValidationError("parent_id", "parent comment does not belong to this item")
		}
		if parent.ParentID != "" {
			parentID = parent.ParentID
		}
	}

	now := time.Now()
	comment := &domain.ItemComment{
		CommentID:  "cmt_" + uuid.New().String()[:8],
		ItemID:     item.ItemID,
		ParentID:   parentID,
		AuthorType: access.Actor.Kind,
		AuthorID:   access.Actor.ID,
		AuthorName: access.Actor.Name,
		Body:       body,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.recordEvent(ctx, session.SessionID, access.Actor, domain.EventTypeCommentCreated, domain.CommentPayload{
		ItemID:    item.ItemID,
		CommentID: comment.CommentID,
		ParentID:  comment.ParentID,
	})
	return comment, nil
}

// EditComment replaces a comment's body. Only the author may edit.
func (s *Service) EditComment(ctx context.Context, access Access, itemID, commentID, body string) (*domain.ItemComment, error) {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	if comment == nil || comment.ItemID != itemID {
		return nil, domain.ErrNotFound
	}
	_, session, err := s.loadItem(ctx, access, comment.ItemID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, access, policy.ActionEditComment, session, policy.ResourceInput{AuthorID: comment.AuthorID}); err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.NewValidationError("body", "comment cannot be empty")
	}

	updatedAt := time.Now()
	if err := s.store.UpdateCommentBody(ctx, commentID, body, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	comment.Body = body
	comment.UpdatedAt = updatedAt

	s.recordEvent(ctx, session.SessionID, access.Actor, domain.EventTypeCommentEdited, domain.CommentPayload{
		ItemID:    comment.ItemID,
		CommentID: comment.CommentID,
		ParentID:  comment.ParentID,
	})
	return comment, nil
}
