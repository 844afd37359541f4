package database

import (
	"context"
	"errors"

	"fraudwatch/internal/domain"
)

// CreateComment appends an audit note to a user and/or purchase.
func CreateComment(ctx context.Context, comment *domain.Comment) error {
	if DB == nil {
		return errors.New("database not initialised")
	}
	if comment == nil || comment.Content == "" {
		return errors.New("comment content cannot be empty")
	}
	if comment.CommentType == "" {
		comment.CommentType = domain.CommentTypeNote
	}

	return historyDB(ctx).Create(comment).Error
}

// ListCommentsForUser returns a user's audit trail, oldest first.
func ListCommentsForUser(ctx context.Context, userID uint) ([]domain.Comment, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	var comments []domain.Comment
	if err := historyDB(ctx).Where("user_id = ?", userID).Order("id").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// ListCommentsForPurchase returns a purchase's audit trail, oldest first.
func ListCommentsForPurchase(ctx context.Context, purchaseID uint64) ([]domain.Comment, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	var comments []domain.Comment
	if err := historyDB(ctx).Where("purchase_id = ?", purchaseID).Order("id").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
