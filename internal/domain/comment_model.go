package domain

import "time"

const (
	CommentTypeNote        = "note"
	CommentTypeOnProbation = "on_probation"
)

// Comment is an audit-trail note attached to a user, a purchase, or both.
// Automated heuristics write on_probation comments explaining the numbers
// that justified their action.
type Comment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	UserID     *uint   `gorm:"index"`
	PurchaseID *uint64 `gorm:"index"`

	Content     string `gorm:"type:text;not null"`
	CommentType string `gorm:"size:32;not null;default:'note'"`

	AuthorID   *uint
	AuthorName string `gorm:"size:255;not null;default:''"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
