package domain

import (
	"strings"
	"time"
)

// Reaction is a reader's vote on a traditional-medicine article.
type Reaction string

const (
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)

func ParseReaction(raw string) (Reaction, error) {
	switch r := Reaction(strings.ToLower(strings.TrimSpace(raw))); r {
	case ReactionLike, ReactionDislike:
		return r, nil
	}
	return "", NewValidationError("reaction must be like or dislike")
}

// Article is a traditional-medicine article with its reaction counts.
// Reaction holds the viewer's own vote, empty when there is none.
type Article struct {
	ID         string    `json:"id"`
	ProducerID string    `json:"producerId,omitempty"`
	AuthorName string    `json:"authorName"`
	Title      string    `json:"title"`
	Category   string    `json:"category,omitempty"`
	Content    string    `json:"content"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	Likes      int       `json:"likes"`
	Dislikes   int       `json:"dislikes"`
	Reaction   Reaction  `json:"reaction,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ArticleFilter narrows the article list. Title matches case-insensitively
// anywhere in the title.
type ArticleFilter struct {
	Category string
	Title    string
}
