// Package article serves the traditional-medicine articles and their
// like/dislike reactions.
package article

import (
	"context"

	"github.com/rs/zerolog"

	"raices-verdes/internal/domain"
)

type articleRepo interface {
	List(ctx context.Context, filter domain.ArticleFilter, viewerID string) ([]domain.Article, error)
	React(ctx context.Context, articleID, identityID string, reaction domain.Reaction) (*domain.Article, error)
	ListCategories(ctx context.Context) ([]string, error)
}

type imageResolver interface {
	PublicURL(path string) string
}

// anonymousAuthor names articles whose producer account is gone.
const anonymousAuthor = "Anónimo"

type Service struct {
	articles articleRepo
	images   imageResolver
	logger   zerolog.Logger
}

func New(articles articleRepo, images imageResolver, logger *zerolog.Logger) *Service {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "articles").Logger()
	}
	return &Service{articles: articles, images: images, logger: l}
}

// List returns articles newest first. With a session each article carries
// the actor's own reaction.
func (s *Service) List(ctx context.Context, actor domain.Actor, filter domain.ArticleFilter) ([]domain.Article, error) {
	viewer := ""
	if actor.HasSession() {
		viewer = actor.ID
	}
	articles, err := s.articles.List(ctx, filter, viewer)
	if err != nil {
		return nil, err
	}
	for i := range articles {
		s.present(&articles[i])
	}
	return articles, nil
}

// React likes or dislikes an article. Sending the reaction already held
// withdraws it.
func (s *Service) React(ctx context.Context, actor domain.Actor, articleID, rawReaction string) (*domain.Article, error) {
	if !actor.HasSession() {
		return nil, domain.ErrAuthRequired
	}
	reaction, err := domain.ParseReaction(rawReaction)
	if err != nil {
		return nil, err
	}
	a, err := s.articles.React(ctx, articleID, actor.ID, reaction)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("article_id", articleID).Str("reaction", string(a.Reaction)).Msg("reaction recorded")
	s.present(a)
	return a, nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.articles.ListCategories(ctx)
}

func (s *Service) present(a *domain.Article) {
	if a.AuthorName == "" {
		a.AuthorName = anonymousAuthor
	}
	if s.images != nil && a.ImageURL != "" {
		a.ImageURL = s.images.PublicURL(a.ImageURL)
	}
}
