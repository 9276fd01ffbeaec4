package article

import (
	"context"
	"errors"
	"testing"

	"raices-verdes/internal/domain"
	"raices-verdes/internal/testdb"
)

const (
	articleMatico = "aaaaaaaa-0000-4000-8000-000000000001"
	articleCoca   = "aaaaaaaa-0000-4000-8000-000000000002"
	missing       = "aaaaaaaa-0000-4000-8000-0000000000ff"
)

func seedArticles(ctx context.Context, t *testing.T, repo Repository, producerID string) {
	t.Helper()
	for _, a := range []domain.Article{
		{ID: articleMatico, ProducerID: producerID, Title: "Matico para heridas", Category: "Plantas", Content: "..."},
		{ID: articleCoca, Title: "Hoja de coca 100%", Category: "Rituales", Content: "..."},
	} {
		if _, err := repo.Upsert(ctx, a); err != nil {
			t.Fatalf("Upsert %s: %v", a.Title, err)
		}
	}
}

func TestPostgres_ReactTogglesAndSwitches(t *testing.T) {
	ctx := context.Background()
	pool := testdb.Pool(t)
	fx := testdb.Seed(ctx, t, pool)
	repo := NewPostgres(pool, nil)
	seedArticles(ctx, t, repo, fx.ProducerID)

	got, err := repo.React(ctx, articleMatico, fx.ClientID, domain.ReactionLike)
	if err != nil {
		t.Fatalf("React like: %v", err)
	}
	if got.Likes != 1 || got.Dislikes != 0 || got.Reaction != domain.ReactionLike {
		t.Fatalf("after like: %+v", got)
	}

	got, err = repo.React(ctx, articleMatico, fx.ClientID, domain.ReactionDislike)
	if err != nil {
		t.Fatalf("React dislike: %v", err)
	}
	if got.Likes != 0 || got.Dislikes != 1 || got.Reaction != domain.ReactionDislike {
		t.Fatalf("dislike should replace like: %+v", got)
	}

	got, err = repo.React(ctx, articleMatico, fx.ClientID, domain.ReactionDislike)
	if err != nil {
		t.Fatalf("React dislike again: %v", err)
	}
	if got.Likes != 0 || got.Dislikes != 0 || got.Reaction != "" {
		t.Fatalf("repeating a reaction should take it back: %+v", got)
	}

	if _, err := repo.React(ctx, missing, fx.ClientID, domain.ReactionLike); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing article should be not found, got %v", err)
	}
}

func TestPostgres_ListFiltersAndCounts(t *testing.T) {
	ctx := context.Background()
	pool := testdb.Pool(t)
	fx := testdb.Seed(ctx, t, pool)
	repo := NewPostgres(pool, nil)
	seedArticles(ctx, t, repo, fx.ProducerID)
	if _, err := repo.React(ctx, articleMatico, fx.ClientID, domain.ReactionLike); err != nil {
		t.Fatalf("React: %v", err)
	}

	all, err := repo.List(ctx, domain.ArticleFilter{}, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(all))
	}
	for _, a := range all {
		if a.Reaction != "" {
			t.Fatalf("anonymous viewer should have no reaction, got %+v", a)
		}
		if a.ID == articleMatico && (a.Likes != 1 || a.AuthorName != "Cooperativa Wayuu") {
			t.Fatalf("unexpected matico row %+v", a)
		}
	}

	mine, err := repo.List(ctx, domain.ArticleFilter{Category: "Plantas"}, fx.ClientID)
	if err != nil || len(mine) != 1 || mine[0].Reaction != domain.ReactionLike {
		t.Fatalf("category filter with viewer: %+v err=%v", mine, err)
	}

	// % in the search text is literal
	byTitle, err := repo.List(ctx, domain.ArticleFilter{Title: "100%"}, "")
	if err != nil || len(byTitle) != 1 || byTitle[0].ID != articleCoca {
		t.Fatalf("title filter: %+v err=%v", byTitle, err)
	}
	byTitle, err = repo.List(ctx, domain.ArticleFilter{Title: "%"}, "")
	if err != nil || len(byTitle) != 1 {
		t.Fatalf("a lone %% should only match titles containing it: %+v err=%v", byTitle, err)
	}

	cats, err := repo.ListCategories(ctx)
	if err != nil || len(cats) != 2 || cats[0] != "Plantas" {
		t.Fatalf("categories: %v err=%v", cats, err)
	}
}
