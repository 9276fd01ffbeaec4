package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"raices-verdes/internal/domain"
)

type reactionRequest struct {
	Reaction string `json:"reaction"`
}

func (h *handlers) listArticles(c *gin.Context) {
	filter := domain.ArticleFilter{Category: c.Query("category"), Title: c.Query("q")}
	articles, err := h.deps.Articles.List(c.Request.Context(), actorOf(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, articles)
}

func (h *handlers) listArticleCategories(c *gin.Context) {
	out, err := h.deps.Articles.Categories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) reactToArticle(c *gin.Context) {
	actor, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json body")
		return
	}
	a, err := h.deps.Articles.React(c.Request.Context(), actor, id, req.Reaction)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
