package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
	"raices-verdes/internal/service/catalog"
)

// pageQuery reads the catalog window. from and to are inclusive row indexes;
// to defaults to a full page after from.
func pageQuery(c *gin.Context) (domain.ProductFilter, int, int, error) {
	var (
		filter   domain.ProductFilter
		problems []string
	)
	filter.Community = strings.TrimSpace(c.Query("community"))

	parsePrice := func(key string) *decimal.Decimal {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			return nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			problems = append(problems, key+" must be a number")
			return nil
		}
		return &d
	}
	filter.PriceMin = parsePrice("priceMin")
	filter.PriceMax = parsePrice("priceMax")

	from, err := strconv.Atoi(c.DefaultQuery("from", "0"))
	if err != nil {
		problems = append(problems, "from must be an integer")
	}
	to := from + catalog.DefaultPageSize - 1
	if raw := c.Query("to"); raw != "" {
		to, err = strconv.Atoi(raw)
		if err != nil {
			problems = append(problems, "to must be an integer")
		}
	}
	if len(problems) == 0 && from < 0 {
		problems = append(problems, "from must not be negative")
	}
	if len(problems) == 0 && to < from {
		problems = append(problems, "to must not be less than from")
	}
	if len(problems) > 0 {
		return filter, 0, 0, domain.NewValidationError("invalid product query", problems...)
	}
	// both bounds are non-negative here, so the difference cannot overflow
	if to-from >= catalog.MaxPageSize {
		return filter, from, catalog.MaxPageSize, nil
	}
	return filter, from, to - from + 1, nil
}

func (h *handlers) listProducts(c *gin.Context) {
	filter, offset, limit, err := pageQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	products, err := h.deps.Catalog.FetchPage(c.Request.Context(), filter, offset, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponses(products))
}

// productID returns the :id param, writing a 404 when it cannot be an id.
func productID(c *gin.Context) (string, bool) {
	return idParam(c, "id")
}

func idParam(c *gin.Context, name string) (string, bool) {
	raw := strings.TrimSpace(c.Param(name))
	if _, err := uuid.Parse(raw); err != nil {
		writeError(c, domain.ErrNotFound)
		return "", false
	}
	return raw, true
}

func (h *handlers) getProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	p, err := h.deps.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(*p))
}

func (h *handlers) getProductProducer(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	producerID, err := h.deps.Producers.GetProducerID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"producerId": producerID})
}

func (h *handlers) listCommunities(c *gin.Context) {
	out, err := h.deps.Catalog.Communities(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) listComments(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	comments, err := h.deps.Catalog.Comments(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *handlers) createComment(c *gin.Context) {
	actor, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := productID(c)
	if !ok {
		return
	}
	var in catalog.CommentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid json body")
		return
	}
	created, err := h.deps.Catalog.AddComment(c.Request.Context(), actor, id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}
