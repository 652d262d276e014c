package search

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Handler exposes the search engine as the /cards HTTP endpoint.
type Handler struct {
	Engine *Engine
}

func NewHandler(e *Engine) *Handler {
	return &Handler{Engine: e}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.search) // GET /cards
}

func (h *Handler) search(c *gin.Context) {
	q := Query{
		Filters: Filters{
			Text:       c.Query("q"),
			Set:        c.Query("set"),
			Rarity:     c.Query("rarity"),
			Finish:     c.Query("finish"),
			Condition:  c.Query("condition"),
			Colors:     multiParam(c, "colors"),
			Types:      multiParam(c, "types"),
			Keywords:   multiParam(c, "keywords"),
			ManaValues: multiParam(c, "mana"),
			MinPrice:   floatParam(c.Query("min_price")),
			MaxPrice:   floatParam(c.Query("max_price")),
			InStock:    boolParam(c.Query("in_stock"), false),
		},
		Sort:          c.DefaultQuery("sort", "name"),
		Dir:           c.DefaultQuery("dir", "asc"),
		Page:          intParam(c.Query("page"), 1),
		PageSize:      intParam(c.Query("page_size"), DefaultPageSize),
		Dedupe:        boolParam(c.Query("dedupe"), false),
		IncludeFacets: boolParam(c.Query("facets"), true),
	}

	res, err := h.Engine.Query(c.Request.Context(), q)
	if err != nil {
		// No false-empty success: if the snapshot cannot be read the
		// caller gets a real error.
		log.Printf("[search] query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "catalog unavailable"})
		return
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	resp := gin.H{
		"object":      "list",
		"total_cards": res.Total,
		"has_more":    res.HasMore,
		"page":        page,
		"page_size":   size,
		"data":        res.Cards,
	}
	if q.IncludeFacets {
		resp["facets"] = res.Facets
	}
	c.JSON(http.StatusOK, resp)
}

// multiParam accepts both repeated params (?colors=W&colors=U) and a
// comma-joined value (?colors=W,U).
func multiParam(c *gin.Context, name string) []string {
	vals := c.QueryArray(name)
	if len(vals) == 1 && strings.Contains(vals[0], ",") {
		vals = strings.Split(vals[0], ",")
	}
	out := vals[:0]
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func intParam(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func floatParam(s string) *float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func boolParam(s string, def bool) bool {
	if strings.TrimSpace(s) == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
