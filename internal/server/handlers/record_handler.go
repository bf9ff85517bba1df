package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/barberdash/internal/repository/store"
)

// sortParam is the json-server query parameter naming the sort field.
const sortParam = "_sort"

// RecordHandler serves a store.Store over the json-server HTTP dialect.
type RecordHandler struct {
	store  store.Store
	logger *zap.Logger
}

// NewRecordHandler constructs the record store HTTP adapter.
func NewRecordHandler(st store.Store, logger *zap.Logger) *RecordHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordHandler{store: st, logger: logger}
}

// Register mounts the collection routes on r.
func (h *RecordHandler) Register(r gin.IRoutes) {
	r.GET("/:collection", h.List)
	r.POST("/:collection", h.Create)
	r.GET("/:collection/:id", h.Get)
	r.PATCH("/:collection/:id", h.Update)
	r.DELETE("/:collection/:id", h.Delete)
}

// List returns a collection. Every query parameter except _sort is an
// equality filter.
func (h *RecordHandler) List(c *gin.Context) {
	collection, ok := h.collection(c)
	if !ok {
		return
	}

	opts := store.ListOptions{SortBy: c.Query(sortParam)}
	for key, values := range c.Request.URL.Query() {
		if key == sortParam || len(values) == 0 {
			continue
		}
		if opts.Filter == nil {
			opts.Filter = store.Filter{}
		}
		opts.Filter[key] = values[0]
	}

	rows, err := h.store.List(c.Request.Context(), collection, opts)
	if err != nil {
		h.fail(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Get returns one row.
func (h *RecordHandler) Get(c *gin.Context) {
	collection, ok := h.collection(c)
	if !ok {
		return
	}
	row, err := h.store.Get(c.Request.Context(), collection, c.Param("id"))
	if err != nil {
		h.fail(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// Create inserts the posted row and echoes it with its id.
func (h *RecordHandler) Create(c *gin.Context) {
	collection, ok := h.collection(c)
	if !ok {
		return
	}
	var row store.Row
	if err := c.ShouldBindJSON(&row); err != nil {
		h.logger.Warn("invalid record payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	created, err := h.store.Create(c.Request.Context(), collection, row)
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Update merges the posted fields into a row and returns the result.
func (h *RecordHandler) Update(c *gin.Context) {
	collection, ok := h.collection(c)
	if !ok {
		return
	}
	var patch store.Row
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.logger.Warn("invalid record patch", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.store.Update(ctx, collection, id, patch); err != nil {
		h.fail(c, "update", err)
		return
	}
	row, err := h.store.Get(ctx, collection, id)
	if err != nil {
		h.fail(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// Delete removes one row. Unknown ids answer 404 like json-server.
func (h *RecordHandler) Delete(c *gin.Context) {
	collection, ok := h.collection(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.store.Get(ctx, collection, id); err != nil {
		h.fail(c, "delete", err)
		return
	}
	if err := h.store.Delete(ctx, collection, store.ByID(id)); err != nil {
		h.fail(c, "delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *RecordHandler) collection(c *gin.Context) (string, bool) {
	collection := c.Param("collection")
	if err := store.ValidateCollection(collection); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return "", false
	}
	return collection, true
}

func (h *RecordHandler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.logger.Error("record store request failed",
		zap.String("op", op),
		zap.String("collection", c.Param("collection")),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "record store failure"})
}
