package api

import (
	"context"
	"net/http"
	"time"

	"locallibrary/pkg/catalog"
	"locallibrary/pkg/workflow"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const BasePath = "/catalog"

var listingPaths = map[workflow.Listing]string{
	workflow.ListingMyBorrowed:  BasePath + "/mybooks/",
	workflow.ListingAllBorrowed: BasePath + "/books/loaned/",
	workflow.ListingAvailable:   BasePath + "/books/available/",
	workflow.ListingReserved:    BasePath + "/books/reserved/",
	workflow.ListingMaintenance: BasePath + "/books/maintenance/",
}

// ListingPath returns the URL of a listing, or "" for an unknown one.
func ListingPath(l workflow.Listing) string {
	return listingPaths[l]
}

// Pinger reports whether the catalog database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc *catalog.Service
	db  Pinger
	log *zap.Logger
}

func NewHandler(svc *catalog.Service, db Pinger, log *zap.Logger) *Handler {
	RegisterValidators()
	return &Handler{svc: svc, db: db, log: log.Named("api")}
}

// Register mounts the catalog routes and the health probe on r.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group(BasePath)
	g.GET("/", h.index)

	g.GET("/books/", h.listBooks)
	g.GET("/book/:id/", h.getBook)
	g.POST("/book/create/", h.createBook)
	g.POST("/book/:id/update/", h.updateBook)
	g.POST("/book/:id/delete/", h.deleteBook)
	g.GET("/book/:id/renew/", h.renewForm)
	g.POST("/book/:id/renew/", h.renew)

	g.GET("/authors/", h.listAuthors)
	g.GET("/author/:id/", h.getAuthor)
	g.POST("/author/create/", h.createAuthor)
	g.POST("/author/:id/update/", h.updateAuthor)
	g.POST("/author/:id/delete/", h.deleteAuthor)

	for l, path := range listingPaths {
		g.GET(path[len(BasePath):], h.listing(l))
	}
	g.GET("/books/:id/change-status/", h.statusForm)
	g.POST("/books/:id/change-status/", h.changeStatus)

	r.GET("/manage/health", h.health)
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
