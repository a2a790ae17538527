package api

import (
	"errors"
	"net/http"
	"strconv"

	"locallibrary/pkg/access"
	"locallibrary/pkg/catalog"
	"locallibrary/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondError maps service errors to a status code and JSON body.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		c.Header("WWW-Authenticate", `Bearer realm="catalog"`)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": err.Error()})
	case errors.Is(err, access.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": err.Error()})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "message": err.Error()})
	case errors.Is(err, catalog.ErrInUse), errors.Is(err, catalog.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "message": err.Error()})
	default:
		logger.FromGin(c).Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func invalidForm(c *gin.Context, form map[string]any, errs map[string]string) {
	c.JSON(http.StatusBadRequest, gin.H{"form": form, "errors": errs})
}

// redirect answers a successful POST with 303 See Other.
func redirect(c *gin.Context, name, location string) {
	c.Header("Location", location)
	c.JSON(http.StatusSeeOther, gin.H{"redirect": name, "location": location})
}

// instanceID parses the :id parameter. Malformed ids are reported as not
// found, exactly like unknown ones.
func instanceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "message": "unknown book instance"})
		return uuid.Nil, false
	}
	return id, true
}

func numericID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "message": "unknown id " + c.Param("id")})
		return 0, false
	}
	return uint(id), true
}

func pageFrom(c *gin.Context, defaultSize int) catalog.Page {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultSize)))
	if err != nil || size < 1 || size > 100 {
		size = defaultSize
	}
	return catalog.Page{Number: page, Size: size}
}
