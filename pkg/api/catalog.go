package api

import (
	"net/http"
	"strings"

	"locallibrary/pkg/access"
	"locallibrary/pkg/auth"
	"locallibrary/pkg/logger"
	"locallibrary/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) index(c *gin.Context) {
	ctx := c.Request.Context()
	q := strings.TrimSpace(c.Query("q"))
	stats, err := h.svc.Stats(ctx, q)
	if err != nil {
		respondError(c, err)
		return
	}

	var visits int64
	if s, ok := session.From(c); ok {
		visits, err = s.Visit(ctx)
		if err != nil {
			logger.FromGin(c).Warn("Failed to count visit", zap.Error(err))
		}
	}

	body := gin.H{
		"numBooks":              stats.Books,
		"numInstances":          stats.Instances,
		"numInstancesAvailable": stats.AvailableInstances,
		"numAuthors":            stats.Authors,
		"numVisits":             visits,
	}
	if q != "" {
		body["q"] = q
		body["numTitleMatches"] = stats.TitleMatches
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) listBooks(c *gin.Context) {
	page := pageFrom(c, 5)
	books, total, err := h.svc.Books(c.Request.Context(), page)
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]gin.H, len(books))
	for i, b := range books {
		items[i] = bookSummary(b)
	}
	c.JSON(http.StatusOK, pageJSON(page.Number, page.Size, total, items))
}

func (h *Handler) getBook(c *gin.Context) {
	id, ok := numericID(c)
	if !ok {
		return
	}
	b, err := h.svc.Book(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookJSON(b, h.svc.Engine().Today()))
}

func (h *Handler) createBook(c *gin.Context) {
	who := auth.IdentityFrom(c)
	if err := access.Require(who, access.AddBook); err != nil {
		respondError(c, err)
		return
	}
	var form bookForm
	if !h.bindForm(c, &form, form.echo) {
		return
	}
	b, err := h.svc.CreateBook(c.Request.Context(), who, form.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bookJSON(b, h.svc.Engine().Today()))
}

func (h *Handler) updateBook(c *gin.Context) {
	who := auth.IdentityFrom(c)
	if err := access.Require(who, access.ChangeBook); err != nil {
		respondError(c, err)
		return
	}
	id, ok := numericID(c)
	if !ok {
		return
	}
	var form bookForm
	if !h.bindForm(c, &form, form.echo) {
		return
	}
	b, err := h.svc.UpdateBook(c.Request.Context(), who, id, form.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookJSON(b, h.svc.Engine().Today()))
}

func (h *Handler) deleteBook(c *gin.Context) {
	who := auth.IdentityFrom(c)
	if err := access.Require(who, access.DeleteBook); err != nil {
		respondError(c, err)
		return
	}
	id, ok := numericID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteBook(c.Request.Context(), who, id); err != nil {
		respondError(c, err)
		return
	}
	redirect(c, "books", BasePath+"/books/")
}

func (h *Handler) listAuthors(c *gin.Context) {
	page := pageFrom(c, 5)
	authors, total, err := h.svc.Authors(c.Request.Context(), page)
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]gin.H, len(authors))
	for i := range authors {
		items[i] = authorJSON(&authors[i])
		delete(items[i], "books")
	}
	c.JSON(http.StatusOK, pageJSON(page.Number, page.Size, total, items))
}

func (h *Handler) getAuthor(c *gin.Context) {
	id, ok := numericID(c)
	if !ok {
		return
	}
	a, err := h.svc.Author(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authorJSON(a))
}

func (h *Handler) createAuthor(c *gin.Context) {
	who := auth.IdentityFrom(c)
	if err := access.Require(who, access.AddAuthor); err != nil {
		respondError(c, err)
		return
	}
	var form authorForm
	if !h.bindForm(c, &form, form.echo) {
		return
	}
	in, errs := form.input()
	if len(errs) > 0 {
		invalidForm(c, form.echo(), errs)
		return
	}
	a, err := h.svc.CreateAuthor(c.Request.Context(), who, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authorJSON(a))
}

func (h *Handler) updateAuthor(c *gin.Context) {
	who := auth.IdentityFrom(c)
	if err := access.Require(who, access.ChangeAuthor); err != nil {
		respondError(c, err)
		return
	}
	id, ok := numericID(c)
	if !ok {
		return
	}
	var form authorForm
	if !h.bindForm(c, &form, form.echo) {
		return
	}
	in, errs := form.input()
	if len(errs) > 0 {
		invalidForm(c, form.echo(), errs)
		return
	}
	a, err := h.svc.UpdateAuthor(c.Request.Context(), who, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authorJSON(a))
}

func (h *Handler) deleteAuthor(c *gin.Context) {
	who := auth.IdentityFrom(c)
	if err := access.Require(who, access.DeleteAuthor); err != nil {
		respondError(c, err)
		return
	}
	id, ok := numericID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteAuthor(c.Request.Context(), who, id); err != nil {
		respondError(c, err)
		return
	}
	redirect(c, "authors", BasePath+"/authors/")
}

// bindForm binds the request body into form and writes the 400 response
// when that fails. echo is evaluated after binding.
func (h *Handler) bindForm(c *gin.Context, form any, echo func() map[string]any) bool {
	if err := c.ShouldBind(form); err != nil {
		errs, ok := fieldErrors(err)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
			return false
		}
		invalidForm(c, echo(), errs)
		return false
	}
	return true
}
