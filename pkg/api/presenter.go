package api

import (
	"time"

	"locallibrary/pkg/models"
	"locallibrary/pkg/workflow"

	"github.com/gin-gonic/gin"
)

func instanceJSON(bi models.BookInstance, today time.Time) gin.H {
	h := gin.H{
		"id":         bi.ID.String(),
		"imprint":    bi.Imprint,
		"dueBack":    nullableDate(bi.DueBack),
		"status":     bi.Status.Code(),
		"statusName": bi.Status.String(),
		"borrower":   bi.Borrower,
		"isOverdue":  bi.IsOverdue(today),
	}
	if bi.Book != nil {
		h["book"] = gin.H{"id": bi.Book.ID, "title": bi.Book.Title}
	}
	return h
}

func proposalJSON(p workflow.Proposal) gin.H {
	borrower := ""
	if p.Borrower != nil {
		borrower = *p.Borrower
	}
	return gin.H{
		workflow.FieldDueBack:  workflow.FormatDate(p.DueBack),
		workflow.FieldStatus:   p.Status.Code(),
		workflow.FieldBorrower: borrower,
	}
}

func statusChoices() []gin.H {
	statuses := workflow.Statuses()
	out := make([]gin.H, len(statuses))
	for i, s := range statuses {
		out[i] = gin.H{"code": s.Code(), "name": s.String()}
	}
	return out
}

func authorSummary(a *models.Author) any {
	if a == nil {
		return nil
	}
	return gin.H{"id": a.ID, "name": a.Name()}
}

func bookSummary(b models.Book) gin.H {
	return gin.H{
		"id":     b.ID,
		"title":  b.Title,
		"author": authorSummary(b.Author),
	}
}

func bookJSON(b *models.Book, today time.Time) gin.H {
	genres := make([]string, len(b.Genres))
	for i, g := range b.Genres {
		genres[i] = g.Name
	}
	instances := make([]gin.H, len(b.Instances))
	for i, bi := range b.Instances {
		instances[i] = instanceJSON(bi, today)
	}
	return gin.H{
		"id":        b.ID,
		"title":     b.Title,
		"summary":   b.Summary,
		"isbn":      b.ISBN,
		"author":    authorSummary(b.Author),
		"genres":    genres,
		"instances": instances,
	}
}

func authorJSON(a *models.Author) gin.H {
	books := make([]gin.H, len(a.Books))
	for i, b := range a.Books {
		books[i] = gin.H{"id": b.ID, "title": b.Title}
	}
	return gin.H{
		"id":          a.ID,
		"firstName":   a.FirstName,
		"lastName":    a.LastName,
		"name":        a.Name(),
		"dateOfBirth": nullableDate(a.DateOfBirth),
		"dateOfDeath": nullableDate(a.DateOfDeath),
		"books":       books,
	}
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return workflow.FormatDate(t)
}

func pageJSON(page, size int, total int64, items []gin.H) gin.H {
	return gin.H{
		"page":          page,
		"pageSize":      size,
		"totalElements": total,
		"items":         items,
	}
}
