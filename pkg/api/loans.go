package api

import (
	"context"
	"errors"
	"net/http"

	"locallibrary/pkg/access"
	"locallibrary/pkg/auth"
	"locallibrary/pkg/catalog"
	"locallibrary/pkg/models"
	"locallibrary/pkg/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// loanOp describes one of the two book instance workflow operations.
type loanOp struct {
	capability access.Capability
	form       func(ctx context.Context, who access.Identity, id uuid.UUID) (*models.BookInstance, workflow.Proposal, error)
	apply      func(ctx context.Context, who access.Identity, id uuid.UUID, p workflow.Proposal) (catalog.Outcome, error)
}

func (h *Handler) renewOp() loanOp {
	return loanOp{capability: access.CanMarkReturned, form: h.svc.RenewalForm, apply: h.svc.Renew}
}

func (h *Handler) statusOp() loanOp {
	return loanOp{capability: access.CanLoanBook, form: h.svc.StatusForm, apply: h.svc.ChangeStatus}
}

func (h *Handler) renewForm(c *gin.Context)    { h.showLoanForm(c, h.renewOp()) }
func (h *Handler) renew(c *gin.Context)        { h.submitLoanForm(c, h.renewOp()) }
func (h *Handler) statusForm(c *gin.Context)   { h.showLoanForm(c, h.statusOp()) }
func (h *Handler) changeStatus(c *gin.Context) { h.submitLoanForm(c, h.statusOp()) }

func (h *Handler) showLoanForm(c *gin.Context, op loanOp) {
	who := auth.IdentityFrom(c)
	if err := access.Require(who, op.capability); err != nil {
		respondError(c, err)
		return
	}
	id, ok := instanceID(c)
	if !ok {
		return
	}
	bi, proposal, err := op.form(c.Request.Context(), who, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bookInstance": instanceJSON(*bi, h.svc.Engine().Today()),
		"form":         proposalJSON(proposal),
		"statuses":     statusChoices(),
	})
}

func (h *Handler) submitLoanForm(c *gin.Context, op loanOp) {
	who := auth.IdentityFrom(c)
	if err := access.Require(who, op.capability); err != nil {
		respondError(c, err)
		return
	}
	id, ok := instanceID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var form loanForm
	if err := c.ShouldBind(&form); err != nil {
		errs, ok := fieldErrors(err)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
			return
		}
		h.rejectLoanForm(c, op, who, id, form, errs)
		return
	}
	proposal, errs := form.proposal()
	if len(errs) > 0 {
		h.rejectLoanForm(c, op, who, id, form, errs.Fields())
		return
	}

	out, err := op.apply(ctx, who, id, proposal)
	if err != nil {
		var verrs workflow.ValidationErrors
		if errors.As(err, &verrs) && out.Instance != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"bookInstance": instanceJSON(*out.Instance, h.svc.Engine().Today()),
				"form":         form.echo(),
				"errors":       verrs.Fields(),
			})
			return
		}
		respondError(c, err)
		return
	}
	redirect(c, string(out.Redirect), ListingPath(out.Redirect))
}

// rejectLoanForm answers a malformed submission, still reporting an unknown
// instance as 404.
func (h *Handler) rejectLoanForm(c *gin.Context, op loanOp, who access.Identity, id uuid.UUID, form loanForm, errs map[string]string) {
	bi, _, err := op.form(c.Request.Context(), who, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"bookInstance": instanceJSON(*bi, h.svc.Engine().Today()),
		"form":         form.echo(),
		"errors":       errs,
	})
}

func (h *Handler) listing(l workflow.Listing) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := pageFrom(c, 10)
		instances, total, err := h.svc.Listing(c.Request.Context(), auth.IdentityFrom(c), l, page)
		if err != nil {
			respondError(c, err)
			return
		}
		today := h.svc.Engine().Today()
		items := make([]gin.H, len(instances))
		for i, bi := range instances {
			items[i] = instanceJSON(bi, today)
		}
		c.JSON(http.StatusOK, pageJSON(page.Number, page.Size, total, items))
	}
}
