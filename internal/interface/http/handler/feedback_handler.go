package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/feedback-escalation/internal/interface/http/dto"
	"github.com/ignatzorin/feedback-escalation/internal/interface/http/response"
	"github.com/ignatzorin/feedback-escalation/internal/usecase/escalation"
	"github.com/ignatzorin/feedback-escalation/internal/validation"
)

type FeedbackHandler struct {
	registerUC       *escalation.RegisterFeedbackUseCase
	getCaseUC        *escalation.GetCaseUseCase
	markViewedUC     *escalation.MarkViewedUseCase
	categoryChangeUC *escalation.OnCategoryChangedUseCase
	approveUC        *escalation.OnApproveUseCase
	archiveUC        *escalation.ConfirmArchiveUseCase
	listLogUC        *escalation.ListEscalationLogUseCase
}

func NewFeedbackHandler(
	registerUC *escalation.RegisterFeedbackUseCase,
	getCaseUC *escalation.GetCaseUseCase,
	markViewedUC *escalation.MarkViewedUseCase,
	categoryChangeUC *escalation.OnCategoryChangedUseCase,
	approveUC *escalation.OnApproveUseCase,
	archiveUC *escalation.ConfirmArchiveUseCase,
	listLogUC *escalation.ListEscalationLogUseCase,
) *FeedbackHandler {
	return &FeedbackHandler{
		registerUC:       registerUC,
		getCaseUC:        getCaseUC,
		markViewedUC:     markViewedUC,
		categoryChangeUC: categoryChangeUC,
		approveUC:        approveUC,
		archiveUC:        archiveUC,
		listLogUC:        listLogUC,
	}
}

// Register обрабатывает POST /api/feedback.
func (h *FeedbackHandler) Register(c *gin.Context) {
	who, err := currentCaller(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.RegisterFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := validation.ValidateCategory(req.Category); err != nil {
		response.Error(c, err)
		return
	}
	if err := validation.ValidateLocation(req.StoreID, req.MarketID); err != nil {
		response.Error(c, err)
		return
	}

	snapshot, err := h.registerUC.Execute(c.Request.Context(), escalation.RegisterFeedbackInput{
		Category: req.Category,
		StoreID:  req.StoreID,
		MarketID: req.MarketID,
		Actor:    who.actor(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToCaseSnapshotResponse(snapshot))
}

// Get обрабатывает GET /api/feedback/:id.
func (h *FeedbackHandler) Get(c *gin.Context) {
	id, err := caseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	snapshot, err := h.getCaseUC.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToCaseSnapshotResponse(snapshot))
}

// View обрабатывает POST /api/feedback/:id/view.
func (h *FeedbackHandler) View(c *gin.Context) {
	who, err := currentCaller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := caseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	snapshot, err := h.markViewedUC.Execute(c.Request.Context(), escalation.MarkViewedInput{
		CaseID: id,
		Actor:  who.actor(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToCaseSnapshotResponse(snapshot))
}

// ChangeCategory обрабатывает PATCH /api/feedback/:id/category.
func (h *FeedbackHandler) ChangeCategory(c *gin.Context) {
	who, err := currentCaller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := caseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ChangeCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := validation.ValidateCategory(req.Category); err != nil {
		response.Error(c, err)
		return
	}

	snapshot, err := h.categoryChangeUC.Execute(c.Request.Context(), escalation.OnCategoryChangedInput{
		CaseID:   id,
		Category: req.Category,
		Actor:    who.actor(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToCaseSnapshotResponse(snapshot))
}

// Approve обрабатывает POST /api/feedback/:id/approvals.
// Роль согласующего берётся из токена, а не из тела запроса.
func (h *FeedbackHandler) Approve(c *gin.Context) {
	who, err := currentCaller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := caseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.approveUC.Execute(c.Request.Context(), escalation.OnApproveInput{
		CaseID:     id,
		ApproverID: who.UserID,
		Role:       who.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Recorded {
		response.Created(c, dto.ToApproveResponse(result))
		return
	}
	response.Success(c, dto.ToApproveResponse(result))
}

// Archive обрабатывает POST /api/feedback/:id/archive.
func (h *FeedbackHandler) Archive(c *gin.Context) {
	who, err := currentCaller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := caseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	snapshot, err := h.archiveUC.Execute(c.Request.Context(), escalation.ConfirmArchiveInput{
		CaseID: id,
		Actor:  who.actor(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToCaseSnapshotResponse(snapshot))
}

// Log обрабатывает GET /api/feedback/:id/log.
func (h *FeedbackHandler) Log(c *gin.Context) {
	id, err := caseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, err := h.listLogUC.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"entries": dto.ToEscalationLogResponses(entries)})
}
