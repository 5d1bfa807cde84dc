package handler

import (
	"errors"
	"io"
	"net/http"

	"donation_tracker/internal/middleware"
	"donation_tracker/internal/model"
	"donation_tracker/internal/policy"
	"donation_tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// DonationHandler exposes the donation workflow over HTTP
type DonationHandler struct {
	service service.DonationService
	log     zerolog.Logger
}

// NewDonationHandler creates a new DonationHandler
func NewDonationHandler(s service.DonationService, log zerolog.Logger) *DonationHandler {
	return &DonationHandler{service: s, log: log}
}

// bindOptionalJSON binds a body that clients may omit entirely
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *DonationHandler) CreateDonation(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	var req model.CreateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, &req, err)
		return
	}

	donation, err := h.service.CreateDonation(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, h.log, err, "failed to create donation")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "donation created successfully", "donation": donation})
}

func (h *DonationHandler) respondList(c *gin.Context, donations []model.Donation, err error) {
	if err != nil {
		respondError(c, h.log, err, "failed to retrieve donations")
		return
	}
	if donations == nil {
		donations = []model.Donation{}
	}
	c.JSON(http.StatusOK, donations)
}

func (h *DonationHandler) GetAllDonations(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	donations, err := h.service.ListAllDonations(c.Request.Context(), caller)
	h.respondList(c, donations, err)
}

func (h *DonationHandler) GetMyDonations(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	donations, err := h.service.ListMyDonations(c.Request.Context(), caller)
	h.respondList(c, donations, err)
}

func (h *DonationHandler) GetAssignedDonations(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	donations, err := h.service.ListAssignedDonations(c.Request.Context(), caller)
	h.respondList(c, donations, err)
}

func (h *DonationHandler) GetDonationByID(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "donation")
	if !ok {
		return
	}
	donation, err := h.service.GetDonation(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, h.log, err, "failed to retrieve donation")
		return
	}
	c.JSON(http.StatusOK, donation)
}

func (h *DonationHandler) ApproveDonation(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "donation")
	if !ok {
		return
	}
	donation, err := h.service.ApproveDonation(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, h.log, err, "failed to approve donation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "donation approved", "donation": donation})
}

func (h *DonationHandler) AssignVolunteer(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "donation")
	if !ok {
		return
	}
	var req model.AssignVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, &req, err)
		return
	}
	donation, err := h.service.AssignVolunteer(c.Request.Context(), caller, id, req.VolunteerID)
	if err != nil {
		respondError(c, h.log, err, "failed to assign volunteer")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "volunteer assigned", "donation": donation})
}

func (h *DonationHandler) MarkCompleted(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "donation")
	if !ok {
		return
	}
	var req model.CompleteDonationRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, &req, err)
		return
	}
	donation, err := h.service.MarkCompleted(c.Request.Context(), caller, id, req.CompletionProof)
	if err != nil {
		respondError(c, h.log, err, "failed to mark donation completed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task marked as completed", "donation": donation})
}

func (h *DonationHandler) ApproveCompletion(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "donation")
	if !ok {
		return
	}
	var req model.ApproveCompletionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, &req, err)
		return
	}
	donation, err := h.service.ApproveCompletion(c.Request.Context(), caller, id, req.Points)
	if err != nil {
		respondError(c, h.log, err, "failed to approve completion")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "completion approved and points awarded", "donation": donation})
}

func (h *DonationHandler) DeleteDonation(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "donation")
	if !ok {
		return
	}
	if err := h.service.DeleteDonation(c.Request.Context(), caller, id); err != nil {
		respondError(c, h.log, err, "failed to delete donation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "donation deleted successfully"})
}

// RegisterDonationRoutes registers donation routes. Admin-only routes are
// rejected by the policy middleware before the handler runs; ownership
// checks stay in the service.
func (h *DonationHandler) RegisterDonationRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, p *policy.Policy) {
	admin := func(action policy.Action) gin.HandlerFunc { return middleware.RequirePermission(p, action) }

	donations := rg.Group("/donations")
	donations.Use(authMW)
	{
		donations.POST("", h.CreateDonation)
		donations.GET("", admin(policy.ActionListAllDonations), h.GetAllDonations)
		donations.GET("/my", h.GetMyDonations)
		donations.GET("/assigned", h.GetAssignedDonations)
		donations.GET("/:id", h.GetDonationByID)
		donations.PATCH("/:id/approve", admin(policy.ActionApproveDonation), h.ApproveDonation)
		donations.PATCH("/:id/assign", admin(policy.ActionAssignVolunteer), h.AssignVolunteer)
		donations.POST("/:id/complete", h.MarkCompleted)
		donations.POST("/:id/approveCompletion", admin(policy.ActionApproveCompletion), h.ApproveCompletion)
		donations.DELETE("/:id", h.DeleteDonation)
	}
}
