package handler

import (
	"net/http"

	"donation_tracker/internal/middleware"
	"donation_tracker/internal/model"
	"donation_tracker/internal/policy"
	"donation_tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// VolunteerHandler serves volunteer profiles and the leaderboard
type VolunteerHandler struct {
	service service.VolunteerService
	log     zerolog.Logger
}

// NewVolunteerHandler creates a new VolunteerHandler
func NewVolunteerHandler(s service.VolunteerService, log zerolog.Logger) *VolunteerHandler {
	return &VolunteerHandler{service: s, log: log}
}

func (h *VolunteerHandler) RegisterVolunteer(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	var req model.RegisterVolunteerRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, &req, err)
		return
	}
	volunteer, err := h.service.RegisterVolunteer(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, h.log, err, "failed to register volunteer")
		return
	}
	c.JSON(http.StatusCreated, volunteer)
}

func (h *VolunteerHandler) GetAllVolunteers(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	volunteers, err := h.service.ListVolunteers(c.Request.Context(), caller)
	if err != nil {
		respondError(c, h.log, err, "failed to retrieve volunteers")
		return
	}
	c.JSON(http.StatusOK, nonNil(volunteers))
}

func (h *VolunteerHandler) GetAssignedDonations(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	donations, err := h.service.GetAssignedDonations(c.Request.Context(), caller)
	if err != nil {
		respondError(c, h.log, err, "failed to retrieve assigned donations")
		return
	}
	if donations == nil {
		donations = []model.Donation{}
	}
	c.JSON(http.StatusOK, donations)
}

func (h *VolunteerHandler) GetLeaderboard(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	top, err := h.service.Leaderboard(c.Request.Context(), caller)
	if err != nil {
		respondError(c, h.log, err, "failed to retrieve leaderboard")
		return
	}
	c.JSON(http.StatusOK, nonNil(top))
}

func (h *VolunteerHandler) DeleteVolunteer(c *gin.Context) {
	caller, ok := withCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "volunteer")
	if !ok {
		return
	}
	if err := h.service.DeleteVolunteer(c.Request.Context(), caller, id); err != nil {
		respondError(c, h.log, err, "failed to delete volunteer")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "volunteer deleted successfully"})
}

func nonNil(v []model.Volunteer) []model.Volunteer {
	if v == nil {
		return []model.Volunteer{}
	}
	return v
}

// RegisterVolunteerRoutes registers volunteer routes
func (h *VolunteerHandler) RegisterVolunteerRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, p *policy.Policy) {
	volunteers := rg.Group("/volunteers")
	volunteers.Use(authMW)
	{
		volunteers.POST("/register", h.RegisterVolunteer)
		volunteers.GET("", middleware.RequirePermission(p, policy.ActionListVolunteers), h.GetAllVolunteers)
		volunteers.GET("/assigned", h.GetAssignedDonations)
		volunteers.GET("/leaderboard", h.GetLeaderboard)
		volunteers.DELETE("/:id", middleware.RequirePermission(p, policy.ActionDeleteVolunteer), h.DeleteVolunteer)
	}
}
