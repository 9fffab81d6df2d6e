package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Aalok376/GharBata-sub001/internal/application"
	"github.com/Aalok376/GharBata-sub001/internal/auth"
	"github.com/Aalok376/GharBata-sub001/internal/middleware"
	"github.com/Aalok376/GharBata-sub001/internal/response"
)

// AdminHandler handles the technician moderation and issue administration
// endpoints.
type AdminHandler struct {
	admin  *application.AdminService
	issues *application.IssueService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin *application.AdminService, issues *application.IssueService) *AdminHandler {
	return &AdminHandler{admin: admin, issues: issues}
}

// RegisterRoutes registers all admin routes on the given router group.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/technicians/process-expired-bans", h.ProcessExpiredBans)
		admin.GET("/technicians/banned", h.ListBanned)
		admin.POST("/technicians/:id/ban", h.BanTechnician)
		admin.POST("/technicians/:id/unban", h.UnbanTechnician)
		admin.POST("/technicians/:id/warn", h.WarnTechnician)
		admin.GET("/technicians/:id/ban-details", h.GetBanDetails)
		admin.GET("/issues/stats", h.GetIssueStats)
		admin.PATCH("/bookings/:id/issues/:issueID", h.ResolveIssue)
	}
}

// BanTechnician handles POST /api/v1/admin/technicians/:id/ban.
func (h *AdminHandler) BanTechnician(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	technicianID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req application.BanTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.admin.BanTechnician(c.Request.Context(), adminID, technicianID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UnbanTechnician handles POST /api/v1/admin/technicians/:id/unban.
func (h *AdminHandler) UnbanTechnician(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	technicianID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.admin.UnbanTechnician(c.Request.Context(), adminID, technicianID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// WarnTechnician handles POST /api/v1/admin/technicians/:id/warn.
func (h *AdminHandler) WarnTechnician(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	technicianID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.admin.WarnTechnician(c.Request.Context(), adminID, technicianID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ProcessExpiredBans handles POST /api/v1/admin/technicians/process-expired-bans.
func (h *AdminHandler) ProcessExpiredBans(c *gin.Context) {
	lifted, err := h.admin.ProcessExpiredBans(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"lifted": lifted})
}

// ListBanned handles GET /api/v1/admin/technicians/banned.
func (h *AdminHandler) ListBanned(c *gin.Context) {
	page, limit := parsePagination(c)

	result, err := h.admin.ListBannedTechnicians(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBanDetails handles GET /api/v1/admin/technicians/:id/ban-details.
func (h *AdminHandler) GetBanDetails(c *gin.Context) {
	technicianID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.admin.GetBanDetails(c.Request.Context(), technicianID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetIssueStats handles GET /api/v1/admin/issues/stats.
func (h *AdminHandler) GetIssueStats(c *gin.Context) {
	stats, err := h.issues.GetIssueStatistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// ResolveIssue handles PATCH /api/v1/admin/bookings/:id/issues/:issueID.
func (h *AdminHandler) ResolveIssue(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	issueID, ok := parseIDParam(c, "issueID")
	if !ok {
		return
	}

	var req application.ResolveIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.issues.ResolveIssue(c.Request.Context(), adminID, bookingID, issueID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
