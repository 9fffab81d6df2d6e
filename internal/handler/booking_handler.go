package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Aalok376/GharBata-sub001/internal/application"
	"github.com/Aalok376/GharBata-sub001/internal/auth"
	bookingDomain "github.com/Aalok376/GharBata-sub001/internal/domain/booking"
	"github.com/Aalok376/GharBata-sub001/internal/middleware"
	"github.com/Aalok376/GharBata-sub001/internal/response"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
	issues  *application.IssueService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService, issues *application.IssueService) *BookingHandler {
	return &BookingHandler{service: service, issues: issues}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	bookings := r.Group("/bookings")
	bookings.Use(authMW)
	{
		bookings.POST("", middleware.RequireRole(auth.RoleClient), h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/stats/overview", middleware.RequireRole(auth.RoleAdmin), h.GetStats)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/:id/accept", middleware.RequireRole(auth.RoleTechnician), h.AcceptBooking)
		bookings.PATCH("/:id/reject", middleware.RequireRole(auth.RoleTechnician), h.RejectBooking)
		bookings.PATCH("/:id/cancel", h.CancelBooking)
		bookings.PATCH("/:id/start", middleware.RequireRole(auth.RoleTechnician), h.StartBooking)
		bookings.PATCH("/:id/complete", middleware.RequireRole(auth.RoleTechnician), h.CompleteBooking)
		bookings.PATCH("/:id/reschedule", h.RescheduleBooking)
		bookings.PATCH("/:id/feedback", middleware.RequireRole(auth.RoleClient), h.SubmitFeedback)
		bookings.POST("/:id/issues", middleware.RequireRole(auth.RoleClient), h.ReportIssue)
	}
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListBookings handles GET /api/v1/bookings. Non-admin callers only see
// their own bookings.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	actor, ok := callerActor(c)
	if !ok {
		return
	}

	filter, err := parseListFilter(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ListBookings(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	actor, ok := callerActor(c)
	if !ok {
		return
	}

	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), actor, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AcceptBooking handles PATCH /api/v1/bookings/:id/accept.
func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.service.AcceptBooking(c.Request.Context(), userID, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RejectBooking handles PATCH /api/v1/bookings/:id/reject.
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		RejectionReason string `json:"rejection_reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RejectBooking(c.Request.Context(), userID, bookingID, req.RejectionReason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelBooking handles PATCH /api/v1/bookings/:id/cancel. Either party or
// an admin may cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	actor, ok := callerActor(c)
	if !ok {
		return
	}

	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		CancellationReason string `json:"cancellation_reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CancelBooking(c.Request.Context(), actor, bookingID, req.CancellationReason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// StartBooking handles PATCH /api/v1/bookings/:id/start.
func (h *BookingHandler) StartBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.service.StartBooking(c.Request.Context(), userID, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CompleteBooking handles PATCH /api/v1/bookings/:id/complete.
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		CompletionNotes  string `json:"completion_notes"`
		ActualPricePaisa *int64 `json:"actual_price_paisa"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CompleteBooking(c.Request.Context(), userID, bookingID, req.CompletionNotes, req.ActualPricePaisa)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RescheduleBooking handles PATCH /api/v1/bookings/:id/reschedule.
func (h *BookingHandler) RescheduleBooking(c *gin.Context) {
	actor, ok := callerActor(c)
	if !ok {
		return
	}

	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req application.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RescheduleBooking(c.Request.Context(), actor, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// SubmitFeedback handles PATCH /api/v1/bookings/:id/feedback.
func (h *BookingHandler) SubmitFeedback(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Rating   int    `json:"rating" binding:"required"`
		Feedback string `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SubmitFeedback(c.Request.Context(), userID, bookingID, req.Rating, req.Feedback)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ReportIssue handles POST /api/v1/bookings/:id/issues.
func (h *BookingHandler) ReportIssue(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req application.ReportIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.issues.ReportIssue(c.Request.Context(), userID, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetStats handles GET /api/v1/bookings/stats/overview.
func (h *BookingHandler) GetStats(c *gin.Context) {
	filter, err := parseStatsFilter(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// --- Helpers ---

func callerActor(c *gin.Context) (application.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return application.Actor{}, false
	}
	role, ok := middleware.GetUserRole(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return application.Actor{}, false
	}
	return application.Actor{ID: userID, Role: role}, true
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func parseListFilter(c *gin.Context) (bookingDomain.Filter, error) {
	var filter bookingDomain.Filter
	filter.Page, filter.Limit = parsePagination(c)

	if v := c.Query("technician_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, err
		}
		filter.TechnicianID = &id
	}
	if v := c.Query("client_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, err
		}
		filter.ClientID = &id
	}
	if v := c.Query("status"); v != "" {
		status, err := bookingDomain.ParseBookingStatus(v)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	var err error
	if filter.DateFrom, err = parseDateQuery(c, "date_from"); err != nil {
		return filter, err
	}
	if filter.DateTo, err = parseDateQuery(c, "date_to"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseStatsFilter(c *gin.Context) (bookingDomain.StatsFilter, error) {
	var filter bookingDomain.StatsFilter

	if v := c.Query("technician_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, err
		}
		filter.TechnicianID = &id
	}
	var err error
	if filter.DateFrom, err = parseDateQuery(c, "date_from"); err != nil {
		return filter, err
	}
	if filter.DateTo, err = parseDateQuery(c, "date_to"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseDateQuery(c *gin.Context, name string) (*time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(bookingDomain.DateLayout, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
