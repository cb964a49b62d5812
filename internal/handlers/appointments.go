package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"counseling-app-server/internal/appointment"
	"counseling-app-server/internal/middleware"
	"counseling-app-server/internal/models"
	"counseling-app-server/internal/utils"
)

// AppointmentHandler exposes the appointment ledger over HTTP.
type AppointmentHandler struct {
	Ledger *appointment.Ledger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(ledger *appointment.Ledger) *AppointmentHandler {
	return &AppointmentHandler{Ledger: ledger}
}

// CreateAppointmentRequest represents the request body for booking an appointment.
type CreateAppointmentRequest struct {
	CounselorID string    `json:"counselorId" binding:"required,uuid"`
	StudentID   string    `json:"studentId" binding:"omitempty,uuid"` // required when a counselor books
	Type        string    `json:"type" binding:"required,oneof=academic career personal other"`
	Mode        string    `json:"mode" binding:"required,oneof=in_person online"`
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
	Reason      string    `json:"reason" binding:"required"`
}

// CreateAppointment books a new appointment. Student-initiated requests
// start Pending; counselor-initiated ones start PendingConfirmation.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	actorID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	actorRole, _ := middleware.GetUserRoleFromContext(c)

	studentID := req.StudentID
	switch actorRole {
	case models.RoleStudent:
		// students book for themselves
		studentID = actorID
	case models.RoleCounselor, models.RoleAdmin:
		if studentID == "" {
			utils.BadRequest(c, "studentId is required when booking on behalf of a student")
			return
		}
	default:
		utils.Forbidden(c, "Role not permitted to book appointments")
		return
	}

	appt, err := h.Ledger.Create(appointment.CreateRequest{
		StudentID:   studentID,
		CounselorID: req.CounselorID,
		Type:        models.AppointmentType(req.Type),
		Mode:        models.AppointmentMode(req.Mode),
		ScheduledAt: req.ScheduledAt,
		Reason:      req.Reason,
		InitiatedBy: actorRole,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.Created(c, "Appointment created successfully", appt)
}

// GetAppointmentsForUser fetches the logged-in user's appointments.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	actorID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	actorRole, _ := middleware.GetUserRoleFromContext(c)

	appts, err := h.Ledger.ListForUser(appointment.Actor{ID: actorID, Role: actorRole})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", appts)
}

// GetAppointmentByID fetches a single appointment. Accessible by the
// involved student, counselor, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appt, err := h.Ledger.Get(c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	actorID, _ := middleware.GetUserIDFromContext(c)
	actorRole, _ := middleware.GetUserRoleFromContext(c)
	if actorRole != models.RoleAdmin && !appt.Participant(actorID) {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appt)
}

// UpdateAppointmentStatusRequest represents the request body for a status transition.
type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required"`
	Notes  string                   `json:"notes"`
}

// UpdateAppointmentStatus drives one edge of the status graph. Counselors
// decide on their own appointments; students may only reject (cancel)
// theirs; admins may drive any edge.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Ledger.Get(c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	actorID, _ := middleware.GetUserIDFromContext(c)
	actorRole, _ := middleware.GetUserRoleFromContext(c)

	canUpdate := false
	switch actorRole {
	case models.RoleAdmin:
		canUpdate = true
	case models.RoleCounselor:
		canUpdate = actorID == appt.CounselorID
	case models.RoleStudent:
		canUpdate = actorID == appt.StudentID && req.Status == models.StatusRejected
	}
	if !canUpdate {
		utils.Forbidden(c, "You are not authorized to perform this status transition")
		return
	}

	updated, err := h.Ledger.Transition(appt.ID, req.Status,
		appointment.Actor{ID: actorID, Role: actorRole}, req.Notes)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.Success(c, "Appointment status updated successfully", updated)
}

// FollowUpRequest represents the request body for scheduling a follow-up.
type FollowUpRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
	Type        string    `json:"type" binding:"required,oneof=academic career personal other"`
	Mode        string    `json:"mode" binding:"required,oneof=in_person online"`
}

// RequestFollowUp completes the current appointment and creates a linked
// successor. Counselor involved or admin only.
func (h *AppointmentHandler) RequestFollowUp(c *gin.Context) {
	var req FollowUpRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Ledger.Get(c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	actorID, _ := middleware.GetUserIDFromContext(c)
	actorRole, _ := middleware.GetUserRoleFromContext(c)
	if actorRole != models.RoleAdmin && !(actorRole == models.RoleCounselor && actorID == appt.CounselorID) {
		utils.Forbidden(c, "Only the counselor can schedule a follow-up")
		return
	}

	successor, err := h.Ledger.RequestFollowUp(appt.ID, req.ScheduledAt,
		models.AppointmentType(req.Type), models.AppointmentMode(req.Mode),
		appointment.Actor{ID: actorID, Role: actorRole})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.Created(c, "Follow-up appointment created successfully", successor)
}

// GetStatusHistory returns the appointment's audit trail, oldest first.
func (h *AppointmentHandler) GetStatusHistory(c *gin.Context) {
	appt, err := h.Ledger.Get(c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	actorID, _ := middleware.GetUserIDFromContext(c)
	actorRole, _ := middleware.GetUserRoleFromContext(c)
	if actorRole != models.RoleAdmin && !appt.Participant(actorID) {
		utils.Forbidden(c, "You are not authorized to view this appointment's history")
		return
	}

	history, err := h.Ledger.History(appt.ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.Success(c, "Status history fetched successfully", history)
}
