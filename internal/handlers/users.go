package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"counseling-app-server/internal/middleware"
	"counseling-app-server/internal/models"
	"counseling-app-server/internal/utils"
)

// UserHandler handles user-related requests (typically admin operations).
type UserHandler struct {
	DB *gorm.DB
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{DB: db}
}

// CreateUserRequest represents the request body for creating a user by an admin.
type CreateUserRequest struct {
	FirstName  string `json:"firstName" binding:"required"`
	LastName   string `json:"lastName" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Role       string `json:"role" binding:"required,oneof=student counselor admin"`
	Department string `json:"department"`
}

// CreateUser handles creating a new user (admin).
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var existingUser models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		utils.BadRequest(c, "User with this email already exists")
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	user := models.User{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Role:       models.Role(req.Role),
		Department: req.Department,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	if err := h.DB.Create(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers handles fetching all users (admin).
func (h *UserHandler) GetUsers(c *gin.Context) {
	var users []models.User
	if err := h.DB.Find(&users).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch users: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(users))
	for i, u := range users {
		sanitized[i] = u.Sanitize()
	}

	utils.Success(c, "Users fetched successfully", sanitized)
}

// GetUserByID handles fetching a single user by ID (admin).
func (h *UserHandler) GetUserByID(c *gin.Context) {
	var user models.User
	if err := h.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// GetCounselors fetches all counselors. Accessible to every authenticated
// user for booking appointments.
func (h *UserHandler) GetCounselors(c *gin.Context) {
	var counselors []models.User
	if err := h.DB.Where("role = ?", models.RoleCounselor).Find(&counselors).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch counselors: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(counselors))
	for i, u := range counselors {
		sanitized[i] = u.Sanitize()
	}

	utils.Success(c, "Counselors fetched successfully", sanitized)
}

// GetStudents fetches all students. Counselors and admins only.
func (h *UserHandler) GetStudents(c *gin.Context) {
	role, _ := middleware.GetUserRoleFromContext(c)
	if role != models.RoleCounselor && role != models.RoleAdmin {
		utils.Forbidden(c, "Only counselors and admins can view student lists")
		return
	}

	var students []models.User
	if err := h.DB.Where("role = ?", models.RoleStudent).Find(&students).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch students: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(students))
	for i, u := range students {
		sanitized[i] = u.Sanitize()
	}

	utils.Success(c, "Students fetched successfully", sanitized)
}
