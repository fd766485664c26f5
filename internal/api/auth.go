package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/proplens/backend/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type SignupRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Username  string `json:"username" binding:"required,min=3,max=50"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Brokerage string `json:"brokerage"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	user, token, err := h.auth.Signup(c.Request.Context(), service.SignupInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Brokerage: req.Brokerage,
	})
	if err != nil {
		Fail(c, err)
		return
	}

	Created(c, "User created successfully", gin.H{
		"user":  user,
		"token": token,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		Fail(c, err)
		return
	}

	OKMessage(c, "Login successful", gin.H{
		"user":  user,
		"token": token,
	})
}

// Logout is stateless on the server; the client discards its token.
func (h *AuthHandler) Logout(c *gin.Context) {
	OKMessage(c, "Logged out successfully", nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.GetProfile(c.Request.Context(), UserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, user)
}

type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Brokerage   *string `json:"brokerage"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	Preferences *string `json:"preferences"`
}

func (h *AuthHandler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), UserID(c), service.UpdateProfileInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Brokerage:   req.Brokerage,
		Phone:       req.Phone,
		Address:     req.Address,
		City:        req.City,
		Preferences: req.Preferences,
	})
	if err != nil {
		Fail(c, err)
		return
	}

	OKMessage(c, "Profile updated successfully", user)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), UserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		Fail(c, err)
		return
	}

	OKMessage(c, "Password changed successfully", nil)
}

// Refresh exchanges the presented token for a fresh one. The route is
// public: the token itself is the credential.
func (h *AuthHandler) Refresh(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "token not provided")
		return
	}

	user, token, err := h.auth.RefreshToken(c.Request.Context(), strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		Fail(c, err)
		return
	}

	OKMessage(c, "Token refreshed successfully", gin.H{
		"user":  user,
		"token": token,
	})
}
