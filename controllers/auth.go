package controllers

import (
	"net/http"

	"codegalaxy/internal/logger"
	"codegalaxy/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type VerifyRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type ResendRequest struct {
	Email   string `json:"email" binding:"required"`
	Purpose string `json:"purpose"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthController exposes signup, verification and login.
type AuthController struct {
	auth *services.AuthService
	log  *zap.Logger
}

func NewAuthController(auth *services.AuthService, log *zap.Logger) *AuthController {
	return &AuthController{auth: auth, log: logger.OrNop(log)}
}

func (a *AuthController) SignUp(c *gin.Context) {
	var request services.SignupInput
	if !bindJSON(c, &request) {
		return
	}
	if err := a.auth.Signup(c.Request.Context(), request, clientInfo(c)); err != nil {
		respondError(c, a.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Sign-up successful. Check your email for the verification code."})
}

func (a *AuthController) VerifyEmail(c *gin.Context) {
	var request VerifyRequest
	if !bindJSON(c, &request) {
		return
	}
	result, err := a.auth.VerifyEmail(c.Request.Context(), request.Email, request.Code, clientInfo(c))
	if err != nil {
		respondError(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *AuthController) ResendCode(c *gin.Context) {
	var request ResendRequest
	if !bindJSON(c, &request) {
		return
	}
	purpose := request.Purpose
	if purpose == "" {
		purpose = "signup"
	}
	if err := a.auth.ResendOTP(c.Request.Context(), request.Email, purpose); err != nil {
		respondError(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the account exists, a new code has been sent."})
}

func (a *AuthController) Login(c *gin.Context) {
	var request LoginRequest
	if !bindJSON(c, &request) {
		return
	}
	result, err := a.auth.Login(c.Request.Context(), request.Email, request.Password, clientInfo(c))
	if err != nil {
		respondError(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// LoginWithCode opens a session from a one-time login code.
func (a *AuthController) LoginWithCode(c *gin.Context) {
	var request VerifyRequest
	if !bindJSON(c, &request) {
		return
	}
	result, err := a.auth.VerifyLoginCode(c.Request.Context(), request.Email, request.Code, clientInfo(c))
	if err != nil {
		respondError(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *AuthController) ForgotPassword(c *gin.Context) {
	var request ForgotPasswordRequest
	if !bindJSON(c, &request) {
		return
	}
	if err := a.auth.ForgotPassword(c.Request.Context(), request.Email); err != nil {
		respondError(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the account exists, a reset code has been sent."})
}

func (a *AuthController) ResetPassword(c *gin.Context) {
	var request ResetPasswordRequest
	if !bindJSON(c, &request) {
		return
	}
	if err := a.auth.ResetPassword(c.Request.Context(), request.Email, request.Code, request.NewPassword, clientInfo(c)); err != nil {
		respondError(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password successfully changed"})
}

func (a *AuthController) AdminLogin(c *gin.Context) {
	var request AdminLoginRequest
	if !bindJSON(c, &request) {
		return
	}
	result, err := a.auth.AdminLogin(c.Request.Context(), request.Username, request.Password, clientInfo(c))
	if err != nil {
		respondError(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
