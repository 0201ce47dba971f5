package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"chat-service/internal/apperrors"
	"chat-service/internal/auth"
	"chat-service/internal/models"
	"chat-service/internal/repositories"
	"chat-service/internal/services"
)

type AuthHandler struct {
	users         repositories.UserRepository
	userService   *services.UserService
	authenticator *auth.Authenticator
}

func NewAuthHandler(users repositories.UserRepository, userService *services.UserService, authenticator *auth.Authenticator) *AuthHandler {
	return &AuthHandler{users: users, userService: userService, authenticator: authenticator}
}

type signupBody struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var body signupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	hashed, err := h.authenticator.HashPassword(body.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	user := &models.User{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Email:     body.Email,
		Password:  hashed,
	}

	ctx := c.Request.Context()
	if err := h.users.Create(ctx, user); err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			logrus.WithError(err).Error("could not create user")
		}
		respondError(c, err)
		return
	}

	token, err := h.authenticator.IssueToken(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "user created successfully",
		"token":   token,
	})
}

type loginBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), body.Email)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.CodeNotFound {
			respondError(c, apperrors.NotFound("user not found, email might be incorrect"))
			return
		}
		respondError(c, err)
		return
	}

	if !h.authenticator.CheckPassword(body.Password, user.Password) {
		respondError(c, apperrors.Unauthenticated("incorrect password"))
		return
	}

	token, err := h.authenticator.IssueToken(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "login successful",
		"token":   token,
	})
}

// Logout exists for surface parity; tokens are stateless and simply expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logout successful"})
}

func (h *AuthHandler) CurrentUser(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), *userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": profile})
}
