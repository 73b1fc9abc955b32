package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/warehub_backend/models"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		info, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			abortError(c, http.StatusUnauthorized, err.Error())
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewRegistration
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		info, err := models.Register(c.Request.Context(), &input)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusCreated, info)
	}
}

func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		ok, err := models.Logout(c.Request.Context())
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": ok})
	}
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

func ChangePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		user, err := models.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusOK, user)
	}
}

func ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdmin(c) {
			return
		}
		users, err := models.GetAllUsers(c.Request.Context())
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdmin(c) {
			return
		}
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}
