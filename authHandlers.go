package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/barstock_backend/middlewares"
	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/mmdatafocus/barstock_backend/utils"
)

func (a *app) startSession(c *gin.Context, info *models.LoginInfo) {
	ctx := c.Request.Context()
	if err := middlewares.StoreSession(ctx, a.cache, info.Token, info.User.ID, a.cfg.Auth.TokenLifespan); err != nil {
		a.logger.WithField("user_id", info.User.ID).Warn("session not stored: " + err.Error())
	}
	secure := a.cfg.Environment == "production"
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middlewares.AccessTokenCookie, info.Token, int(a.cfg.Auth.TokenLifespan.Seconds()), "/", "", secure, true)
}

func (a *app) registerHandler(c *gin.Context) {
	var input models.NewOwnerRegistration
	if !bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	bar, _, err := models.RegisterOwner(ctx, a.db, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	info, err := models.Login(ctx, a.db, a.issuer, &models.LoginInput{Email: input.Email, Password: input.Password})
	if err != nil {
		respondError(c, err)
		return
	}
	a.startSession(c, info)
	c.JSON(http.StatusCreated, gin.H{"bar": bar, "access_token": info.Token, "user": info.User})
}

func (a *app) loginHandler(c *gin.Context) {
	var input models.LoginInput
	if !bindJSON(c, &input) {
		return
	}
	info, err := models.Login(c.Request.Context(), a.db, a.issuer, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	a.startSession(c, info)
	c.JSON(http.StatusOK, info)
}

func (a *app) logoutHandler(c *gin.Context) {
	ctx := c.Request.Context()
	if token, ok := utils.GetTokenFromContext(ctx); ok && token != "" {
		_ = middlewares.DropSession(ctx, a.cache, token)
	}
	c.SetCookie(middlewares.AccessTokenCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (a *app) meHandler(c *gin.Context) {
	c.JSON(http.StatusOK, middlewares.CurrentUser(c))
}

func (a *app) listUsersHandler(c *gin.Context) {
	users, err := models.ListUsers(c.Request.Context(), a.db)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (a *app) createStaffHandler(c *gin.Context) {
	var input models.NewStaff
	if !bindJSON(c, &input) {
		return
	}
	creator := middlewares.CurrentUser(c)
	user, err := models.CreateStaff(c.Request.Context(), a.db, creator.Role, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (a *app) setUserActiveHandler(c *gin.Context) {
	var input setActiveRequest
	if !bindJSON(c, &input) {
		return
	}
	user, err := models.SetUserActive(c.Request.Context(), a.db, a.cache, c.Param("id"), *input.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
