package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/config"
	"github.com/stemsi/roster-backend/internal/middleware"
	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/response"
	"github.com/stemsi/roster-backend/internal/service"
	"github.com/stemsi/roster-backend/internal/validator"
)

// AuthHandler handles registration, login and session endpoints.
type AuthHandler struct {
	identityService *service.IdentityService
	captchaService  *service.CaptchaService
	cfg             *config.Config
	log             zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	identityService *service.IdentityService,
	captchaService *service.CaptchaService,
	cfg *config.Config,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		identityService: identityService,
		captchaService:  captchaService,
		cfg:             cfg,
		log:             log.With().Str("component", "auth_handler").Logger(),
	}
}

// Captcha godoc
// GET /api/v1/auth/captcha
// Returns a PNG challenge; the token to submit with it is in X-Captcha-Token.
func (h *AuthHandler) Captcha(c *gin.Context) {
	challenge, err := h.captchaService.Issue(c.Request.Context())
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	c.Header("X-Captcha-Token", challenge.Token)
	c.Data(http.StatusOK, "image/png", challenge.PNG)
}

// Register godoc
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	identity, err := h.identityService.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"identity": identity})
}

// Login godoc
// POST /api/v1/auth/login
// Returns the token and also sets it as an HttpOnly session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.identityService.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, resp.Token, int(h.cfg.JWTExpiry.Seconds()), "/", "", h.secureCookie(), true)
	response.Success(c, http.StatusOK, resp)
}

// Logout godoc
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.identityService.Logout(c.Request.Context(), middleware.GetClaims(c)); err != nil {
		response.Error(c, h.log, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookie(), true)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

// Me godoc
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	identity := middleware.GetIdentity(c)
	if identity == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"identity": identity})
}

func (h *AuthHandler) secureCookie() bool {
	return h.cfg.GinMode == gin.ReleaseMode
}
