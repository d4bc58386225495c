package api

import (
	"errors"
	"net/http"

	appsession "marquee/internal/application/session"
	domain "marquee/internal/domain/session"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"     // swagger embed files
	ginSwagger "github.com/swaggo/gin-swagger" // gin-swagger middleware

	_ "marquee/docs" // swagger docs
)

// Handler exposes the session service to UI screens
type Handler struct {
	service *appsession.Service
	bridge  *Bridge
}

// NewHandler creates a new API handler
func NewHandler(service *appsession.Service, bridge *Bridge) *Handler {
	return &Handler{service: service, bridge: bridge}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.Use(RequestLogger())
	{
		api.GET("/health", h.Health)
		api.GET("/session", h.GetSession)
		api.POST("/session/visibility", h.ReportVisibility)
		api.POST("/session/check", h.CheckExpiration)

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.POST("/logout", h.Logout)
			auth.POST("/refresh", h.Refresh)
		}

		api.GET("/ws", h.HandleWebSocket)
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// SessionResponse is the session as seen by UI screens
type SessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user"`
	AccessToken   string       `json:"access_token,omitempty"`
}

// VisibilityRequest reports whether the UI is visible
type VisibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

func sessionResponse(s domain.Session) SessionResponse {
	return SessionResponse{Authenticated: s.Authenticated(), User: s.User, AccessToken: s.AccessToken}
}

// Health godoc
//
//	@Summary		Health check
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Router			/health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"authenticated": h.service.State().Authenticated(),
		"monitor":       h.service.Monitor().State().String(),
		"screens":       h.bridge.Clients(),
	})
}

// GetSession godoc
//
//	@Summary		Current session
//	@Description	Returns the current user and access token, if any
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Router			/session [get]
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, sessionResponse(h.service.State()))
}

// Register godoc
//
//	@Summary		Create an account
//	@Description	Registers a new account with the remote API. It does not log in.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		domain.RegisterRequest	true	"Registration payload"
//	@Success		201		{object}	map[string]string
//	@Failure		400		{object}	map[string]string
//	@Failure		409		{object}	map[string]any
//	@Failure		502		{object}	map[string]string
//	@Router			/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Register(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Authenticates against the remote API and establishes the session
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		domain.Credentials	true	"Credentials"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		401		{object}	map[string]string
//	@Failure		502		{object}	map[string]string
//	@Router			/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var creds domain.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Login(c.Request.Context(), creds); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(h.service.State()))
}

// Logout godoc
//
//	@Summary		Log out
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	h.service.Logout(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// Refresh godoc
//
//	@Summary		Extend the session
//	@Description	Exchanges the stored refresh token for a new access token. Any failure logs out.
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Failure		401	{object}	map[string]string
//	@Failure		409	{object}	map[string]string
//	@Failure		502	{object}	map[string]string
//	@Router			/auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	if err := h.service.Refresh(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(h.service.State()))
}

// ReportVisibility godoc
//
//	@Summary		Report UI visibility
//	@Description	A screen becoming visible again triggers an expiration check
//	@Tags			session
//	@Accept			json
//	@Param			request	body	VisibilityRequest	true	"Visibility"
//	@Success		202
//	@Failure		400	{object}	map[string]string
//	@Router			/session/visibility [post]
func (h *Handler) ReportVisibility(c *gin.Context) {
	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.Visible {
		h.service.Monitor().Visible()
	}
	c.Status(http.StatusAccepted)
}

// CheckExpiration godoc
//
//	@Summary		Run an expiration check
//	@Description	Runs one check cycle now and returns its outcome. Blocks while a prompt is open.
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/session/check [post]
func (h *Handler) CheckExpiration(c *gin.Context) {
	outcome := h.service.CheckExpiration(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"outcome": string(outcome)})
}

// respondError maps the session error taxonomy onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictError
		status     *domain.StatusError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message, "field": validation.Field})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": domain.ErrConflict.Error(), "fields": conflict.Fields})
	case errors.Is(err, domain.ErrNoRefreshToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrStaleRefresh):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &status) && status.Status >= 400 && status.Status < 500:
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrAuthentication.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
