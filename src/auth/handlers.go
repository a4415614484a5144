package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"www.github.com/Wanderer0074348/EventSync/src/models"
)

const stateTTL = 10 * time.Minute

// Lifecycle is the client session lifecycle the handlers drive.
type Lifecycle interface {
	SignIn(ctx context.Context, email, password string) (*User, error)
	SignUp(ctx context.Context, email, password string) (*User, error)
	Logout(ctx context.Context, userID string) error
	MarkLinked(ctx context.Context, userID string) error
	Status(userID string) (models.SessionStatus, bool)
}

type Handler struct {
	oauthConfig  *oauth2.Config
	stateStore   *StateStore
	sessionStore *SessionStore
	provider     *Provider
	grants       *GrantStore
	lifecycle    Lifecycle
	config       *Config
}

func NewHandler(
	oauthConfig *oauth2.Config,
	stateStore *StateStore,
	sessionStore *SessionStore,
	provider *Provider,
	grants *GrantStore,
	lifecycle Lifecycle,
	config *Config,
) *Handler {
	return &Handler{
		oauthConfig:  oauthConfig,
		stateStore:   stateStore,
		sessionStore: sessionStore,
		provider:     provider,
		grants:       grants,
		lifecycle:    lifecycle,
		config:       config,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// CurrentUser returns the user the auth middleware attached to the request.
func CurrentUser(c *gin.Context) (*User, bool) {
	value, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := value.(*User)
	return user, ok
}

// authErrorStatus maps identity errors to a status and a single generic
// message.
func authErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, models.ErrEmailInUse):
		return http.StatusConflict, "Email already in use"
	case errors.Is(err, models.ErrWeakPassword):
		return http.StatusBadRequest, "Password must be at least 6 characters"
	case errors.Is(err, models.ErrInvalidEmail):
		return http.StatusBadRequest, "Invalid email address"
	case errors.Is(err, models.ErrEmailNotVerified):
		return http.StatusForbidden, "Email must be verified first"
	case errors.Is(err, models.ErrInvalidToken):
		return http.StatusBadRequest, "Invalid or expired link"
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusUnauthorized, "User not found"
	default:
		return http.StatusInternalServerError, "Authentication failed"
	}
}

func (h *Handler) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	user, err := h.lifecycle.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		status, message := authErrorStatus(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	h.startSession(c, user, http.StatusCreated)
}

func (h *Handler) SignIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	user, err := h.lifecycle.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		status, message := authErrorStatus(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	h.startSession(c, user, http.StatusOK)
}

func (h *Handler) startSession(c *gin.Context, user *User, status int) {
	session, err := h.sessionStore.CreateSession(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	h.setSessionCookie(c, session.ID, int(h.config.SessionDuration.Seconds()))
	c.JSON(status, gin.H{
		"user":       user.Identity(),
		"session_id": session.ID,
	})
}

func (h *Handler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if h.config.CookieSameSite == "strict" {
		sameSite = http.SameSiteStrictMode
	} else if h.config.CookieSameSite == "none" {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)

	cookieDomain := h.config.CookieDomain
	if cookieDomain == "localhost" {
		cookieDomain = ""
	}

	c.SetCookie("session_id", value, maxAge, "/", cookieDomain, h.config.CookieSecure, true)
}

func (h *Handler) Logout(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	if err := h.lifecycle.Logout(c.Request.Context(), user.ID); err != nil {
		log.Printf("⚠️  Logout of %s finished with errors: %v", user.ID, err)
	}

	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	response := gin.H{"user": user.Identity()}
	if status, ok := h.lifecycle.Status(user.ID); ok {
		response["session"] = status
	}
	c.JSON(http.StatusOK, response)
}

func (h *Handler) UpdateEmail(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}

	updated, err := h.provider.UpdateEmail(c.Request.Context(), user.ID, req.Email)
	if err != nil {
		status, message := authErrorStatus(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	if err := h.provider.SendVerificationEmail(c.Request.Context(), updated.ID); err != nil {
		log.Printf("⚠️  Failed to send verification mail to %s: %v", updated.Email, err)
	}
	c.JSON(http.StatusOK, gin.H{"user": updated.Identity()})
}

func (h *Handler) UpdatePassword(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current and new password are required"})
		return
	}

	if err := h.provider.UpdatePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		status, message := authErrorStatus(err)
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

func (h *Handler) SendVerification(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	if user.EmailVerified {
		c.JSON(http.StatusOK, gin.H{"message": "Email already verified"})
		return
	}

	if err := h.provider.SendVerificationEmail(c.Request.Context(), user.ID); err != nil {
		log.Printf("❌ Failed to send verification mail to %s: %v", user.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send verification email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification email sent"})
}

func (h *Handler) Verify(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token parameter"})
		return
	}

	if _, err := h.provider.VerifyEmail(c.Request.Context(), token); err != nil {
		status, message := authErrorStatus(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.Redirect(http.StatusFound, h.frontendURL()+"/auth/verified")
}

func (h *Handler) GoogleLink(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	state, err := h.stateStore.GenerateState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate state"})
		return
	}

	if err := h.stateStore.SaveState(c.Request.Context(), state, user.ID, stateTTL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save state"})
		return
	}

	url := h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) GoogleCallback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")

	if state == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing state or code parameter"})
		return
	}

	userID, valid, err := h.stateStore.ConsumeState(c.Request.Context(), state)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate state"})
		return
	}
	if !valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired state"})
		return
	}

	token, err := h.oauthConfig.Exchange(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Failed to exchange code for token"})
		return
	}

	if err := h.grants.SaveToken(c.Request.Context(), userID, token); err != nil {
		log.Printf("❌ Failed to store grant for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to link calendar"})
		return
	}

	if err := h.lifecycle.MarkLinked(c.Request.Context(), userID); err != nil {
		log.Printf("❌ Failed to mark %s as linked: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to link calendar"})
		return
	}

	c.Redirect(http.StatusFound, h.frontendURL()+"/auth/linked")
}

func (h *Handler) frontendURL() string {
	if h.config.FrontendURL == "" {
		return "http://localhost:3000"
	}
	return h.config.FrontendURL
}

// RegisterRoutes mounts the auth endpoints. protected is the RequireAuth
// middleware.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup, protected gin.HandlerFunc) {
	authGroup := group.Group("/auth")
	authGroup.POST("/signup", h.SignUp)
	authGroup.POST("/signin", h.SignIn)
	authGroup.GET("/verify", h.Verify)
	authGroup.GET("/google/callback", h.GoogleCallback)

	authGroup.POST("/logout", protected, h.Logout)
	authGroup.GET("/me", protected, h.Me)
	authGroup.PUT("/email", protected, h.UpdateEmail)
	authGroup.PUT("/password", protected, h.UpdatePassword)
	authGroup.POST("/verification", protected, h.SendVerification)
	authGroup.GET("/google/link", protected, h.GoogleLink)
}
