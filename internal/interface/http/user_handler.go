package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/artesanato/internal/application"
	"github.com/oksasatya/artesanato/internal/domain/entity"
	"github.com/oksasatya/artesanato/internal/interface/middleware"
	"github.com/oksasatya/artesanato/pkg/helpers"
	"github.com/oksasatya/artesanato/pkg/response"
	"github.com/oksasatya/artesanato/pkg/validation"
)

type UserHandler struct {
	Svc     *application.UserService
	Items   *application.ItemService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewUserHandler(svc *application.UserService, items *application.ItemService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *UserHandler {
	return &UserHandler{Svc: svc, Items: items, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type registerRequest struct {
	Name     string `json:"nome" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	TaxID    string `json:"cpf" binding:"required,taxid"`
	Phone    string `json:"celular" binding:"required,phone"`
	Password string `json:"senha" binding:"required,pwd"`
}

type authenticateRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"senha" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"nome"`
	Email     string    `json:"email"`
	TaxID     string    `json:"cpf"`
	Phone     string    `json:"celular"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type tokenResponse struct {
	Name         string `json:"nome"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type balanceResponse struct {
	UserID  string          `json:"usuario"`
	Balance decimal.Decimal `json:"saldo"`
}

func toUserResponse(u *entity.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		TaxID:     u.TaxID,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func tokenMeta(pair application.TokenPair) map[string]any {
	return map[string]any{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		TaxID:    req.TaxID,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toUserResponse(u), "user registered", nil)
}

// Authenticate returns the display name and an access token. Browser clients
// also receive the pair as cookies.
func (h *UserHandler) Authenticate(c *gin.Context) {
	var req authenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, tokenResponse{Name: u.Name, Token: pair.AccessToken, RefreshToken: pair.RefreshToken}, "authenticated", tokenMeta(pair))
}

// Refresh takes the refresh token from the cookie, falling back to the body.
func (h *UserHandler) Refresh(c *gin.Context) {
	token, _ := c.Cookie(helpers.RefreshCookie)
	if token == "" {
		var req refreshRequest
		_ = c.ShouldBindJSON(&req)
		token = req.RefreshToken
	}
	if token == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, err := h.Svc.Refresh(c.Request.Context(), token)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, tokenResponse{Token: pair.AccessToken, RefreshToken: pair.RefreshToken}, "token refreshed", tokenMeta(pair))
}

func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), c.GetString(middleware.CtxUserIDKey)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"logged_out": true}, "logged out", nil)
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if u == nil {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	if !callerIs(c, u.ID) {
		writeError(c, h.Logger, application.ErrForbidden)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user", nil)
}

func (h *UserHandler) Balance(c *gin.Context) {
	ctx := c.Request.Context()
	u, err := h.Svc.GetByID(ctx, c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if u == nil {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	if !callerIs(c, u.ID) {
		writeError(c, h.Logger, application.ErrForbidden)
		return
	}
	bal, err := h.Items.Balance(ctx, u.ID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, balanceResponse{UserID: u.ID, Balance: bal}, "balance", nil)
}
