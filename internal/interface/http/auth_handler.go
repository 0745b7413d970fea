package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/house-marketplace/internal/application"
	"github.com/oksasatya/house-marketplace/internal/interface/middleware"
	"github.com/oksasatya/house-marketplace/pkg/helpers"
	"github.com/oksasatya/house-marketplace/pkg/notice"
	"github.com/oksasatya/house-marketplace/pkg/response"
	"github.com/oksasatya/house-marketplace/pkg/validation"
)

type AuthHandler struct {
	Svc     *application.Service
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type signUpRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type googleRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,pwd"`
}

func (h *AuthHandler) signedIn(c *gin.Context, status int, res *application.LoginResponse, pair application.TokenPair, message string) {
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, status, res, message, response.Meta{
		Redirect: "/",
		Extra:    map[string]any{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry},
	})
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, pair, err := h.Svc.SignUp(c.Request.Context(), req.Name, req.Email, req.Password)
	switch {
	case errors.Is(err, application.ErrEmailTaken):
		response.Error[any](c, http.StatusConflict, "email already registered", nil)
		return
	case err != nil:
		helpers.LogError(h.Logger, "sign up failed", err, nil)
		response.Error[any](c, http.StatusInternalServerError, "Something went wrong with registration", nil)
		return
	}
	h.signedIn(c, http.StatusCreated, res, pair, "account created")
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, application.ErrInvalidCredentials) {
			helpers.LogError(h.Logger, "sign in failed", err, nil)
		}
		response.Error[any](c, http.StatusUnauthorized, "Bad user credentials", nil)
		return
	}
	h.signedIn(c, http.StatusOK, res, pair, "signed in")
}

// Google signs in with a Google ID token obtained by the client.
func (h *AuthHandler) Google(c *gin.Context) {
	var req googleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, pair, err := h.Svc.SignInWithGoogle(c.Request.Context(), req.IDToken)
	if err != nil {
		n := notice.New()
		n.Error("Could not login with Google")
		status := http.StatusUnauthorized
		if !errors.Is(err, application.ErrGoogleSignIn) {
			helpers.LogError(h.Logger, "google sign in failed", err, nil)
			status = http.StatusInternalServerError
		}
		response.Fail[any](c, status, "Could not login with Google", nil, response.Notices(n))
		return
	}
	h.signedIn(c, http.StatusOK, res, pair, "signed in")
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie(helpers.RefreshCookie)
	if err != nil || refresh == "" {
		response.Redirect(c, http.StatusUnauthorized, "missing refresh token", middleware.SignInPath, nil)
		return
	}
	pair, _, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		h.Cookies.Clear(c)
		response.Redirect(c, http.StatusUnauthorized, "session expired", middleware.SignInPath, nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success[any](c, http.StatusOK, map[string]any{"refreshed": true}, "token refreshed", response.Meta{
		Extra: map[string]any{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry},
	})
}

// SignOut always clears the cookies; the server session is ended when the
// request carried a live one.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if u, ok := middleware.CurrentUser(c); ok {
		if err := h.Svc.SignOut(c.Request.Context(), u.ID); err != nil {
			helpers.LogError(h.Logger, "sign out failed", err, logrus.Fields{"user_id": u.ID})
		}
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"signed_out": true}, "signed out", response.Meta{Redirect: "/"})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		helpers.LogError(h.Logger, "forgot password failed", err, nil)
		response.Error[any](c, http.StatusInternalServerError, "Could not send reset email", nil)
		return
	}
	n := notice.New()
	n.Success("Email was sent")
	response.Success[any](c, http.StatusAccepted, map[string]any{"sent": true}, "if the address is registered, a reset link is on its way", response.Notices(n))
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	err := h.Svc.ResetPassword(c.Request.Context(), req.Token, req.NewPassword)
	switch {
	case errors.Is(err, application.ErrInvalidResetToken):
		response.Error[any](c, http.StatusBadRequest, err.Error(), nil)
		return
	case err != nil:
		helpers.LogError(h.Logger, "reset password failed", err, nil)
		response.Error[any](c, http.StatusInternalServerError, "Could not reset password", nil)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"reset": true}, "password updated", response.Meta{Redirect: middleware.SignInPath})
}
