package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"demeter/internal/auth"
	"demeter/internal/models"
	"demeter/internal/storage/sqlite"
)

type registerRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	FullName string  `json:"fullName"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

var errBadCredentials = errors.New("incorrect username or password")

// handleRegister creates an account. It does not sign the caller in.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !s.bind(c, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" {
		s.respondError(c, http.StatusBadRequest, errors.New("username and email are required"))
		return
	}

	ctx := c.Request.Context()
	usernameTaken, emailTaken, err := s.store.UsernameOrEmailTaken(ctx, req.Username, req.Email)
	if err != nil {
		s.fail(c, err)
		return
	}
	switch {
	case usernameTaken:
		s.respondError(c, http.StatusConflict, errors.New("username already exists"))
		return
	case emailTaken:
		s.respondError(c, http.StatusConflict, errors.New("email already exists"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		s.fail(c, err)
		return
	}
	user, err := s.store.CreateUser(ctx, models.CreateUserParams{
		Username: req.Username,
		Password: hash,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
	}, 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	respondSuccess(c, http.StatusCreated, user)
}

// handleLogin checks credentials and sets both session cookies.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			s.respondError(c, http.StatusUnauthorized, errBadCredentials)
			return
		}
		s.fail(c, err)
		return
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		s.respondError(c, http.StatusUnauthorized, errBadCredentials)
		return
	}
	if !user.IsActive {
		s.respondError(c, http.StatusForbidden, errors.New("account is disabled"))
		return
	}

	access, refresh, err := s.issueTokens(user)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.SaveRefreshToken(ctx, user.ID, refresh.Token, refresh.ExpiresAt); err != nil {
		s.fail(c, err)
		return
	}
	s.setSession(c, access, refresh)
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

// handleRefresh rotates the refresh token and issues a new access token.
func (s *Server) handleRefresh(c *gin.Context) {
	old, err := c.Cookie(auth.RefreshCookie)
	if err != nil || old == "" {
		s.respondError(c, http.StatusUnauthorized, errors.New("refresh token missing"))
		return
	}
	claims, err := s.tokens.VerifyRefresh(old)
	if err != nil {
		s.clearSession(c)
		s.respondError(c, http.StatusUnauthorized, err)
		return
	}

	ctx := c.Request.Context()
	stored, err := s.store.GetRefreshToken(ctx, old)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			s.clearSession(c)
			s.respondError(c, http.StatusUnauthorized, errors.New("refresh token revoked"))
			return
		}
		s.fail(c, err)
		return
	}
	if sub, err := claims.UserID(); err != nil || sub != stored.UserID {
		s.clearSession(c)
		s.respondError(c, http.StatusUnauthorized, auth.ErrInvalidToken)
		return
	}
	user, err := s.store.GetUser(ctx, stored.UserID)
	if err != nil || !user.IsActive {
		s.clearSession(c)
		s.respondError(c, http.StatusUnauthorized, errors.New("account unavailable"))
		return
	}

	access, refresh, err := s.issueTokens(user)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.RotateRefreshToken(ctx, old, user.ID, refresh.Token, refresh.ExpiresAt); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			// a concurrent refresh already consumed the old token
			s.respondError(c, http.StatusUnauthorized, errors.New("refresh token revoked"))
			return
		}
		s.fail(c, err)
		return
	}
	s.setSession(c, access, refresh)
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

// handleLogout revokes the refresh token, if any, and clears the cookies.
func (s *Server) handleLogout(c *gin.Context) {
	if token, err := c.Cookie(auth.RefreshCookie); err == nil && token != "" {
		if err := s.store.DeleteRefreshToken(c.Request.Context(), token); err != nil {
			s.logger.Warn("revoke refresh token failed", "error", err)
		}
	}
	s.clearSession(c)
	respondSuccess(c, http.StatusOK, nil)
}

// handleSession returns the signed-in user.
func (s *Server) handleSession(c *gin.Context) {
	user, err := s.store.GetUser(c.Request.Context(), currentUser(c))
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			s.respondError(c, http.StatusUnauthorized, errors.New("session user no longer exists"))
			return
		}
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

// issueTokens signs an access and refresh token pair for user.
func (s *Server) issueTokens(user models.User) (access, refresh auth.Issued, err error) {
	if access, err = s.tokens.IssueAccess(user.ID, user.Username); err != nil {
		return
	}
	refresh, err = s.tokens.IssueRefresh(user.ID, user.Username)
	return
}

func (s *Server) setSession(c *gin.Context, access, refresh auth.Issued) {
	http.SetCookie(c.Writer, auth.NewCookie(auth.AccessCookie, access.Token, s.tokens.AccessTTL(), s.opts.SecureCookies))
	http.SetCookie(c.Writer, auth.NewCookie(auth.RefreshCookie, refresh.Token, s.tokens.RefreshTTL(), s.opts.SecureCookies))
}

func (s *Server) clearSession(c *gin.Context) {
	http.SetCookie(c.Writer, auth.ExpiredCookie(auth.AccessCookie, s.opts.SecureCookies))
	http.SetCookie(c.Writer, auth.ExpiredCookie(auth.RefreshCookie, s.opts.SecureCookies))
}
