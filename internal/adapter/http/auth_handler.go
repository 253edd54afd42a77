package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sharath05hk/Minimart/internal/usecase"
)

type AuthHandler struct {
	users *usecase.Users
}

func NewAuthHandler(users *usecase.Users) *AuthHandler {
	return &AuthHandler{users: users}
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResp struct {
	Token     string   `json:"token"`
	TokenType string   `json:"token_type"`
	ExpiresAt string   `json:"expires_at"`
	ID        int64    `json:"id"`
	Email     string   `json:"email"`
	FullName  string   `json:"fullName"`
	Roles     []string `json:"roles"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResp{
		Token:     res.Token,
		TokenType: "Bearer",
		ExpiresAt: res.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
		ID:        res.User.ID,
		Email:     res.User.Email,
		FullName:  res.User.FullName,
		Roles:     res.User.RoleNames(),
	})
}
