package user

import (
	"log"
	"net/http"

	"fertilizer_back_end/internal/handlers"
	"fertilizer_back_end/internal/shop"
	"fertilizer_back_end/internal/utils"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	accounts *shop.Accounts
	audit    utils.Auditor
}

func NewAuthHandler(accounts *shop.Accounts, audit utils.Auditor) *AuthHandler {
	return &AuthHandler{accounts: accounts, audit: audit}
}

// 🟢 POST /api/users/register
func (h *AuthHandler) Register(c *gin.Context) {
	var input shop.Registration
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.Fail(c, http.StatusBadRequest, "Please provide all required fields")
		return
	}

	ctx, cancel := handlers.Context(c)
	defer cancel()

	res, err := h.accounts.Register(ctx, input)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.Set("user_id", res.User.ID.Hex())
	utils.LogAction(h.audit, c, utils.ActionUserRegister, utils.ResourceUser, res.User.ID.Hex())

	c.JSON(http.StatusCreated, gin.H{
		"token":    res.Token,
		"userId":   res.User.ID.Hex(),
		"username": res.User.Username,
		"email":    res.User.Email,
	})
}

// 🟢 POST /api/users/login
func (h *AuthHandler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.Fail(c, http.StatusBadRequest, "Invalid credentials")
		return
	}

	ctx, cancel := handlers.Context(c)
	defer cancel()

	res, err := h.accounts.Login(ctx, input.Email, input.Password)
	if err != nil {
		utils.LogFailedAction(h.audit, c, utils.ActionLoginFailed, utils.ResourceAuth, input.Email, err.Error())
		handlers.RespondError(c, err)
		return
	}
	c.Set("user_id", res.User.ID.Hex())
	utils.LogAction(h.audit, c, utils.ActionLoginSuccess, utils.ResourceAuth, res.User.ID.Hex())
	log.Printf("✅ Connexion de %s", res.User.Email)

	c.JSON(http.StatusOK, gin.H{
		"token":    res.Token,
		"userId":   res.User.ID.Hex(),
		"username": res.User.Username,
	})
}

// 🔒 GET /api/users/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	profile, err := h.accounts.Profile(ctx, userID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// 🔒 PUT /api/users/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	var input shop.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.Fail(c, http.StatusBadRequest, "Invalid profile data")
		return
	}

	ctx, cancel := handlers.Context(c)
	defer cancel()

	user, err := h.accounts.UpdateProfile(ctx, userID, input)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	utils.LogAction(h.audit, c, utils.ActionProfileUpdate, utils.ResourceUser, userID.Hex())
	c.JSON(http.StatusOK, user)
}

// 🔒 PUT /api/users/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	var input struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.Fail(c, http.StatusBadRequest, "Please provide the current and new password")
		return
	}

	ctx, cancel := handlers.Context(c)
	defer cancel()

	if err := h.accounts.ChangePassword(ctx, userID, input.OldPassword, input.NewPassword); err != nil {
		utils.LogFailedAction(h.audit, c, utils.ActionPasswordChange, utils.ResourceUser, userID.Hex(), err.Error())
		handlers.RespondError(c, err)
		return
	}
	utils.LogAction(h.audit, c, utils.ActionPasswordChange, utils.ResourceUser, userID.Hex())
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated"})
}
