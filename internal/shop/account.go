package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"fertilizer_back_end/internal/models"
	"fertilizer_back_end/internal/repository"
	"fertilizer_back_end/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Registration est le corps de POST /api/users/register. address peut être
// une chaîne (rangée dans street) ou un objet.
type Registration struct {
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Phone    string          `json:"phone"`
	Address  json.RawMessage `json:"address"`
}

type AuthResult struct {
	Token string
	User  *models.User
}

// Profile est l'utilisateur accompagné de ses commandes.
type Profile struct {
	*models.User
	Orders []models.Order `json:"orders"`
}

type Accounts struct {
	users  UserStore
	orders *Orders
	tokens TokenIssuer
}

func NewAccounts(users UserStore, orders *Orders, tokens TokenIssuer) *Accounts {
	return &Accounts{users: users, orders: orders, tokens: tokens}
}

func (a *Accounts) Register(ctx context.Context, in Registration) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, validationError("Please provide all required fields")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, validationError(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	address, err := ParseAddress(in.Address)
	if err != nil {
		return nil, err
	}

	switch _, err := a.users.FindByEmail(ctx, email); {
	case err == nil:
		return nil, conflictError("User already exists")
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Phone:    strings.TrimSpace(in.Phone),
		Address:  address,
		Cart:     []models.CartItem{},
		Wishlist: []primitive.ObjectID{},
	}
	if err := a.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictError("User already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	log.Printf("✅ Utilisateur créé: %s", user.Email)

	return a.issue(user)
}

// Login répond "Invalid credentials" sans distinguer email inconnu et
// mauvais mot de passe.
func (a *Accounts) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, validationError("Invalid credentials")
	}

	user, err := a.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, validationError("Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := utils.VerifyPassword(password, user.Password)
	if err != nil {
		log.Printf("⚠️ Vérification du mot de passe de %s: %v", email, err)
	}
	if !ok {
		return nil, validationError("Invalid credentials")
	}
	a.upgradeHash(ctx, user, password)
	return a.issue(user)
}

// upgradeHash remplace un ancien hash bcrypt par un hash Argon2id après une
// connexion réussie. Un échec n'empêche pas la connexion.
func (a *Accounts) upgradeHash(ctx context.Context, user *models.User, password string) {
	if utils.IsArgon2Hash(user.Password) {
		return
	}
	hash, err := utils.HashPassword(password)
	if err == nil {
		err = a.users.SetPassword(ctx, user.ID, hash)
	}
	if err != nil {
		log.Printf("⚠️ Migration du hash de %s: %v", user.Email, err)
		return
	}
	log.Printf("🔑 Hash de %s migré vers Argon2id", user.Email)
}

func (a *Accounts) Profile(ctx context.Context, userID primitive.ObjectID) (*Profile, error) {
	user, err := a.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	orders, err := a.orders.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Orders: orders}, nil
}

// ProfileInput est le corps de PUT /api/users/profile. Les champs vides
// sont ignorés.
type ProfileInput struct {
	Username string          `json:"username"`
	Phone    string          `json:"phone"`
	Avatar   string          `json:"avatar"`
	Address  json.RawMessage `json:"address"`
}

func (a *Accounts) UpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileInput) (*models.User, error) {
	address, err := ParseAddress(in.Address)
	if err != nil {
		return nil, err
	}
	user, err := a.users.UpdateProfile(ctx, userID, models.ProfileUpdate{
		Username: strings.TrimSpace(in.Username),
		Phone:    strings.TrimSpace(in.Phone),
		Avatar:   strings.TrimSpace(in.Avatar),
		Address:  address,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// ChangePassword exige l'ancien mot de passe. Un mauvais ancien mot de
// passe donne 401.
func (a *Accounts) ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return validationError("Please provide the current and new password")
	}
	if len(newPassword) < MinPasswordLength {
		return validationError(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}

	user, err := a.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundError("User not found")
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	// FindByID ne renvoie pas le hash
	withHash, err := a.users.FindByEmail(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("find credentials: %w", err)
	}
	ok, err := utils.VerifyPassword(oldPassword, withHash.Password)
	if err != nil {
		log.Printf("⚠️ Vérification du mot de passe de %s: %v", user.Email, err)
	}
	if !ok {
		return unauthorizedError("Current password is incorrect")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := a.users.SetPassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	log.Printf("🔑 Mot de passe modifié pour %s", user.Email)
	return nil
}

// ParseAddress accepte une adresse objet ou une simple chaîne.
// Une valeur absente, null ou vide donne nil.
func ParseAddress(raw json.RawMessage) (*models.Address, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == `""` {
		return nil, nil
	}
	var street string
	if err := json.Unmarshal(raw, &street); err == nil {
		return &models.Address{Street: strings.TrimSpace(street)}, nil
	}
	var address models.Address
	if err := json.Unmarshal(raw, &address); err != nil {
		return nil, validationError("Invalid address")
	}
	return &address, nil
}

func (a *Accounts) issue(user *models.User) (*AuthResult, error) {
	token, err := a.tokens.GenerateToken(user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
