package chat

import (
	"log"
	"strings"

	"pingme/backend/internal/auth"
	"pingme/backend/internal/errs"
	"pingme/backend/internal/models"
	"pingme/backend/internal/storage"
)

// RegisterRequest carries the inputs for account creation.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest carries the credentials for authentication.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by both register and login.
type AuthResponse struct {
	Token       string `json:"token"`
	Type        string `json:"type"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// AccountService handles registration and login, delegating token
// mechanics to the token issuer and storage to the Store.
type AccountService struct {
	Store  storage.Store
	Tokens *auth.TokenIssuer
}

func NewAccountService(store storage.Store, tokens *auth.TokenIssuer) *AccountService {
	return &AccountService{Store: store, Tokens: tokens}
}

// Register creates a new account. Duplicate username or email is a
// conflict; the response carries a fresh access token.
func (a *AccountService) Register(req RegisterRequest) (*AuthResponse, error) {
	if err := validateRegister(&req); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, errs.Internal("failed to hash password", err)
	}
	user.PasswordHash = hash

	if err := a.Store.CreateUser(user); err != nil {
		return nil, err
	}
	log.Printf("User registered: %s", user.Username)

	return a.respond(user)
}

// Login verifies credentials and issues a token. Unknown usernames and
// wrong passwords are indistinguishable to the caller.
func (a *AccountService) Login(req LoginRequest) (*AuthResponse, error) {
	user, err := a.Store.GetUserByUsername(req.Username)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, errs.Unauthenticated("invalid username or password")
		}
		return nil, err
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		return nil, errs.Unauthenticated("invalid username or password")
	}
	log.Printf("User authenticated: %s", user.Username)

	return a.respond(user)
}

func (a *AccountService) respond(user *models.User) (*AuthResponse, error) {
	token, err := a.Tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, errs.Internal("failed to issue token", err)
	}
	return &AuthResponse{
		Token:       token,
		Type:        "Bearer",
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}, nil
}

func validateRegister(req *RegisterRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.DisplayName = strings.TrimSpace(req.DisplayName)

	switch {
	case len(req.Username) < 3:
		return errs.ValidationField("username", "username must be at least 3 characters")
	case !strings.Contains(req.Email, "@"):
		return errs.ValidationField("email", "email is not valid")
	case len(req.Password) < 6:
		return errs.ValidationField("password", "password must be at least 6 characters")
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}
	return nil
}
