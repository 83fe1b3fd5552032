package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/example/inkpress/internal/apperr"
	"github.com/example/inkpress/internal/auth"
	"github.com/example/inkpress/internal/models"
)

const minPasswordLen = 8

// AccountStore is the persistence surface the account service needs.
type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	Save(ctx context.Context, a *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Delete(ctx context.Context, id uint) error
}

type AccountService struct {
	store    AccountStore
	posts    PostStore
	cache    PostCache
	index    SearchIndex
	tokens   *auth.TokenManager
	denylist auth.Denylist
}

func NewAccountService(store AccountStore, posts PostStore, cache PostCache, index SearchIndex, tokens *auth.TokenManager, denylist auth.Denylist) *AccountService {
	return &AccountService{
		store:    store,
		posts:    posts,
		cache:    cache,
		index:    index,
		tokens:   tokens,
		denylist: denylist,
	}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Bio   *string `json:"bio"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Register creates an account and signs it in.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.Account, string, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "required"
	}
	email := normalizeEmail(in.Email)
	if !validEmail(email) {
		fields["email"] = "must be a valid email address"
	}
	if len(in.Password) < minPasswordLen {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		return nil, "", apperr.Validation("invalid registration", fields)
	}

	if taken, err := s.store.EmailExists(ctx, email); err != nil {
		return nil, "", err
	} else if taken {
		return nil, "", apperr.New(apperr.CodeConflict, "email already registered")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}
	account := &models.Account{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.store.Create(ctx, account); err != nil {
		return nil, "", err
	}

	token, _, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// Login verifies credentials and issues a bearer token. Unknown emails and
// wrong passwords fail identically so the response never confirms whether
// an address is registered.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*models.Account, string, error) {
	invalid := apperr.New(apperr.CodeUnauthorized, "invalid credentials")

	account, err := s.store.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, "", invalid
		}
		return nil, "", err
	}
	if !auth.CheckPassword(account.PasswordHash, in.Password) {
		return nil, "", invalid
	}

	token, _, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// Logout revokes the presented token until its natural expiry.
func (s *AccountService) Logout(ctx context.Context, sess auth.Session) error {
	return s.denylist.Revoke(ctx, sess.TokenID, sess.ExpiresAt)
}

func (s *AccountService) Profile(ctx context.Context, accountID uint) (*models.Account, error) {
	return s.store.GetByID(ctx, accountID)
}

func (s *AccountService) UpdateProfile(ctx context.Context, accountID uint, in UpdateProfileInput) (*models.Account, error) {
	account, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		fields["name"] = "cannot be empty"
	}
	var newEmail string
	if in.Email != nil {
		newEmail = normalizeEmail(*in.Email)
		if !validEmail(newEmail) {
			fields["email"] = "must be a valid email address"
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid profile", fields)
	}

	if in.Name != nil {
		account.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil && newEmail != account.Email {
		if taken, err := s.store.EmailExists(ctx, newEmail); err != nil {
			return nil, err
		} else if taken {
			return nil, apperr.New(apperr.CodeConflict, "email already registered")
		}
		account.Email = newEmail
	}
	if in.Bio != nil {
		account.Bio = *in.Bio
	}

	if err := s.store.Save(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, accountID uint, in ChangePasswordInput) error {
	account, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(account.PasswordHash, in.CurrentPassword) {
		return apperr.Validation("invalid password change", map[string]string{
			"current_password": "does not match",
		})
	}
	if len(in.NewPassword) < minPasswordLen {
		return apperr.Validation("invalid password change", map[string]string{
			"new_password": "must be at least 8 characters",
		})
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	return s.store.Save(ctx, account)
}

// DeleteAccount removes the account after a password confirmation. Posts go
// with it through the database cascade; cache entries and search documents
// are cleaned up best-effort afterwards, and the presented session is
// revoked so the token stops working immediately.
func (s *AccountService) DeleteAccount(ctx context.Context, sess auth.Session, password string) error {
	account, err := s.store.GetByID(ctx, sess.AccountID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(account.PasswordHash, password) {
		return apperr.Validation("invalid account deletion", map[string]string{
			"password": "does not match",
		})
	}

	refs, err := s.posts.RefsByOwner(ctx, account.ID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, account.ID); err != nil {
		return err
	}

	for _, ref := range refs {
		_ = s.cache.Del(ctx, postIDKey(ref.ID), postSlugKey(ref.Slug))
		_ = s.index.DeletePost(ctx, ref.ID)
	}
	_ = s.denylist.Revoke(ctx, sess.TokenID, sess.ExpiresAt)
	return nil
}
