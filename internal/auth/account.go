package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/edu-platform/internal/apperr"
	"github.com/iliyamo/edu-platform/internal/model"
	"github.com/iliyamo/edu-platform/internal/repository"
	"github.com/iliyamo/edu-platform/internal/utils"
)

const maxCodeAttempts = 5

// RegisterInput is the student sign-up form.
type RegisterInput struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	ParentPhone     string `json:"parent_phone"`
	City            string `json:"city"`
	Grade           string `json:"grade"`
	Lang            string `json:"lang"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Register creates a student account and logs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = repository.NormalizeEmail(in.Email)
	if in.Name == "" || in.Phone == "" || in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("name, phone, email and password are required")
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperr.Validation("passwords do not match")
	}
	grade, ok := model.ParseGrade(in.Grade)
	if !ok {
		return nil, apperr.Validation("unknown grade %q", in.Grade)
	}
	taken, err := s.accounts.PhoneOrEmailTaken(ctx, model.KindStudent, in.Phone, in.Email, 0)
	if err != nil {
		return nil, fmt.Errorf("check identity: %w", err)
	}
	if taken {
		return nil, apperr.Conflict("phone or email already exists")
	}
	a := &model.Account{
		Kind:        model.KindStudent,
		Name:        in.Name,
		Phone:       in.Phone,
		Email:       in.Email,
		ParentPhone: strings.TrimSpace(in.ParentPhone),
		City:        strings.TrimSpace(in.City),
		Lang:        strings.TrimSpace(in.Lang),
		Grade:       grade,
	}
	if err := s.create(ctx, a, in.Password); err != nil {
		return nil, err
	}
	return s.startSession(ctx, a)
}

// StaffInput is the form used to create admin and teacher accounts.
type StaffInput struct {
	Kind     string `json:"role"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// CreateStaff creates an admin or teacher account. Email is unique within
// the kind.
func (s *Service) CreateStaff(ctx context.Context, in StaffInput) (*model.Account, error) {
	kind, ok := model.ParseKind(in.Kind)
	if !ok || kind == model.KindStudent {
		return nil, apperr.Validation("role must be admin or teacher")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = repository.NormalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("name, email and password are required")
	}
	taken, err := s.accounts.PhoneOrEmailTaken(ctx, kind, strings.TrimSpace(in.Phone), in.Email, 0)
	if err != nil {
		return nil, fmt.Errorf("check identity: %w", err)
	}
	if taken {
		return nil, apperr.Conflict("email already exists")
	}
	a := &model.Account{Kind: kind, Name: in.Name, Email: in.Email, Phone: strings.TrimSpace(in.Phone)}
	if err := s.create(ctx, a, in.Password); err != nil {
		return nil, err
	}
	return a, nil
}

// create hashes the password, assigns a unique code and inserts a.
func (s *Service) create(ctx context.Context, a *model.Account, password string) error {
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	a.PasswordHash = hash
	code, err := s.newUniqueCode(ctx)
	if err != nil {
		return err
	}
	a.UniqueCode = code
	if err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperr.Conflict("phone or email already exists")
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *Service) newUniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := utils.NewUniqueCode()
		exists, err := s.accounts.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check unique code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique code")
}

// Account loads an account by id.
func (s *Service) Account(ctx context.Context, id uint64) (*model.Account, error) {
	a, err := s.accounts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("account not found")
	}
	return a, err
}

// ProfileUpdate lists the student fields that can be edited. Nil fields are
// left untouched.
type ProfileUpdate struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	ParentPhone *string `json:"parent_phone"`
	City        *string `json:"city"`
	Lang        *string `json:"lang"`
	Grade       *string `json:"grade"`
	Password    *string `json:"password"`
}

func (u ProfileUpdate) empty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil && u.ParentPhone == nil &&
		u.City == nil && u.Lang == nil && u.Grade == nil && u.Password == nil
}

// UpdateProfile applies u to the account. A changed phone or email must not
// belong to another account of the same kind.
func (s *Service) UpdateProfile(ctx context.Context, id uint64, u ProfileUpdate) (*model.Account, error) {
	if u.empty() {
		return nil, apperr.Validation("no data provided to update")
	}
	a, err := s.Account(ctx, id)
	if err != nil {
		return nil, err
	}
	identityChanged := false
	if u.Name != nil {
		if strings.TrimSpace(*u.Name) == "" {
			return nil, apperr.Validation("name must not be empty")
		}
		a.Name = strings.TrimSpace(*u.Name)
	}
	if u.Email != nil {
		email := repository.NormalizeEmail(*u.Email)
		if email == "" {
			return nil, apperr.Validation("email must not be empty")
		}
		identityChanged = identityChanged || email != a.Email
		a.Email = email
	}
	if u.Phone != nil {
		phone := strings.TrimSpace(*u.Phone)
		if phone == "" && a.Kind == model.KindStudent {
			return nil, apperr.Validation("phone must not be empty")
		}
		identityChanged = identityChanged || phone != a.Phone
		a.Phone = phone
	}
	if u.ParentPhone != nil {
		a.ParentPhone = strings.TrimSpace(*u.ParentPhone)
	}
	if u.City != nil {
		a.City = strings.TrimSpace(*u.City)
	}
	if u.Lang != nil {
		a.Lang = strings.TrimSpace(*u.Lang)
	}
	if u.Grade != nil {
		grade, ok := model.ParseGrade(*u.Grade)
		if !ok {
			return nil, apperr.Validation("unknown grade %q", *u.Grade)
		}
		a.Grade = grade
	}
	if identityChanged {
		taken, err := s.accounts.PhoneOrEmailTaken(ctx, a.Kind, a.Phone, a.Email, a.ID)
		if err != nil {
			return nil, fmt.Errorf("check identity: %w", err)
		}
		if taken {
			return nil, apperr.Conflict("phone or email already exists")
		}
	}
	if err := s.accounts.UpdateProfile(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("phone or email already exists")
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if u.Password != nil && *u.Password != "" {
		hash, err := utils.HashPassword(*u.Password, s.cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		if err := s.accounts.UpdatePassword(ctx, a.ID, hash); err != nil {
			return nil, fmt.Errorf("update password: %w", err)
		}
		a.PasswordHash = hash
	}
	return a, nil
}
