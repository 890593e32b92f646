package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrEmailExists    = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsername(ctx context.Context, username string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, username string) (User, error)
		Create(ctx context.Context, usr User) (User, error)
		Update(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...string) error
	}

	Service interface {
		Create(ctx context.Context, nu NewUser) (User, error)
		Register(ctx context.Context, ru RegisterUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsername(ctx context.Context, username string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, username string) (User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		Delete(ctx context.Context, ids ...string) error
		SetLastLogin(ctx context.Context, usr User) (User, error)
		CheckUniqueness(ctx context.Context, username, email string, excluded ...User) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	service struct {
		conf     *core.Config
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService, validate *validator.Validate) Service {
	initTokenGenerator(conf)
	return &service{
		conf:     conf,
		repo:     repo,
		mailSvc:  mailSvc,
		validate: validate,
	}
}

func (s *service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(ctx, s.validate, s); err != nil {
		return User{}, err
	}

	role := nu.Role
	if role == "" {
		role = RoleStudent
	}
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return s.repo.Create(ctx, usr)
}

// Register creates a self-service account. The role is always student;
// teacher and admin accounts are provisioned separately.
func (s *service) Register(ctx context.Context, ru RegisterUser) (User, error) {
	if err := ru.Validate(ctx, s.validate, s); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Name:      ru.Name,
		Username:  ru.Username,
		Email:     ru.Email,
		Role:      RoleStudent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(ru.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return s.repo.Create(ctx, usr)
}

func (s *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	if filter != nil {
		filter.Clean()
	}
	return s.repo.Query(ctx, filter, ordering...)
}

func (s *service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.GetByUsername(ctx, core.CleanString(username, true))
}

func (s *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, core.CleanString(email, true))
}

func (s *service) GetByUsernameOrEmail(ctx context.Context, username string) (User, error) {
	return s.repo.GetByUsernameOrEmail(ctx, core.CleanString(username, true))
}

func (s *service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = uu.Validate(ctx, s.validate, s, usr); err != nil {
		return User{}, err
	}

	if uu.Name != "" {
		usr.Name = uu.Name
	}
	if uu.Username != "" {
		usr.Username = uu.Username
	}
	if uu.Email != "" {
		usr.Email = uu.Email
	}
	if uu.Role != "" {
		usr.Role = uu.Role
	}
	if uu.IsActive != nil {
		usr.IsActive = uu.IsActive
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, usr)
}

func (s *service) Delete(ctx context.Context, ids ...string) error {
	return s.repo.Delete(ctx, ids...)
}

func (s *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return s.repo.Update(ctx, usr)
}

// CheckUniqueness ensures no other user holds the given username or email.
// Users in `excluded` are skipped, so updates don't collide with themselves.
func (s *service) CheckUniqueness(ctx context.Context, username, email string, excluded ...User) error {
	isExcluded := func(usr User) bool {
		for _, ex := range excluded {
			if usr.ID == ex.ID {
				return true
			}
		}
		return false
	}

	if username != "" {
		if usr, err := s.repo.GetByUsername(ctx, username); err == nil && !isExcluded(usr) {
			return ErrUsernameExists
		}
	}
	if email != "" {
		if usr, err := s.repo.GetByEmail(ctx, email); err == nil && !isExcluded(usr) {
			return ErrEmailExists
		}
	}
	return nil
}

func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := s.repo.GetByEmail(ctx, core.CleanString(email, true))
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/password-reset?uid=%s&token=%s", s.conf.FrontendBaseURL, EncodeUID(usr), MakeToken(usr))
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("Password reset on %s", s.conf.AppName),
		TemplateName: "password-reset",
		TemplateData: struct {
			User User
			URL  string
		}{usr, url},
	}
	if err = msg.Render(s.conf); err != nil {
		return err
	}
	s.mailSvc.SendMessages(msg)
	return nil
}

func (s *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	if err := s.validate.Struct(rp); err != nil {
		return err
	}
	id, err := DecodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(err)
	}
	usr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = rp.Validate(s.validate, usr); err != nil {
		return err
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = s.repo.Update(ctx, usr)
	return err
}
