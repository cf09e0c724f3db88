package teacher

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core"
)

var (
	// errors
	ErrNotFound             = errors.New("teacher not found")
	ErrEmailExists          = errors.New("a teacher with this email already exists")
	ErrAuthenticationFailed = errors.New("invalid email or password")
	ErrAccountDeactivated   = errors.New("this account is deactivated")
	errInvalidResetPassword = errors.New("invalid or expired password reset link")
)

type Service struct {
	repo    Repository
	mailSvc core.EmailService
	logger  core.Logger
	tokens  tokenGenerator
	appName string
}

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		logger:  logger,
		tokens:  tokenGenerator{secret: []byte(conf.SecretKey), timeout: conf.PasswordResetTimeoutDelta},
		appName: conf.AppName,
	}
}

// Create adds a teacher account. nt is expected to be validated.
func (svc *Service) Create(ctx context.Context, nt NewTeacher) (Teacher, error) {
	email := core.CleanString(nt.Email, true /* lower */)
	if _, err := svc.repo.GetTeacherByEmail(ctx, email); err == nil {
		return Teacher{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Teacher{}, err
	}

	now := time.Now().UTC()
	t := Teacher{
		EmployeeID:    email,
		FirstName:     nt.FirstName,
		MiddleName:    nt.MiddleName,
		LastName:      nt.LastName,
		PositionTitle: nt.PositionTitle,
		ImageURL:      nt.ImageURL,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := t.SetPassword(nt.Password); err != nil {
		return Teacher{}, err
	}
	return svc.repo.CreateTeacher(ctx, t)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Teacher, error) {
	return svc.repo.GetTeacherByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Authenticate checks the teacher's credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Teacher, error) {
	t, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Teacher{}, ErrAuthenticationFailed
		}
		return Teacher{}, err
	}
	if err = t.CheckPassword(pwd); err != nil {
		return Teacher{}, ErrAuthenticationFailed
	}
	if !t.IsActive {
		return Teacher{}, ErrAccountDeactivated
	}

	t.LastLogin = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, t)
}

// SetPassword overwrites a teacher's password. sp is expected to be validated.
func (svc *Service) SetPassword(ctx context.Context, sp SetPassword) (Teacher, error) {
	t, err := svc.GetByEmail(ctx, sp.Email)
	if err != nil {
		return Teacher{}, err
	}
	if err = t.SetPassword(sp.Password); err != nil {
		return Teacher{}, err
	}
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, t)
}

// RequestPasswordReset mails a password reset link to the teacher.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	t, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !t.IsActive {
		return ErrAccountDeactivated
	}
	svc.sendPasswordResetMail(t)
	return nil
}

func (svc *Service) sendPasswordResetMail(t Teacher) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: t.FullName(), Address: t.EmployeeID}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":    t.FullName(),
			"UID":     EncodeUID(t),
			"Token":   svc.tokens.makeToken(t),
			"AppName": svc.appName,
		},
	}
	svc.mailSvc.SendMessages(msg)
}

// ResetPassword sets a new password once the reset token is verified. rp is expected to be validated.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) (Teacher, error) {
	invalid := core.NewValidationError(errInvalidResetPassword, core.FieldError{Field: "token", Error: errInvalidResetPassword.Error()})

	id, err := decodeUID(rp.UID)
	if err != nil {
		return Teacher{}, invalid
	}
	t, err := svc.repo.GetTeacherByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Teacher{}, invalid
		}
		return Teacher{}, err
	}
	if err = svc.tokens.verifyToken(t, rp.Token); err != nil {
		svc.logger.Info(fmt.Sprintf("password reset rejected for %s: %v", t.EmployeeID, err))
		return Teacher{}, invalid
	}

	if err = t.SetPassword(rp.Password); err != nil {
		return Teacher{}, err
	}
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, t)
}
