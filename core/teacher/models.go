package teacher

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/classrecord/core"
)

// Collection holds one document per teacher account.
const Collection = "teachers"

type Teacher struct {
	ID            string    `json:"id" doc:"-"`
	EmployeeID    string    `json:"employee_id" doc:"employeeId"` // email
	FirstName     string    `json:"first_name" doc:"firstName"`
	MiddleName    string    `json:"middle_name" doc:"middleName"`
	LastName      string    `json:"last_name" doc:"lastName"`
	PositionTitle string    `json:"position_title" doc:"positionTitle"`
	ImageURL      string    `json:"image_url" doc:"imageUrl"`
	IsActive      bool      `json:"is_active" doc:"isActive"`
	PasswordHash  string    `json:"-" doc:"passwordHash"`
	CreatedAt     time.Time `json:"created_at" doc:"createdAt"` // UTC
	UpdatedAt     time.Time `json:"updated_at" doc:"updatedAt"` // UTC
	LastLogin     time.Time `json:"last_login" doc:"lastLogin"` // UTC
}

// FullName joins the non-blank name parts.
func (t Teacher) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{t.FirstName, t.MiddleName, t.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func (t *Teacher) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	t.PasswordHash = string(hash)
	return nil
}

func (t *Teacher) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(pwd))
}

func (t Teacher) data() core.Data {
	return core.Data{
		"employeeId":    t.EmployeeID,
		"firstName":     t.FirstName,
		"middleName":    t.MiddleName,
		"lastName":      t.LastName,
		"positionTitle": t.PositionTitle,
		"imageUrl":      t.ImageURL,
		"isActive":      t.IsActive,
		"passwordHash":  t.PasswordHash,
		"createdAt":     t.CreatedAt.UTC(),
		"updatedAt":     t.UpdatedAt.UTC(),
		"lastLogin":     t.LastLogin.UTC(),
	}
}

// NewTeacher contains information needed to create a new Teacher.
type NewTeacher struct {
	Email           string `json:"email" validate:"required,email"`
	FirstName       string `json:"first_name" validate:"required"`
	MiddleName      string `json:"middle_name"`
	LastName        string `json:"last_name" validate:"required"`
	PositionTitle   string `json:"position_title"`
	ImageURL        string `json:"image_url" validate:"omitempty,url"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.FirstName = core.CleanString(nt.FirstName)
	nt.MiddleName = core.CleanString(nt.MiddleName)
	nt.LastName = core.CleanString(nt.LastName)
	nt.PositionTitle = core.CleanString(nt.PositionTitle)
	nt.ImageURL = core.CleanString(nt.ImageURL)
	return validate.Struct(nt)
}

type ResetPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

// SetPassword is an administrative password change.
type SetPassword struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (sp *SetPassword) Validate(validate *validator.Validate) error {
	sp.Email = core.CleanString(sp.Email, true /* lower */)
	return validate.Struct(sp)
}

func decodeTeacher(doc core.Document) (Teacher, error) {
	var t Teacher
	if err := core.DecodeDocument(doc, &t); err != nil {
		return Teacher{}, err
	}
	t.ID = doc.ID
	return t, nil
}
