package domain

import (
	"errors"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

var (
	validate = validator.New()
	panRe    = regexp.MustCompile(`^[A-Za-z]{5}[0-9]{4}[A-Za-z]$`)
)

// MinimumAge is the youngest an owner may be at registration, in years.
const MinimumAge = 18

// Owner represents a registered person who may hold one or more accounts.
// Identity fields never change after registration; only the credential is
// mutable, via SetPassword.
type Owner struct {
	ID           int64
	FirstName    string
	LastName     string
	DateOfBirth  time.Time
	Mobile       string
	Email        string
	Aadhaar      string
	PAN          string
	PasswordHash string
	CreatedAt    time.Time
}

// ownerInput carries the registration fields through struct-tag validation.
type ownerInput struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Mobile    string `validate:"required,len=10,numeric"`
	Email     string `validate:"required,email"`
	Aadhaar   string `validate:"required,len=12,numeric"`
	PAN       string `validate:"required,len=10"`
}

// OwnerBuilder provides a fluent API for constructing Owner instances, so
// that only validated owners are ever created.
type OwnerBuilder struct {
	id       int64
	in       ownerInput
	dob      time.Time
	password string
}

// NewOwner creates a new OwnerBuilder.
func NewOwner() *OwnerBuilder {
	return &OwnerBuilder{}
}

// WithID sets the owner id, assigned by the ledger.
func (b *OwnerBuilder) WithID(id int64) *OwnerBuilder {
	b.id = id
	return b
}

// WithName sets the legal first and last name.
func (b *OwnerBuilder) WithName(first, last string) *OwnerBuilder {
	b.in.FirstName = first
	b.in.LastName = last
	return b
}

// WithDateOfBirth sets the date of birth.
func (b *OwnerBuilder) WithDateOfBirth(dob time.Time) *OwnerBuilder {
	b.dob = dob
	return b
}

// WithContact sets the mobile number and email address.
func (b *OwnerBuilder) WithContact(mobile, email string) *OwnerBuilder {
	b.in.Mobile = mobile
	b.in.Email = email
	return b
}

// WithIdentifiers sets the national identifiers.
func (b *OwnerBuilder) WithIdentifiers(aadhaar, pan string) *OwnerBuilder {
	b.in.Aadhaar = aadhaar
	b.in.PAN = pan
	return b
}

// WithPassword sets the plain-text credential; Build hashes it.
func (b *OwnerBuilder) WithPassword(password string) *OwnerBuilder {
	b.password = password
	return b
}

// Build validates all registration invariants and returns the Owner.
func (b *OwnerBuilder) Build() (*Owner, error) {
	if err := validate.Struct(b.in); err != nil {
		return nil, err
	}
	if !panRe.MatchString(b.in.PAN) {
		return nil, errors.New("PAN must match format ABCDE1234F")
	}
	if b.dob.IsZero() {
		return nil, errors.New("date of birth is required")
	}
	if b.dob.After(time.Now().AddDate(-MinimumAge, 0, 0)) {
		return nil, errors.New("owner must be at least 18 years old")
	}
	if b.password == "" {
		return nil, errors.New("password is required")
	}
	o := &Owner{
		ID:          b.id,
		FirstName:   b.in.FirstName,
		LastName:    b.in.LastName,
		DateOfBirth: b.dob,
		Mobile:      b.in.Mobile,
		Email:       b.in.Email,
		Aadhaar:     b.in.Aadhaar,
		PAN:         normalizePAN(b.in.PAN),
		CreatedAt:   time.Now().UTC(),
	}
	if err := o.SetPassword(b.password); err != nil {
		return nil, err
	}
	return o, nil
}

func normalizePAN(pan string) string {
	out := make([]byte, len(pan))
	for i := 0; i < len(pan); i++ {
		c := pan[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// FullName returns the owner's legal name as displayed on statements.
func (o *Owner) FullName() string {
	return o.FirstName + " " + o.LastName
}

// SetPassword replaces the credential with a bcrypt hash of password.
func (o *Owner) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	o.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored credential.
func (o *Owner) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(o.PasswordHash), []byte(password)) == nil
}
