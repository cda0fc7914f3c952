package models

import (
	"fmt"
	"time"
)

// Role is the immutable account type chosen at sign-up.
type Role string

const (
	RoleDeveloper Role = "DEVELOPER"
	RoleCompany   Role = "COMPANY"
)

// ParseRole accepts the stored role names.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleDeveloper, RoleCompany:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Account carries the fields shared by every profile variant.
type Account struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Base returns the shared account fields.
func (a *Account) Base() *Account { return a }

// Profile is a user's role-specific record. It is implemented only by
// *Developer and *Company.
type Profile interface {
	Base() *Account
	Role() Role
	DisplayName() string
	// SetDisplayName updates the role-appropriate name field.
	SetDisplayName(name string)
}

type Developer struct {
	Account
	Name string `json:"name"`
}

func (*Developer) Role() Role { return RoleDeveloper }
func (d *Developer) DisplayName() string { return d.Name }
func (d *Developer) SetDisplayName(name string) { d.Name = name }

type Company struct {
	Account
	CompanyName string `json:"companyName"`
}

func (*Company) Role() Role { return RoleCompany }
func (c *Company) DisplayName() string { return c.CompanyName }
func (c *Company) SetDisplayName(name string) { c.CompanyName = name }

// NewProfile builds the variant for role with the role-appropriate name set.
func NewProfile(role Role, uid, email, name string) (Profile, error) {
	account := Account{UID: uid, Email: email}
	switch role {
	case RoleDeveloper:
		return &Developer{Account: account, Name: name}, nil
	case RoleCompany:
		return &Company{Account: account, CompanyName: name}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
}

// UserDoc is the stored shape of a profile in the users collection.
type UserDoc struct {
	UID         string    `firestore:"uid"`
	Email       string    `firestore:"email"`
	Role        string    `firestore:"role"`
	Name        string    `firestore:"name,omitempty"`
	CompanyName string    `firestore:"companyName,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt,serverTimestamp"`
	UpdatedAt   time.Time `firestore:"updatedAt,omitempty"`
}

// Profile decodes the document into its variant. Unknown roles are an error.
func (d *UserDoc) Profile() (Profile, error) {
	role, err := ParseRole(d.Role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", d.UID, err)
	}
	account := Account{UID: d.UID, Email: d.Email, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
	if role == RoleCompany {
		return &Company{Account: account, CompanyName: d.CompanyName}, nil
	}
	return &Developer{Account: account, Name: d.Name}, nil
}

// NewUserDoc encodes a profile for storage.
func NewUserDoc(p Profile) *UserDoc {
	base := p.Base()
	doc := &UserDoc{
		UID:       base.UID,
		Email:     base.Email,
		Role:      string(p.Role()),
		CreatedAt: base.CreatedAt,
		UpdatedAt: base.UpdatedAt,
	}
	switch v := p.(type) {
	case *Developer:
		doc.Name = v.Name
	case *Company:
		doc.CompanyName = v.CompanyName
	}
	return doc
}

// NameField is the document field holding the role-appropriate name.
func NameField(role Role) string {
	if role == RoleCompany {
		return "companyName"
	}
	return "name"
}

// ProfileView is the JSON form of a profile, flattened with its role.
type ProfileView struct {
	UID         string     `json:"uid"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	Name        string     `json:"name,omitempty"`
	CompanyName string     `json:"companyName,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func NewProfileView(p Profile) *ProfileView {
	if p == nil {
		return nil
	}
	base := p.Base()
	view := &ProfileView{
		UID:       base.UID,
		Email:     base.Email,
		Role:      p.Role(),
		CreatedAt: base.CreatedAt,
	}
	if !base.UpdatedAt.IsZero() {
		updated := base.UpdatedAt
		view.UpdatedAt = &updated
	}
	switch v := p.(type) {
	case *Developer:
		view.Name = v.Name
	case *Company:
		view.CompanyName = v.CompanyName
	}
	return view
}
