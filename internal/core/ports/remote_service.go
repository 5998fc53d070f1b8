package ports

import (
	"context"

	"github.com/sdca/hris-portal/internal/core/domain"
)

// LoginRequest carries the credentials sent to the Remote Service.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the registration payload. Department and Position are
// usually empty at this point and filled in by the profile form.
type RegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

// AuthResult is a successful login or registration.
type AuthResult struct {
	Token string
	User  domain.User
}

// Honor is an award listed in the education section of the profile.
type Honor struct {
	Nature       string `json:"nature"`
	AwardingBody string `json:"awardingBody"`
	Date         string `json:"date"`
}

// License is a professional licensure entry.
type License struct {
	Exam       string `json:"exam"`
	Rating     string `json:"rating,omitempty"`
	DateTaken  string `json:"dateTaken,omitempty"`
	LicenseNo  string `json:"licenseNo"`
	Issued     string `json:"issued,omitempty"`
	Expiration string `json:"expiration,omitempty"`
}

// FamilyInfo is the family section of the personal-information form.
type FamilyInfo struct {
	SpouseName string   `json:"spouseName,omitempty"`
	FatherName string   `json:"fatherName,omitempty"`
	MotherName string   `json:"motherName,omitempty"`
	Children   []string `json:"children,omitempty"`
}

// EducationInfo is the education section of the personal-information form.
type EducationInfo struct {
	Degree        string    `json:"degree,omitempty"`
	School        string    `json:"school,omitempty"`
	YearGraduated string    `json:"yearGraduated,omitempty"`
	Honors        []Honor   `json:"honors,omitempty"`
	Licensure     []License `json:"licensure,omitempty"`
}

// ProfileUpdatePayload is a partial profile update. Empty fields are left
// untouched on the local user record.
type ProfileUpdatePayload struct {
	FirstName   string         `json:"firstName,omitempty"`
	MiddleName  string         `json:"middleName,omitempty"`
	LastName    string         `json:"lastName,omitempty"`
	Suffix      string         `json:"suffix,omitempty"`
	BirthDate   string         `json:"birthDate,omitempty"`
	Gender      string         `json:"gender,omitempty"`
	CivilStatus string         `json:"civilStatus,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Address     string         `json:"address,omitempty"`
	Department  string         `json:"department,omitempty"`
	Position    string         `json:"position,omitempty"`
	Family      *FamilyInfo    `json:"familyData,omitempty"`
	Education   *EducationInfo `json:"educationData,omitempty"`
}

// PersonalInfo is the personal section of a stored employee profile.
type PersonalInfo struct {
	MiddleName  string `json:"middleName,omitempty"`
	Suffix      string `json:"suffix,omitempty"`
	BirthDate   string `json:"birthDate,omitempty"`
	Gender      string `json:"gender,omitempty"`
	CivilStatus string `json:"civilStatus,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
}

// EmployeeProfile is the employee record served by the Remote Service.
type EmployeeProfile struct {
	ID               string         `json:"id"`
	EmployeeID       string         `json:"employeeId,omitempty"`
	Email            string         `json:"email"`
	FirstName        string         `json:"firstName,omitempty"`
	LastName         string         `json:"lastName,omitempty"`
	Department       string         `json:"department,omitempty"`
	Position         string         `json:"position,omitempty"`
	Role             string         `json:"role,omitempty"`
	ProfileCompleted bool           `json:"profileCompleted"`
	PersonalInfo     *PersonalInfo  `json:"personalInfo,omitempty"`
	FamilyInfo       *FamilyInfo    `json:"familyInfo,omitempty"`
	EducationInfo    *EducationInfo `json:"educationInfo,omitempty"`
}

// RemoteService is the subset of the HRIS REST API the session lifecycle
// depends on.
type RemoteService interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	// ValidateSession returns (false, nil) only when the service explicitly
	// rejects the session; any error means the answer is unknown.
	ValidateSession(ctx context.Context, userID, token string) (bool, error)
	GetProfile(ctx context.Context, userID, token string) (*EmployeeProfile, error)
	UpdateProfile(ctx context.Context, userID, token string, payload ProfileUpdatePayload) error
	Logout(ctx context.Context, userID, token string) error
}

// LogoutNotifier delivers best-effort logout notifications without blocking
// the caller.
type LogoutNotifier interface {
	NotifyLogout(sess domain.Session)
}
