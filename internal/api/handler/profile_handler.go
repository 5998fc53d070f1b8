package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sdca/hris-portal/internal/core/ports"
	"github.com/sdca/hris-portal/internal/core/service"
)

type ProfileHandler struct {
	sessions ports.SessionService
}

func NewProfileHandler(sessions ports.SessionService) *ProfileHandler {
	return &ProfileHandler{sessions: sessions}
}

// personalInfoForm mirrors ports.ProfileUpdatePayload with the form's
// required fields.
type personalInfoForm struct {
	FirstName   string               `json:"firstName"   form:"firstName"   validate:"required"`
	MiddleName  string               `json:"middleName"  form:"middleName"`
	LastName    string               `json:"lastName"    form:"lastName"    validate:"required"`
	Suffix      string               `json:"suffix"      form:"suffix"`
	BirthDate   string               `json:"birthDate"   form:"birthDate"`
	Gender      string               `json:"gender"      form:"gender"`
	CivilStatus string               `json:"civilStatus" form:"civilStatus"`
	Phone       string               `json:"phone"       form:"phone"`
	Address     string               `json:"address"     form:"address"`
	Department  string               `json:"department"  form:"department"`
	Position    string               `json:"position"    form:"position"`
	Family      *ports.FamilyInfo    `json:"familyData,omitempty"`
	Education   *ports.EducationInfo `json:"educationData,omitempty"`
}

func (f personalInfoForm) payload() ports.ProfileUpdatePayload {
	return ports.ProfileUpdatePayload{
		FirstName:   f.FirstName,
		MiddleName:  f.MiddleName,
		LastName:    f.LastName,
		Suffix:      f.Suffix,
		BirthDate:   f.BirthDate,
		Gender:      f.Gender,
		CivilStatus: f.CivilStatus,
		Phone:       f.Phone,
		Address:     f.Address,
		Department:  f.Department,
		Position:    f.Position,
		Family:      f.Family,
		Education:   f.Education,
	}
}

// profileError echoes the submission so the form can be re-shown filled in.
type profileError struct {
	Error   string           `json:"error"`
	Profile personalInfoForm `json:"profile"`
}

// Page describes the personal-information form.
func (h *ProfileHandler) Page(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, screen{Screen: "personal-info", User: u, IsHR: u.IsHR()})
}

// Submit sends the update. On success the user goes to their role's home
// screen.
func (h *ProfileHandler) Submit(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return err
	}

	var form personalInfoForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&form); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, profileError{Error: err.Error(), Profile: form})
	}

	if !h.sessions.UpdateProfile(c.Request().Context(), form.payload()) {
		return c.JSON(http.StatusBadGateway, profileError{Error: "failed to update profile information", Profile: form})
	}

	st := h.sessions.Snapshot()
	if st.User == nil {
		return c.Redirect(http.StatusSeeOther, service.LoginLocation(""))
	}
	return c.Redirect(http.StatusSeeOther, service.HomePath(st.User))
}
