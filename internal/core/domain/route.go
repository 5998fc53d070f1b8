package domain

// Portal route paths.
const (
	PathRoot             = "/"
	PathLogin            = "/login"
	PathRegister         = "/register"
	PathLogout           = "/logout"
	PathDashboard        = "/dashboard"
	PathHR               = "/hr"
	PathPersonalInfo     = "/personal-info"
	PathChangeSchedule   = "/change-schedule"
	PathOfficialBusiness = "/official-business"
	PathTimeKeeping      = "/time-keeping"
	PathLeaves           = "/leaves"
)
