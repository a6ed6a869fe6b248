package auth

// Route paths consumed by the guard. Dashboards live at
// "/{role}/dashboard" via Role.DashboardPath.
const (
	LoginPath       = "/login"
	SignupPath      = "/signup"
	VerifyEmailPath = "/verify-email"
)

// GuardAction enumerates route guard outcomes.
type GuardAction string

const (
	// GuardActionLoading renders a loading placeholder; no redirect.
	GuardActionLoading GuardAction = "loading"
	// GuardActionRender renders the protected content.
	GuardActionRender GuardAction = "render"
	// GuardActionRedirect sends the user to Decision.Target.
	GuardActionRedirect GuardAction = "redirect"
)

// RouteRequest describes a navigation being evaluated.
type RouteRequest struct {
	// Location is the originally requested location, remembered across a
	// login redirect so the user can be returned there.
	Location string
	// RequiredRole gates the route to one role; empty accepts any
	// authenticated role.
	RequiredRole Role
}

// Decision is the guard outcome for a single navigation.
type Decision struct {
	Action GuardAction
	// Target is the redirect destination when Action is GuardActionRedirect.
	Target string
	// Remember carries the location to restore after login; set only on
	// login redirects.
	Remember string
}

// EvaluateRoute decides whether protected content may render for the
// given snapshot. The check order is load-bearing: role mismatch is
// evaluated before verification status, so an unverified user on the
// wrong dashboard is sent to their own dashboard path and only re-checked
// for verification once there.
func EvaluateRoute(snap Snapshot, req RouteRequest) Decision {
	if snap.Loading {
		return Decision{Action: GuardActionLoading}
	}

	if snap.Session == nil {
		return Decision{
			Action:   GuardActionRedirect,
			Target:   LoginPath,
			Remember: req.Location,
		}
	}

	if req.RequiredRole != "" && snap.Session.Profile.Role != req.RequiredRole {
		switch role := snap.Session.Profile.Role; role {
		case RoleAdmin, RoleAlumni, RoleStudent:
			return Decision{
				Action: GuardActionRedirect,
				Target: role.DashboardPath(),
			}
		default:
			// a session with an unknown role never renders protected content
			return Decision{
				Action:   GuardActionRedirect,
				Target:   LoginPath,
				Remember: req.Location,
			}
		}
	}

	if !snap.Session.Identity.EmailVerified {
		return Decision{
			Action: GuardActionRedirect,
			Target: VerifyEmailPath,
		}
	}

	return Decision{Action: GuardActionRender}
}
