package auth

// Well-known redirect targets used by admission decisions. The paths
// mirror the navigation layer's route table.
const (
	LoginPath        = "/login"
	SelectRolePath   = "/select-role"
	AccessDeniedPath = "/acceso-denegado"
)

// Rule is a static per-route declaration of an optional required role.
// An empty RequiredRole means any authenticated principal may enter.
type Rule struct {
	Path         string
	RequiredRole Role
}

// Decision is the outcome of evaluating a Rule against an identity.
// When Allow is false, RedirectTo names the route the navigation layer
// should send the user to instead.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Decide gates a navigation attempt. It is a pure function of
// (identity, rule): same inputs always yield the same decision.
//
// A nil identity denies to the login route. A DEFAULT principal may only
// enter routes that require DEFAULT (the role-selection flow) or no role
// at all; any other requirement redirects to role selection. A principal
// with a chosen role that mismatches the requirement is denied outright.
func Decide(identity *Identity, rule Rule) Decision {
	if identity == nil {
		return Decision{RedirectTo: LoginPath}
	}
	if rule.RequiredRole == "" {
		return Decision{Allow: true}
	}
	if identity.Role == rule.RequiredRole {
		return Decision{Allow: true}
	}
	if identity.Role == RoleDefault {
		return Decision{RedirectTo: SelectRolePath}
	}
	return Decision{RedirectTo: AccessDeniedPath}
}
