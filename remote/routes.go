package remote

// Backend path constants, relative to the configured base URL
const (
	// User routes
	RouteLogin   = "/user/cookie-based-login-user"
	RouteProfile = "/user/cookie-based-view-user"
	RouteLogout  = "/user/cookie-based-logout-user"

	// Card routes. Balance and payment history share one endpoint.
	RouteCardDetails = "/card/cookie-based-view-card-details"

	// Cycle routes
	RouteUpdateEntry = "/cycle/cookie-based-update-entry"
	RouteExitAndPay  = "/cycle/cookie-based-pay-exit-single-user-cycle"
)
