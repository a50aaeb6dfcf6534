package server

const (
	RouteLogin          = "/login"
	RouteRegister       = "/register"
	RouteRefresh        = "/refresh"
	RouteLogout         = "/logout"
	RouteProfile        = "/profile"
	RouteChangePassword = "/change-password"
	RoutePasswordReset  = "/password-reset"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("POST "+RouteLogin, s.LoginHandler())
	s.RegisterRouteFunc("POST "+RouteRegister, s.RegisterHandler())
	s.RegisterRouteFunc("POST "+RouteRefresh, s.RefreshHandler())
	s.RegisterRouteFunc("POST "+RoutePasswordReset, s.PasswordResetHandler())

	s.RegisterRouteFunc("POST "+RouteLogout, s.RequireAuth(s.LogoutHandler()))
	s.RegisterRouteFunc("GET "+RouteProfile, s.RequireAuth(s.ProfileHandler()))
	s.RegisterRouteFunc("PUT "+RouteProfile, s.RequireAuth(s.UpdateProfileHandler()))
	s.RegisterRouteFunc("PUT "+RouteChangePassword, s.RequireAuth(s.ChangePasswordHandler()))
}
