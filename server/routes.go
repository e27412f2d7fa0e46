package server

func (s *Server) initRoutes() {
	api := s.APIMiddleware()

	// Preflight for every route
	s.RegisterRouteFunc("OPTIONS /", ChainMiddleware(s.PreflightHandler(), api...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// AUTH
	s.RegisterRouteFunc("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), api...))
	s.RegisterRouteFunc("POST "+RouteSignup, ChainMiddleware(s.SignupHandler(), api...))
	s.RegisterRouteFunc("POST "+RouteTokenRefresh, ChainMiddleware(s.TokenRefreshHandler(), api...))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), api...))

	// Bearer protected
	s.RegisterRouteFunc("GET "+RouteCurrentUser, ChainMiddleware(s.CurrentUserHandler(), append(api, s.RequireAuth())...))
}
