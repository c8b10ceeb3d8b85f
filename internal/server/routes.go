package server

// setupRoutes configures the runtime's command/event protocol routes:
// POST /command and GET /event. There is no separate REST resource surface
// left to register alongside them.
func (s *Server) setupRoutes() {
	r := s.router

	r.Post("/command", s.postCommand)
	r.Get("/event", s.getEvent)
}
