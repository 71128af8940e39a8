package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/class-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	classesHandler := handlers.NewClassesHandler(s.service)
	studentsHandler := handlers.NewStudentsHandler(s.service)
	attendanceHandler := handlers.NewAttendanceHandler(s.service)
	configHandler := handlers.NewConfigHandler(s.config)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/config", configHandler.Get)

		// Classes
		r.Get("/classes", classesHandler.List)
		r.Post("/classes", classesHandler.Create)
		r.Get("/classes/{id}", classesHandler.Get)
		r.Put("/classes/{id}", classesHandler.Update)
		r.Delete("/classes/{id}", classesHandler.Delete)

		// Students
		r.Get("/classes/{id}/students", studentsHandler.List)
		r.Post("/classes/{id}/students", studentsHandler.Enroll)
		r.Get("/students/{id}", studentsHandler.Get)
		r.Put("/students/{id}", studentsHandler.Update)
		r.Delete("/students/{id}", studentsHandler.Delete)

		// Attendance
		r.Get("/classes/{id}/attendance/history", attendanceHandler.History)
		r.Put("/attendance/{id}", attendanceHandler.Update)
		r.Delete("/attendance/{id}", attendanceHandler.Delete)
		r.Get("/classes/{id}/roster/conflicts", attendanceHandler.Conflicts)

		// Frame processing calls the encoder, limited per client
		r.Group(func(r chi.Router) {
			r.Use(s.markLimiter.Limit)
			r.Post("/classes/{id}/attendance/mark", attendanceHandler.Mark)
			r.Post("/classes/{id}/attendance/explain", attendanceHandler.Explain)
			r.Post("/photos/quality", studentsHandler.CheckPhoto)
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})
}
