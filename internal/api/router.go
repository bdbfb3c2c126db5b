// Package api wires the HTTP surface: routes, middleware and the WebSocket
// live feed.
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/faceattend/internal/api/handlers"
	"github.com/your-org/faceattend/internal/api/ws"
)

// Deps collects the constructed handlers for route registration.
type Deps struct {
	Register   *handlers.RegisterHandler
	Attendance *handlers.AttendanceHandler
	Users      *handlers.UsersHandler
	System     *handlers.SystemHandler
	Hub        *ws.Hub
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/readyz", d.System.Readyz)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", d.System.Health)

		apiGroup.POST("/register/check-nim", d.Register.CheckNIM)
		apiGroup.POST("/register", d.Register.Register)

		apiGroup.POST("/attendance/check", d.Attendance.Check)
		apiGroup.GET("/attendance", d.Attendance.List)
		apiGroup.GET("/attendance/:id/snapshot", d.Attendance.Snapshot)

		apiGroup.GET("/users", d.Users.List)
		apiGroup.DELETE("/users/:id", d.Users.Delete)

		apiGroup.GET("/ws", func(c *gin.Context) {
			d.Hub.HandleWS(c.Writer, c.Request)
		})
	}

	return r
}
