package server

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/leadvault/auction-engine/api/service"
)

// Server defines an instance of a server that handles the requests of
// the marketplace read surface.
type Server struct {
	port   int
	engine *gin.Engine
}

// New returns a new instance of the server.
func New(port int, service *service.Service) *Server {
	server := &Server{
		port:   port,
		engine: gin.Default(),
	}

	server.registerRouter(service)
	return server
}

func (s *Server) registerRouter(service *service.Service) {
	g := s.engine.Group("market/v1")

	g.GET("ping", service.Ping)
	g.GET("lead/:id", service.Lead)
	g.GET("stats", service.Stats)
	g.POST("sweep", service.Sweep)
}

// Run the server
func (s *Server) Run() {
	if err := s.engine.Run(fmt.Sprintf(":%d", s.port)); err != nil {
		log.WithField("error", err).Error("run the server failed")
		os.Exit(1)
	}
}
