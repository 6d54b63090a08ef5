package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leadvault/auction-engine/resolver"
)

// Service defines an instance of service that handles marketplace read
// requests. The lead read path doubles as a resolution trigger: a
// reader observing an overdue auction resolves it in place instead of
// waiting for the next timer sweep.
type Service struct {
	db       *gorm.DB
	resolver *resolver.Resolver
}

// New creates a new service instance.
func New(db *gorm.DB, r *resolver.Resolver) *Service {
	return &Service{
		db:       db,
		resolver: r,
	}
}

func respond(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": http.StatusOK,
		"data": data,
	})
}

func respondError(c *gin.Context, err error) {
	code, ok := ErrorCode[err]
	if !ok {
		code = ErrorCode[errSystem]
		err = errSystem
	}

	c.JSON(http.StatusOK, gin.H{
		"code": code,
		"msg":  err.Error(),
	})
}

type pingResp struct {
	Pong string `json:"pong"`
}

// Ping handles the /ping request.
func (s *Service) Ping(c *gin.Context) {
	respond(c, &pingResp{Pong: "pong"})
}
