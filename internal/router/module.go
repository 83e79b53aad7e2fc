package router

import "github.com/gin-gonic/gin"

// Module is a feature (users, items, debug) that mounts its own routes on
// the /api group.
type Module interface {
	Register(rg *gin.RouterGroup)
}
