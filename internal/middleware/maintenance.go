package middleware

import (
	"CasinoApi/pkg/cache"

	"github.com/gin-gonic/gin"
)

// MaintenanceMiddleware rejects writes while the maintenance flag is set.
// Reads stay available so players can still see balances and history.
func MaintenanceMiddleware(c *cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != "GET" && c.InMaintenance(ctx.Request.Context()) {
			ctx.JSON(503, gin.H{"error": "Platform under maintenance"})
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
