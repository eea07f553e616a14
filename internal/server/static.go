package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves the built frontend alongside the API. Unknown non-API
// paths fall back to index.html so client-side routing keeps working; with
// no static directory configured the server is API only.
func (api *TaskAPI) mountStatic(router *gin.Engine) {
	if api.staticDir == "" {
		router.NoRoute(func(ctx *gin.Context) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
		})
		return
	}

	info, err := os.Stat(api.staticDir)
	if err != nil || !info.IsDir() {
		api.logger.Warn("static directory missing, serving API only", "path", api.staticDir, "error", err)
		router.NoRoute(func(ctx *gin.Context) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
		})
		return
	}

	indexPath := filepath.Join(api.staticDir, "index.html")

	router.GET("/", func(ctx *gin.Context) {
		ctx.File(indexPath)
	})
	router.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}
		ctx.File(indexPath)
	})

	assetsDir := filepath.Join(api.staticDir, "assets")
	if _, err := os.Stat(assetsDir); err == nil {
		router.StaticFS("/assets", gin.Dir(assetsDir, true))
	}

	favicon := filepath.Join(api.staticDir, "favicon.ico")
	if _, err := os.Stat(favicon); err == nil {
		router.StaticFile("/favicon.ico", favicon)
	}
}
