package api

import (
	"net/http"

	"github.com/snpixel/worldquant/internal/api/handler"
	"github.com/snpixel/worldquant/pkg/router"
	httpSwagger "github.com/swaggo/http-swagger"
)

func RegisterRoutes(r *router.Router) {
	r.POST("/api/v1/runs", handler.CreateRun)
	r.GET("/api/v1/runs", handler.ListRuns)
	r.GET("/api/v1/runs/*/alphas", handler.GetRunAlphas)
	r.GET("/api/v1/runs/*/errors", handler.GetRunErrors)
	r.GET("/api/v1/runs/*", handler.GetRun)
	r.GET("/api/v1/download/*/*", handler.DownloadFile)

	r.GET("/swagger/*", func(w http.ResponseWriter, req *http.Request) {
		httpSwagger.WrapHandler(w, req)
	})
}
