package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stationelectrify/internal/api/handlers"
	"stationelectrify/internal/api/middleware"
	"stationelectrify/internal/config"
	"stationelectrify/internal/obslog"
	"stationelectrify/internal/obsmetrics"
)

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	registryPath := os.Getenv("VEHICLE_REGISTRY")
	if registryPath == "" {
		registryPath = "./vehicles.yaml"
	}
	reg, err := config.LoadVehicleRegistry(registryPath)
	if err != nil {
		log.Fatalf("failed to load vehicle registry from %s: %v", registryPath, err)
	}

	debugLevel := 0
	if os.Getenv("API_ENV") != "production" {
		debugLevel = 1
	}
	sink, err := obslog.New(debugLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	registerer := prometheus.NewRegistry()
	metrics := obsmetrics.New(registerer)

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(sink.Raw()))
	router.Use(middleware.ErrorHandler())

	optimizeHandler := handlers.NewOptimizeHandler(reg, sink, metrics)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registerer, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	{
		api.POST("/optimize", optimizeHandler.Run)
	}

	// Serve static files from web/dist (if it exists)
	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "./web/dist"
	}
	if _, err := os.Stat(staticDir); err == nil {
		router.Static("/assets", staticDir+"/assets")
		router.StaticFile("/favicon.ico", staticDir+"/favicon.ico")
		router.NoRoute(func(c *gin.Context) {
			path := c.Request.URL.Path
			if len(path) >= 4 && path[:4] == "/api" {
				c.JSON(404, gin.H{"error": "Not found"})
			} else {
				c.File(staticDir + "/index.html")
			}
		})
		log.Printf("Serving static files from %s", staticDir)
	} else {
		log.Printf("Static directory %s not found, skipping static file serving", staticDir)
	}

	addr := fmt.Sprintf(":%s", port)
	log.Printf("Starting API server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
