package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	corsgin "github.com/rs/cors/wrapper/gin"
)

func main() {
	// Set properties of the predefined Logger, including
	// the log entry prefix and a flag to disable printing
	// the time, source file, and line number.
	log.SetPrefix("lg/fit-forecast-go-api: ")
	log.SetFlags(0)

	// Local dev reads .env; in deployment the variables come from the
	// environment directly, so a missing file is not an error.
	if err := godotenv.Load(); err != nil {
		log.Println("[main] No .env file found, using environment variables")
	}

	h := &Handler{
		db:               getDBPool(),
		predictorBaseURL: os.Getenv("PREDICTOR_URL"),
		sim:              loadSimConfig(),
		safety:           loadSafetyConfig(),
	}
	h.rules = NewRuleSet(h.safety)

	fmt.Println("Starting gin app...")

	router := gin.Default()
	router.SetTrustedProxies(nil)
	router.Use(corsgin.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"*"},
	}))
	h.registerRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	router.Run(":" + port)
}
