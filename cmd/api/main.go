// cmd/api/main.go
package main

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
)

func main() {
	planetsServiceURL, _ := url.Parse(getEnv("PLANETS_SERVICE_URL", "http://localhost:8084"))

	planetsProxy := httputil.NewSingleHostReverseProxy(planetsServiceURL)

	http.Handle("/api/v1/", http.StripPrefix("/api/v1", planetsProxy))

	port := getEnv("PORT", "8080")
	log.Printf("API Gateway listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
