package main

import (
	"log"

	"github.com/tubeharvest/harvester/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ harvester failed to start: %v", err)
	}
}
