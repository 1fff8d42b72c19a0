package main

import (
	"github.com/andino/pulso/services/checkin-service/internal/app"
)

func main() {
	app.Execute()
}
