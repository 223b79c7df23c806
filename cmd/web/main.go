package main

import "rentals_backend/internal/app"

func main() {
	app.Run()
}
