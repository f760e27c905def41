package main

import (
	"log"

	"mydaylogs/config"
	"mydaylogs/server"
)

func main() {
	cfg := config.MustLoad()
	app := &server.App{}
	app.Initialize(cfg)
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
