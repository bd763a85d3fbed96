package main

import (
	"log"
	"os"

	"github.com/wheelsmith/wheelsmith/internal/settings"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s path/to/settings-schema.json", os.Args[0])
	}
	bs, err := settings.ReflectSchema()
	if err != nil {
		panic(err)
	}
	if err := os.WriteFile(os.Args[1], bs, 0644); err != nil {
		panic(err)
	}
}
