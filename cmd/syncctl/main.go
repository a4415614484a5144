package main

import (
	"context"
	"fmt"
	"log"
	"os"
)

func usage() {
	fmt.Println("Usage: syncctl (pull|list|export|unlink|status) <user-id> [file]")
	fmt.Println("pull runs outside the server's session, so it does not wait for a user edit in progress.")
}

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	cfg, err := readConfig(configFile)
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	app, err := newApp(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	command, userID := os.Args[1], os.Args[2]

	switch command {
	case "pull":
		err = app.pull(ctx, userID)
	case "list":
		err = app.list(ctx, userID)
	case "export":
		target := ""
		if len(os.Args) > 3 {
			target = os.Args[3]
		}
		err = app.export(ctx, userID, target)
	case "unlink":
		err = app.unlink(ctx, userID)
	case "status":
		err = app.status(ctx, userID)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("❌ %s failed: %v", command, err)
	}
}
