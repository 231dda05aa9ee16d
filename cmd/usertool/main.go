package main

import (
	"fmt"
	"log"
	"os"

	"github.com/streamnest/SuperChat/app/models"
	"github.com/streamnest/SuperChat/app/repository"
	"github.com/streamnest/SuperChat/internal/pkg/database"
	"github.com/streamnest/SuperChat/internal/pkg/env"
)

// Operator CLI for account bootstrap: the public API has no signup surface,
// so streamer accounts and their API keys are provisioned from here.
func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	switch os.Args[1] {
	case "create-user":
		if len(os.Args) < 5 {
			log.Fatalf("Usage: create-user <name> <email> <password>")
		}
		user, err := models.CreateUser(os.Args[2], os.Args[3], os.Args[4])
		if err != nil {
			log.Fatalf("Failed to build user: %v", err)
		}
		if err := repos.User.Create(user); err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}
		log.Printf("Created user %d (%s)", user.ID, user.Email)

	case "issue-key":
		if len(os.Args) < 4 {
			log.Fatalf("Usage: issue-key <email> <password>")
		}
		user, err := repos.User.GetByEmail(os.Args[2])
		if err != nil {
			log.Fatalf("Failed to look up user: %v", err)
		}
		if !models.CheckPasswordHash(os.Args[3], user.Password) {
			log.Fatalf("Password verification failed")
		}
		rawKey, err := user.IssueAPIKey()
		if err != nil {
			log.Fatalf("Failed to generate API key: %v", err)
		}
		if err := repos.User.Update(user); err != nil {
			log.Fatalf("Failed to persist API key: %v", err)
		}
		// The raw key is only recoverable here; the database keeps the hash.
		log.Printf("API key for %s (store it now, it is not shown again):", user.Email)
		fmt.Println(rawKey)

	case "list-rooms":
		streams, err := repos.Stream.List(0, 100)
		if err != nil {
			log.Fatalf("Failed to list rooms: %v", err)
		}
		for _, s := range streams {
			live := "off"
			if s.IsLive {
				live = "LIVE"
			}
			fmt.Printf("%-8s %-5s views=%-6d user=%-4d %s\n", s.RoomCode, live, s.ViewCount, s.UserID, s.Title)
		}
		log.Printf("%d rooms", len(streams))

	case "set-live":
		if len(os.Args) < 4 {
			log.Fatalf("Usage: set-live <room_code> <on|off>")
		}
		stream, err := repos.Stream.GetByRoomCode(os.Args[2])
		if err != nil {
			log.Fatalf("Failed to look up room %s: %v", os.Args[2], err)
		}
		stream.IsLive = os.Args[3] == "on"
		if err := repos.Stream.Update(stream); err != nil {
			log.Fatalf("Failed to update room: %v", err)
		}
		log.Printf("Room %s is_live=%v", stream.RoomCode, stream.IsLive)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: go run cmd/usertool/main.go [command]")
	fmt.Println("Available commands:")
	fmt.Println("  create-user <name> <email> <password> - Register a streamer account")
	fmt.Println("  issue-key <email> <password>          - Mint an API key (prints the raw key once)")
	fmt.Println("  list-rooms                            - List registered rooms")
	fmt.Println("  set-live <room_code> <on|off>         - Toggle a room's live flag")
}
