package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/config"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/handlers"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/settings"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/store"
)

const usage = "expected 'add-user', 'issue-token' or 'show-settings' subcommand"

func main() {
	// Keep config warnings about missing keys out of the command output.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))

	addUserCmd := flag.NewFlagSet("add-user", flag.ExitOnError)
	username := addUserCmd.String("username", "", "Username for the new user")
	password := addUserCmd.String("password", "", "Password for the new user")

	issueTokenCmd := flag.NewFlagSet("issue-token", flag.ExitOnError)
	tokenUser := issueTokenCmd.String("username", "", "Existing user the token acts as")
	ttl := issueTokenCmd.Duration("ttl", 30*24*time.Hour, "How long the token stays valid")

	showSettingsCmd := flag.NewFlagSet("show-settings", flag.ExitOnError)

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	switch os.Args[1] {
	case "add-user":
		addUserCmd.Parse(os.Args[2:])
		if *username == "" || *password == "" {
			fmt.Println("username and password are required")
			addUserCmd.PrintDefaults()
			os.Exit(1)
		}
		createUser(cfg, *username, *password)
	case "issue-token":
		issueTokenCmd.Parse(os.Args[2:])
		if *tokenUser == "" {
			fmt.Println("username is required")
			issueTokenCmd.PrintDefaults()
			os.Exit(1)
		}
		issueToken(cfg, *tokenUser, *ttl)
	case "show-settings":
		showSettingsCmd.Parse(os.Args[2:])
		showSettings(cfg)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

func openStore(cfg *config.Config) *store.Store {
	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	// Ensure tables exist if running cli before server
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func createUser(cfg *config.Config, username, password string) {
	db := openStore(cfg)
	defer db.Close()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	if err := db.CreateUser(username, string(hashedPassword)); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("User '%s' created successfully.\n", username)
}

func issueToken(cfg *config.Config, username string, ttl time.Duration) {
	tokens := handlers.NewTokenIssuer(cfg.APITokenKey)
	if tokens == nil {
		log.Fatalf("API_TOKEN_KEY must be set to a base64 key of at least 32 bytes")
	}

	db := openStore(cfg)
	defer db.Close()

	user, err := db.GetUserByUsername(username)
	if err != nil {
		log.Fatalf("Failed to look up user: %v", err)
	}
	if user == nil {
		log.Fatalf("User '%s' does not exist", username)
	}

	token, err := tokens.Issue(user.Username, ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}

func showSettings(cfg *config.Config) {
	source := cfg.SettingsPath
	creds, err := settings.LoadInitial(settings.NewFileStore(cfg.SettingsPath), cfg.SeedCredentials)
	if err != nil {
		log.Fatalf("Failed to read settings: %v", err)
	}
	if fields := settings.Overridden(cfg.SeedCredentials); len(fields) > 0 {
		source += " (environment overrides " + strings.Join(fields, ", ") + ")"
	}

	fmt.Printf("Source:          %s\n", source)
	fmt.Printf("WooCommerce URL: %s\n", creds.BaseURL)
	fmt.Printf("Consumer key:    %s\n", settings.Mask(creds.ConsumerKey))
	fmt.Printf("Consumer secret: %s\n", settings.Mask(creds.ConsumerSecret))
	if !creds.Complete() {
		fmt.Println("Status:          incomplete, product features are disabled")
	}
}
