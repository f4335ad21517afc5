package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"law_consult_app/config"
	"law_consult_app/db"
	"law_consult_app/logger"
	"law_consult_app/models"
	"law_consult_app/services"
	"log"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	role := flag.String("role", models.RoleLawyer, "user role: admin or lawyer")
	areas := flag.String("practice-areas", "", "comma separated practice area codes (e.g. family,labor)")
	lang := flag.String("lang", "es", "notification language")
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.Environment, "warn")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(zlog)

	// Initialize database
	if err := db.Initialize(cfg.DBPath, "production"); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New User ===")
	fmt.Println()

	fmt.Print("Name: ")
	name, _ := reader.ReadString('\n')

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')

	fmt.Print("Phone (optional): ")
	phone, _ := reader.ReadString('\n')

	// Get password securely
	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	fmt.Println() // New line after password input

	user, err := services.CreateUser(context.Background(), db.DB, services.UserInput{
		Name:          name,
		Email:         email,
		Password:      string(passwordBytes),
		Phone:         phone,
		Role:          *role,
		Language:      *lang,
		PracticeAreas: splitList(*areas),
	})
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			for _, msg := range validationErr.Messages {
				fmt.Fprintf(os.Stderr, "  - %s\n", msg)
			}
			os.Exit(1)
		}
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Println()
	fmt.Println("✓ User created successfully!")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Name: %s\n", user.Name)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Printf("  Role: %s\n", user.Role)
	if len(user.PracticeAreas) > 0 {
		fmt.Printf("  Practice areas: %s\n", user.PracticeAreaNames())
	}
	fmt.Println()
	fmt.Printf("The user can now call the API at %s with basic auth.\n", cfg.AppURL)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
