package main

import (
	"context"
	"flag"
	"log"
	"time"

	"tutoring/internal/config"
	"tutoring/internal/institute"
	"tutoring/internal/store"
)

// seedadmin creates the admin account if its email is not taken yet.
func main() {
	cfg := config.Load()
	name := flag.String("name", cfg.AdminName, "admin display name")
	email := flag.String("email", cfg.AdminEmail, "admin login email")
	password := flag.String("password", cfg.AdminPassword, "admin password (min 6 characters)")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("%v", err)
	}

	svc := institute.NewService(institute.NewPostgresRepository(db.Client), nil, nil, 0)
	admin, created, err := svc.EnsureAdmin(ctx, *name, *email, *password)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if !created {
		log.Printf("admin %s already exists", admin.Email)
		return
	}
	log.Printf("admin created: %s (%s)", admin.Email, admin.ID)
}
