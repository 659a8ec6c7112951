package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mmdatafocus/stockroom_backend/config"
	"github.com/mmdatafocus/stockroom_backend/models"
)

// Seeds the first admin account. Idempotent: an existing email is left alone.
//
// Env: ADMIN_EMAIL, ADMIN_NAME, ADMIN_PASSWORD plus the usual DB_* vars.
func main() {
	email := os.Getenv("ADMIN_EMAIL")
	name := os.Getenv("ADMIN_NAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}
	if name == "" {
		name = "Administrator"
	}

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	user, err := models.CreateUser(ctx, &models.NewUser{
		Email:    email,
		Name:     name,
		Password: password,
		IsAdmin:  true,
	})
	if err != nil {
		log.Fatalf("seeding admin failed: %v", err)
	}
	fmt.Printf("admin user %d (%s) created\n", user.ID, user.Email)
}
