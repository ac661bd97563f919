package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/MudassirSafi/Wolf-Backend/internal/auth"
	"github.com/MudassirSafi/Wolf-Backend/internal/boot"
	"github.com/MudassirSafi/Wolf-Backend/internal/users"
)

// admin-bootstrap creates the configured admin account or repairs it in place.
// Flags override WOLF_ADMIN_* for one-off runs.
func main() {
	email := flag.String("email", "", "admin email (defaults to WOLF_ADMIN_EMAIL)")
	name := flag.String("name", "", "admin display name (defaults to WOLF_ADMIN_NAME)")
	flag.Parse()

	proc, err := boot.Start("admin-bootstrap")
	ctx := proc.Context()
	if err != nil {
		proc.Fatal(ctx, "failed to load config", err)
	}

	admin := proc.Config.Admin
	if v := strings.TrimSpace(*email); v != "" {
		admin.Email = v
	}
	if v := strings.TrimSpace(*name); v != "" {
		admin.Name = v
	}

	dbClient, err := proc.Database(ctx)
	if err != nil {
		proc.Fatal(ctx, "database unavailable", err)
	}
	bootstrapper, err := auth.NewAdminBootstrapper(auth.AdminBootstrapParams{
		DB:             dbClient,
		Users:          users.NewRepository(dbClient.DB()),
		PasswordConfig: proc.Config.Password,
		Admin:          admin,
		Logger:         proc.Logger,
	})
	if err != nil {
		proc.Fatal(ctx, "failed to create admin bootstrapper", err)
	}

	user, err := bootstrapper.Run(ctx)
	if err != nil {
		proc.Fatal(ctx, "admin bootstrap failed", err)
	}
	proc.Shutdown(ctx)
	fmt.Printf("admin ready: %s (%s)\n", user.Email, user.ID)
}
