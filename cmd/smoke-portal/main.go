package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"bloodlink.org/internal/cache"
	"bloodlink.org/internal/config"
	"bloodlink.org/internal/guard"
	"bloodlink.org/internal/obs"
	"bloodlink.org/internal/remote"
	"bloodlink.org/internal/session"
	"bloodlink.org/internal/store/sqlite"
)

func main() {
	_ = godotenv.Load()
	obs.Init()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	storage, err := sqlite.Open(cfg.StoragePath)
	if err != nil {
		log.Fatalf("open storage at %s: %v", cfg.StoragePath, err)
	}
	defer storage.Close()

	sessions, err := session.NewStore(storage)
	if err != nil {
		log.Fatalf("session store: %v", err)
	}

	client, err := remote.NewClient(cfg.BaseURL,
		remote.WithTimeout(cfg.FetchTimeout),
		remote.WithTokenSource(func() (session.Role, string) {
			cur := sessions.Current()
			return cur.Role, cur.Token
		}),
		remote.WithUnauthorizedHook(sessions.Invalidate),
	)
	if err != nil {
		log.Fatalf("client: %v", err)
	}

	role, _ := session.ParseRole(envOr("BLOODLINK_SMOKE_ROLE", "donor"))
	identifier := os.Getenv("BLOODLINK_SMOKE_IDENTIFIER")
	password := os.Getenv("BLOODLINK_SMOKE_PASSWORD")
	if identifier == "" || password == "" {
		log.Fatal("BLOODLINK_SMOKE_IDENTIFIER and BLOODLINK_SMOKE_PASSWORD are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resp, err := client.Login(ctx, role, remote.LoginRequest{Identifier: identifier, Password: password})
	if err != nil {
		log.Fatalf("login as %s: %v", role, err)
	}
	if _, err := sessions.Login(role, resp.Token, resp.User, resp.Permissions); err != nil {
		log.Fatalf("store login: %v", err)
	}

	if d := guard.CanAccess(role, sessions.Current()); !d.Allow {
		log.Fatalf("guard refused own dashboard, redirect=%s", d.RedirectTo)
	}
	if d := guard.CanAccess(session.RoleAdmin, sessions.Current()); role != session.RoleAdmin && d.Allow {
		log.Fatal("guard allowed cross-role access")
	}

	inventory := cache.NewResource("blood-inventory", remote.SeedInventory())
	if err := inventory.Refresh(ctx, client.BloodInventory); err != nil {
		log.Printf("inventory fetch failed, serving seed: %v", err)
	}
	items, updated, stale := inventory.Get()
	if len(items) == 0 {
		log.Fatal("inventory empty despite fallback seed")
	}

	sessions.Logout(ctx)
	if restored := sessions.Restore(); restored.Authenticated() {
		log.Fatal("session survived logout + restore")
	}

	fmt.Printf("✅ portal smoke test passed: role=%s inventory=%d stale=%v updated=%s\n",
		role, len(items), stale, updated.Format(time.RFC3339))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
