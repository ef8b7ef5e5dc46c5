package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/danloh/top-blog-auth"
)

func main() {
	cfg := auth.LoadConfig()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.GetDSN())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	ctx := context.Background()

	if _, err := db.NewCreateTable().
		Model((*auth.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		log.Fatalf("create users table: %v", err)
	}

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	tokens := auth.NewTokenService(cfg, nil)

	pool := auth.NewDba(cfg.GetPoolWorkers(), cfg.GetPoolBacklog(), nil)
	defer pool.Close()

	app := fiber.New(fiber.Config{
		AppName: "top-blog-auth",
	})

	auth.RegisterAuthRoutes(app,
		auth.WithControllerRepo(repo),
		auth.WithControllerTokens(tokens),
		auth.WithControllerConfig(cfg),
		auth.WithControllerPool(pool),
	)

	go func() {
		if err := app.Listen(cfg.GetBindAddress()); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
