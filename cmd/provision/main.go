package main

import (
	"context"
	"flag"
	"log"
	"time"

	"supplies-pos/config"
	"supplies-pos/internal/database"
	"supplies-pos/internal/services/pos/handler"
	userHandler "supplies-pos/internal/services/user/handler"
	"supplies-pos/internal/utils"
)

// There is no sign-up flow; accounts and the starter catalog come from here.
func main() {
	email := flag.String("email", "", "profile email to create")
	password := flag.String("password", "", "profile password")
	role := flag.String("role", "cashier", "profile role: admin or cashier")
	seed := flag.Bool("seed", false, "insert the starter catalog when no products exist")
	flag.Parse()

	cfg := config.LoadConfig()
	config.MustNonEmpty(cfg.DB.DSN, "POS_DSN")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewConnection(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	if err := database.MigratePOSDB(db); err != nil {
		log.Fatalf("Failed to migrate POS database: %v", err)
	}

	redisClient, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	if *email != "" {
		users := userHandler.NewUserHandler(db, redisClient, utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))
		profile, err := users.CreateProfile(ctx, *email, *password, userHandler.ParseRole(*role))
		if err != nil {
			log.Fatalf("Failed to create profile: %v", err)
		}
		log.Printf("Created %s profile %s (%s)", profile.Role, profile.Email, profile.ID)
	}

	if *seed {
		pos := handler.NewPOSHandler(db, redisClient, nil, cfg.POS.CartTTL)
		n, err := seedCatalog(ctx, pos)
		if err != nil {
			log.Fatalf("Failed to seed products: %v", err)
		}
		log.Printf("Seeded %d products", n)
	}
}
