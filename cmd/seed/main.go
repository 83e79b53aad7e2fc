package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/oksasatya/artesanato/config"
	"github.com/oksasatya/artesanato/internal/application"
	"github.com/oksasatya/artesanato/internal/domain/entity"
	pginfra "github.com/oksasatya/artesanato/internal/infrastructure/postgres"
	"github.com/oksasatya/artesanato/pkg/helpers"
)

// seed inserts a demo user with a handful of items. Running it twice reuses
// the user and adds the items again.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	userRepo := pginfra.NewUserRepository(pool)
	jwt := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	users := application.NewUserService(userRepo, jwt, nil, nil, logger, cfg.SessionTTL, application.Branding{})
	items := application.NewItemService(pginfra.NewItemRepository(pool), nil, nil, logger)

	email := "demo@artesanato.local"
	password := "password123"
	user, err := userRepo.GetByEmail(ctx, email)
	if err != nil {
		log.Fatalf("failed to look up demo user: %v", err)
	}
	if user == nil {
		user, err = users.Register(ctx, application.RegisterInput{
			Name:     "Demo Artesã",
			Email:    email,
			TaxID:    "529.982.247-25",
			Phone:    "+5511999990000",
			Password: password,
		})
		if err != nil {
			log.Fatalf("failed to seed user: %v", err)
		}
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", user.ID, email, password)

	demo := []struct {
		desc   string
		month  int
		amount string
		kind   entity.Kind
		status entity.Status
	}{
		{"Vaso de cerâmica", 1, "180.00", entity.KindCredit, entity.StatusSettled},
		{"Tapete de crochê", 2, "95.50", entity.KindCredit, entity.StatusSettled},
		{"Argila e esmalte", 2, "64.90", entity.KindDebit, entity.StatusSettled},
		{"Encomenda de cestos", 3, "240.00", entity.KindCredit, entity.StatusPending},
		{"Taxa da feira", 3, "30.00", entity.KindDebit, entity.StatusCancelled},
	}
	for _, d := range demo {
		it, err := items.Create(ctx, &entity.Item{
			Description: d.desc,
			Month:       d.month,
			Year:        2024,
			Amount:      decimal.RequireFromString(d.amount),
			Kind:        d.kind,
			UserID:      user.ID,
		})
		if err != nil {
			log.Fatalf("failed to seed item %q: %v", d.desc, err)
		}
		if d.status != entity.StatusPending {
			if _, err := items.UpdateStatus(ctx, it, d.status); err != nil {
				log.Fatalf("failed to set status on %q: %v", d.desc, err)
			}
		}
	}

	bal, err := items.Balance(ctx, user.ID)
	if err != nil {
		log.Fatalf("failed to compute balance: %v", err)
	}
	fmt.Printf("seeded %d items; settled balance=%s\n", len(demo), bal.StringFixed(2))
}
