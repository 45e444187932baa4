package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/internal/orders"
	"github.com/angelmondragon/courierline-backend/internal/riders"
	"github.com/angelmondragon/courierline-backend/pkg/auth"
	"github.com/angelmondragon/courierline-backend/pkg/config"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
)

var devMarkupRate = decimal.RequireFromString("0.15")

// seedDev inserts a store, a customer, two riders and a few placed orders so
// the lifecycle endpoints have something to act on locally, then prints a
// bearer token per seeded actor.
func seedDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, gdb *gorm.DB) error {
	storeID := uuid.New()
	customerID := uuid.New()
	now := time.Now().UTC()
	actors := []auth.AccessTokenPayload{
		{UserID: customerID, Role: enums.ActorRoleCustomer},
		{UserID: uuid.New(), Role: enums.ActorRoleStoreManager, StoreID: &storeID},
		{UserID: uuid.New(), Role: enums.ActorRoleAdmin},
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		riderRepo := riders.NewRepository(tx)
		for _, name := range []string{"Dev Rider A", "Dev Rider B"} {
			rider := &models.Rider{ID: uuid.New(), DisplayName: name, IsAvailable: true}
			if err := riderRepo.Create(ctx, rider); err != nil {
				return fmt.Errorf("seed rider: %w", err)
			}
			actors = append(actors, auth.AccessTokenPayload{UserID: rider.ID, Role: enums.ActorRoleRider})
			logg.Info(logg.WithRiderID(ctx, rider.ID.String()), "seeded rider")
		}

		orderRepo := orders.NewRepository(tx)
		intakes := []orders.IntakeInput{
			{
				Items:            []orders.IntakeItem{{Name: "Margherita pizza", Quantity: 1, UnitPriceCents: 1450}},
				DeliveryFeeCents: 399,
				TipCents:         200,
			},
			{
				Items: []orders.IntakeItem{
					{Name: "Pad thai", Quantity: 2, UnitPriceCents: 1200},
					{Name: "Spring rolls", Quantity: 1, UnitPriceCents: 650},
				},
				DeliveryFeeCents: 299,
				DiscountCents:    500,
			},
			{
				Items:            []orders.IntakeItem{{Name: "Cold brew", Quantity: 3, UnitPriceCents: 450}},
				DeliveryFeeCents: 199,
				TipCents:         100,
			},
		}
		for i, in := range intakes {
			in.OrderNumber = fmt.Sprintf("DEV-%s-%d", now.Format("060102150405"), i+1)
			in.CustomerID = customerID
			in.StoreID = storeID
			in.PlatformMarkupRate = devMarkupRate

			order, err := orders.BuildOrder(in, now)
			if err != nil {
				return fmt.Errorf("build order %d: %w", i+1, err)
			}
			if err := orderRepo.CreateOrder(ctx, order); err != nil {
				return fmt.Errorf("seed order %d: %w", i+1, err)
			}
			logg.Info(logg.WithOrderID(ctx, order.ID.String()), "seeded order")
		}

		logg.Info(logg.WithFields(ctx, map[string]any{
			"store_id":    storeID.String(),
			"customer_id": customerID.String(),
		}), "dev seed complete")
		return nil
	})
	if err != nil {
		return err
	}

	for _, actor := range actors {
		token, err := auth.MintAccessToken(cfg.JWT, now, actor)
		if err != nil {
			return fmt.Errorf("mint %s token: %w", actor.Role, err)
		}
		fmt.Printf("%-14s %s\n%s\n\n", actor.Role, actor.UserID, token)
	}
	return nil
}
