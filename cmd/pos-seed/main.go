package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/restaurant-pos/internal/access"
	menudomain "github.com/dmehra2102/restaurant-pos/internal/menu/domain"
	menupg "github.com/dmehra2102/restaurant-pos/internal/menu/infrastructure/postgres"
	"github.com/dmehra2102/restaurant-pos/pkg/config"
	"github.com/dmehra2102/restaurant-pos/pkg/logging"
	"github.com/dmehra2102/restaurant-pos/pkg/pgschema"
)

var staff = []access.User{
	{ID: "u-admin", FullName: "Michael Chen", Role: access.RoleAdmin, IsActive: true},
	{ID: "u-manager", FullName: "Sarah Wong", Role: access.RoleManager, IsActive: true},
	{ID: "u-server-1", FullName: "David Liu", Role: access.RoleServer, IsActive: true},
	{ID: "u-cashier", FullName: "Kevin Tan", Role: access.RoleCashier, IsActive: true},
}

func item(sku, name, chinese, desc, price string, cat menudomain.Category, tags ...string) menudomain.Item {
	return menudomain.Item{
		ID:          "m-" + sku,
		SKU:         sku,
		Name:        name,
		NameChinese: chinese,
		Description: desc,
		Price:       decimal.RequireFromString(price),
		Category:    cat,
		Tags:        tags,
		IsAvailable: true,
	}
}

var menu = []menudomain.Item{
	item("DS-001", "Har Gow", "蝦餃", "Crystal shrimp dumplings with bamboo shoots", "7.95", menudomain.CategoryDimSum, "seafood", "steamed", "popular"),
	item("DS-002", "Siu Mai", "燒賣", "Open-top pork and shrimp dumplings", "6.95", menudomain.CategoryDimSum, "pork", "seafood", "steamed", "popular"),
	item("DS-003", "Char Siu Bao", "叉燒包", "Fluffy steamed buns with BBQ pork", "6.50", menudomain.CategoryDimSum, "pork", "steamed", "popular"),
	item("DS-005", "Spring Rolls", "春卷", "Crispy vegetable spring rolls", "5.50", menudomain.CategoryDimSum, "vegetarian", "fried", "crispy"),
	item("LN-001", "Kung Pao Chicken", "宮保雞丁", "Stir-fried chicken with peanuts and chili", "14.95", menudomain.CategoryLunch, "chicken", "spicy", "popular", "nuts"),
	item("LN-002", "Beef Chow Fun", "乾炒牛河", "Wide rice noodles with tender beef", "15.50", menudomain.CategoryLunch, "beef", "noodles", "popular"),
	item("DN-001", "Peking Duck", "北京烤鴨", "Whole roasted duck with pancakes and hoisin", "58.00", menudomain.CategoryDinner, "duck", "signature", "share"),
	item("DR-001", "Jasmine Tea", "茉莉花茶", "Fragrant green tea with jasmine blossoms", "4.00", menudomain.CategoryDrinks, "tea", "hot"),
	item("DE-001", "Mango Pudding", "芒果布甸", "Silky mango pudding with fresh cream", "6.50", menudomain.CategoryDesserts, "sweet", "fruit", "cold", "popular"),
	item("DE-002", "Egg Tart", "蛋撻", "Flaky pastry with silky egg custard", "4.50", menudomain.CategoryDesserts, "dessert", "sweet", "popular"),
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pgschema.Apply(ctx, pool); err != nil {
		log.Error("schema apply failed", "err", err)
		os.Exit(1)
	}

	users := access.NewPostgresDirectory(pool)
	for _, u := range staff {
		if err := users.Upsert(ctx, u); err != nil {
			log.Error("seed user failed", "user_id", u.ID, "err", err)
			os.Exit(1)
		}
	}
	if err := menupg.NewCatalog(log, pool).Upsert(ctx, menu); err != nil {
		log.Error("seed menu failed", "err", err)
		os.Exit(1)
	}
	log.Info("seed complete", "users", len(staff), "menu_items", len(menu))
}
