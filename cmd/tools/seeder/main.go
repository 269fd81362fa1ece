// Seeder loads a small demo dataset: enough products, customers and
// promotions to exercise a register end to end.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-pos/internal/app"
	"github.com/noah-isme/backend-pos/internal/db"
)

type product struct {
	name    string
	barcode string
	price   float64
	vatRate float64
	ptype   string
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(dbURL); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	pool, err := app.NewPool(ctx, dbURL, "pos-seeder")
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	products := []product{
		{"Espresso", "3017620422003", 1.20, 10, "unit"},
		{"Croissant", "3017620422010", 1.10, 5.5, "unit"},
		{"Baguette", "3017620422027", 1.30, 5.5, "unit"},
		{"Mineral water 1L", "3057640257773", 0.90, 5.5, "unit"},
		{"Red wine 75cl", "3049610004104", 8.50, 20, "unit"},
		{"Tomatoes", "2000000000017", 3.49, 5.5, "weight"},
		{"Comte cheese", "2000000000024", 24.90, 5.5, "weight"},
		{"Gift basket", "3017620422058", 0, 20, "unit"},
	}
	productIDs := make([]string, 0, len(products))
	for _, p := range products {
		id := uuid.NewString()
		productIDs = append(productIDs, id)
		if _, err := pool.Exec(ctx, `
			INSERT INTO products (id, name, barcode, price, vat_rate, type)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING`,
			id, p.name, p.barcode, p.price, p.vatRate, p.ptype); err != nil {
			log.Fatalf("seed product %q: %v", p.name, err)
		}
	}

	customerID := uuid.NewString()
	if _, err := pool.Exec(ctx, `
		INSERT INTO customers (id, name, class, credit_balance)
		VALUES ($1, 'Cafe du Centre', 'wholesale', 150.00)`, customerID); err != nil {
		log.Fatalf("seed customer: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO customers (id, name, class, credit_balance)
		VALUES ($1, 'Walk-in regular', '', 0)`, uuid.NewString()); err != nil {
		log.Fatalf("seed customer: %v", err)
	}

	// Wholesale customer buys espresso below list price.
	if _, err := pool.Exec(ctx, `
		INSERT INTO special_prices (customer_id, product_id, price)
		VALUES ($1, $2, 0.95)`, customerID, productIDs[0]); err != nil {
		log.Fatalf("seed special price: %v", err)
	}

	now := time.Now()
	if _, err := pool.Exec(ctx, `
		INSERT INTO promotions (id, code, name, kind, value, min_spend, product_ids, valid_from, valid_to, priority)
		VALUES ($1, 'BREAKFAST10', '10% off breakfast', 'percentage', 10, 0, $2, $3, $4, 10)
		ON CONFLICT (code) DO NOTHING`,
		uuid.NewString(), []string{productIDs[0], productIDs[1]},
		now.Add(-24*time.Hour), now.Add(30*24*time.Hour)); err != nil {
		log.Fatalf("seed promotion: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO promotions (id, code, name, kind, value, min_spend, valid_from, valid_to, priority)
		VALUES ($1, 'SPEND30', '3 euros off 30', 'amount', 3, 30, $2, $3, 5)
		ON CONFLICT (code) DO NOTHING`,
		uuid.NewString(), now.Add(-24*time.Hour), now.Add(30*24*time.Hour)); err != nil {
		log.Fatalf("seed promotion: %v", err)
	}

	log.Printf("seeded %d products, 2 customers, 1 special price, 2 promotions", len(products))
}
