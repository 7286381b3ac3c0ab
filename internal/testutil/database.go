package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB opens the local test database, skipping the test when it is
// not reachable. Expects a MySQL instance on localhost:3306 with a database
// named 'palantir_test'.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := "root:@tcp(localhost:3306)/palantir_test?parseTime=true"
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB truncates every table and closes the connection.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{
		"OrderAuditEntries", "WebhookEvents", "OrderItems", "Orders",
		"CheckoutItems", "CheckoutSessions", "Customers",
		"ProductVariants", "Products", "ShippingRates",
	}
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables creates the schema the tests need.
func SetupTestTables(t *testing.T, db *sql.DB) {
	statements := []struct {
		name  string
		query string
	}{
		{"Products", `
			CREATE TABLE IF NOT EXISTS Products (
				id VARCHAR(36) NOT NULL PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				imageUrl VARCHAR(500) NOT NULL DEFAULT '',
				isActive TINYINT(1) NOT NULL DEFAULT 1
			)`},
		{"ProductVariants", `
			CREATE TABLE IF NOT EXISTS ProductVariants (
				id VARCHAR(36) NOT NULL PRIMARY KEY,
				productId VARCHAR(36) NOT NULL,
				title VARCHAR(255) NOT NULL DEFAULT '',
				sku VARCHAR(100) NOT NULL DEFAULT '',
				price DECIMAL(10,2) NOT NULL,
				position INT NOT NULL DEFAULT 0,
				INDEX idx_product (productId)
			)`},
		{"ShippingRates", `
			CREATE TABLE IF NOT EXISTS ShippingRates (
				id VARCHAR(50) NOT NULL PRIMARY KEY,
				name VARCHAR(100) NOT NULL,
				price DECIMAL(10,2) NOT NULL,
				estimatedDays VARCHAR(20) NOT NULL DEFAULT ''
			)`},
		{"Customers", `
			CREATE TABLE IF NOT EXISTS Customers (
				id VARCHAR(36) NOT NULL PRIMARY KEY,
				email VARCHAR(150) NOT NULL UNIQUE,
				firstName VARCHAR(100) NOT NULL DEFAULT '',
				lastName VARCHAR(100) NOT NULL DEFAULT '',
				createdAt DATETIME NOT NULL,
				updatedAt DATETIME NOT NULL
			)`},
		{"CheckoutSessions", `
			CREATE TABLE IF NOT EXISTS CheckoutSessions (
				id VARCHAR(36) NOT NULL PRIMARY KEY,
				subtotal DECIMAL(10,2) NOT NULL DEFAULT 0.00,
				shippingTotal DECIMAL(10,2) NOT NULL DEFAULT 0.00,
				taxTotal DECIMAL(10,2) NOT NULL DEFAULT 0.00,
				total DECIMAL(10,2) NOT NULL DEFAULT 0.00,
				currency VARCHAR(8) NOT NULL,
				email VARCHAR(150),
				customerId VARCHAR(36),
				shippingAddress JSON,
				billingAddress JSON,
				shippingRateId VARCHAR(50),
				shippingMethod VARCHAR(100),
				paymentProvider VARCHAR(20),
				paymentId VARCHAR(191),
				expiresAt DATETIME NOT NULL,
				completedAt DATETIME,
				createdAt DATETIME NOT NULL,
				updatedAt DATETIME NOT NULL
			)`},
		{"CheckoutItems", `
			CREATE TABLE IF NOT EXISTS CheckoutItems (
				id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
				checkoutId VARCHAR(36) NOT NULL,
				productId VARCHAR(36) NOT NULL,
				variantId VARCHAR(36) NOT NULL,
				quantity INT NOT NULL DEFAULT 1,
				title VARCHAR(255) NOT NULL,
				variantTitle VARCHAR(255) NOT NULL DEFAULT '',
				sku VARCHAR(100) NOT NULL DEFAULT '',
				price DECIMAL(10,2) NOT NULL,
				imageUrl VARCHAR(500) NOT NULL DEFAULT '',
				FOREIGN KEY (checkoutId) REFERENCES CheckoutSessions(id) ON DELETE CASCADE,
				INDEX idx_checkout (checkoutId)
			)`},
		{"Orders", `
			CREATE TABLE IF NOT EXISTS Orders (
				id VARCHAR(36) NOT NULL PRIMARY KEY,
				orderNumber INT NOT NULL UNIQUE,
				email VARCHAR(150) NOT NULL,
				subtotal DECIMAL(10,2) NOT NULL,
				shippingTotal DECIMAL(10,2) NOT NULL,
				taxTotal DECIMAL(10,2) NOT NULL,
				total DECIMAL(10,2) NOT NULL,
				currency VARCHAR(8) NOT NULL,
				status VARCHAR(20) NOT NULL DEFAULT 'pending',
				paymentStatus VARCHAR(20) NOT NULL DEFAULT 'pending',
				fulfillmentStatus VARCHAR(20) NOT NULL DEFAULT 'unfulfilled',
				paymentProvider VARCHAR(20) NOT NULL,
				paymentId VARCHAR(191) NOT NULL,
				paidAt DATETIME,
				cancelledAt DATETIME,
				createdAt DATETIME NOT NULL,
				updatedAt DATETIME NOT NULL,
				UNIQUE KEY ux_provider_payment (paymentProvider, paymentId)
			)`},
		{"OrderItems", `
			CREATE TABLE IF NOT EXISTS OrderItems (
				id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
				orderId VARCHAR(36) NOT NULL,
				productId VARCHAR(36) NOT NULL,
				variantId VARCHAR(36) NOT NULL,
				quantity INT NOT NULL DEFAULT 1,
				title VARCHAR(255) NOT NULL,
				variantTitle VARCHAR(255) NOT NULL DEFAULT '',
				sku VARCHAR(100) NOT NULL DEFAULT '',
				price DECIMAL(10,2) NOT NULL,
				imageUrl VARCHAR(500) NOT NULL DEFAULT '',
				FOREIGN KEY (orderId) REFERENCES Orders(id) ON DELETE CASCADE,
				INDEX idx_order (orderId)
			)`},
		{"OrderAuditEntries", `
			CREATE TABLE IF NOT EXISTS OrderAuditEntries (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
				orderId VARCHAR(36) NOT NULL,
				field VARCHAR(30) NOT NULL,
				previousValue VARCHAR(50) NOT NULL,
				newValue VARCHAR(50) NOT NULL,
				changedBy VARCHAR(50) NOT NULL,
				changedAt DATETIME NOT NULL,
				reason VARCHAR(500) NOT NULL DEFAULT '',
				INDEX idx_order (orderId)
			)`},
		{"WebhookEvents", `
			CREATE TABLE IF NOT EXISTS WebhookEvents (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
				eventId VARCHAR(191) NOT NULL,
				provider VARCHAR(20) NOT NULL,
				eventType VARCHAR(100) NOT NULL,
				orderId VARCHAR(36) NOT NULL DEFAULT '',
				payload MEDIUMBLOB,
				processedAt DATETIME NOT NULL,
				UNIQUE KEY ux_event_provider (eventId, provider)
			)`},
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt.query); err != nil {
			t.Logf("failed to create table %s: %v", stmt.name, err)
		}
	}
}

// SeedCatalog inserts a product with one variant plus the three shipping
// rates most tests need.
func SeedCatalog(t *testing.T, db *sql.DB, productID, variantID string, price float64) {
	t.Helper()

	if _, err := db.Exec(
		`INSERT INTO Products (id, title, imageUrl, isActive) VALUES (?, ?, ?, 1)`,
		productID, "Test Product", "https://cdn.example.com/p.jpg",
	); err != nil {
		t.Fatalf("seeding product: %v", err)
	}

	if _, err := db.Exec(
		`INSERT INTO ProductVariants (id, productId, title, sku, price, position) VALUES (?, ?, ?, ?, ?, 1)`,
		variantID, productID, "Default", "SKU-1", price,
	); err != nil {
		t.Fatalf("seeding variant: %v", err)
	}

	rates := []struct {
		id, name, days string
		price          float64
	}{
		{"standard", "Standard Shipping", "5-7", 5.99},
		{"express", "Express Shipping", "2-3", 12.99},
		{"overnight", "Overnight Shipping", "1", 24.99},
	}
	for _, r := range rates {
		if _, err := db.Exec(
			`INSERT INTO ShippingRates (id, name, price, estimatedDays) VALUES (?, ?, ?, ?)`,
			r.id, r.name, r.price, r.days,
		); err != nil {
			t.Fatalf("seeding shipping rate %s: %v", r.id, err)
		}
	}
}
