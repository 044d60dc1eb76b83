package migrate

import (
	"context"

	"orderhub/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto
	CreateChecks           bool // CHECK-constraint для статусов, денег и остатков
	CreateIndexes          bool
	CreateFKsViaSQL        bool
	CreateUpdatedAtTrigger bool
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

type step struct {
	name string
	sql  string
}

var checkSteps = []step{
	{"chk_orders_status_allowed", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_status_allowed;
ALTER TABLE orders ADD CONSTRAINT chk_orders_status_allowed
  CHECK (status IN ('ORDER_STATUS_PENDING','ORDER_STATUS_CONFIRMED','ORDER_STATUS_SHIPPED','ORDER_STATUS_DELIVERED','ORDER_STATUS_CANCELLED'));`},
	{"chk_orders_payment_status_allowed", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_payment_status_allowed;
ALTER TABLE orders ADD CONSTRAINT chk_orders_payment_status_allowed
  CHECK (payment_status IN ('PAYMENT_STATUS_PENDING','PAYMENT_STATUS_PAID','PAYMENT_STATUS_FAILED','PAYMENT_STATUS_REFUNDED'));`},
	{"chk_orders_amounts", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_amounts;
ALTER TABLE orders ADD CONSTRAINT chk_orders_amounts
  CHECK (subtotal_cents >= 0 AND discount_cents >= 0 AND total_amount_cents = subtotal_cents - discount_cents AND total_amount_cents >= 0);`},
	{"chk_orders_currency_code_len", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_currency_code_len;
ALTER TABLE orders ADD CONSTRAINT chk_orders_currency_code_len CHECK (char_length(currency_code) = 3);`},
	{"chk_order_items_quantity_gt_zero", `
ALTER TABLE order_items DROP CONSTRAINT IF EXISTS chk_order_items_quantity_gt_zero;
ALTER TABLE order_items ADD CONSTRAINT chk_order_items_quantity_gt_zero CHECK (quantity > 0);`},
	{"chk_order_items_prices_non_negative", `
ALTER TABLE order_items DROP CONSTRAINT IF EXISTS chk_order_items_prices_non_negative;
ALTER TABLE order_items ADD CONSTRAINT chk_order_items_prices_non_negative
  CHECK (unit_price_cents >= 0 AND line_total_cents >= 0);`},
	{"chk_inventories_non_negative", `
ALTER TABLE inventories DROP CONSTRAINT IF EXISTS chk_inventories_non_negative;
ALTER TABLE inventories ADD CONSTRAINT chk_inventories_non_negative CHECK (available >= 0 AND reserved >= 0);`},
	{"chk_stock_reservations_status", `
ALTER TABLE stock_reservations DROP CONSTRAINT IF EXISTS chk_stock_reservations_status;
ALTER TABLE stock_reservations ADD CONSTRAINT chk_stock_reservations_status
  CHECK (status IN ('HELD','CONFIRMED','CANCELLED') AND quantity > 0);`},
	{"chk_cart_items_quantity_gt_zero", `
ALTER TABLE cart_items DROP CONSTRAINT IF EXISTS chk_cart_items_quantity_gt_zero;
ALTER TABLE cart_items ADD CONSTRAINT chk_cart_items_quantity_gt_zero CHECK (quantity > 0);`},
	{"chk_users_role_allowed", `
ALTER TABLE users DROP CONSTRAINT IF EXISTS chk_users_role_allowed;
ALTER TABLE users ADD CONSTRAINT chk_users_role_allowed
  CHECK (role IN ('ROLE_CUSTOMER','ROLE_SELLER','ROLE_COURIER','ROLE_ADMIN'));`},
}

var indexSteps = []step{
	{"ux_order_items_order_product", `CREATE UNIQUE INDEX IF NOT EXISTS ux_order_items_order_product ON order_items (order_id, product_id);`},
	{"ix_orders_customer_created", `CREATE INDEX IF NOT EXISTS ix_orders_customer_created ON orders (customer_id, created_at DESC);`},
	{"ix_orders_seller_created", `CREATE INDEX IF NOT EXISTS ix_orders_seller_created ON orders (seller_id, created_at DESC);`},
	{"ix_orders_status_created", `CREATE INDEX IF NOT EXISTS ix_orders_status_created ON orders (status, created_at DESC);`},
	{"ix_stock_reservations_held_expires", `CREATE INDEX IF NOT EXISTS ix_stock_reservations_held_expires ON stock_reservations (expires_at) WHERE status = 'HELD';`},
	{"ux_products_seller_sku", `CREATE UNIQUE INDEX IF NOT EXISTS ux_products_seller_sku ON products (seller_id, lower(sku));`},
	{"ux_users_email_lower", `CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email_lower ON users (lower(email));`},
}

var fkSteps = []step{
	{"fk_order_items_order", `
ALTER TABLE order_items DROP CONSTRAINT IF EXISTS fk_order_items_order,
  ADD CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;`},
	{"fk_inventories_product", `
ALTER TABLE inventories DROP CONSTRAINT IF EXISTS fk_inventories_product,
  ADD CONSTRAINT fk_inventories_product FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE;`},
	{"fk_stock_reservations_product", `
ALTER TABLE stock_reservations DROP CONSTRAINT IF EXISTS fk_stock_reservations_product,
  ADD CONSTRAINT fk_stock_reservations_product FOREIGN KEY (product_id) REFERENCES products(id);`},
	{"fk_cart_items_product", `
ALTER TABLE cart_items DROP CONSTRAINT IF EXISTS fk_cart_items_product,
  ADD CONSTRAINT fk_cart_items_product FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE;`},
	{"fk_wishlist_items_product", `
ALTER TABLE wishlist_items DROP CONSTRAINT IF EXISTS fk_wishlist_items_product,
  ADD CONSTRAINT fk_wishlist_items_product FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE;`},
}

func runSteps(ctx context.Context, db *gorm.DB, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		if err := db.WithContext(ctx).Exec(s.sql).Error; err != nil {
			log.Error("Не удалось применить шаг миграции", zap.String("step", s.name), zap.Error(err))
			return err
		}
	}
	return nil
}

// MigrateDB создаёт схему marketplace: пользователи, товары, остатки, резервы, корзина, заказы.
func MigrateDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы данных")

	if opt.CreateExtensions {
		if err := db.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("Не удалось включить расширение pgcrypto", zap.Error(err))
			return err
		}
		log.Info("Расширения PostgreSQL успешно созданы")
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Inventory{},
		&models.StockReservation{},
		&models.CartItem{},
		&models.WishlistItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		log.Error("Не удалось создать таблицы", zap.Error(err))
		return err
	}
	log.Info("Таблицы успешно созданы")

	if opt.CreateUpdatedAtTrigger {
		if err := db.WithContext(ctx).Exec(`
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated BEFORE UPDATE ON orders FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_products_updated ON products;
CREATE TRIGGER trg_products_updated BEFORE UPDATE ON products FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_users_updated ON users;
CREATE TRIGGER trg_users_updated BEFORE UPDATE ON users FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_stock_reservations_updated ON stock_reservations;
CREATE TRIGGER trg_stock_reservations_updated BEFORE UPDATE ON stock_reservations FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`).Error; err != nil {
			log.Error("Не удалось создать триггеры updated_at", zap.Error(err))
			return err
		}
		log.Info("Триггеры updated_at успешно созданы")
	}

	if opt.CreateChecks {
		if err := runSteps(ctx, db, log, checkSteps); err != nil {
			return err
		}
		log.Info("CHECK-ограничения успешно созданы", zap.Int("count", len(checkSteps)))
	}

	if opt.CreateIndexes {
		if err := runSteps(ctx, db, log, indexSteps); err != nil {
			return err
		}
		log.Info("Индексы успешно созданы", zap.Int("count", len(indexSteps)))
	}

	if opt.CreateFKsViaSQL {
		if err := runSteps(ctx, db, log, fkSteps); err != nil {
			return err
		}
		log.Info("Внешние ключи успешно созданы", zap.Int("count", len(fkSteps)))
	}

	log.Info("Миграция базы данных успешно завершена")
	return nil
}
