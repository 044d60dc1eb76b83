package events

// Type — имя доменного события. Набор закрыт: новые типы добавляются только здесь.
type Type string

// SchemaVersion увеличивается при несовместимом изменении любой полезной нагрузки.
const SchemaVersion = 1

const (
	OrderCreated          Type = "order.created"
	OrderUpdated          Type = "order.updated"
	OrderCancelled        Type = "order.cancelled"
	OrderCompleted        Type = "order.completed"
	OrderPaymentSucceeded Type = "order.payment.succeeded"
	OrderPaymentFailed    Type = "order.payment.failed"

	ProductCreated      Type = "product.created"
	ProductUpdated      Type = "product.updated"
	ProductDeleted      Type = "product.deleted"
	ProductStockChanged Type = "product.stock.changed"

	UserRegistered Type = "user.registered"
	UserUpdated    Type = "user.updated"

	CartUpdated Type = "cart.updated"
	CartCleared Type = "cart.cleared"

	WishlistItemAdded   Type = "wishlist.item.added"
	WishlistItemRemoved Type = "wishlist.item.removed"
)

var allTypes = []Type{
	OrderCreated, OrderUpdated, OrderCancelled, OrderCompleted, OrderPaymentSucceeded, OrderPaymentFailed,
	ProductCreated, ProductUpdated, ProductDeleted, ProductStockChanged,
	UserRegistered, UserUpdated,
	CartUpdated, CartCleared,
	WishlistItemAdded, WishlistItemRemoved,
}

func AllTypes() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

func (t Type) Valid() bool {
	for _, known := range allTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t Type) String() string { return string(t) }
