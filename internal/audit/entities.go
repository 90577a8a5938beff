package audit

// Entity type labels used across domain services.
const (
	EntityUser          = "user"
	EntityCompany       = "company"
	EntityCustomer      = "customer"
	EntitySupplier      = "supplier"
	EntityItem          = "item"
	EntityInventoryUnit = "inventory_unit"
	EntityPurchase      = "purchase"
	EntityRental        = "rental"
	EntitySale          = "sale"
)
