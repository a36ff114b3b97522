package enums

// ProductStatus is a listing's review state. Only on_shelf products can be ordered.
type ProductStatus string

const (
	ProductStatusOnShelf  ProductStatus = "on_shelf"
	ProductStatusOffShelf ProductStatus = "off_shelf"
	ProductStatusPending  ProductStatus = "pending"
	ProductStatusRejected ProductStatus = "rejected"
)

var productStatuses = []ProductStatus{
	ProductStatusOnShelf,
	ProductStatusOffShelf,
	ProductStatusPending,
	ProductStatusRejected,
}

func (s ProductStatus) String() string { return string(s) }

func (s ProductStatus) IsValid() bool { return known(s, productStatuses) }
