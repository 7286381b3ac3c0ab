package domain

type Product struct {
	ID       string
	Title    string
	ImageURL string
	IsActive bool
}

type ProductVariant struct {
	ID        string
	ProductID string
	Title     string
	SKU       string
	Price     float64
	Position  int
}

type ShippingRate struct {
	ID            string
	Name          string
	Price         float64
	EstimatedDays string
}
