package normalize

// Result carries normalized rows and the payload shape they were read from.
type Result[T any] struct {
	Rows  []T
	Shape Shape
}

// Malformed reports that the payload matched no known shape, as opposed to
// a well-formed empty list.
func (r Result[T]) Malformed() bool {
	return r.Shape == ShapeUnknown
}

func (r Result[T]) Empty() bool {
	return len(r.Rows) == 0
}

type CartProduct struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Price  float64  `json:"price"`
	Stock  int      `json:"stock"`
	Images []string `json:"images"`
}

type CartRow struct {
	ProductID string      `json:"productId"`
	Quantity  int         `json:"quantity"`
	Product   CartProduct `json:"product"`
}

type WishlistRow struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Stock     int     `json:"stock"`
	Image     *string `json:"image,omitempty"`
}

type ReviewRow struct {
	ID           string  `json:"id"`
	Rating       int     `json:"rating"`
	Comment      string  `json:"comment"`
	ReviewerName string  `json:"reviewerName"`
	CreatedAt    *string `json:"createdAt,omitempty"`
}

type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	Images      []string `json:"images"`
	CategoryID  string   `json:"categoryId"`
	Category    *string  `json:"category,omitempty"`
	Status      string   `json:"status"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type District struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Notification struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	Read      bool    `json:"read"`
	CreatedAt *string `json:"createdAt,omitempty"`
}
