// Package normalize turns loosely shaped backend payloads into typed rows.
// Missing or mistyped fields degrade to zero values; only rows without an
// identifier are dropped. Nothing here returns an error or panics.
package normalize

func collect[T any](raw []byte, build func(map[string]any) (T, bool)) Result[T] {
	items, shape := Items(raw)
	rows := make([]T, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if row, keep := build(obj); keep {
			rows = append(rows, row)
		}
	}
	return Result[T]{Rows: rows, Shape: shape}
}

func Cart(raw []byte) Result[CartRow] {
	return collect(raw, cartRow)
}

func Wishlist(raw []byte) Result[WishlistRow] {
	return collect(raw, wishlistRow)
}

func Reviews(raw []byte) Result[ReviewRow] {
	return collect(raw, reviewRow)
}

func Products(raw []byte) Result[Product] {
	return collect(raw, product)
}

func Categories(raw []byte) Result[Category] {
	return collect(raw, category)
}

func Districts(raw []byte) Result[District] {
	return collect(raw, district)
}

func Notifications(raw []byte) Result[Notification] {
	return collect(raw, notification)
}

// Object returns the first object found at the top level or inside a data
// envelope, e.g. a single product.
func Object(raw []byte) (map[string]any, bool) {
	value, ok := decode(raw)
	if !ok {
		return nil, false
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}
	if data, ok := obj["data"].(map[string]any); ok {
		return data, true
	}
	return obj, true
}

// SingleProduct normalizes a product detail payload.
func SingleProduct(raw []byte) (Product, bool) {
	obj, ok := Object(raw)
	if !ok {
		return Product{}, false
	}
	if nested, ok := obj["product"].(map[string]any); ok {
		obj = nested
	}
	return product(obj)
}

// Count reads a counter such as the unread notification total from a bare
// number or an object with count, unreadCount or total.
func Count(raw []byte) int {
	value, ok := decode(raw)
	if !ok {
		return 0
	}
	if obj, isObj := value.(map[string]any); isObj {
		if data, ok := obj["data"]; ok {
			if nested, isMap := data.(map[string]any); isMap {
				obj = nested
			} else {
				return max(integer(data), 0)
			}
		}
		value = first(obj, "count", "unreadCount", "unread", "total")
	}
	return max(integer(value), 0)
}

func cartRow(obj map[string]any) (CartRow, bool) {
	productID := text(first(obj, "productId", "product_id", "product.id", "product._id"))
	if productID == "" {
		if id, ok := obj["product"].(string); ok {
			productID = text(id)
		}
	}
	name := text(first(obj, "product.name", "name"))
	if productID == "" && name == "" {
		return CartRow{}, false
	}
	productObjectID := text(first(obj, "product.id", "product._id"))
	if productObjectID == "" {
		productObjectID = productID
	}
	return CartRow{
		ProductID: productID,
		Quantity:  integer(obj["quantity"]),
		Product: CartProduct{
			ID:     productObjectID,
			Name:   name,
			Price:  number(first(obj, "product.price", "price")),
			Stock:  integer(first(obj, "product.stock", "stock")),
			Images: images(first(obj, "product.images", "images", "product.image", "image")),
		},
	}, true
}

func wishlistRow(obj map[string]any) (WishlistRow, bool) {
	productID := text(first(obj, "productId", "product_id", "product.id", "product._id"))
	if productID == "" {
		return WishlistRow{}, false
	}
	var image *string
	if list := images(first(obj, "image", "product.images", "images", "product.image")); len(list) > 0 {
		image = &list[0]
	}
	return WishlistRow{
		ProductID: productID,
		Name:      text(first(obj, "name", "product.name")),
		Price:     number(first(obj, "price", "product.price")),
		Stock:     integer(first(obj, "stock", "product.stock")),
		Image:     image,
	}, true
}

func reviewRow(obj map[string]any) (ReviewRow, bool) {
	id := text(first(obj, "id", "_id"))
	if id == "" {
		return ReviewRow{}, false
	}
	rating := integer(obj["rating"])
	rating = max(0, min(rating, 5))
	return ReviewRow{
		ID:           id,
		Rating:       rating,
		Comment:      text(first(obj, "comment", "content", "text")),
		ReviewerName: text(first(obj, "reviewerName", "reviewer.name", "user.name", "user.fullName", "name")),
		CreatedAt:    optionalText(first(obj, "createdAt", "created_at")),
	}, true
}

func product(obj map[string]any) (Product, bool) {
	id := text(first(obj, "id", "_id"))
	if id == "" {
		return Product{}, false
	}
	var categoryName *string
	switch c := obj["category"].(type) {
	case string:
		categoryName = optionalText(c)
	case map[string]any:
		categoryName = optionalText(c["name"])
	}
	return Product{
		ID:          id,
		Name:        text(obj["name"]),
		Description: text(obj["description"]),
		Price:       number(obj["price"]),
		Stock:       integer(first(obj, "stock", "quantity")),
		Images:      images(first(obj, "images", "image")),
		CategoryID:  text(first(obj, "categoryId", "category_id", "category.id", "category._id")),
		Category:    categoryName,
		Status:      text(obj["status"]),
	}, true
}

func category(obj map[string]any) (Category, bool) {
	id := text(first(obj, "id", "_id"))
	if id == "" {
		return Category{}, false
	}
	return Category{ID: id, Name: text(obj["name"]), Slug: text(obj["slug"])}, true
}

func district(obj map[string]any) (District, bool) {
	id := text(first(obj, "id", "_id"))
	if id == "" {
		return District{}, false
	}
	return District{ID: id, Name: text(first(obj, "name", "title"))}, true
}

func notification(obj map[string]any) (Notification, bool) {
	id := text(first(obj, "id", "_id"))
	if id == "" {
		return Notification{}, false
	}
	return Notification{
		ID:        id,
		Title:     text(obj["title"]),
		Body:      text(first(obj, "body", "message", "content")),
		Read:      boolean(first(obj, "read", "isRead", "is_read")),
		CreatedAt: optionalText(first(obj, "createdAt", "created_at")),
	}, true
}
