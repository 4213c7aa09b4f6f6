package normalize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cartItems = `[
	{"productId":"p1","quantity":2,"product":{"id":"p1","name":"Bag","price":10,"stock":5,"images":["/a.jpg"]}},
	{"product":{"_id":"p2","name":"Hat","price":"7.5","stock":"3","images":[{"url":"/h.jpg"}]},"quantity":"1"}
]`

func TestItemsShapes(t *testing.T) {
	cases := map[string]Shape{
		`[]`:                            ShapeArray,
		`{"items":[]}`:                  ShapeItems,
		`{"products":[]}`:               ShapeProducts,
		`{"reviews":[]}`:                ShapeReviews,
		`{"data":[]}`:                   ShapeData,
		`{"data":{"items":[]}}`:         ShapeDataItems,
		`{"data":{"products":[]}}`:      Shape("data.products"),
		`{"data":{"notifications":[]}}`: Shape("data.notifications"),
		`{"data":{"total":3}}`:          ShapeUnknown,
		`"hello"`:                       ShapeUnknown,
		`{not json`:                     ShapeUnknown,
		``:                              ShapeUnknown,
	}
	for payload, want := range cases {
		items, shape := Items([]byte(payload))
		assert.Equal(t, want, shape, payload)
		assert.NotNil(t, items, payload)
	}
}

func TestCartEquivalentShapesProduceSameRows(t *testing.T) {
	payloads := []string{
		cartItems,
		fmt.Sprintf(`{"items":%s}`, cartItems),
		fmt.Sprintf(`{"data":{"items":%s}}`, cartItems),
		fmt.Sprintf(`{"data":%s}`, cartItems),
	}

	baseline := Cart([]byte(payloads[0])).Rows
	require.Len(t, baseline, 2)
	for _, payload := range payloads[1:] {
		assert.Equal(t, baseline, Cart([]byte(payload)).Rows, payload)
	}

	hat := baseline[1]
	assert.Equal(t, "p2", hat.ProductID)
	assert.Equal(t, 1, hat.Quantity)
	assert.Equal(t, 7.5, hat.Product.Price)
	assert.Equal(t, 3, hat.Product.Stock)
	assert.Equal(t, []string{"/h.jpg"}, hat.Product.Images)
}

func TestCartDropsRowsWithoutIdentity(t *testing.T) {
	payload := `[
		{"productId":"p1","quantity":1,"product":{"name":"Bag"}},
		{"quantity":4},
		{"quantity":1,"product":{"name":"Nameless id"}},
		"garbage",
		{"product_id":"p3"}
	]`
	result := Cart([]byte(payload))

	require.Len(t, result.Rows, 3)
	assert.Equal(t, "p1", result.Rows[0].ProductID)
	assert.Equal(t, "Nameless id", result.Rows[1].Product.Name)
	assert.Equal(t, "p3", result.Rows[2].ProductID)
	assert.Equal(t, []string{}, result.Rows[2].Product.Images)
	assert.Zero(t, result.Rows[2].Product.Price)
}

func TestMalformedIsDistinctFromEmpty(t *testing.T) {
	empty := Cart([]byte(`[]`))
	assert.False(t, empty.Malformed())
	assert.True(t, empty.Empty())
	assert.NotNil(t, empty.Rows)

	broken := Cart([]byte(`{"message":"oops"}`))
	assert.True(t, broken.Malformed())
	assert.True(t, broken.Empty())
	assert.NotNil(t, broken.Rows)
}

func TestWishlistRows(t *testing.T) {
	payload := `{"data":{"items":[
		{"productId":"p1","name":"Bag","price":12.5,"stock":2,"image":"/b.jpg"},
		{"product":{"id":"p2","name":"Cap","price":"3","images":["/c.jpg","/d.jpg"]}},
		{"name":"orphan"}
	]}}`
	result := Wishlist([]byte(payload))

	require.Len(t, result.Rows, 2)
	require.NotNil(t, result.Rows[0].Image)
	assert.Equal(t, "/b.jpg", *result.Rows[0].Image)
	assert.Equal(t, "Cap", result.Rows[1].Name)
	assert.Equal(t, 3.0, result.Rows[1].Price)
	require.NotNil(t, result.Rows[1].Image)
	assert.Equal(t, "/c.jpg", *result.Rows[1].Image)
}

func TestReviewRows(t *testing.T) {
	payload := `{"reviews":[
		{"id":"r1","rating":9,"comment":"great","user":{"name":"Ana"},"createdAt":"2024-01-02T00:00:00Z"},
		{"_id":"r2","rating":"4","comment":"ok","reviewerName":"Bo"},
		{"rating":5,"comment":"no id"},
		{"id":"r4","rating":-2}
	]}`
	result := Reviews([]byte(payload))

	require.Len(t, result.Rows, 3)
	assert.Equal(t, 5, result.Rows[0].Rating)
	assert.Equal(t, "Ana", result.Rows[0].ReviewerName)
	require.NotNil(t, result.Rows[0].CreatedAt)
	assert.Equal(t, 4, result.Rows[1].Rating)
	assert.Nil(t, result.Rows[1].CreatedAt)
	assert.Equal(t, 0, result.Rows[2].Rating)
}

func TestProductsAndSingleProduct(t *testing.T) {
	payload := `{"products":[
		{"_id":"p1","name":"Bag","price":10,"stock":5,"images":["/a.jpg"],"category":{"_id":"c1","name":"Bags"},"status":"active"},
		{"name":"missing id"}
	]}`
	result := Products([]byte(payload))
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "c1", result.Rows[0].CategoryID)
	require.NotNil(t, result.Rows[0].Category)
	assert.Equal(t, "Bags", *result.Rows[0].Category)

	single, ok := SingleProduct([]byte(`{"data":{"product":{"id":"p9","name":"Lamp","price":"19.99"}}}`))
	require.True(t, ok)
	assert.Equal(t, "p9", single.ID)
	assert.Equal(t, 19.99, single.Price)

	_, ok = SingleProduct([]byte(`[]`))
	assert.False(t, ok)
}

func TestCategoriesDistrictsNotifications(t *testing.T) {
	cats := Categories([]byte(`{"data":[{"id":"c1","name":"Books","slug":"books"},{"name":"x"}]}`))
	require.Len(t, cats.Rows, 1)
	assert.Equal(t, "books", cats.Rows[0].Slug)

	districts := Districts([]byte(`{"data":{"districts":[{"_id":"d1","name":"Dhaka"}]}}`))
	require.Len(t, districts.Rows, 1)
	assert.Equal(t, "Dhaka", districts.Rows[0].Name)

	notes := Notifications([]byte(`{"data":[{"id":"n1","title":"Hi","message":"Welcome","isRead":true},{"id":"n2","read":"false"}]}`))
	require.Len(t, notes.Rows, 2)
	assert.True(t, notes.Rows[0].Read)
	assert.Equal(t, "Welcome", notes.Rows[0].Body)
	assert.False(t, notes.Rows[1].Read)
}

func TestCount(t *testing.T) {
	cases := map[string]int{
		`3`:                          3,
		`{"count":2}`:                2,
		`{"data":{"unreadCount":7}}`: 7,
		`{"data":4}`:                 4,
		`{"data":"5"}`:               5,
		`{"total":-1}`:               0,
		`oops`:                       0,
	}
	for payload, want := range cases {
		assert.Equal(t, want, Count([]byte(payload)), payload)
	}
}
