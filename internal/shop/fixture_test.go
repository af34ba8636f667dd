package shop

import (
	"bytes"
	"io"

	"fertilizer_back_end/internal/models"
	"fertilizer_back_end/internal/shop/shoptest"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func upload(name string, content string) Upload {
	return Upload{
		Filename: name,
		Size:     int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(content))), nil
		},
	}
}

// --- Assemblage ---

type fixture struct {
	products *shoptest.Products
	users    *shoptest.Users
	orders   *shoptest.Orders
	reviews  *shoptest.Reviews
	files    *shoptest.Files
	cache    *shoptest.Cache
	search   *shoptest.Searcher
	events   *shoptest.Publisher
	mailer   *shoptest.Mailer
	notifier *shoptest.Notifier

	catalog  *Catalog
	cart     *Cart
	order    *Orders
	review   *Reviews
	wishlist *Wishlist
	accounts *Accounts

	p1, p2 models.Product
}

func newFixture() *fixture {
	f := &fixture{
		p1: models.Product{ID: primitive.NewObjectID(), Name: "Urée 46%", Price: 100, Category: "Azote", Stock: 40},
		p2: models.Product{ID: primitive.NewObjectID(), Name: "NPK 15-15-15", Price: 50, Category: "Complexe", Stock: 25},
	}
	f.products = shoptest.NewProducts(f.p1, f.p2)
	f.users = shoptest.NewUsers()
	f.orders = shoptest.NewOrders()
	f.reviews = shoptest.NewReviews()
	f.files = shoptest.NewFiles()
	f.cache = shoptest.NewCache()
	f.search = &shoptest.Searcher{}
	f.events = &shoptest.Publisher{}
	f.mailer = &shoptest.Mailer{}
	f.notifier = &shoptest.Notifier{}

	f.catalog = NewCatalog(f.products, f.reviews, f.cache, f.search)
	f.cart = NewCart(f.users, f.catalog, f.notifier)
	f.order = NewOrders(f.orders, f.users, f.catalog, f.events, f.mailer)
	f.review = NewReviews(f.reviews, f.users, f.order, f.catalog, f.files)
	f.wishlist = NewWishlist(f.users, f.catalog)
	f.accounts = NewAccounts(f.users, f.order, shoptest.Tokens{})
	return f
}
