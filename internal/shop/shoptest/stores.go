// Package shoptest fournit des stores en mémoire pour tester les services
// shop et les handlers HTTP sans MongoDB ni Redis.
package shoptest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"fertilizer_back_end/internal/cache"
	"fertilizer_back_end/internal/models"
	"fertilizer_back_end/internal/repository"
	"fertilizer_back_end/internal/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Produits ---

type Products struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*models.Product
}

func NewProducts(ps ...models.Product) *Products {
	f := &Products{products: map[primitive.ObjectID]*models.Product{}}
	for i := range ps {
		p := ps[i]
		f.products[p.ID] = &p
	}
	return f
}

// Modify applique fn au produit stocké, hors cache.
func (f *Products) Modify(id primitive.ObjectID, fn func(*models.Product)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[id]; ok {
		fn(p)
	}
}

func (f *Products) Delete(id primitive.ObjectID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, id)
}

func (f *Products) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *Products) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *Products) List(_ context.Context, category string) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, p := range f.products {
		if category == "" || strings.EqualFold(p.Category, category) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *Products) SearchText(_ context.Context, query string) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	q := strings.ToLower(query)
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *Products) UpdateRating(_ context.Context, id primitive.ObjectID, avg float64, count int) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.AverageRating, p.ReviewCount = avg, count
	cp := *p
	return &cp, nil
}

// --- Utilisateurs, panier, liste de souhaits ---

type Users struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func NewUsers() *Users {
	return &Users{users: map[primitive.ObjectID]*models.User{}}
}

func (f *Users) Add(name string) primitive.ObjectID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := primitive.NewObjectID()
	f.users[id] = &models.User{ID: id, Username: name, Email: name + "@example.com"}
	return id
}

func (f *Users) Modify(id primitive.ObjectID, fn func(*models.User)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		fn(u)
	}
}

func (f *Users) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *Users) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *Users) UpdateProfile(_ context.Context, id primitive.ObjectID, up models.ProfileUpdate) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if up.Username != "" {
		u.Username = up.Username
	}
	if up.Phone != "" {
		u.Phone = up.Phone
	}
	if up.Avatar != "" {
		u.Avatar = up.Avatar
	}
	if up.Address != nil {
		u.Address = up.Address
	}
	cp := *u
	return &cp, nil
}

func (f *Users) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hash
	return nil
}

func (f *Users) GetCart(_ context.Context, uid primitive.ObjectID) ([]models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return append([]models.CartItem{}, u.Cart...), nil
}

func (f *Users) IncrementCartItem(_ context.Context, uid, pid primitive.ObjectID, delta int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return false, nil
	}
	for i := range u.Cart {
		if u.Cart[i].Product == pid {
			u.Cart[i].Quantity += delta
			return true, nil
		}
	}
	return false, nil
}

func (f *Users) PushCartItem(_ context.Context, uid primitive.ObjectID, item models.CartItem) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return false, nil
	}
	for _, it := range u.Cart {
		if it.Product == item.Product {
			return false, nil
		}
	}
	u.Cart = append(u.Cart, item)
	return true, nil
}

func (f *Users) SetCartItemQuantity(_ context.Context, uid, pid primitive.ObjectID, q int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return false, nil
	}
	for i := range u.Cart {
		if u.Cart[i].Product == pid {
			u.Cart[i].Quantity = q
			return true, nil
		}
	}
	return false, nil
}

func (f *Users) PullCartItem(_ context.Context, uid, pid primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return repository.ErrNotFound
	}
	kept := u.Cart[:0]
	for _, it := range u.Cart {
		if it.Product != pid {
			kept = append(kept, it)
		}
	}
	u.Cart = kept
	return nil
}

func (f *Users) ClearCart(_ context.Context, uid primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return repository.ErrNotFound
	}
	u.Cart = []models.CartItem{}
	return nil
}

func (f *Users) GetWishlist(_ context.Context, uid primitive.ObjectID) ([]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return append([]primitive.ObjectID{}, u.Wishlist...), nil
}

func (f *Users) AddToWishlist(_ context.Context, uid, pid primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return false, nil
	}
	for _, id := range u.Wishlist {
		if id == pid {
			return false, nil
		}
	}
	u.Wishlist = append(u.Wishlist, pid)
	return true, nil
}

func (f *Users) RemoveFromWishlist(_ context.Context, uid, pid primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return false, nil
	}
	for i, id := range u.Wishlist {
		if id == pid {
			u.Wishlist = append(u.Wishlist[:i], u.Wishlist[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// --- Commandes ---

type Orders struct {
	mu     sync.Mutex
	orders []*models.Order
	clock  time.Time
}

func NewOrders() *Orders {
	return &Orders{}
}

func (f *Orders) Insert(_ context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Second)
	o.ID = primitive.NewObjectID()
	o.CreatedAt, o.UpdatedAt = f.clock, f.clock
	cp := *o
	cp.Items = append([]models.OrderItem{}, o.Items...)
	f.orders = append(f.orders, &cp)
	return nil
}

func (f *Orders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			cp := *o
			cp.Items = append([]models.OrderItem{}, o.Items...)
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *Orders) ListByUser(_ context.Context, uid primitive.ObjectID) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == uid {
			cp := *o
			cp.Items = append([]models.OrderItem{}, o.Items...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *Orders) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id && o.OrderStatus == from {
			o.OrderStatus = to
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *Orders) ExistsWithProduct(_ context.Context, uid, pid primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.UserID != uid {
			continue
		}
		for _, it := range o.Items {
			if it.ProductID == pid {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *Orders) SetStatus(id primitive.ObjectID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			o.OrderStatus = status
		}
	}
}

func (f *Orders) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

// --- Avis ---

type Reviews struct {
	mu        sync.Mutex
	reviews   map[primitive.ObjectID]*models.Review
	clock     time.Time
	InsertErr error
	UpdateErr error
}

func NewReviews() *Reviews {
	return &Reviews{reviews: map[primitive.ObjectID]*models.Review{}}
}

func (f *Reviews) Insert(_ context.Context, r *models.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InsertErr != nil {
		return f.InsertErr
	}
	for _, existing := range f.reviews {
		if existing.UserID == r.UserID && existing.ProductID == r.ProductID {
			return repository.ErrDuplicate
		}
	}
	f.clock = f.clock.Add(time.Second)
	r.ID = primitive.NewObjectID()
	r.CreatedAt, r.UpdatedAt = f.clock, f.clock
	cp := *r
	f.reviews[r.ID] = &cp
	return nil
}

func (f *Reviews) FindByID(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *Reviews) FindByUserAndProduct(_ context.Context, uid, pid primitive.ObjectID) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reviews {
		if r.UserID == uid && r.ProductID == pid {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *Reviews) ListByProduct(_ context.Context, pid primitive.ObjectID, skip, limit int64) ([]models.Review, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Review
	for _, r := range f.reviews {
		if r.ProductID == pid {
			all = append(all, *r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if skip >= total {
		return []models.Review{}, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return all[skip:end], total, nil
}

func (f *Reviews) Update(_ context.Context, id primitive.ObjectID, up models.ReviewUpdate) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	r, ok := f.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if up.Rating != nil {
		r.Rating = *up.Rating
	}
	if up.Title != nil {
		r.Title = *up.Title
	}
	if up.Comment != nil {
		r.Comment = *up.Comment
	}
	if up.Images != nil {
		r.Images = up.Images
	}
	r.VerifiedPurchase = up.VerifiedPurchase
	cp := *r
	return &cp, nil
}

func (f *Reviews) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.reviews, id)
	return nil
}

func (f *Reviews) ToggleLike(_ context.Context, id, uid primitive.ObjectID) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	likes := []primitive.ObjectID{}
	found := false
	for _, l := range r.Likes {
		if l == uid {
			found = true
			continue
		}
		likes = append(likes, l)
	}
	if !found {
		likes = append(likes, uid)
	}
	r.Likes = likes
	cp := *r
	return &cp, nil
}

func (f *Reviews) RatingStats(_ context.Context, pid primitive.ObjectID) (models.ProductRating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := models.ProductRating{ProductID: pid}
	sum := 0
	for _, r := range f.reviews {
		if r.ProductID == pid {
			sum += r.Rating
			stats.TotalReviews++
		}
	}
	if stats.TotalReviews > 0 {
		stats.AverageRating = float64(sum) / float64(stats.TotalReviews)
	}
	return stats, nil
}

func (f *Reviews) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reviews)
}

// --- Fichiers ---

type Files struct {
	mu        sync.Mutex
	files     map[string][]byte
	FailOnNth int // 1-based, 0 = jamais
	saves     int
}

func NewFiles() *Files {
	return &Files{files: map[string][]byte{}}
}

func (f *Files) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.FailOnNth > 0 && f.saves == f.FailOnNth {
		return errors.New("stockage indisponible")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.files[name] = data
	return nil
}

func (f *Files) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, name)
	return nil
}

// Open sert un fichier comme le ferait le stockage objet.
func (f *Files) Open(_ context.Context, name string) (*services.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	if !ok {
		return nil, services.ErrObjectNotFound
	}
	return &services.Object{
		Body:        io.NopCloser(bytes.NewReader(data)),
		Size:        int64(len(data)),
		ContentType: mime.TypeByExtension(path.Ext(name)),
	}, nil
}

func (f *Files) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for n := range f.files {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// --- Cache, recherche, jetons ---

type Cache struct {
	mu    sync.Mutex
	items map[string]models.Product
	gets  int
}

func NewCache() *Cache {
	return &Cache{items: map[string]models.Product{}}
}

func (f *Cache) Get(_ context.Context, id string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	p, ok := f.items[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &p, nil
}

func (f *Cache) Set(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[p.ID.Hex()] = *p
	return nil
}

func (f *Cache) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *Cache) Has(id primitive.ObjectID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[id.Hex()]
	return ok
}

type Searcher struct {
	mu      sync.Mutex
	IDs     []primitive.ObjectID
	Err     error
	indexed []primitive.ObjectID
}

func (f *Searcher) Search(context.Context, string) ([]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.IDs, f.Err
}

func (f *Searcher) Index(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, p.ID)
	return nil
}

func (f *Searcher) Indexed() []primitive.ObjectID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]primitive.ObjectID{}, f.indexed...)
}

// Tokens émet des jetons prévisibles "token-<id>".
type Tokens struct{}

func (Tokens) GenerateToken(userID string) (string, error) { return "token-" + userID, nil }

// --- Effets de bord ---

type Publisher struct {
	mu     sync.Mutex
	events []any
}

func (f *Publisher) Publish(_ context.Context, _ string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *Publisher) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type Mailer struct {
	mu   sync.Mutex
	sent []string
}

func (f *Mailer) SendOrderConfirmation(_ context.Context, to string, _ *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

func (f *Mailer) Recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.sent...)
}

type Notifier struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *Notifier) CartChanged(_ context.Context, uid string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[uid] = count
	return nil
}

func (f *Notifier) Last(uid string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.counts[uid]
	return c, ok
}
