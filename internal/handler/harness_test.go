package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velles/storefront/internal/domain/auth"
	"github.com/velles/storefront/internal/domain/catalog"
	"github.com/velles/storefront/internal/domain/order"
	"github.com/velles/storefront/internal/domain/user"
)

// In-memory fakes backing the full HTTP stack under test.

type fakeUserRepo struct {
	byEmail map[string]*user.User
}

func (f *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	if _, ok := f.byEmail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	cp := *u
	f.byEmail[u.Email] = &cp
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

type fakeShopRepo struct {
	byID map[string]*user.Shop
}

func (f *fakeShopRepo) Create(_ context.Context, s *user.Shop) error {
	cp := *s
	f.byID[s.ID] = &cp
	return nil
}

func (f *fakeShopRepo) GetByID(_ context.Context, id string) (*user.Shop, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeShopRepo) ListByOwner(_ context.Context, ownerID string) ([]user.Shop, error) {
	var out []user.Shop
	for _, s := range f.byID {
		if s.OwnerID == ownerID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeCatalogRepo struct {
	byID map[string]catalog.Product
}

func (f *fakeCatalogRepo) List(_ context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range f.byID {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalogRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (f *fakeCatalogRepo) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalogRepo) Create(_ context.Context, p *catalog.Product) error {
	f.byID[p.ID] = *p
	return nil
}

func (f *fakeCatalogRepo) Update(_ context.Context, p *catalog.Product) error {
	if _, ok := f.byID[p.ID]; !ok {
		return catalog.ErrNotFound
	}
	f.byID[p.ID] = *p
	return nil
}

func (f *fakeCatalogRepo) Upsert(_ context.Context, p *catalog.Product) error {
	f.byID[p.ID] = *p
	return nil
}

func (f *fakeCatalogRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeCatalogRepo) ListCategories(_ context.Context) ([]catalog.Category, error) {
	return nil, nil
}

func (f *fakeCatalogRepo) UpsertCategory(_ context.Context, _ *catalog.Category) error {
	return nil
}

type fakeOrderRepo struct {
	byNumber map[string]*order.Order
	shops    *fakeShopRepo
	products *fakeCatalogRepo
}

func (f *fakeOrderRepo) Create(_ context.Context, o *order.Order) error {
	if _, ok := f.byNumber[o.OrderNumber]; ok {
		return order.ErrNumberTaken
	}
	cp := *o
	f.byNumber[o.OrderNumber] = &cp
	return nil
}

func (f *fakeOrderRepo) GetByNumber(_ context.Context, orderNumber string) (*order.Order, error) {
	o, ok := f.byNumber[orderNumber]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) NumberExists(_ context.Context, orderNumber string) (bool, error) {
	_, ok := f.byNumber[orderNumber]
	return ok, nil
}

func (f *fakeOrderRepo) ListNumbers(_ context.Context) ([]string, error) {
	var out []string
	for n := range f.byNumber {
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeOrderRepo) Update(_ context.Context, o *order.Order) error {
	if _, ok := f.byNumber[o.OrderNumber]; !ok {
		return order.ErrNotFound
	}
	cp := *o
	f.byNumber[o.OrderNumber] = &cp
	return nil
}

func (f *fakeOrderRepo) ReplaceProducts(_ context.Context, orderID string, productIDs []string) error {
	for _, o := range f.byNumber {
		if o.ID == orderID {
			o.ProductIDs = append([]string{}, productIDs...)
		}
	}
	return nil
}

func (f *fakeOrderRepo) Delete(_ context.Context, orderNumber string) error {
	if _, ok := f.byNumber[orderNumber]; !ok {
		return order.ErrNotFound
	}
	delete(f.byNumber, orderNumber)
	return nil
}

// List applies the same visibility rule the SQL scope clauses implement:
// customers see their own orders, sellers see orders touching their shops.
func (f *fakeOrderRepo) List(_ context.Context, scope order.Scope) ([]order.Order, error) {
	var out []order.Order
	for _, o := range f.byNumber {
		if scope.CustomerID != "" && o.CustomerID == scope.CustomerID {
			out = append(out, *o)
			continue
		}
		if scope.SellerID != "" && f.soldBy(o, scope.SellerID) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) soldBy(o *order.Order, sellerID string) bool {
	for _, pid := range o.ProductIDs {
		p, ok := f.products.byID[pid]
		if !ok {
			continue
		}
		if shop, ok := f.shops.byID[p.ShopID]; ok && shop.OwnerID == sellerID {
			return true
		}
	}
	return false
}

func (f *fakeOrderRepo) DeleteOrphans(_ context.Context, _ time.Time) ([]string, error) {
	return nil, nil
}

type fakeFulfillmentRepo struct {
	nextID     int64
	deliveries map[int64]*order.Delivery
	pickups    map[int64]*order.Pickup
	orders     *fakeOrderRepo
}

// visible applies the scope the same way fakeOrderRepo.List does, resolving
// the fulfillment's order first.
func (f *fakeFulfillmentRepo) visible(orderID string, scope order.Scope) bool {
	var o *order.Order
	for _, cand := range f.orders.byNumber {
		if cand.ID == orderID {
			o = cand
			break
		}
	}
	if o == nil {
		return false
	}
	if scope.CustomerID != "" {
		return o.CustomerID == scope.CustomerID
	}
	return scope.SellerID != "" && f.orders.soldBy(o, scope.SellerID)
}

func (f *fakeFulfillmentRepo) CreateDelivery(_ context.Context, d *order.Delivery) error {
	f.nextID++
	d.ID = f.nextID
	cp := *d
	f.deliveries[d.ID] = &cp
	return nil
}

func (f *fakeFulfillmentRepo) GetDelivery(_ context.Context, id int64) (*order.Delivery, error) {
	d, ok := f.deliveries[id]
	if !ok {
		return nil, order.ErrFulfillmentNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeFulfillmentRepo) UpdateDelivery(_ context.Context, d *order.Delivery) error {
	if _, ok := f.deliveries[d.ID]; !ok {
		return order.ErrFulfillmentNotFound
	}
	cp := *d
	f.deliveries[d.ID] = &cp
	return nil
}

func (f *fakeFulfillmentRepo) DeleteDelivery(_ context.Context, id int64) error {
	if _, ok := f.deliveries[id]; !ok {
		return order.ErrFulfillmentNotFound
	}
	delete(f.deliveries, id)
	return nil
}

func (f *fakeFulfillmentRepo) ListDeliveries(_ context.Context, scope order.Scope) ([]order.Delivery, error) {
	var out []order.Delivery
	for _, d := range f.deliveries {
		if f.visible(d.OrderID, scope) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeFulfillmentRepo) CreatePickup(_ context.Context, p *order.Pickup) error {
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.pickups[p.ID] = &cp
	return nil
}

func (f *fakeFulfillmentRepo) GetPickup(_ context.Context, id int64) (*order.Pickup, error) {
	p, ok := f.pickups[id]
	if !ok {
		return nil, order.ErrFulfillmentNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeFulfillmentRepo) UpdatePickup(_ context.Context, p *order.Pickup) error {
	if _, ok := f.pickups[p.ID]; !ok {
		return order.ErrFulfillmentNotFound
	}
	cp := *p
	f.pickups[p.ID] = &cp
	return nil
}

func (f *fakeFulfillmentRepo) DeletePickup(_ context.Context, id int64) error {
	if _, ok := f.pickups[id]; !ok {
		return order.ErrFulfillmentNotFound
	}
	delete(f.pickups, id)
	return nil
}

func (f *fakeFulfillmentRepo) ListPickups(_ context.Context, scope order.Scope) ([]order.Pickup, error) {
	var out []order.Pickup
	for _, p := range f.pickups {
		if f.visible(p.OrderID, scope) {
			out = append(out, *p)
		}
	}
	return out, nil
}

// testServer bundles the wired handler with its backing fakes.
type testServer struct {
	router       http.Handler
	tokens       *auth.Tokens
	users        *fakeUserRepo
	shops        *fakeShopRepo
	catalog      *fakeCatalogRepo
	orders       *fakeOrderRepo
	fulfillments *fakeFulfillmentRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	users := &fakeUserRepo{byEmail: make(map[string]*user.User)}
	shops := &fakeShopRepo{byID: make(map[string]*user.Shop)}
	catalogRepo := &fakeCatalogRepo{byID: make(map[string]catalog.Product)}
	orders := &fakeOrderRepo{
		byNumber: make(map[string]*order.Order),
		shops:    shops,
		products: catalogRepo,
	}
	fulfillments := &fakeFulfillmentRepo{
		deliveries: make(map[int64]*order.Delivery),
		pickups:    make(map[int64]*order.Pickup),
		orders:     orders,
	}

	tokens := auth.NewTokens("test-secret", time.Hour)
	userService := user.NewService(users)
	orderService := order.NewService(catalogRepo, orders, order.NewNumberGenerator())
	checkoutService := order.NewCheckoutService(orderService, fulfillments, zap.NewNop())

	h := NewHandler(tokens, userService, shops, catalogRepo, orderService, checkoutService, fulfillments)
	return &testServer{
		router:       h.Routes(),
		tokens:       tokens,
		users:        users,
		shops:        shops,
		catalog:      catalogRepo,
		orders:       orders,
		fulfillments: fulfillments,
	}
}

// do performs a request with an optional JSON body and bearer token.
func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// seedUser stores an account directly and returns a valid bearer token.
func (s *testServer) seedUser(t *testing.T, id, email string, role auth.Role) string {
	t.Helper()

	s.users.byEmail[email] = &user.User{ID: id, Email: email, Role: role}
	token, err := s.tokens.Issue(id, role)
	require.NoError(t, err)
	return token
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}
