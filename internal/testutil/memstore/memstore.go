// Package memstore はテスト用のインメモリrepository一式です。
// version・ユニーク制約・ロールバックはgorm実装と同じ振る舞いにそろえています。
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	seq  int64

	users     map[int64]model.User
	products  map[int64]model.Product
	carts     map[int64]model.Cart
	checkouts map[int64]model.Checkout
	orders    map[int64]model.Order
	audits    []model.AuditLog
}

func New() *Store {
	return &Store{
		users:     map[int64]model.User{},
		products:  map[int64]model.Product{},
		carts:     map[int64]model.Cart{},
		checkouts: map[int64]model.Checkout{},
		orders:    map[int64]model.Order{},
	}
}

func (s *Store) Users() repo.UserRepository         { return &userRepo{s} }
func (s *Store) Products() repo.ProductRepository   { return &productRepo{s} }
func (s *Store) Carts() repo.CartRepository         { return &cartRepo{s} }
func (s *Store) Checkouts() repo.CheckoutRepository { return &checkoutRepo{s} }
func (s *Store) Orders() repo.OrderRepository       { return &orderRepo{s} }
func (s *Store) AuditLogs() repo.AuditLogRepository { return &auditRepo{s} }

// TxManagerはWithinTxを直列化し、fnがエラーなら開始時点に戻す
func (s *Store) TxManager() repo.TransactionManager { return &txManager{s} }

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// SeedProduct は商品を直接登録する
func (s *Store) SeedProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.nextID()
	}
	s.products[p.ID] = p
	return p
}

func (s *Store) SeedUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.nextID()
	}
	s.users[u.ID] = u
	return u
}

func (s *Store) CartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// =====================
// tx
// =====================

type txManager struct{ s *Store }

type txRepos struct{ s *Store }

func (r txRepos) Carts() repo.CartRepository         { return r.s.Carts() }
func (r txRepos) Checkouts() repo.CheckoutRepository { return r.s.Checkouts() }
func (r txRepos) Orders() repo.OrderRepository       { return r.s.Orders() }
func (r txRepos) AuditLogs() repo.AuditLogRepository { return r.s.AuditLogs() }

type snapshot struct {
	seq       int64
	users     map[int64]model.User
	products  map[int64]model.Product
	carts     map[int64]model.Cart
	checkouts map[int64]model.Checkout
	orders    map[int64]model.Order
	audits    []model.AuditLog
}

func (m *txManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	snap := m.s.snapshot()
	if err := fn(txRepos{m.s}); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		seq:       s.seq,
		users:     make(map[int64]model.User, len(s.users)),
		products:  make(map[int64]model.Product, len(s.products)),
		carts:     make(map[int64]model.Cart, len(s.carts)),
		checkouts: make(map[int64]model.Checkout, len(s.checkouts)),
		orders:    make(map[int64]model.Order, len(s.orders)),
		audits:    append([]model.AuditLog(nil), s.audits...),
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.carts {
		snap.carts[k] = copyCart(v)
	}
	for k, v := range s.checkouts {
		snap.checkouts[k] = copyCheckout(v)
	}
	for k, v := range s.orders {
		snap.orders[k] = copyOrder(v)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = snap.seq
	s.users = snap.users
	s.products = snap.products
	s.carts = snap.carts
	s.checkouts = snap.checkouts
	s.orders = snap.orders
	s.audits = snap.audits
}

// =====================
// copy（呼び出し側の変更がストアに漏れないように）
// =====================

func copyCart(c model.Cart) model.Cart {
	c.Items = c.Items.Clone()
	if c.UserID != nil {
		v := *c.UserID
		c.UserID = &v
	}
	if c.GuestID != nil {
		v := *c.GuestID
		c.GuestID = &v
	}
	return c
}

func copyCheckout(c model.Checkout) model.Checkout {
	c.Items = c.Items.Clone()
	c.PaymentDetails = append([]byte(nil), c.PaymentDetails...)
	if c.SourceCartID != nil {
		v := *c.SourceCartID
		c.SourceCartID = &v
	}
	return c
}

func copyOrder(o model.Order) model.Order {
	o.Items = o.Items.Clone()
	o.PaymentDetails = append([]byte(nil), o.PaymentDetails...)
	return o
}

// =====================
// carts
// =====================

type cartRepo struct{ s *Store }

func (r *cartRepo) find(match func(c model.Cart) bool) (*model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.carts {
		if match(c) {
			cp := copyCart(c)
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func byUser(userID int64) func(model.Cart) bool {
	return func(c model.Cart) bool { return c.UserID != nil && *c.UserID == userID }
}

func byGuest(guestID string) func(model.Cart) bool {
	return func(c model.Cart) bool { return c.GuestID != nil && *c.GuestID == guestID }
}

func (r *cartRepo) FindByUserID(_ context.Context, userID int64) (*model.Cart, error) {
	return r.find(byUser(userID))
}

func (r *cartRepo) FindByGuestID(_ context.Context, guestID string) (*model.Cart, error) {
	return r.find(byGuest(guestID))
}

func (r *cartRepo) FindByUserIDForUpdate(_ context.Context, userID int64) (*model.Cart, error) {
	return r.find(byUser(userID))
}

func (r *cartRepo) FindByGuestIDForUpdate(_ context.Context, guestID string) (*model.Cart, error) {
	return r.find(byGuest(guestID))
}

func (r *cartRepo) FindByIDForUpdate(_ context.Context, cartID int64) (*model.Cart, error) {
	return r.find(func(c model.Cart) bool { return c.ID == cartID })
}

// user_id/guest_idのユニーク制約
func (r *cartRepo) violatesUnique(c *model.Cart) bool {
	for id, other := range r.s.carts {
		if id == c.ID {
			continue
		}
		if c.UserID != nil && other.UserID != nil && *c.UserID == *other.UserID {
			return true
		}
		if c.GuestID != nil && other.GuestID != nil && *c.GuestID == *other.GuestID {
			return true
		}
	}
	return false
}

func (r *cartRepo) Create(_ context.Context, cart *model.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.violatesUnique(cart) {
		return repo.ErrDuplicate
	}
	if cart.Items == nil {
		cart.Items = model.LineItems{}
	}
	cart.ID = r.s.nextID()
	cart.Version = 1
	now := time.Now()
	cart.CreatedAt, cart.UpdatedAt = now, now
	r.s.carts[cart.ID] = copyCart(*cart)
	return nil
}

func (r *cartRepo) Update(_ context.Context, cart *model.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.carts[cart.ID]
	if !ok || cur.Version != cart.Version {
		return repo.ErrVersionConflict
	}
	if r.violatesUnique(cart) {
		return repo.ErrDuplicate
	}
	cart.Version++
	cart.UpdatedAt = time.Now()
	r.s.carts[cart.ID] = copyCart(*cart)
	return nil
}

func (r *cartRepo) Delete(_ context.Context, cartID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.carts[cartID]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.carts, cartID)
	return nil
}

func (r *cartRepo) DeleteIfVersion(_ context.Context, cartID int64, version int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.carts[cartID]
	if !ok || cur.Version != version {
		return repo.ErrVersionConflict
	}
	delete(r.s.carts, cartID)
	return nil
}

// =====================
// checkouts
// =====================

type checkoutRepo struct{ s *Store }

func (r *checkoutRepo) Create(_ context.Context, c *model.Checkout) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.nextID()
	c.Version = 1
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.checkouts[c.ID] = copyCheckout(*c)
	return nil
}

func (r *checkoutRepo) FindByID(_ context.Context, checkoutID int64) (*model.Checkout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.checkouts[checkoutID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := copyCheckout(c)
	return &cp, nil
}

func (r *checkoutRepo) FindByIDForUpdate(ctx context.Context, checkoutID int64) (*model.Checkout, error) {
	return r.FindByID(ctx, checkoutID)
}

func (r *checkoutRepo) Update(_ context.Context, c *model.Checkout) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.checkouts[c.ID]
	if !ok || cur.Version != c.Version {
		return repo.ErrVersionConflict
	}
	c.Version++
	c.UpdatedAt = time.Now()
	r.s.checkouts[c.ID] = copyCheckout(*c)
	return nil
}

// =====================
// orders
// =====================

type orderRepo struct{ s *Store }

func (r *orderRepo) Create(_ context.Context, o *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.orders {
		if other.CheckoutID == o.CheckoutID {
			return repo.ErrDuplicate
		}
	}
	o.ID = r.s.nextID()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	r.s.orders[o.ID] = copyOrder(*o)
	return nil
}

func (r *orderRepo) FindByID(_ context.Context, orderID int64) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := copyOrder(o)
	return &cp, nil
}

func (r *orderRepo) FindByCheckoutID(_ context.Context, checkoutID int64) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.CheckoutID == checkoutID {
			cp := copyOrder(o)
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *orderRepo) filter(match func(o model.Order) bool) []model.Order {
	out := []model.Order{}
	for _, o := range r.s.orders {
		if match(o) {
			out = append(out, copyOrder(o))
		}
	}
	// 新しい順（同時刻はid降順）
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *orderRepo) ListByUserID(_ context.Context, userID int64) ([]model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(o model.Order) bool { return o.UserID == userID }), nil
}

func (r *orderRepo) ListAdmin(_ context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.filter(func(o model.Order) bool {
		if f.Status != "" && string(o.Status) != f.Status {
			return false
		}
		if f.UserID != nil && o.UserID != *f.UserID {
			return false
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			return false
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			return false
		}
		return true
	})
	total := int64(len(all))
	start := (f.Page - 1) * f.Limit
	if start >= len(all) {
		return []model.Order{}, total, nil
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *orderRepo) UpdateStatus(_ context.Context, o *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.orders[o.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Status = o.Status
	cur.DeliveredAt = o.DeliveredAt
	cur.UpdatedAt = o.UpdatedAt
	r.s.orders[o.ID] = cur
	return nil
}

func (r *orderRepo) Delete(_ context.Context, orderID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[orderID]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.orders, orderID)
	return nil
}

// =====================
// products / users / audit
// =====================

type productRepo struct{ s *Store }

func (r *productRepo) ListPublic(_ context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []model.Product{}
	for _, p := range r.s.products {
		if p.IsActive {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	start := (q.Page - 1) * q.Limit
	if start >= len(all) {
		return []model.Product{}, total, nil
	}
	end := start + q.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *productRepo) FindByID(_ context.Context, id int64) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &p, nil
}

func (r *productRepo) Create(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.nextID()
	r.s.products[p.ID] = *p
	return nil
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.users {
		if other.Email == u.Email {
			return repo.ErrDuplicate
		}
	}
	u.ID = r.s.nextID()
	r.s.users[u.ID] = *u
	return nil
}

func (r *userRepo) FindByID(_ context.Context, userID int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

type auditRepo struct{ s *Store }

func (r *auditRepo) Create(_ context.Context, log model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	log.ID = r.s.nextID()
	r.s.audits = append(r.s.audits, log)
	return nil
}

func (r *auditRepo) ListByResource(_ context.Context, resourceType model.AuditResourceType, resourceID int64) ([]model.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.AuditLog{}
	for _, l := range r.s.audits {
		if l.ResourceType == resourceType && l.ResourceID == resourceID {
			out = append(out, l)
		}
	}
	return out, nil
}
