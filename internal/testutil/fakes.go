// Package testutil provides in-memory stand-ins for the MySQL repositories
// so service and handler tests run without a database.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/edu-platform/internal/catalog"
	"github.com/iliyamo/edu-platform/internal/model"
	"github.com/iliyamo/edu-platform/internal/repository"
)

// Accounts mirrors repository.AccountRepo.
type Accounts struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]*model.Account
}

func NewAccounts() *Accounts { return &Accounts{byID: map[uint64]*model.Account{}} }

func (s *Accounts) Create(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.Email = repository.NormalizeEmail(a.Email)
	for _, o := range s.byID {
		if o.UniqueCode == a.UniqueCode {
			return repository.ErrDuplicate
		}
		if o.Kind == a.Kind && (o.Email == a.Email || (a.Phone != "" && o.Phone == a.Phone)) {
			return repository.ErrDuplicate
		}
	}
	s.nextID++
	a.ID = s.nextID
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	s.byID[a.ID] = &cp
	return nil
}

func (s *Accounts) GetByID(_ context.Context, id uint64) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Accounts) FindByIdentifier(_ context.Context, kind model.Kind, identifier string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identifier = strings.TrimSpace(identifier)
	match := []func(*model.Account) bool{
		func(a *model.Account) bool { return a.Phone != "" && a.Phone == identifier },
		func(a *model.Account) bool { return a.Email == repository.NormalizeEmail(identifier) },
		func(a *model.Account) bool { return a.UniqueCode == strings.ToUpper(identifier) },
	}
	for _, m := range match {
		for _, id := range s.sortedIDs() {
			if a := s.byID[id]; a.Kind == kind && m(a) {
				cp := *a
				return &cp, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Accounts) FindByEmail(_ context.Context, kind model.Kind, email string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, id := range s.sortedIDs() {
		if a := s.byID[id]; a.Kind == kind && a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Accounts) PhoneOrEmailTaken(_ context.Context, kind model.Kind, phone, email string, excludeID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for id, a := range s.byID {
		if id == excludeID || a.Kind != kind {
			continue
		}
		if a.Email == email || (a.Phone != "" && a.Phone == phone) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Accounts) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byID {
		if a.UniqueCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *Accounts) UpdateProfile(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cp := *a
	cp.PasswordHash = cur.PasswordHash
	cp.UpdatedAt = time.Now().UTC()
	s.byID[a.ID] = &cp
	return nil
}

func (s *Accounts) UpdatePassword(_ context.Context, id uint64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (s *Accounts) sortedIDs() []uint64 {
	ids := make([]uint64, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type tokenRow struct {
	hash string
	exp  time.Time
}

// Tokens mirrors repository.TokenRepo. Every method holds one lock, which
// gives Rotate the same all-or-nothing behavior as the SQL transaction.
type Tokens struct {
	mu   sync.Mutex
	rows map[uint64][]tokenRow
	now  func() time.Time
}

func NewTokens() *Tokens { return &Tokens{rows: map[uint64][]tokenRow{}, now: time.Now} }

func (s *Tokens) prune(accountID uint64) {
	live := s.rows[accountID][:0]
	for _, r := range s.rows[accountID] {
		if r.exp.After(s.now()) {
			live = append(live, r)
		}
	}
	s.rows[accountID] = live
}

func (s *Tokens) Push(_ context.Context, accountID uint64, tokenHash string, exp time.Time, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(accountID)
	if limit > 0 && len(s.rows[accountID]) >= limit {
		return repository.ErrSessionLimit
	}
	s.rows[accountID] = append(s.rows[accountID], tokenRow{hash: tokenHash, exp: exp})
	return nil
}

func (s *Tokens) Rotate(_ context.Context, accountID uint64, oldHash, newHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.remove(accountID, oldHash) {
		return repository.ErrTokenNotActive
	}
	s.rows[accountID] = append(s.rows[accountID], tokenRow{hash: newHash, exp: exp})
	return nil
}

func (s *Tokens) Pull(_ context.Context, accountID uint64, tokenHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(accountID, tokenHash), nil
}

func (s *Tokens) remove(accountID uint64, hash string) bool {
	rows := s.rows[accountID]
	for i, r := range rows {
		if r.hash == hash {
			s.rows[accountID] = append(rows[:i:i], rows[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Tokens) Clear(_ context.Context, accountID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, accountID)
	return nil
}

func (s *Tokens) Count(_ context.Context, accountID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(accountID)
	return len(s.rows[accountID]), nil
}

// Has reports whether tokenHash is in the active list of accountID.
func (s *Tokens) Has(accountID uint64, tokenHash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows[accountID] {
		if r.hash == tokenHash {
			return true
		}
	}
	return false
}

// Receipts mirrors repository.ReceiptRepo.
type Receipts struct {
	mu   sync.Mutex
	rows []*model.Receipt
}

func NewReceipts() *Receipts { return &Receipts{} }

func (s *Receipts) Create(_ context.Context, rc *model.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(rc)
	return nil
}

func (s *Receipts) insert(rc *model.Receipt) {
	rc.ID = uint64(len(s.rows) + 1)
	cp := *rc
	s.rows = append(s.rows, &cp)
}

func (s *Receipts) ListByStudent(_ context.Context, studentID uint64) ([]*model.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.Receipt{}
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].StudentID == studentID {
			cp := *s.rows[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Receipts) ListByStudentAndType(_ context.Context, studentID uint64, receiptType string) ([]*model.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.Receipt{}
	for _, rc := range s.rows {
		if rc.StudentID == studentID && rc.ReceiptType == receiptType {
			cp := *rc
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Len returns the number of stored receipts.
func (s *Receipts) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Payments mirrors repository.PaymentRepo. Settle writes into the linked
// Receipts so a paid callback shows up in receipt listings.
type Payments struct {
	mu       sync.Mutex
	byOrder  map[string]*model.Payment
	receipts *Receipts
}

func NewPayments(receipts *Receipts) *Payments {
	return &Payments{byOrder: map[string]*model.Payment{}, receipts: receipts}
}

func (s *Payments) Create(_ context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byOrder[p.MerchantOrderID]; ok {
		return repository.ErrDuplicate
	}
	p.ID = uint64(len(s.byOrder) + 1)
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.byOrder[p.MerchantOrderID] = &cp
	return nil
}

func (s *Payments) GetByOrderID(_ context.Context, orderID string) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byOrder[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Payments) Settle(_ context.Context, orderID string, status model.PaymentStatus, gatewayRef string, receipt *model.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byOrder[orderID]
	if !ok || p.Status != model.PaymentPending {
		return repository.ErrAlreadySettled
	}
	p.Status = status
	p.GatewayReference = gatewayRef
	p.UpdatedAt = time.Now().UTC()
	if receipt != nil {
		s.receipts.mu.Lock()
		s.receipts.insert(receipt)
		s.receipts.mu.Unlock()
	}
	return nil
}

// CatalogStore mirrors repository.CatalogRepo by keeping a deep copy of the
// document and a version counter. StaleSaves makes the next n saves fail
// with catalog.ErrStaleVersion.
type CatalogStore struct {
	mu         sync.Mutex
	doc        []byte
	version    uint64
	StaleSaves int
	Saves      int
}

func NewCatalogStore() *CatalogStore { return &CatalogStore{} }

func (s *CatalogStore) Load(_ context.Context) (*catalog.Catalog, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return catalog.New(), 0, nil
	}
	c, err := catalog.Unmarshal(s.doc)
	return c, s.version, err
}

func (s *CatalogStore) Save(_ context.Context, c *catalog.Catalog, expected uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StaleSaves > 0 {
		s.StaleSaves--
		s.version++
		return 0, catalog.ErrStaleVersion
	}
	if expected != s.version {
		return 0, catalog.ErrStaleVersion
	}
	doc, err := catalog.Marshal(c)
	if err != nil {
		return 0, err
	}
	s.doc = doc
	s.version++
	s.Saves++
	return s.version, nil
}

// Notifier records password-reset codes instead of sending them.
type Notifier struct {
	mu    sync.Mutex
	codes map[string]string
	sent  chan string
}

func NewNotifier() *Notifier {
	return &Notifier{codes: map[string]string{}, sent: make(chan string, 16)}
}

func (n *Notifier) SendPasswordResetCode(_ context.Context, email, _ string, code string, _ time.Duration) error {
	n.mu.Lock()
	n.codes[email] = code
	n.mu.Unlock()
	n.sent <- email
	return nil
}

// WaitCode blocks until a code for email was sent or the timeout passes.
func (n *Notifier) WaitCode(email string, timeout time.Duration) (string, bool) {
	deadline := time.After(timeout)
	for {
		n.mu.Lock()
		code, ok := n.codes[email]
		n.mu.Unlock()
		if ok {
			return code, true
		}
		select {
		case <-n.sent:
		case <-deadline:
			return "", false
		}
	}
}
