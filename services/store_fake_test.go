package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu        sync.Mutex
	settings  map[string]*Settings
	quotes    map[string]*Quote
	articles  []Article
	customers []Customer
	seq       int

	// failOn makes the named method return an error.
	failOn map[string]error
	// block makes the named method wait for ctx cancellation.
	block map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		settings: map[string]*Settings{},
		quotes:   map[string]*Quote{},
		failOn:   map[string]error{},
		block:    map[string]bool{},
	}
}

func (m *memStore) hook(ctx context.Context, name string) error {
	m.mu.Lock()
	err, block := m.failOn[name], m.block[name]
	m.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (m *memStore) LoadSettings(ctx context.Context, sess Session) (*Settings, error) {
	if err := m.hook(ctx, "LoadSettings"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[sess.OperatorID]
	if !ok {
		s = DefaultSettings(sess.OperatorID, time.Now())
		m.settings[sess.OperatorID] = s
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) SaveSettings(ctx context.Context, sess Session, s *Settings) (*Settings, error) {
	if err := m.hook(ctx, "SaveSettings"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.OperatorID = sess.OperatorID
	m.settings[sess.OperatorID] = &cp
	return &cp, nil
}

func (m *memStore) GetQuote(ctx context.Context, sess Session, id string) (*Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok || q.OperatorID != sess.OperatorID {
		return nil, ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (m *memStore) LastQuote(ctx context.Context, sess Session) (*Quote, error) {
	if err := m.hook(ctx, "LastQuote"); err != nil {
		return nil, err
	}
	list, _ := m.ListQuotes(ctx, sess, QuoteFilter{})
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (m *memStore) ListQuotes(ctx context.Context, sess Session, f QuoteFilter) ([]Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Quote
	for _, q := range m.quotes {
		if q.OperatorID != sess.OperatorID || q.DeletedAt != nil {
			continue
		}
		s := strings.ToLower(f.Search)
		if s != "" && !strings.Contains(strings.ToLower(q.Number), s) && !strings.Contains(strings.ToLower(q.Customer.Name), s) {
			continue
		}
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) CreateQuote(ctx context.Context, sess Session, q *Quote, usage AttachmentUsage) (*Quote, error) {
	if err := m.hook(ctx, "CreateQuote"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.settings[sess.OperatorID]
	if s == nil {
		s = DefaultSettings(sess.OperatorID, time.Now())
		m.settings[sess.OperatorID] = s
	}

	m.seq++
	cp := *q
	cp.ID = fmt.Sprintf("q%d", m.seq)
	cp.OperatorID = sess.OperatorID
	cp.Number = ResolveDisplayNumber(q.Number, s)
	cp.CreatedAt = time.Unix(int64(m.seq), 0)
	m.quotes[cp.ID] = &cp

	s.NextQuoteNumber++
	s.AttachmentDefaults = s.AttachmentDefaults.Remember(usage)

	out := cp
	return &out, nil
}

func (m *memStore) UpdateQuote(ctx context.Context, sess Session, q *Quote) (*Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.quotes[q.ID]
	if !ok || prev.OperatorID != sess.OperatorID {
		return nil, ErrNotFound
	}
	cp := *q
	cp.CreatedAt = prev.CreatedAt
	m.quotes[q.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) TrashQuote(ctx context.Context, sess Session, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	q.DeletedAt = &now
	return nil
}

func (m *memStore) RestoreQuote(ctx context.Context, sess Session, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return ErrNotFound
	}
	q.DeletedAt = nil
	return nil
}

func (m *memStore) DeleteQuote(ctx context.Context, sess Session, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.quotes, id)
	return nil
}

func (m *memStore) ListTrash(ctx context.Context, sess Session) ([]Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Quote
	for _, q := range m.quotes {
		if q.OperatorID == sess.OperatorID && q.DeletedAt != nil {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memStore) PurgeTrash(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, q := range m.quotes {
		if q.DeletedAt != nil && q.DeletedAt.Before(cutoff) {
			delete(m.quotes, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListArticles(ctx context.Context, sess Session, search string) ([]Article, error) {
	if err := m.hook(ctx, "ListArticles"); err != nil {
		return nil, err
	}
	return m.articles, nil
}

func (m *memStore) ListCustomers(ctx context.Context, sess Session, search string) ([]Customer, error) {
	if err := m.hook(ctx, "ListCustomers"); err != nil {
		return nil, err
	}
	return m.customers, nil
}

func (m *memStore) GetCustomer(ctx context.Context, sess Session, id string) (*Customer, error) {
	for _, c := range m.customers {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) SaveArticles(ctx context.Context, sess Session, articles []Article) (int, error) {
	if err := m.hook(ctx, "SaveArticles"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles = append(m.articles, articles...)
	return len(articles), nil
}

func (m *memStore) SaveCustomer(ctx context.Context, sess Session, c *Customer) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	if cp.ID == "" {
		m.seq++
		cp.ID = fmt.Sprintf("c%d", m.seq)
		m.customers = append(m.customers, cp)
		return &cp, nil
	}
	for i := range m.customers {
		if m.customers[i].ID == cp.ID {
			m.customers[i] = cp
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}
