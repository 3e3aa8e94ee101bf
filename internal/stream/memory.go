package stream

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultVisibility — окно видимости по умолчанию: через сколько
// неподтверждённая запись снова выдаётся группе.
const DefaultVisibility = 30 * time.Second

// MemoryOptions — настройки in-memory брокера.
type MemoryOptions struct {
	// Visibility — окно видимости (default: DefaultVisibility).
	Visibility time.Duration

	// Now — источник времени для pending-списка (default: time.Now).
	// В тестах подменяется, чтобы проверять повторную выдачу без sleep.
	Now func() time.Time
}

// Memory — брокер в памяти процесса с семантикой потоков и consumer groups.
//
// Используется в тестах и в однопроцессном режиме (mosaic-local).
// Данные не переживают рестарт процесса.
type Memory struct {
	mu         sync.Mutex
	streams    map[string]*memStream
	notify     chan struct{}
	visibility time.Duration
	now        func() time.Time
	closed     bool
}

type memStream struct {
	entries []memEntry
	seq     uint64
	groups  map[string]*memGroup
}

type memEntry struct {
	seq    uint64
	fields map[string]string
}

type memGroup struct {
	lastDelivered uint64
	consumers     map[string]struct{}
	pending       map[uint64]*memPending
}

type memPending struct {
	consumer    string
	deliveredAt time.Time
	deliveries  int
}

var _ Broker = (*Memory)(nil)

// NewMemory создаёт пустой брокер.
func NewMemory(opts MemoryOptions) *Memory {
	visibility := opts.Visibility
	if visibility <= 0 {
		visibility = DefaultVisibility
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Memory{
		streams:    make(map[string]*memStream),
		notify:     make(chan struct{}),
		visibility: visibility,
		now:        now,
	}
}

// Append добавляет запись. Поток создаётся при первой записи.
func (m *Memory) Append(_ context.Context, stream string, fields map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrClosed
	}

	s := m.streamLocked(stream)
	s.seq++
	s.entries = append(s.entries, memEntry{seq: s.seq, fields: maps.Clone(fields)})
	m.broadcastLocked()

	return formatMemID(s.seq), nil
}

// Read возвращает записи после курсора after.
func (m *Memory) Read(ctx context.Context, stream, after string, count int, block time.Duration) ([]Entry, error) {
	afterSeq, err := parseMemID(after)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(block)
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrClosed
		}

		var entries []Entry
		if s, ok := m.streams[stream]; ok {
			entries = s.after(afterSeq, count)
		}
		notify := m.notify
		m.mu.Unlock()

		if len(entries) > 0 {
			return entries, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		if err := wait(ctx, notify, remaining); err != nil {
			return nil, err
		}
	}
}

// CreateGroup создаёт группу в начале потока.
func (m *Memory) CreateGroup(_ context.Context, stream, group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	s := m.streamLocked(stream)
	if _, ok := s.groups[group]; ok {
		return nil
	}
	s.groups[group] = &memGroup{
		consumers: make(map[string]struct{}),
		pending:   make(map[uint64]*memPending),
	}
	return nil
}

// ReadGroup выдаёт записи члену группы.
func (m *Memory) ReadGroup(ctx context.Context, stream, group, consumer string, count int, block time.Duration) ([]Entry, error) {
	if count <= 0 {
		count = 1
	}

	deadline := time.Now().Add(block)
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrClosed
		}

		s, ok := m.streams[stream]
		if !ok || s.groups[group] == nil {
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: %s/%s", ErrNoGroup, stream, group)
		}
		g := s.groups[group]
		g.consumers[consumer] = struct{}{}

		now := m.now()
		entries := m.claimLocked(s, g, consumer, count, now)
		if len(entries) == 0 {
			entries = m.deliverLocked(s, g, consumer, count, now)
		}
		wake := m.nextExpiryLocked(g, now)
		notify := m.notify
		m.mu.Unlock()

		if len(entries) > 0 {
			return entries, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		if wake > 0 && wake < remaining {
			remaining = wake
		}
		if err := wait(ctx, notify, remaining); err != nil {
			return nil, err
		}
	}
}

// claimLocked перехватывает pending-записи, простоявшие дольше окна видимости.
func (m *Memory) claimLocked(s *memStream, g *memGroup, consumer string, count int, now time.Time) []Entry {
	seqs := slices.Sorted(maps.Keys(g.pending))

	var entries []Entry
	for _, seq := range seqs {
		if len(entries) >= count {
			break
		}
		p := g.pending[seq]
		if now.Sub(p.deliveredAt) < m.visibility {
			continue
		}

		e, ok := s.get(seq)
		if !ok {
			// запись удалена из потока — подтверждать нечего
			delete(g.pending, seq)
			continue
		}

		p.consumer = consumer
		p.deliveredAt = now
		p.deliveries++
		entries = append(entries, e)
	}
	return entries
}

// deliverLocked выдаёт новые записи после позиции группы.
func (m *Memory) deliverLocked(s *memStream, g *memGroup, consumer string, count int, now time.Time) []Entry {
	entries := s.after(g.lastDelivered, count)
	for _, e := range entries {
		seq, _ := parseMemID(e.ID)
		g.pending[seq] = &memPending{consumer: consumer, deliveredAt: now, deliveries: 1}
		g.lastDelivered = seq
	}
	return entries
}

// nextExpiryLocked возвращает время до истечения ближайшей pending-записи.
func (m *Memory) nextExpiryLocked(g *memGroup, now time.Time) time.Duration {
	var next time.Duration
	for _, p := range g.pending {
		d := p.deliveredAt.Add(m.visibility).Sub(now)
		if d <= 0 {
			d = time.Millisecond
		}
		if next == 0 || d < next {
			next = d
		}
	}
	return next
}

// Ack подтверждает записи.
func (m *Memory) Ack(_ context.Context, stream, group string, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	s, ok := m.streams[stream]
	if !ok || s.groups[group] == nil {
		return nil
	}
	g := s.groups[group]

	for _, id := range ids {
		seq, err := parseMemID(id)
		if err != nil {
			return err
		}
		delete(g.pending, seq)
	}
	return nil
}

// Delete удаляет потоки и их группы.
func (m *Memory) Delete(_ context.Context, streams ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	for _, name := range streams {
		delete(m.streams, name)
	}
	m.broadcastLocked()
	return nil
}

// Info возвращает сведения о потоке.
func (m *Memory) Info(_ context.Context, stream string) (*Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	info := &Info{Name: stream}
	s, ok := m.streams[stream]
	if !ok {
		return info, nil
	}

	info.Exists = true
	info.Length = int64(len(s.entries))
	if n := len(s.entries); n > 0 {
		info.FirstID = formatMemID(s.entries[0].seq)
		info.LastID = formatMemID(s.entries[n-1].seq)
	}

	names := slices.Sorted(maps.Keys(s.groups))
	for _, name := range names {
		g := s.groups[name]
		info.Groups = append(info.Groups, GroupInfo{
			Name:            name,
			Consumers:       int64(len(g.consumers)),
			Pending:         int64(len(g.pending)),
			LastDeliveredID: formatMemID(g.lastDelivered),
		})
	}
	return info, nil
}

// Deliveries возвращает, сколько раз запись выдавалась группе
// (0 — запись не в pending-списке).
func (m *Memory) Deliveries(stream, group, id string) int {
	seq, err := parseMemID(id)
	if err != nil {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.streams[stream]
	if !ok || s.groups[group] == nil {
		return 0
	}
	if p, ok := s.groups[group].pending[seq]; ok {
		return p.deliveries
	}
	return 0
}

// Close закрывает брокер и будит всех ожидающих.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		m.broadcastLocked()
	}
	return nil
}

func (m *Memory) streamLocked(name string) *memStream {
	s, ok := m.streams[name]
	if !ok {
		s = &memStream{groups: make(map[string]*memGroup)}
		m.streams[name] = s
	}
	return s
}

// broadcastLocked будит всех, кто ждёт изменений.
func (m *Memory) broadcastLocked() {
	close(m.notify)
	m.notify = make(chan struct{})
}

// after возвращает до count записей с seq больше afterSeq.
func (s *memStream) after(afterSeq uint64, count int) []Entry {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].seq > afterSeq
	})

	var entries []Entry
	for ; i < len(s.entries); i++ {
		if count > 0 && len(entries) >= count {
			break
		}
		e := s.entries[i]
		entries = append(entries, Entry{ID: formatMemID(e.seq), Fields: maps.Clone(e.fields)})
	}
	return entries
}

func (s *memStream) get(seq uint64) (Entry, bool) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].seq >= seq
	})
	if i == len(s.entries) || s.entries[i].seq != seq {
		return Entry{}, false
	}
	return Entry{ID: formatMemID(seq), Fields: maps.Clone(s.entries[i].fields)}, true
}

func wait(ctx context.Context, notify <-chan struct{}, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-notify:
		return nil
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ID в памяти выглядят как ID Redis Streams: "<seq>-0".
func formatMemID(seq uint64) string {
	return strconv.FormatUint(seq, 10) + "-0"
}

func parseMemID(id string) (uint64, error) {
	if id == "" || id == Start {
		return 0, nil
	}
	head, _, _ := strings.Cut(id, "-")
	seq, err := strconv.ParseUint(head, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return seq, nil
}
