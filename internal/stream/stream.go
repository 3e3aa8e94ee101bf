package stream

import (
	"context"
	"maps"
	"time"
)

// Start — курсор "с начала потока".
const Start = "0"

// Entry — запись потока: назначенный брокером ID и плоская карта полей.
type Entry struct {
	ID     string
	Fields map[string]string
}

// Clone возвращает копию записи с собственной картой полей.
func (e Entry) Clone() Entry {
	return Entry{ID: e.ID, Fields: maps.Clone(e.Fields)}
}

// Appender добавляет записи в поток.
type Appender interface {
	// Append добавляет запись и возвращает её ID.
	// ID монотонно растёт в пределах потока.
	Append(ctx context.Context, stream string, fields map[string]string) (string, error)
}

// Tailer читает поток по собственному курсору.
type Tailer interface {
	// Read возвращает до count записей с ID больше after.
	// Если записей нет, ждёт до block; истёкшее ожидание — (nil, nil).
	Read(ctx context.Context, stream, after string, count int, block time.Duration) ([]Entry, error)
}

// GroupConsumer — конкурирующие потребители через consumer group.
//
// Каждая запись в каждый момент выдана ровно одному члену группы.
// Выданная, но не подтверждённая запись попадает в pending-список и
// выдаётся повторно (возможно, другому члену), если не подтверждена
// за окно видимости.
type GroupConsumer interface {
	// CreateGroup создаёт группу с позицией в начале потока.
	// Создаёт поток, если его нет. Существующая группа — не ошибка.
	CreateGroup(ctx context.Context, stream, group string) error

	// ReadGroup выдаёт до count записей члену группы consumer.
	// Сначала перехватываются просроченные pending-записи, затем новые.
	// Истёкшее ожидание — (nil, nil).
	ReadGroup(ctx context.Context, stream, group, consumer string, count int, block time.Duration) ([]Entry, error)

	// Ack подтверждает записи. Повторный Ack — не ошибка.
	Ack(ctx context.Context, stream, group string, ids ...string) error
}

// Admin — служебные операции над потоками.
type Admin interface {
	// Delete удаляет потоки вместе с их группами.
	Delete(ctx context.Context, streams ...string) error

	// Info возвращает сведения о потоке. Для несуществующего потока —
	// Info с Exists=false.
	Info(ctx context.Context, stream string) (*Info, error)
}

// Broker — всё, что ядру нужно от брокера.
type Broker interface {
	Appender
	Tailer
	GroupConsumer
	Admin

	Close() error
}

// Info — сведения о потоке.
type Info struct {
	Name    string
	Exists  bool
	Length  int64
	FirstID string
	LastID  string
	Groups  []GroupInfo
}

// GroupInfo — сведения о consumer group.
type GroupInfo struct {
	Name            string
	Consumers       int64
	Pending         int64
	LastDeliveredID string
}

// Pending возвращает суммарное число неподтверждённых записей.
func (i *Info) Pending() int64 {
	var n int64
	for _, g := range i.Groups {
		n += g.Pending
	}
	return n
}
