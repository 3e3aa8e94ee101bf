package domain

// WorkerState — состояние воркера.
//
// Переходы:
//
//	POLLING → TERMINATED
type WorkerState string

const (
	// WorkerStatePolling — воркер ждёт сообщение из очереди работ.
	WorkerStatePolling WorkerState = "POLLING"

	// WorkerStateTerminated — воркер завершился и больше не читает очередь.
	WorkerStateTerminated WorkerState = "TERMINATED"
)

// TerminationReason — почему воркер перешёл в TERMINATED.
type TerminationReason string

const (
	// ReasonDrained — ожидание истекло, сообщений нет: очередь пуста
	// для этого воркера.
	ReasonDrained TerminationReason = "drained"

	// ReasonResolved — обработанная область не дала ни одной четверти
	// для повторной публикации: ветка разбиения исчерпана.
	ReasonResolved TerminationReason = "resolved"

	// ReasonCancelled — внешний сигнал остановки.
	ReasonCancelled TerminationReason = "cancelled"
)

// IsValid проверяет, что причина известна.
func (r TerminationReason) IsValid() bool {
	switch r {
	case ReasonDrained, ReasonResolved, ReasonCancelled:
		return true
	}
	return false
}
