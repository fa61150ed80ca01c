package repository

import "context"

// Repositories - набор репозиториев, работающих в одной транзакции или вне ее.
type Repositories struct {
	Orders     OrderRepository
	Payments   PaymentRepository
	Executions ExecutionRepository
	Disputes   DisputeRepository
	Audit      AuditRepository
	Events     OrderEventRepository
	Services   ServiceCatalog
}

// Store - хранилище леджера. WithinTx выполняет fn атомарно: при ошибке
// ни одна запись, сделанная через переданные репозитории, не сохраняется.
type Store interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
}
