package container

import (
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/infrastructure/metrics"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/garyjia/expense-approval/internal/interfaces/http"
	"github.com/garyjia/expense-approval/pkg/database"
	"github.com/garyjia/expense-approval/pkg/utils"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqlite.DB
	Version        uint
}

// ProvideDatabase opens the database, applies the embedded migrations and
// wraps the connection in a transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(conn, logger)
	if err := migrator.Up(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	version, err := migrator.Version()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
		Version:        version,
	}, nil
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Companies port.CompanyRepository
	Users     port.UserRepository
	Flows     port.FlowRepository
	Expenses  port.ExpenseRepository
	Approvals port.ApprovalRepository
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(conn *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if conn == nil || conn.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Companies: repository.NewCompanyRepository(conn.DB, logger),
		Users:     repository.NewUserRepository(conn.DB, logger),
		Flows:     repository.NewFlowRepository(conn.DB, logger),
		Expenses:  repository.NewExpenseRepository(conn.DB, logger),
		Approvals: repository.NewApprovalRepository(conn.DB, logger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher with the audit log and metrics subscribers.
func ProvideDispatcher(logger *zap.Logger, metricsEnabled bool) dispatcher.Dispatcher {
	kv := utils.NewKVLogger(logger.Named("events"))
	d := dispatcher.NewDispatcher(dispatcher.WithLogger(kv))

	d.SubscribeAll("audit-log", dispatcher.NewAuditLogHandler(kv))
	if metricsEnabled {
		d.SubscribeAll("metrics", metrics.EventHandler)
	}
	return d
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Users     service.UserService
	Flows     service.FlowService
	Expenses  service.ExpenseService
	Approvals service.ApprovalService
}

// ProvideServices wires the application services to the repositories, the engine and the dispatcher.
func ProvideServices(
	cfg *ApprovalConfig,
	repos *RepositoryBundle,
	txManager port.TransactionManager,
	engine *approval.Engine,
	publisher service.Publisher,
	logger *zap.Logger,
) (*ServiceBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("approval config is required")
	}
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if txManager == nil || engine == nil || publisher == nil {
		return nil, fmt.Errorf("transaction manager, engine and publisher are required")
	}

	kv := utils.NewKVLogger(logger.Named("service"))

	return &ServiceBundle{
		Users: service.NewUserService(
			repos.Users,
			repos.Companies,
			txManager,
			cfg.BootstrapCompanyName,
			cfg.DefaultCurrency,
			kv,
		),
		Flows: service.NewFlowService(repos.Flows, repos.Users, txManager, kv),
		Expenses: service.NewExpenseService(
			repos.Expenses,
			repos.Approvals,
			repos.Flows,
			repos.Users,
			repos.Companies,
			txManager,
			engine,
			publisher,
			kv,
			service.WithDefaultCurrency(cfg.DefaultCurrency),
		),
		Approvals: service.NewApprovalService(
			repos.Expenses,
			repos.Approvals,
			repos.Flows,
			repos.Users,
			txManager,
			engine,
			publisher,
			kv,
			service.WithMaxDecisionRetries(cfg.MaxDecisionRetries),
			service.WithConflictHook(func(string) {
				metrics.DecisionConflictsTotal.Inc()
			}),
		),
	}, nil
}

// ProvideHTTPServer creates the gin server over the service bundle.
func ProvideHTTPServer(cfg *Config, services *ServiceBundle, logger *zap.Logger) *httpserver.Server {
	return httpserver.NewServer(
		httpserver.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			MetricsEnabled:  cfg.Metrics.Enabled,
			MetricsPath:     cfg.Metrics.Path,
		},
		httpserver.Services{
			Users:     services.Users,
			Flows:     services.Flows,
			Expenses:  services.Expenses,
			Approvals: services.Approvals,
		},
		utils.NewKVLogger(logger.Named("http")),
	)
}
