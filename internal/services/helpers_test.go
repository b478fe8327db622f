package services

import (
	"context"
	"io"
	"testing"

	"github.com/Cyvadra/signal-relay/broker"
	"github.com/Cyvadra/signal-relay/internal/database"
	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MockAdapter is a mock implementation of broker.Adapter
type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockAdapter) Authenticate(ctx context.Context, credentials *broker.Credentials) error {
	args := m.Called(ctx, credentials)
	return args.Error(0)
}

func (m *MockAdapter) PlaceOrder(ctx context.Context, req *broker.OrderRequest) (*broker.OrderResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*broker.OrderResult)
	return result, args.Error(1)
}

func (m *MockAdapter) GetPositions(ctx context.Context) ([]broker.Position, error) {
	args := m.Called(ctx)
	positions, _ := args.Get(0).([]broker.Position)
	return positions, args.Error(1)
}

func (m *MockAdapter) CancelOrder(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

// adapterMap is a static AdapterSource
type adapterMap map[string]broker.Adapter

func (m adapterMap) Get(name string) (broker.Adapter, error) {
	adapter, ok := m[name]
	if !ok {
		return nil, broker.ErrBrokerNotFound
	}
	return adapter, nil
}

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// newTestDB returns a migrated in-memory sqlite database. A single
// connection keeps every goroutine on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func quantityStrategy(symbol string, size float64) *models.Strategy {
	return &models.Strategy{
		Name:             "test " + symbol,
		Exchange:         "NSE",
		InstrumentType:   "EQ",
		Symbol:           symbol,
		SignalSource:     SourceChartink,
		PositionSizeType: models.SizeTypeQuantity,
		PositionSize:     size,
		LotSize:          1,
		OrderType:        "MARKET",
		ProductType:      "MIS",
		IsActive:         true,
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
