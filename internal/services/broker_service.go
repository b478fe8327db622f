package services

import (
	"context"
	"errors"
	"strings"

	"github.com/Cyvadra/signal-relay/broker"
	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BrokerConfigRequest is the payload for configuring a broker
type BrokerConfigRequest struct {
	BrokerName  string `json:"broker_name"`
	APIKey      string `json:"api_key"`
	APISecret   string `json:"api_secret"`
	AccessToken string `json:"access_token,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// BrokerService persists broker credentials and keeps the broker manager in
// step with them
type BrokerService struct {
	db      *gorm.DB
	manager *broker.Manager
	logger  *logrus.Entry
}

// NewBrokerService creates a new broker service
func NewBrokerService(db *gorm.DB, manager *broker.Manager, logger *logrus.Entry) *BrokerService {
	return &BrokerService{
		db:      db,
		manager: manager,
		logger:  logger.WithField("component", "broker_service"),
	}
}

// Upsert stores credentials keyed by broker name. An active broker is
// authenticated and made available to the router; an inactive one is removed.
func (s *BrokerService) Upsert(ctx context.Context, req *BrokerConfigRequest) (*models.BrokerConfig, error) {
	name := strings.ToLower(strings.TrimSpace(req.BrokerName))
	if name == "" {
		return nil, validationErrorf("missing required field %q", "broker_name")
	}
	if req.APIKey == "" || req.APISecret == "" {
		return nil, validationErrorf("api_key and api_secret are required")
	}
	if !isRegistered(name) {
		return nil, validationErrorf("unknown broker %q", name)
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	cfg := &models.BrokerConfig{
		BrokerName:  name,
		APIKey:      req.APIKey,
		APISecret:   req.APISecret,
		AccessToken: req.AccessToken,
		IsActive:    active,
	}

	// authenticate before persisting so a rejected credential set is not stored as active
	if active {
		if err := s.manager.Configure(ctx, name, credentialsOf(cfg)); err != nil {
			return nil, &ExecutionError{Broker: name, Err: broker.AsBrokerError(name, err)}
		}
	} else {
		s.manager.Remove(name)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "broker_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"api_key", "api_secret", "access_token", "is_active", "updated_at"}),
	}).Create(cfg).Error
	if err != nil {
		if active {
			// no adapter may route orders without stored credentials behind it
			s.manager.Remove(name)
		}
		return nil, &PersistenceError{Op: "upsert_broker_config", Err: err}
	}

	stored, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"broker": name, "active": active}).Info("broker configured")
	return stored, nil
}

// Get returns the stored configuration of a broker
func (s *BrokerService) Get(ctx context.Context, name string) (*models.BrokerConfig, error) {
	var cfg models.BrokerConfig
	err := s.db.WithContext(ctx).Where("broker_name = ?", name).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, broker.ErrBrokerNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get_broker_config", Err: err}
	}
	return &cfg, nil
}

// List returns every stored broker configuration
func (s *BrokerService) List(ctx context.Context) ([]models.BrokerConfig, error) {
	configs := make([]models.BrokerConfig, 0)
	if err := s.db.WithContext(ctx).Order("broker_name ASC").Find(&configs).Error; err != nil {
		return nil, &PersistenceError{Op: "list_broker_configs", Err: err}
	}
	return configs, nil
}

// LoadActive authenticates every stored active broker into the manager.
// Brokers that fail to authenticate are logged and skipped.
func (s *BrokerService) LoadActive(ctx context.Context) (int, error) {
	var configs []models.BrokerConfig
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&configs).Error; err != nil {
		return 0, &PersistenceError{Op: "load_broker_configs", Err: err}
	}

	loaded := 0
	for i := range configs {
		cfg := &configs[i]
		if err := s.manager.Configure(ctx, cfg.BrokerName, credentialsOf(cfg)); err != nil {
			s.logger.WithError(err).WithField("broker", cfg.BrokerName).Warn("failed to load broker")
			continue
		}
		loaded++
	}
	return loaded, nil
}

func credentialsOf(cfg *models.BrokerConfig) *broker.Credentials {
	return &broker.Credentials{
		APIKey:      cfg.APIKey,
		APISecret:   cfg.APISecret,
		AccessToken: cfg.AccessToken,
	}
}

func isRegistered(name string) bool {
	for _, registered := range broker.RegisteredBrokers() {
		if registered == name {
			return true
		}
	}
	return false
}
