package repository

import (
	"github.com/coinkart/CoinKart/app/models"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a GORM-backed order repository.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByGatewayOrder(gatewayOrder string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("gateway_order = ?", gatewayOrder).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByTransactionID(transactionID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("transaction_id = ?", transactionID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Save(order *models.Order) error {
	return r.db.Save(order).Error
}

func (r *orderRepository) AppendTimeline(entry *models.OrderTimelineEntry) error {
	return r.db.Create(entry).Error
}

func (r *orderRepository) AddFlag(flag *models.OrderFlag) error {
	return r.db.Create(flag).Error
}
