package billing

import (
	"context"
	"time"

	"github.com/ManuelReschke/PixelVault/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing services.
type Repository interface {
	WithContext(ctx context.Context) Repository
	Transaction(fn func(r Repository) error) error
	GetSubscription(userID uint) (*models.Subscription, error)
	GetSubscriptionForUpdate(userID uint) (*models.Subscription, error)
	CreateSubscription(sub *models.Subscription) error
	SaveSubscription(sub *models.Subscription) error
	SetAutoRenew(userID uint, autoRenew bool, cancelReason string) (bool, error)
	GetOrCreateUserSettings(userID uint) (*models.UserSettings, error)
	SaveUserSettings(us *models.UserSettings) error
	CreateCallbackEventIfNotExists(event *models.PaymentCallbackEvent) (bool, *models.PaymentCallbackEvent, error)
	MarkCallbackProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithContext(ctx context.Context) Repository {
	return &gormRepository{db: r.db.WithContext(ctx)}
}

func (r *gormRepository) Transaction(fn func(r Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) GetSubscription(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriptionForUpdate(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) CreateSubscription(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) SaveSubscription(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

// SetAutoRenew flips auto_renew only when it differs from the target and
// reports whether a row changed. expires_at is never part of this update.
func (r *gormRepository) SetAutoRenew(userID uint, autoRenew bool, cancelReason string) (bool, error) {
	res := r.db.Model(&models.Subscription{}).
		Where("user_id = ? AND auto_renew = ?", userID, !autoRenew).
		Updates(map[string]interface{}{
			"auto_renew":    autoRenew,
			"cancel_reason": cancelReason,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormRepository) GetOrCreateUserSettings(userID uint) (*models.UserSettings, error) {
	return models.GetOrCreateUserSettings(r.db, userID)
}

func (r *gormRepository) SaveUserSettings(us *models.UserSettings) error {
	return r.db.Save(us).Error
}

func (r *gormRepository) CreateCallbackEventIfNotExists(event *models.PaymentCallbackEvent) (bool, *models.PaymentCallbackEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "order_no"},
			{Name: "payload_hash"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	if !created {
		if err := r.db.Model(&models.PaymentCallbackEvent{}).
			Where("order_no = ? AND payload_hash = ?", event.OrderNo, event.PayloadHash).
			UpdateColumn("deliveries", gorm.Expr("deliveries + 1")).Error; err != nil {
			return false, nil, err
		}
	}
	var stored models.PaymentCallbackEvent
	if err := r.db.Where("order_no = ? AND payload_hash = ?", event.OrderNo, event.PayloadHash).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkCallbackProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentCallbackEvent{}).Where("id = ?", id).Updates(updates).Error
}
