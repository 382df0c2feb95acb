package repository

import (
	"errors"
	"time"

	"github.com/coinkart/CoinKart/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type rewardRepository struct {
	db *gorm.DB
}

// NewRewardRepository creates a GORM-backed reward repository.
func NewRewardRepository(db *gorm.DB) RewardRepository {
	return &rewardRepository{db: db}
}

func (r *rewardRepository) FindActiveRule(eventID uint, action string, at time.Time) (*models.RewardRule, error) {
	// Event-scoped rule wins over the global default.
	var rule models.RewardRule
	err := r.db.
		Where("event_id = ? AND action = ? AND is_active = ?", eventID, action, true).
		First(&rule).Error
	if err == nil && rule.ValidAt(at) {
		return &rule, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = r.db.
		Where("event_id IS NULL AND action = ? AND is_active = ?", action, true).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	if !rule.ValidAt(at) {
		return nil, gorm.ErrRecordNotFound
	}
	return &rule, nil
}

func (r *rewardRepository) SaveRule(rule *models.RewardRule) error {
	return r.db.Save(rule).Error
}

func (r *rewardRepository) GetOrCreateAttendance(eventID, userID uint) (*models.AttendanceRecord, error) {
	record := &models.AttendanceRecord{EventID: eventID, UserID: userID}
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "event_id"},
			{Name: "user_id"},
		},
		DoNothing: true,
	}).Create(record).Error; err != nil {
		return nil, err
	}
	var stored models.AttendanceRecord
	if err := r.db.Where("event_id = ? AND user_id = ?", eventID, userID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *rewardRepository) CountGrantsOn(userID uint, action string, dayStart, dayEnd time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.RewardGrant{}).
		Where("user_id = ? AND action = ? AND granted_at >= ? AND granted_at < ?", userID, action, dayStart, dayEnd).
		Count(&count).Error
	return count, err
}

func (r *rewardRepository) ClaimGrant(grant *models.RewardGrant) (bool, error) {
	// Push-if-absent: the unique index on (attendance_record_id, action) lets
	// exactly one concurrent caller claim the slot; the rest see zero rows.
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "attendance_record_id"},
			{Name: "action"},
		},
		DoNothing: true,
	}).Create(grant)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *rewardRepository) SetGrantTransaction(grantID uint, coinTransactionID string) error {
	return r.db.Model(&models.RewardGrant{}).
		Where("id = ?", grantID).
		Update("coin_transaction_id", coinTransactionID).Error
}

func (r *rewardRepository) ReleaseGrant(grantID uint) error {
	return r.db.Delete(&models.RewardGrant{}, grantID).Error
}
