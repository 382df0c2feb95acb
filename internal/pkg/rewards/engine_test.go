package rewards

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/coinkart/CoinKart/app/models"
)

type fakeRewardRepo struct {
	mu               sync.Mutex
	rule             *models.RewardRule
	attendance       map[string]*models.AttendanceRecord
	grants           map[string]*models.RewardGrant
	grantCount       int64
	nextAttendanceID uint
	nextGrantID      uint
}

func newFakeRewardRepo(rule *models.RewardRule) *fakeRewardRepo {
	return &fakeRewardRepo{
		rule:       rule,
		attendance: make(map[string]*models.AttendanceRecord),
		grants:     make(map[string]*models.RewardGrant),
	}
}

func attendanceKey(eventID, userID uint) string {
	return fmt.Sprintf("%d/%d", eventID, userID)
}

func (f *fakeRewardRepo) FindActiveRule(eventID uint, action string, at time.Time) (*models.RewardRule, error) {
	if f.rule == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.rule, nil
}

func (f *fakeRewardRepo) SaveRule(rule *models.RewardRule) error {
	f.rule = rule
	return nil
}

func (f *fakeRewardRepo) GetOrCreateAttendance(eventID, userID uint) (*models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := attendanceKey(eventID, userID)
	if rec, ok := f.attendance[key]; ok {
		return rec, nil
	}
	f.nextAttendanceID++
	rec := &models.AttendanceRecord{ID: f.nextAttendanceID, EventID: eventID, UserID: userID}
	f.attendance[key] = rec
	return rec, nil
}

func (f *fakeRewardRepo) CountGrantsOn(userID uint, action string, dayStart, dayEnd time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grantCount, nil
}

func (f *fakeRewardRepo) ClaimGrant(grant *models.RewardGrant) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%d/%s", grant.AttendanceRecordID, grant.Action)
	if _, ok := f.grants[key]; ok {
		return false, nil
	}
	f.nextGrantID++
	grant.ID = f.nextGrantID
	f.grants[key] = grant
	return true, nil
}

func (f *fakeRewardRepo) SetGrantTransaction(grantID uint, coinTransactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.grants {
		if g.ID == grantID {
			g.CoinTransactionID = coinTransactionID
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRewardRepo) ReleaseGrant(grantID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, g := range f.grants {
		if g.ID == grantID {
			delete(f.grants, key)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeCoinService struct {
	mu     sync.Mutex
	awards int
	err    error
}

func (f *fakeCoinService) Award(_ context.Context, userID uint, coins int, description string, metadata map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.awards++
	return "txn_1", nil
}

func bookingRule(coins int) *models.RewardRule {
	return &models.RewardRule{
		ID:         1,
		Action:     models.RewardActionBooking,
		Coins:      coins,
		Multiplier: 1,
		DailyLimit: 5,
		IsActive:   true,
	}
}

func TestGrantCredits(t *testing.T) {
	repo := newFakeRewardRepo(bookingRule(50))
	coinSvc := &fakeCoinService{}
	engine := NewEngine(repo, nil, coinSvc)

	result, err := engine.Grant(context.Background(), 7, 3, models.RewardActionBooking, nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCredited, result.Outcome)
	assert.Equal(t, 50, result.Coins)
	assert.Equal(t, "txn_1", result.CoinTransactionID)
	assert.Equal(t, 1, coinSvc.awards)
}

func TestGrantAppliesMultiplier(t *testing.T) {
	rule := bookingRule(50)
	rule.Multiplier = 1.5
	repo := newFakeRewardRepo(rule)
	engine := NewEngine(repo, nil, &fakeCoinService{})

	result, err := engine.Grant(context.Background(), 7, 3, models.RewardActionBooking, nil)
	require.NoError(t, err)
	assert.Equal(t, 75, result.Coins)
}

func TestGrantNoRule(t *testing.T) {
	repo := newFakeRewardRepo(nil)
	coinSvc := &fakeCoinService{}
	engine := NewEngine(repo, nil, coinSvc)

	result, err := engine.Grant(context.Background(), 7, 3, models.RewardActionBooking, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoRule, result.Outcome)
	assert.Zero(t, coinSvc.awards)
}

func TestGrantZeroCoinRuleIsNoRule(t *testing.T) {
	repo := newFakeRewardRepo(bookingRule(0))
	engine := NewEngine(repo, nil, &fakeCoinService{})

	result, err := engine.Grant(context.Background(), 7, 3, models.RewardActionBooking, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoRule, result.Outcome)
}

func TestGrantVerificationGate(t *testing.T) {
	rule := bookingRule(50)
	rule.RequiresVerification = true
	repo := newFakeRewardRepo(rule)
	coinSvc := &fakeCoinService{}
	engine := NewEngine(repo, nil, coinSvc)

	result, err := engine.Grant(context.Background(), 7, 3, models.RewardActionBooking, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerificationRequired, result.Outcome)
	assert.Zero(t, coinSvc.awards)

	// Verified attendance passes the gate
	record, err := repo.GetOrCreateAttendance(3, 7)
	require.NoError(t, err)
	record.Verified = true

	result, err = engine.Grant(context.Background(), 7, 3, models.RewardActionBooking, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCredited, result.Outcome)
}

func TestGrantDailyLimit(t *testing.T) {
	rule := bookingRule(50)
	rule.DailyLimit = 2
	repo := newFakeRewardRepo(rule)
	repo.grantCount = 2
	coinSvc := &fakeCoinService{}
	engine := NewEngine(repo, nil, coinSvc)

	result, err := engine.Grant(context.Background(), 7, 3, models.RewardActionBooking, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeLimitReached, result.Outcome)
	assert.Zero(t, coinSvc.awards)
}

func TestGrantDuplicate(t *testing.T) {
	repo := newFakeRewardRepo(bookingRule(50))
	coinSvc := &fakeCoinService{}
	engine := NewEngine(repo, nil, coinSvc)

	first, err := engine.Grant(context.Background(), 7, 3, models.RewardActionBooking, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCredited, first.Outcome)

	second, err := engine.Grant(context.Background(), 7, 3, models.RewardActionBooking, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.Equal(t, 1, coinSvc.awards, "coins must move exactly once")
}

func TestGrantConcurrentSingleWinner(t *testing.T) {
	repo := newFakeRewardRepo(bookingRule(50))
	coinSvc := &fakeCoinService{}
	engine := NewEngine(repo, nil, coinSvc)

	const attempts = 16
	results := make([]Result, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := engine.Grant(context.Background(), 7, 3, models.RewardActionBooking, nil)
			if err != nil {
				t.Errorf("grant %d errored: %v", i, err)
				return
			}
			results[i] = r
		}(i)
	}
	wg.Wait()

	credited := 0
	for _, r := range results {
		if r.Outcome == OutcomeCredited {
			credited++
		}
	}
	assert.Equal(t, 1, credited, "exactly one concurrent request wins the claim")
	assert.Equal(t, 1, coinSvc.awards)
}

func TestGrantAwardFailureReleasesClaim(t *testing.T) {
	repo := newFakeRewardRepo(bookingRule(50))
	coinSvc := &fakeCoinService{err: errors.New("wallet down")}
	engine := NewEngine(repo, nil, coinSvc)

	_, err := engine.Grant(context.Background(), 7, 3, models.RewardActionBooking, nil)
	require.Error(t, err)
	assert.Empty(t, repo.grants, "failed award must release the claim")

	// A later request succeeds once the wallet recovers
	coinSvc.err = nil
	result, err := engine.Grant(context.Background(), 7, 3, models.RewardActionBooking, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCredited, result.Outcome)
}
