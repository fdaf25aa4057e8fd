package stores

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
)

// StaffStore reads staff accounts from user_profile.
type StaffStore struct {
	db *goqu.Database
}

func NewStaffStore(db *goqu.Database) *StaffStore {
	return &StaffStore{db: db}
}

// PrayerTeamIDs returns the active staff who receive prayer request alerts.
func (s *StaffStore) PrayerTeamIDs(ctx context.Context) ([]int, error) {
	ids := []int{}
	err := s.db.From("user_profile").
		Select("user_profile_id").
		Where(
			goqu.C("prayer_team").IsTrue(),
			goqu.C("deleted").IsNotTrue(),
		).
		Order(goqu.C("user_profile_id").Asc()).
		ScanValsContext(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load prayer team: %w", err)
	}
	return ids, nil
}
