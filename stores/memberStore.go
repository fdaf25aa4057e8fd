package stores

import (
	"context"
	"fmt"

	"github.com/ShepherdLoop/models"
	"github.com/doug-martin/goqu/v9"
)

// MemberStore reads member and cluster records.
type MemberStore struct {
	db *goqu.Database
}

func NewMemberStore(db *goqu.Database) *MemberStore {
	return &MemberStore{db: db}
}

func (s *MemberStore) FindMemberByID(ctx context.Context, id int) (*models.Member, error) {
	var member models.Member
	found, err := s.db.From("member").
		Where(goqu.C("member_id").Eq(id)).
		ScanStructContext(ctx, &member)
	if err != nil {
		return nil, fmt.Errorf("failed to load member %d: %w", id, err)
	}
	if !found {
		return nil, models.ErrPersonNotFound
	}
	return &member, nil
}

// FindMemberByPhone matches phone, already reduced to digits, against the
// digits of the stored number. The oldest match wins.
func (s *MemberStore) FindMemberByPhone(ctx context.Context, phone string) (*models.Member, error) {
	if phone == "" {
		return nil, models.ErrPersonNotFound
	}

	var member models.Member
	found, err := memberByPhone(s.db.From("member"), phone).ScanStructContext(ctx, &member)
	if err != nil {
		return nil, fmt.Errorf("failed to look up member by phone: %w", err)
	}
	if !found {
		return nil, models.ErrPersonNotFound
	}
	return &member, nil
}

// memberByPhone filters ds to members whose stored number has the digits phone,
// oldest first.
func memberByPhone(ds *goqu.SelectDataset, phone string) *goqu.SelectDataset {
	return ds.
		Where(goqu.L("regexp_replace(phone_number, '[^0-9]', '', 'g')").Eq(phone)).
		Order(goqu.C("member_id").Asc())
}

func (s *MemberStore) FindClusterByID(ctx context.Context, id int) (*models.Cluster, error) {
	var cluster models.Cluster
	found, err := s.db.From("cluster").
		Where(goqu.C("cluster_id").Eq(id)).
		ScanStructContext(ctx, &cluster)
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster %d: %w", id, err)
	}
	if !found {
		return nil, models.ErrClusterNotFound
	}
	return &cluster, nil
}
