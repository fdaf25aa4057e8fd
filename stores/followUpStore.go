package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ShepherdLoop/models"
	"github.com/doug-martin/goqu/v9"
)

const followUpTable = "follow_up"

// followUpRow mirrors the follow_up table. jsonb columns are scanned as raw bytes
// and decoded in toModel.
type followUpRow struct {
	Follow_Up_ID          int        `db:"follow_up_id" goqu:"skipinsert"`
	Person_Type           string     `db:"person_type"`
	Person_ID             *int       `db:"person_id"`
	New_Attendee          []byte     `db:"new_attendee"`
	Status                string     `db:"status"`
	Response_Category     string     `db:"response_category"`
	Required_Attempts     int        `db:"required_attempts"`
	Frequency             string     `db:"frequency"`
	Attempts              []byte     `db:"attempts"`
	Next_Follow_Up_Date   *time.Time `db:"next_follow_up_date"`
	Schedule_End_Date     time.Time  `db:"schedule_end_date"`
	Prayer_Requests       []byte     `db:"prayer_requests"`
	Handed_Off_To_Cluster []byte     `db:"handed_off_to_cluster"`
	Assigned_To           int        `db:"assigned_to"`
	Notes                 *string    `db:"notes"`
	Event_Context         []byte     `db:"event_context"`
	Version               int        `db:"version"`
	Created_By            int        `db:"created_by"`
	Updated_By            int        `db:"updated_by"`
	Datetime_Create       time.Time  `db:"datetime_create"`
	Datetime_Update       time.Time  `db:"datetime_update"`
}

type dueFollowUpRow struct {
	followUpRow
	Assignee_First_Name string `db:"assignee_first_name"`
	Assignee_Last_Name  string `db:"assignee_last_name"`
	Assignee_Username   string `db:"assignee_username"`
	Assignee_Email      string `db:"assignee_email"`
}

// FollowUpStore persists follow-ups in Postgres.
type FollowUpStore struct {
	db *goqu.Database
}

func NewFollowUpStore(db *goqu.Database) *FollowUpStore {
	return &FollowUpStore{db: db}
}

func (s *FollowUpStore) Insert(ctx context.Context, followUp *models.FollowUp) error {
	record, err := followUpRecord(followUp)
	if err != nil {
		return err
	}
	record["version"] = 1
	record["created_by"] = followUp.Created_By
	record["datetime_create"] = followUp.Datetime_Create

	var id int
	_, err = s.db.Insert(followUpTable).
		Rows(record).
		Returning("follow_up_id").
		Executor().ScanValContext(ctx, &id)
	if err != nil {
		return fmt.Errorf("failed to create follow-up: %w", err)
	}

	followUp.Follow_Up_ID = id
	followUp.Version = 1
	return nil
}

func (s *FollowUpStore) FindByID(ctx context.Context, id int) (*models.FollowUp, error) {
	var row followUpRow
	found, err := s.db.From(followUpTable).
		Where(goqu.C("follow_up_id").Eq(id)).
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("failed to load follow-up %d: %w", id, err)
	}
	if !found {
		return nil, models.ErrFollowUpNotFound
	}
	return row.toModel()
}

// Update writes every mutable column when the stored version still matches.
func (s *FollowUpStore) Update(ctx context.Context, followUp *models.FollowUp) error {
	return updateFollowUp(ctx, s.db, followUp)
}

// FindDue lists open follow-ups with a next date at or before now, earliest first.
func (s *FollowUpStore) FindDue(ctx context.Context, now time.Time) ([]models.DueFollowUp, error) {
	var rows []dueFollowUpRow
	err := s.db.From(goqu.T(followUpTable).As("f")).
		LeftJoin(
			goqu.T("user_profile").As("u"),
			goqu.On(goqu.I("u.user_profile_id").Eq(goqu.I("f.assigned_to"))),
		).
		Select(
			goqu.L("f.*"),
			goqu.COALESCE(goqu.I("u.first_name"), "").As("assignee_first_name"),
			goqu.COALESCE(goqu.I("u.last_name"), "").As("assignee_last_name"),
			goqu.COALESCE(goqu.I("u.username"), "").As("assignee_username"),
			goqu.COALESCE(goqu.I("u.email"), "").As("assignee_email"),
		).
		Where(
			goqu.I("f.status").In(string(models.FollowUpStatusPending), string(models.FollowUpStatusInProgress)),
			goqu.I("f.next_follow_up_date").Lte(now),
		).
		Order(goqu.I("f.next_follow_up_date").Asc(), goqu.I("f.follow_up_id").Asc()).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to load due follow-ups: %w", err)
	}

	due := make([]models.DueFollowUp, 0, len(rows))
	for _, row := range rows {
		followUp, err := row.toModel()
		if err != nil {
			return nil, err
		}
		name := strings.TrimSpace(row.Assignee_First_Name + " " + row.Assignee_Last_Name)
		if name == "" {
			name = row.Assignee_Username
		}
		due = append(due, models.DueFollowUp{
			FollowUp:          *followUp,
			Assigned_To_Name:  name,
			Assigned_To_Email: row.Assignee_Email,
		})
	}
	return due, nil
}

// CommitHandoff applies plan and the follow-up update in one transaction.
func (s *FollowUpStore) CommitHandoff(ctx context.Context, followUp *models.FollowUp, plan models.HandoffPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin hand-off transaction: %w", err)
	}

	originalTarget := followUp.Target
	var linkedMemberID int
	err = tx.Wrap(func() error {
		backfillID := plan.Backfill_Member_ID

		if plan.New_Member != nil {
			existing, err := lockMemberByPhone(ctx, tx, plan.New_Member.Phone_Number)
			if err != nil {
				return err
			}
			if existing != nil {
				linkedMemberID = existing.Member_ID
				if existing.Cluster_ID == nil {
					backfillID = &existing.Member_ID
				}
			} else {
				_, err := tx.Insert("member").
					Rows(*plan.New_Member).
					Returning("member_id").
					Executor().ScanValContext(ctx, &linkedMemberID)
				if err != nil {
					return fmt.Errorf("failed to create member: %w", err)
				}
			}
		}

		if backfillID != nil {
			_, err := tx.Update("member").
				Set(goqu.Record{
					"cluster_id":      plan.Cluster_ID,
					"updated_by":      followUp.Updated_By,
					"datetime_update": goqu.L("NOW()"),
				}).
				Where(
					goqu.C("member_id").Eq(*backfillID),
					goqu.C("cluster_id").IsNull(),
				).
				Executor().ExecContext(ctx)
			if err != nil {
				return fmt.Errorf("failed to assign member %d to cluster: %w", *backfillID, err)
			}
		}

		if linkedMemberID != 0 {
			followUp.Target = models.ExistingPerson{Person_ID: linkedMemberID}
		}
		return updateFollowUp(ctx, tx, followUp)
	})
	if err != nil {
		followUp.Target = originalTarget
		return err
	}

	if plan.New_Member != nil {
		plan.New_Member.Member_ID = linkedMemberID
	}
	return nil
}

// lockMemberByPhone takes a transaction-scoped advisory lock on phone and then
// looks the member up again, so concurrent hand-offs for the same number create
// at most one member. A nil phone skips both steps.
func lockMemberByPhone(ctx context.Context, tx *goqu.TxDatabase, phone *string) (*models.Member, error) {
	if phone == nil || *phone == "" {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", *phone); err != nil {
		return nil, fmt.Errorf("failed to lock phone number: %w", err)
	}

	var member models.Member
	found, err := memberByPhone(tx.From("member"), *phone).ScanStructContext(ctx, &member)
	if err != nil {
		return nil, fmt.Errorf("failed to look up member by phone: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &member, nil
}

type updater interface {
	Update(table interface{}) *goqu.UpdateDataset
}

func updateFollowUp(ctx context.Context, db updater, followUp *models.FollowUp) error {
	record, err := followUpRecord(followUp)
	if err != nil {
		return err
	}
	record["version"] = followUp.Version + 1

	result, err := db.Update(followUpTable).
		Set(record).
		Where(
			goqu.C("follow_up_id").Eq(followUp.Follow_Up_ID),
			goqu.C("version").Eq(followUp.Version),
		).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update follow-up %d: %w", followUp.Follow_Up_ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update follow-up %d: %w", followUp.Follow_Up_ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: follow-up %d at version %d", models.ErrVersionConflict, followUp.Follow_Up_ID, followUp.Version)
	}

	followUp.Version++
	return nil
}

// followUpRecord builds the column set shared by insert and update. jsonb values
// are passed as strings so the driver does not send them as bytea.
func followUpRecord(f *models.FollowUp) (goqu.Record, error) {
	record := goqu.Record{
		"person_type":         string(f.Person_Type),
		"status":              string(f.Status),
		"response_category":   string(f.Response_Category),
		"required_attempts":   f.Required_Attempts,
		"frequency":           f.Frequency,
		"next_follow_up_date": nil,
		"schedule_end_date":   f.Schedule_End_Date,
		"assigned_to":         f.Assigned_To,
		"notes":               f.Notes,
		"updated_by":          f.Updated_By,
		"datetime_update":     f.Datetime_Update,
		"person_id":           nil,
		"new_attendee":        nil,
	}

	if f.Next_Follow_Up_Date != nil {
		record["next_follow_up_date"] = *f.Next_Follow_Up_Date
	}

	switch t := f.Target.(type) {
	case models.ExistingPerson:
		record["person_id"] = t.Person_ID
	case models.EmbeddedSnapshot:
		attendee, err := jsonColumn(t.Attendee)
		if err != nil {
			return nil, err
		}
		record["new_attendee"] = attendee
	default:
		return nil, models.ErrInvalidTarget
	}

	attempts := f.Attempts
	if attempts == nil {
		attempts = []models.FollowUpAttempt{}
	}
	prayerRequests := f.Prayer_Requests
	if prayerRequests == nil {
		prayerRequests = []string{}
	}

	columns := map[string]interface{}{
		"attempts":              attempts,
		"prayer_requests":       prayerRequests,
		"handed_off_to_cluster": f.Handed_Off_To_Cluster,
		"event_context":         f.Event_Context,
	}
	for column, value := range columns {
		encoded, err := jsonColumn(value)
		if err != nil {
			return nil, err
		}
		record[column] = encoded
	}

	return record, nil
}

// jsonColumn encodes v for a jsonb column; nil pointers become SQL NULL.
func jsonColumn(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case *models.ClusterHandoff:
		if t == nil {
			return nil, nil
		}
	case *models.EventContext:
		if t == nil {
			return nil, nil
		}
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode follow-up column: %w", err)
	}
	return string(encoded), nil
}

func (r followUpRow) toModel() (*models.FollowUp, error) {
	f := &models.FollowUp{
		Follow_Up_ID:        r.Follow_Up_ID,
		Person_Type:         models.PersonType(r.Person_Type),
		Status:              models.FollowUpStatus(r.Status),
		Response_Category:   models.ResponseCategory(r.Response_Category),
		Required_Attempts:   r.Required_Attempts,
		Frequency:           r.Frequency,
		Attempts:            []models.FollowUpAttempt{},
		Next_Follow_Up_Date: r.Next_Follow_Up_Date,
		Schedule_End_Date:   r.Schedule_End_Date,
		Prayer_Requests:     []string{},
		Assigned_To:         r.Assigned_To,
		Version:             r.Version,
		Created_By:          r.Created_By,
		Updated_By:          r.Updated_By,
		Datetime_Create:     r.Datetime_Create,
		Datetime_Update:     r.Datetime_Update,
	}
	if r.Notes != nil {
		f.Notes = *r.Notes
	}

	switch {
	case r.Person_ID != nil:
		f.Target = models.ExistingPerson{Person_ID: *r.Person_ID}
	case len(r.New_Attendee) > 0:
		var attendee models.NewAttendee
		if err := json.Unmarshal(r.New_Attendee, &attendee); err != nil {
			return nil, fmt.Errorf("follow-up %d has an unreadable new attendee: %w", r.Follow_Up_ID, err)
		}
		f.Target = models.EmbeddedSnapshot{Attendee: attendee}
	default:
		return nil, fmt.Errorf("follow-up %d has no target person", r.Follow_Up_ID)
	}

	decode := []struct {
		column string
		raw    []byte
		dest   interface{}
	}{
		{"attempts", r.Attempts, &f.Attempts},
		{"prayer_requests", r.Prayer_Requests, &f.Prayer_Requests},
		{"handed_off_to_cluster", r.Handed_Off_To_Cluster, &f.Handed_Off_To_Cluster},
		{"event_context", r.Event_Context, &f.Event_Context},
	}
	for _, d := range decode {
		if len(d.raw) == 0 || string(d.raw) == "null" {
			continue
		}
		if err := json.Unmarshal(d.raw, d.dest); err != nil {
			return nil, fmt.Errorf("follow-up %d has unreadable %s: %w", r.Follow_Up_ID, d.column, err)
		}
	}

	return f, nil
}
