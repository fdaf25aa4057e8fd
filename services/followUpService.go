package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ShepherdLoop/models"
)

// FollowUpStore persists follow-ups. Update and CommitHandoff are optimistic on
// FollowUp.Version and return models.ErrVersionConflict when it is stale; on
// success they bump Version on the passed record.
type FollowUpStore interface {
	Insert(ctx context.Context, followUp *models.FollowUp) error
	FindByID(ctx context.Context, id int) (*models.FollowUp, error)
	Update(ctx context.Context, followUp *models.FollowUp) error
	FindDue(ctx context.Context, now time.Time) ([]models.DueFollowUp, error)
	// CommitHandoff writes the member side of plan and the follow-up in one
	// transaction. When plan.New_Member is set the follow-up is linked to it.
	CommitHandoff(ctx context.Context, followUp *models.FollowUp, plan models.HandoffPlan) error
}

type PersonStore interface {
	FindMemberByID(ctx context.Context, id int) (*models.Member, error)
	// FindMemberByPhone matches on canonical digits only.
	FindMemberByPhone(ctx context.Context, phone string) (*models.Member, error)
	FindClusterByID(ctx context.Context, id int) (*models.Cluster, error)
}

type StaffDirectory interface {
	PrayerTeamIDs(ctx context.Context) ([]int, error)
}

// Notifier is the fire-and-forget alert sink. Implementations log their own failures.
type Notifier interface {
	Notify(ctx context.Context, req models.NotificationRequest)
	NotifyDebounced(ctx context.Context, req models.NotificationRequest, window time.Duration)
}

type FollowUpServiceOptions struct {
	FollowUps        FollowUpStore
	People           PersonStore
	Staff            StaffDirectory
	Notifier         Notifier
	Locker           FollowUpLocker
	Senders          map[models.Channel]ChannelSender
	Generator        MessageGenerator
	Configs          models.FollowUpConfigTable
	Metrics          *Metrics
	OrganizationName string
	Now              func() time.Time
}

type FollowUpService struct {
	followUps FollowUpStore
	people    PersonStore
	staff     StaffDirectory
	notifier  Notifier
	locker    FollowUpLocker
	senders   map[models.Channel]ChannelSender
	generator MessageGenerator
	configs   models.FollowUpConfigTable
	metrics   *Metrics
	orgName   string
	now       func() time.Time
}

var followUpService *FollowUpService

func SetFollowUpService(s *FollowUpService) {
	followUpService = s
}

func GetFollowUpService() *FollowUpService {
	return followUpService
}

func NewFollowUpService(opts FollowUpServiceOptions) (*FollowUpService, error) {
	if opts.FollowUps == nil {
		return nil, fmt.Errorf("a follow-up store must be provided")
	}
	if opts.People == nil {
		return nil, fmt.Errorf("a person store must be provided")
	}

	configs := opts.Configs
	if configs == nil {
		configs = models.DefaultFollowUpConfigs()
	}
	if err := configs.Validate(); err != nil {
		return nil, err
	}

	s := &FollowUpService{
		followUps: opts.FollowUps,
		people:    opts.People,
		staff:     opts.Staff,
		notifier:  opts.Notifier,
		locker:    opts.Locker,
		senders:   opts.Senders,
		generator: opts.Generator,
		configs:   configs,
		metrics:   opts.Metrics,
		orgName:   opts.OrganizationName,
		now:       opts.Now,
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.locker == nil {
		s.locker = NewLocalFollowUpLocker()
	}
	if s.senders == nil {
		s.senders = map[models.Channel]ChannelSender{}
	}
	if s.orgName == "" {
		s.orgName = "our church family"
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// CreateFollowUp opens a follow-up with the attempt plan configured for the person type.
func (s *FollowUpService) CreateFollowUp(ctx context.Context, input models.FollowUpCreate, staffID int) (*models.FollowUp, error) {
	target, err := models.NewTargetPerson(input.Person_ID, input.New_Attendee)
	if err != nil {
		return nil, err
	}

	cfg, err := s.configs.Lookup(input.Person_Type)
	if err != nil {
		return nil, err
	}

	personName, err := s.targetName(ctx, target)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next := NextFollowUpDate(cfg.Frequency, models.ResponseCategoryUndecided, nil, now)

	followUp := &models.FollowUp{
		Person_Type:         input.Person_Type,
		Target:              target,
		Status:              models.FollowUpStatusPending,
		Response_Category:   models.ResponseCategoryUndecided,
		Required_Attempts:   cfg.Required_Attempts,
		Frequency:           cfg.Frequency,
		Attempts:            []models.FollowUpAttempt{},
		Next_Follow_Up_Date: &next,
		Schedule_End_Date:   now.AddDate(0, 0, cfg.Duration_In_Days),
		Prayer_Requests:     []string{},
		Assigned_To:         input.Assigned_To,
		Notes:               input.Notes,
		Event_Context:       input.Event_Context,
		Created_By:          staffID,
		Updated_By:          staffID,
		Datetime_Create:     now,
		Datetime_Update:     now,
	}

	if err := s.followUps.Insert(ctx, followUp); err != nil {
		return nil, err
	}

	s.metrics.observeStatus(followUp.Status)
	s.notifyAssignee(ctx, followUp, personName, staffID)

	return followUp, nil
}

// GetFollowUp loads a single follow-up.
func (s *FollowUpService) GetFollowUp(ctx context.Context, id int) (*models.FollowUp, error) {
	return s.followUps.FindByID(ctx, id)
}

// AddFollowUpAttempt records one contact attempt and moves the follow-up through
// its lifecycle. Attempts against a closed follow-up are rejected.
func (s *FollowUpService) AddFollowUpAttempt(ctx context.Context, id int, input models.FollowUpAttemptCreate, staffID int) (*models.FollowUp, error) {
	var (
		updated     *models.FollowUp
		newRequests []string
	)

	err := s.locker.WithFollowUpLock(ctx, id, func(ctx context.Context) error {
		followUp, err := s.followUps.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !followUp.Status.IsOpen() {
			return fmt.Errorf("%w: status is %s", models.ErrFollowUpClosed, followUp.Status)
		}

		now := s.now()
		newRequests = cleanPrayerRequests(input.Prayer_Requests)

		attempt := models.FollowUpAttempt{
			Attempt_Number:  len(followUp.Attempts) + 1,
			Attempted_At:    now,
			Channel:         input.Channel,
			Outcome:         input.Outcome,
			Notes:           input.Notes,
			Prayer_Requests: newRequests,
			Conducted_By:    staffID,
		}

		category := ClassifyResponse(input.Outcome, input.Notes)
		status := ResolveStatus(followUp, attempt, category)

		if status.IsOpen() {
			next := NextFollowUpDate(followUp.Frequency, category, &attempt.Attempted_At, now)
			followUp.Next_Follow_Up_Date = &next
		} else {
			followUp.Next_Follow_Up_Date = nil
		}

		followUp.Attempts = append(followUp.Attempts, attempt)
		followUp.Status = status
		followUp.Response_Category = category
		followUp.Prayer_Requests = append(followUp.Prayer_Requests, newRequests...)
		followUp.Updated_By = staffID
		followUp.Datetime_Update = now

		if err := s.followUps.Update(ctx, followUp); err != nil {
			return err
		}
		updated = followUp
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.observeStatus(updated.Status)
	if len(newRequests) > 0 {
		s.notifyPrayerTeam(ctx, updated, newRequests, staffID)
	}

	return updated, nil
}

// UpdateFollowUpDetails reassigns a follow-up or edits its notes. The attempt
// plan is fixed at creation and cannot be changed here.
func (s *FollowUpService) UpdateFollowUpDetails(ctx context.Context, id int, patch models.FollowUpUpdate, staffID int) (*models.FollowUp, error) {
	var (
		updated    *models.FollowUp
		reassigned bool
	)

	err := s.locker.WithFollowUpLock(ctx, id, func(ctx context.Context) error {
		followUp, err := s.followUps.FindByID(ctx, id)
		if err != nil {
			return err
		}

		if patch.Required_Attempts != nil && *patch.Required_Attempts != followUp.Required_Attempts {
			return fmt.Errorf("%w: requiredAttempts", models.ErrImmutableField)
		}
		if patch.Frequency != nil && *patch.Frequency != followUp.Frequency {
			return fmt.Errorf("%w: frequency", models.ErrImmutableField)
		}

		changed := false
		if patch.Assigned_To != nil && *patch.Assigned_To != followUp.Assigned_To {
			followUp.Assigned_To = *patch.Assigned_To
			reassigned = true
			changed = true
		}
		if patch.Notes != nil && *patch.Notes != followUp.Notes {
			followUp.Notes = *patch.Notes
			changed = true
		}

		if changed {
			followUp.Updated_By = staffID
			followUp.Datetime_Update = s.now()
			if err := s.followUps.Update(ctx, followUp); err != nil {
				return err
			}
		}
		updated = followUp
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reassigned {
		name, err := s.targetName(ctx, updated.Target)
		if err != nil {
			log.Printf("Failed to resolve person name for follow-up %d: %v", updated.Follow_Up_ID, err)
		}
		s.notifyAssignee(ctx, updated, name, staffID)
	}

	return updated, nil
}

// HandoffToCluster hands an engaged contact over to a cluster, creating or
// reusing the member record, and completes the follow-up.
func (s *FollowUpService) HandoffToCluster(ctx context.Context, id int, clusterID int, notes string, staffID int) (*models.FollowUp, error) {
	var (
		updated *models.FollowUp
		leadID  int
		name    string
	)

	err := s.locker.WithFollowUpLock(ctx, id, func(ctx context.Context) error {
		followUp, err := s.followUps.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if followUp.Handed_Off_To_Cluster != nil {
			return models.ErrAlreadyHandedOff
		}
		if followUp.Status == models.FollowUpStatusFailed {
			return fmt.Errorf("%w: status is %s", models.ErrFollowUpClosed, followUp.Status)
		}

		cluster, err := s.people.FindClusterByID(ctx, clusterID)
		if err != nil {
			return err
		}
		if cluster.Leader_ID != nil {
			leadID = *cluster.Leader_ID
		}

		now := s.now()
		plan := models.HandoffPlan{Cluster_ID: cluster.Cluster_ID}

		switch target := followUp.Target.(type) {
		case models.EmbeddedSnapshot:
			name = target.Attendee.DisplayName()
			existing, err := s.findMemberForAttendee(ctx, target.Attendee)
			if err != nil {
				return err
			}
			if existing != nil {
				if existing.Cluster_ID == nil {
					memberID := existing.Member_ID
					plan.Backfill_Member_ID = &memberID
				}
				followUp.Target = models.ExistingPerson{Person_ID: existing.Member_ID}
			} else {
				plan.New_Member = newMemberFromAttendee(target.Attendee, followUp.Person_Type, cluster, staffID)
			}
		case models.ExistingPerson:
			member, err := s.people.FindMemberByID(ctx, target.Person_ID)
			if err != nil {
				return err
			}
			name = member.DisplayName()
		}

		followUp.Handed_Off_To_Cluster = &models.ClusterHandoff{
			Cluster_ID:      cluster.Cluster_ID,
			Cluster_Lead_ID: leadID,
			Handoff_Date:    now,
			Notes:           notes,
		}
		followUp.Status = models.FollowUpStatusCompleted
		followUp.Response_Category = models.ResponseCategoryPromising
		followUp.Next_Follow_Up_Date = nil
		followUp.Updated_By = staffID
		followUp.Datetime_Update = now

		if err := s.followUps.CommitHandoff(ctx, followUp, plan); err != nil {
			return err
		}
		updated = followUp
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.observeStatus(updated.Status)
	if leadID != 0 {
		s.notifier.Notify(ctx, models.NotificationRequest{
			Type:         models.NotificationTypeFollowUpHandoff,
			Title:        "New member handed off to your cluster",
			Message:      fmt.Sprintf("%s has been handed off to your cluster", nameOrDefault(name)),
			Recipient_ID: leadID,
			Link_Url:     followUpLink(updated.Follow_Up_ID),
			Follow_Up_ID: updated.Follow_Up_ID,
			Actor_ID:     staffID,
		})
	} else {
		log.Printf("Cluster %d has no leader, skipping hand-off notification for follow-up %d", clusterID, updated.Follow_Up_ID)
	}

	return updated, nil
}

// GetDueFollowUps lists open follow-ups whose next attempt is due, oldest first.
func (s *FollowUpService) GetDueFollowUps(ctx context.Context) ([]models.DueFollowUp, error) {
	return s.followUps.FindDue(ctx, s.now())
}

// NotifyDueFollowUps alerts each assignee about their due follow-ups. Repeat
// alerts for the same follow-up are suppressed within window.
func (s *FollowUpService) NotifyDueFollowUps(ctx context.Context, window time.Duration) (int, error) {
	due, err := s.GetDueFollowUps(ctx)
	if err != nil {
		return 0, err
	}

	for _, d := range due {
		name, err := s.targetName(ctx, d.Target)
		if err != nil {
			log.Printf("Failed to resolve person name for due follow-up %d: %v", d.Follow_Up_ID, err)
		}
		s.notifier.NotifyDebounced(ctx, models.NotificationRequest{
			Type:         models.NotificationTypeFollowUpDue,
			Title:        "Follow-up due",
			Message:      fmt.Sprintf("Your follow-up with %s is due", nameOrDefault(name)),
			Recipient_ID: d.Assigned_To,
			Link_Url:     followUpLink(d.Follow_Up_ID),
			Follow_Up_ID: d.Follow_Up_ID,
		}, window)
	}

	return len(due), nil
}

func (s *FollowUpService) targetName(ctx context.Context, target models.TargetPerson) (string, error) {
	switch t := target.(type) {
	case models.ExistingPerson:
		member, err := s.people.FindMemberByID(ctx, t.Person_ID)
		if err != nil {
			return "", err
		}
		return member.DisplayName(), nil
	case models.EmbeddedSnapshot:
		return t.Attendee.DisplayName(), nil
	}
	return "", models.ErrInvalidTarget
}

func (s *FollowUpService) findMemberForAttendee(ctx context.Context, attendee models.NewAttendee) (*models.Member, error) {
	phone := CanonicalPhone(attendee.Phone_Number)
	if phone == "" {
		return nil, nil
	}
	member, err := s.people.FindMemberByPhone(ctx, phone)
	if errors.Is(err, models.ErrPersonNotFound) {
		return nil, nil
	}
	return member, err
}

func (s *FollowUpService) notifyAssignee(ctx context.Context, followUp *models.FollowUp, personName string, staffID int) {
	s.notifier.Notify(ctx, models.NotificationRequest{
		Type:         models.NotificationTypeFollowUpAssigned,
		Title:        "New follow-up assigned",
		Message:      fmt.Sprintf("You have been assigned to follow up with %s", nameOrDefault(personName)),
		Recipient_ID: followUp.Assigned_To,
		Link_Url:     followUpLink(followUp.Follow_Up_ID),
		Follow_Up_ID: followUp.Follow_Up_ID,
		Actor_ID:     staffID,
	})
}

func (s *FollowUpService) notifyPrayerTeam(ctx context.Context, followUp *models.FollowUp, requests []string, staffID int) {
	if s.staff == nil {
		return
	}

	teamIDs, err := s.staff.PrayerTeamIDs(ctx)
	if err != nil {
		log.Printf("Failed to load prayer team for follow-up %d: %v", followUp.Follow_Up_ID, err)
		return
	}

	message := fmt.Sprintf("New prayer request: %s", strings.Join(requests, "; "))
	for _, memberID := range teamIDs {
		s.notifier.Notify(ctx, models.NotificationRequest{
			Type:         models.NotificationTypePrayerRequestAdded,
			Title:        "New prayer request",
			Message:      message,
			Recipient_ID: memberID,
			Link_Url:     followUpLink(followUp.Follow_Up_ID),
			Follow_Up_ID: followUp.Follow_Up_ID,
			Actor_ID:     staffID,
		})
	}
}

func newMemberFromAttendee(attendee models.NewAttendee, personType models.PersonType, cluster *models.Cluster, staffID int) *models.Member {
	clusterID := cluster.Cluster_ID
	member := &models.Member{
		First_Name:  strings.TrimSpace(attendee.First_Name),
		Last_Name:   strings.TrimSpace(attendee.Last_Name),
		Gender:      models.GenderUnknown,
		Member_Type: string(personType),
		Cluster_ID:  &clusterID,
		Center_ID:   cluster.Center_ID,
		Created_By:  staffID,
		Updated_By:  staffID,
	}
	if email := strings.TrimSpace(attendee.Email); email != "" {
		member.Email = &email
	}
	if phone := CanonicalPhone(attendee.Phone_Number); phone != "" {
		member.Phone_Number = &phone
	}
	if whatsApp := CanonicalPhone(attendee.WhatsApp_Number); whatsApp != "" {
		member.WhatsApp_Number = &whatsApp
	}
	return member
}

func cleanPrayerRequests(requests []string) []string {
	cleaned := []string{}
	for _, r := range requests {
		if r = strings.TrimSpace(r); r != "" {
			cleaned = append(cleaned, r)
		}
	}
	return cleaned
}

func followUpLink(id int) string {
	return fmt.Sprintf("/follow-ups/%d", id)
}

func nameOrDefault(name string) string {
	if name == "" {
		return "a new contact"
	}
	return name
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, models.NotificationRequest) {}

func (noopNotifier) NotifyDebounced(context.Context, models.NotificationRequest, time.Duration) {}
