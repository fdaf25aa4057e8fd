package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type PersonType string

const (
	PersonTypeNewConvert        PersonType = "New Convert"
	PersonTypeAttendee          PersonType = "Attendee"
	PersonTypeMember            PersonType = "Member"
	PersonTypeUnregisteredGuest PersonType = "Unregistered Guest"
)

type FollowUpStatus string

const (
	FollowUpStatusPending    FollowUpStatus = "Pending"
	FollowUpStatusInProgress FollowUpStatus = "In Progress"
	FollowUpStatusCompleted  FollowUpStatus = "Completed"
	FollowUpStatusFailed     FollowUpStatus = "Failed"
)

// IsOpen reports whether the follow-up is still being worked.
func (s FollowUpStatus) IsOpen() bool {
	return s == FollowUpStatusPending || s == FollowUpStatusInProgress
}

type ResponseCategory string

const (
	ResponseCategoryPromising ResponseCategory = "Promising"
	ResponseCategoryUndecided ResponseCategory = "Undecided"
	ResponseCategoryCold      ResponseCategory = "Cold"
)

// AttemptOutcome is the explicit outcome tag staff record for an attempt.
// Anything other than Positive or Negative falls through to note inspection.
type AttemptOutcome string

const (
	AttemptOutcomePositive   AttemptOutcome = "Positive"
	AttemptOutcomeNegative   AttemptOutcome = "Negative"
	AttemptOutcomeNeutral    AttemptOutcome = "Neutral"
	AttemptOutcomeNoResponse AttemptOutcome = "No Response"
)

type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelSMS       Channel = "sms"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelPhoneCall Channel = "phone_call"
	ChannelVisit     Channel = "visit"
)

// DispatchChannels are the channels a message can be sent through.
var DispatchChannels = []Channel{ChannelEmail, ChannelSMS, ChannelWhatsApp}

// NewAttendee is the contact snapshot kept for people without a member record yet.
type NewAttendee struct {
	First_Name      string `json:"firstName" binding:"required"`
	Last_Name       string `json:"lastName"`
	Email           string `json:"email"`
	Phone_Number    string `json:"phoneNumber"`
	WhatsApp_Number string `json:"whatsAppNumber"`
}

func (a NewAttendee) DisplayName() string {
	return strings.TrimSpace(a.First_Name + " " + a.Last_Name)
}

// TargetPerson is either an ExistingPerson or an EmbeddedSnapshot.
type TargetPerson interface {
	isTargetPerson()
}

type ExistingPerson struct {
	Person_ID int
}

type EmbeddedSnapshot struct {
	Attendee NewAttendee
}

func (ExistingPerson) isTargetPerson()   {}
func (EmbeddedSnapshot) isTargetPerson() {}

// NewTargetPerson builds the target variant from the two optional request fields.
// Exactly one of them must be set.
func NewTargetPerson(personID *int, attendee *NewAttendee) (TargetPerson, error) {
	switch {
	case personID != nil && attendee != nil:
		return nil, fmt.Errorf("%w: both personId and newAttendee were provided", ErrInvalidTarget)
	case personID != nil:
		if *personID <= 0 {
			return nil, fmt.Errorf("%w: personId must be positive", ErrInvalidTarget)
		}
		return ExistingPerson{Person_ID: *personID}, nil
	case attendee != nil:
		if strings.TrimSpace(attendee.First_Name) == "" {
			return nil, fmt.Errorf("%w: newAttendee requires a first name", ErrInvalidTarget)
		}
		return EmbeddedSnapshot{Attendee: *attendee}, nil
	default:
		return nil, fmt.Errorf("%w: either personId or newAttendee is required", ErrInvalidTarget)
	}
}

type FollowUpAttempt struct {
	Attempt_Number  int            `json:"attemptNumber"`
	Attempted_At    time.Time      `json:"attemptedAt"`
	Channel         Channel        `json:"channel"`
	Outcome         AttemptOutcome `json:"outcome,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	Prayer_Requests []string       `json:"prayerRequests,omitempty"`
	Conducted_By    int            `json:"conductedBy"`
}

type ClusterHandoff struct {
	Cluster_ID      int       `json:"clusterId"`
	Cluster_Lead_ID int       `json:"clusterLeadId"`
	Handoff_Date    time.Time `json:"handoffDate"`
	Notes           string    `json:"notes,omitempty"`
}

// EventContext describes the event that produced the contact, if any.
type EventContext struct {
	Event_Type string    `json:"eventType"`
	Event_Date time.Time `json:"eventDate"`
}

type FollowUp struct {
	Follow_Up_ID          int               `json:"followUpId"`
	Person_Type           PersonType        `json:"personType"`
	Target                TargetPerson      `json:"-"`
	Status                FollowUpStatus    `json:"status"`
	Response_Category     ResponseCategory  `json:"responseCategory"`
	Required_Attempts     int               `json:"requiredAttempts"`
	Frequency             string            `json:"frequency"`
	Attempts              []FollowUpAttempt `json:"attempts"`
	Next_Follow_Up_Date   *time.Time        `json:"nextFollowUpDate"`
	Schedule_End_Date     time.Time         `json:"scheduleEndDate"`
	Prayer_Requests       []string          `json:"prayerRequests"`
	Handed_Off_To_Cluster *ClusterHandoff   `json:"handedOffToCluster,omitempty"`
	Assigned_To           int               `json:"assignedTo"`
	Notes                 string            `json:"notes,omitempty"`
	Event_Context         *EventContext     `json:"eventContext,omitempty"`
	Version               int               `json:"version"`
	Created_By            int               `json:"createdBy"`
	Updated_By            int               `json:"updatedBy"`
	Datetime_Create       time.Time         `json:"datetimeCreate"`
	Datetime_Update       time.Time         `json:"datetimeUpdate"`
}

// PersonID returns the linked person record id, or nil while the target is a snapshot.
func (f *FollowUp) PersonID() *int {
	if p, ok := f.Target.(ExistingPerson); ok {
		id := p.Person_ID
		return &id
	}
	return nil
}

// NewAttendee returns the embedded snapshot, or nil once a person record is linked.
func (f *FollowUp) NewAttendee() *NewAttendee {
	if s, ok := f.Target.(EmbeddedSnapshot); ok {
		a := s.Attendee
		return &a
	}
	return nil
}

func (f FollowUp) MarshalJSON() ([]byte, error) {
	type plain FollowUp
	return json.Marshal(struct {
		plain
		Person_ID    *int         `json:"personId"`
		New_Attendee *NewAttendee `json:"newAttendee"`
	}{
		plain:        plain(f),
		Person_ID:    f.PersonID(),
		New_Attendee: f.NewAttendee(),
	})
}

// DueFollowUp is a due follow-up with the assignee's display info resolved.
type DueFollowUp struct {
	FollowUp
	Assigned_To_Name  string `json:"assignedToName"`
	Assigned_To_Email string `json:"assignedToEmail"`
}

func (d DueFollowUp) MarshalJSON() ([]byte, error) {
	base, err := d.FollowUp.MarshalJSON()
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	fields["assignedToName"], _ = json.Marshal(d.Assigned_To_Name)
	fields["assignedToEmail"], _ = json.Marshal(d.Assigned_To_Email)
	return json.Marshal(fields)
}

type FollowUpCreate struct {
	Person_Type   PersonType    `json:"personType" binding:"required"`
	Person_ID     *int          `json:"personId"`
	New_Attendee  *NewAttendee  `json:"newAttendee"`
	Assigned_To   int           `json:"assignedTo" binding:"required"`
	Notes         string        `json:"notes"`
	Event_Context *EventContext `json:"eventContext"`
}

type FollowUpAttemptCreate struct {
	Channel         Channel        `json:"channel" binding:"required"`
	Outcome         AttemptOutcome `json:"outcome"`
	Notes           string         `json:"notes"`
	Prayer_Requests []string       `json:"prayerRequests"`
}

// FollowUpUpdate carries the editable fields. Required_Attempts and Frequency are
// accepted only so that attempts to change them can be rejected explicitly.
type FollowUpUpdate struct {
	Assigned_To       *int    `json:"assignedTo"`
	Notes             *string `json:"notes"`
	Required_Attempts *int    `json:"requiredAttempts"`
	Frequency         *string `json:"frequency"`
}

type FollowUpHandoffRequest struct {
	Cluster_ID int    `json:"clusterId" binding:"required"`
	Notes      string `json:"notes"`
}

type FollowUpMessageRequest struct {
	Message          string    `json:"message"`
	Channels         []Channel `json:"channels" binding:"required,min=1"`
	Use_AI_Generated bool      `json:"useAiGenerated"`
}

type FollowUpMessageResult struct {
	Success bool               `json:"success"`
	Results map[Channel]bool   `json:"results"`
	Errors  map[Channel]string `json:"errors,omitempty"`
	Message string             `json:"message"`
}
