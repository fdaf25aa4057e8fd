package models

import (
	"strings"
	"time"
)

// GenderUnknown is stored for members created by a hand-off, where gender was never captured.
const GenderUnknown = "Unknown"

type Member struct {
	Member_ID       int       `json:"memberId" db:"member_id" goqu:"skipinsert"`
	First_Name      string    `json:"firstName" db:"first_name"`
	Last_Name       string    `json:"lastName" db:"last_name"`
	Email           *string   `json:"email" db:"email"`
	Phone_Number    *string   `json:"phoneNumber" db:"phone_number"`
	WhatsApp_Number *string   `json:"whatsAppNumber" db:"whatsapp_number"`
	Gender          string    `json:"gender" db:"gender"`
	Member_Type     string    `json:"memberType" db:"member_type"`
	Cluster_ID      *int      `json:"clusterId" db:"cluster_id"`
	Center_ID       *int      `json:"centerId" db:"center_id"`
	Created_By      int       `json:"createdBy" db:"created_by"`
	Updated_By      int       `json:"updatedBy" db:"updated_by"`
	Datetime_Create time.Time `json:"datetimeCreate" db:"datetime_create" goqu:"skipinsert"`
	Datetime_Update time.Time `json:"datetimeUpdate" db:"datetime_update" goqu:"skipinsert"`
}

func (m Member) DisplayName() string {
	return strings.TrimSpace(m.First_Name + " " + m.Last_Name)
}

type Cluster struct {
	Cluster_ID   int    `json:"clusterId" db:"cluster_id"`
	Cluster_Name string `json:"clusterName" db:"cluster_name"`
	Center_ID    *int   `json:"centerId" db:"center_id"`
	Leader_ID    *int   `json:"leaderId" db:"leader_id"`
}

// HandoffPlan is the member-side write that accompanies a hand-off. At most one
// of New_Member and Backfill_Member_ID is set.
type HandoffPlan struct {
	New_Member         *Member
	Backfill_Member_ID *int
	Cluster_ID         int
}
