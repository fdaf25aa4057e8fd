package models

type StaffLogin struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// StaffCredentials is a staff profile together with its bcrypt password hash.
// It is only ever read for login and never serialized.
type StaffCredentials struct {
	UserProfile
	Password string `json:"-" db:"password"`
}
