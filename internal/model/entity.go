package model

import "time"

type AccountStatus string

const (
	AccountStatusGood    AccountStatus = "Good"
	AccountStatusPending AccountStatus = "Pending Case"
	AccountStatusBanned  AccountStatus = "Banned"
)

// ValidAccountStatus reports whether s is one of the closed status set.
func ValidAccountStatus(s AccountStatus) bool {
	return s == AccountStatusGood || s == AccountStatusPending || s == AccountStatusBanned
}

type Sender string

const (
	SenderClient  Sender = "client"
	SenderSupport Sender = "support"
)

// ValidSender reports whether s is "client" or "support".
func ValidSender(s Sender) bool {
	return s == SenderClient || s == SenderSupport
}

// User is the per-account record an operator creates for a ban case.
// Its UserID doubles as the chat transaction ID.
type User struct {
	UserID        string        `gorm:"primaryKey;type:varchar(64)" json:"userID"`
	Type          string        `gorm:"type:varchar(32)" json:"type,omitempty"`
	AccountStatus AccountStatus `gorm:"type:varchar(32);not null" json:"accountStatus"`
	Username      string        `gorm:"type:varchar(255)" json:"username,omitempty"`
	DateCreated   string        `gorm:"type:varchar(64)" json:"dateCreated,omitempty"`
	ActiveReports int           `json:"activeReports"`
	ProfileImage  string        `gorm:"type:text" json:"profileImage,omitempty"`
	BannerImage   string        `gorm:"type:text" json:"bannerImage,omitempty"`

	// Version guards concurrent operator edits: an overwrite must carry
	// the version it was based on or it is rejected with a conflict.
	Version   int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is one chat entry in a channel. TransactionID references a
// User's UserID but is deliberately not validated to exist: clients may
// start writing before the operator creates the record.
type Message struct {
	ID            uint64    `gorm:"primaryKey" json:"id"`
	TransactionID string    `gorm:"index;type:varchar(64);not null" json:"transactionId"`
	Sender        Sender    `gorm:"type:varchar(16);not null" json:"sender"`
	Text          string    `gorm:"type:text" json:"text"`
	CreatedAt     time.Time `json:"timestamp"`
}

// Admin is a moderation console account. Passwords are stored only as
// bcrypt hashes; the hash never leaves the service.
type Admin struct {
	Username     string    `gorm:"primaryKey;type:varchar(64)" json:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	SuperAdmin   bool      `gorm:"not null;default:false" json:"superAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ModLog is an append-only record of a moderation action. Entries are
// never cascaded: they outlive the user record they reference.
type ModLog struct {
	ID               uint64    `gorm:"primaryKey" json:"id"`
	AdminName        string    `gorm:"type:varchar(64);index;not null" json:"adminName"`
	Action           string    `gorm:"type:varchar(32);not null" json:"action"`
	AffectedUsername string    `gorm:"type:varchar(255)" json:"affectedUsername"`
	AffectedUserID   string    `gorm:"type:varchar(64);index" json:"affectedUserID"`
	Timestamp        string    `gorm:"type:varchar(64)" json:"timestamp"`
	CreatedAt        time.Time `json:"createdAt"`
}
