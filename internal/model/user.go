package model

import "time"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleViewer    Role = "viewer"
)

// NotifiableRoles are the roles that receive back-office notifications.
var NotifiableRoles = []Role{RoleAdmin, RoleModerator}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleViewer:
		return true
	}
	return false
}

// NotificationPreferences holds per-channel switches. A nil switch means the
// user never chose and is treated as opted in.
type NotificationPreferences struct {
	Email *bool `json:"email,omitempty"`
}

type Preferences struct {
	Notifications *NotificationPreferences `json:"notifications,omitempty"`
}

type AdminUser struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Role        Role         `json:"role"`
	IsActive    bool         `json:"isActive"`
	Preferences *Preferences `json:"preferences,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Eligible reports whether the user may receive notifications at all:
// active and holding an admin or moderator role.
func (u AdminUser) Eligible() bool {
	if !u.IsActive {
		return false
	}
	for _, r := range NotifiableRoles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// EmailNotificationsEnabled is false only when the user explicitly turned
// email notifications off.
func (u AdminUser) EmailNotificationsEnabled() bool {
	if u.Preferences == nil || u.Preferences.Notifications == nil || u.Preferences.Notifications.Email == nil {
		return true
	}
	return *u.Preferences.Notifications.Email
}
