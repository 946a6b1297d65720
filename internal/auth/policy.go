package auth

import (
	"strconv"
	"strings"
)

// PolicyService decides who may use the assistant. Telegram users are
// identified by numeric ID and web users by their verified email.
type PolicyService struct {
	AdminUserIDs   map[int64]bool
	AllowedUserIDs map[int64]bool // if empty, all Telegram users are allowed
	AdminEmails    map[string]bool
	AllowedEmails  map[string]bool // if empty, every signed-in user is allowed
}

// NewPolicyService creates a new PolicyService from comma-separated Telegram user IDs.
func NewPolicyService(adminUserIDsStr, allowedUserIDsStr string) *PolicyService {
	return &PolicyService{
		AdminUserIDs:   parseIDs(adminUserIDsStr),
		AllowedUserIDs: parseIDs(allowedUserIDsStr),
		AdminEmails:    map[string]bool{},
		AllowedEmails:  map[string]bool{},
	}
}

// WithEmails sets the web allow and admin lists. Emails compare case-insensitively.
func (p *PolicyService) WithEmails(adminEmails, allowedEmails []string) *PolicyService {
	p.AdminEmails = emailSet(adminEmails)
	p.AllowedEmails = emailSet(allowedEmails)
	return p
}

func parseIDs(s string) map[int64]bool {
	ids := make(map[int64]bool)
	if s == "" {
		return ids
	}
	for _, idStr := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err == nil {
			ids[id] = true
		}
	}
	return ids
}

func emailSet(emails []string) map[string]bool {
	set := make(map[string]bool, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			set[e] = true
		}
	}
	return set
}

// IsAdmin checks if a Telegram user is an admin.
func (p *PolicyService) IsAdmin(userID int64) bool {
	return p.AdminUserIDs[userID]
}

// IsAllowed checks if a Telegram user is allowed to use the bot.
func (p *PolicyService) IsAllowed(userID int64) bool {
	if len(p.AllowedUserIDs) == 0 {
		return true
	}
	// Admins are always allowed
	if p.IsAdmin(userID) {
		return true
	}
	return p.AllowedUserIDs[userID]
}

// IsEmailAdmin checks if a signed-in web user is an admin.
func (p *PolicyService) IsEmailAdmin(email string) bool {
	return p.AdminEmails[strings.ToLower(email)]
}

// IsEmailAllowed checks if a signed-in web user may use the application.
func (p *PolicyService) IsEmailAllowed(email string) bool {
	if email == "" {
		return false
	}
	if len(p.AllowedEmails) == 0 || p.IsEmailAdmin(email) {
		return true
	}
	return p.AllowedEmails[strings.ToLower(email)]
}

// IsToolAllowed checks if a Telegram user may run a chat tool.
func (p *PolicyService) IsToolAllowed(userID int64, toolName string) bool {
	if p.IsAdmin(userID) {
		return true
	}
	switch toolName {
	case "search_documents", "web_search":
		return true
	case "speech":
		// Speech costs money per character
		return len(p.AllowedUserIDs) > 0 && p.AllowedUserIDs[userID]
	default:
		return false
	}
}
