package gateway

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Input bounds, counted in characters after trimming.
const (
	GuildNameMin = 3

	ChatMin = 2
	ChatMax = 180

	BoardActivityMin = 3
	BoardActivityMax = 40
	BoardMessageMin  = 6
	BoardMessageMax  = 220
	BoardRolesMin    = 3
	BoardRolesMax    = 60
	BoardLevelMin    = 1
	BoardLevelMax    = 60
	BoardMembersMin  = 2
	BoardMembersMax  = 8

	PresenceNoteMax = 60

	CommendReasonMax = 80
	ReportReasonMin  = 8
	ReportReasonMax  = 160
)

const (
	DefaultBoardRoles      = "Tous rôles"
	DefaultBoardMinLevel   = 1
	DefaultBoardMaxMembers = 4

	consumableSlot = "consumable"
)

var presenceStatuses = map[string]struct{}{
	"online":            {},
	"looking_for_group": {},
	"raiding":           {},
	"dueling":           {},
	"afk":               {},
}

func ValidPresenceStatus(s string) bool {
	_, ok := presenceStatuses[s]
	return ok
}

func textLen(op, field, s string, min, max int) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n < min {
		return "", &ValidationError{Op: op, Field: field, Reason: fmt.Sprintf("at least %d characters", min)}
	}
	if max > 0 && n > max {
		return "", &ValidationError{Op: op, Field: field, Reason: fmt.Sprintf("at most %d characters", max)}
	}
	return s, nil
}

func intRange(op, field string, v, min, max int) error {
	if v < min || v > max {
		return &ValidationError{Op: op, Field: field, Reason: fmt.Sprintf("must be between %d and %d", min, max)}
	}
	return nil
}

func otherPlayer(op, field, target, self string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", &ValidationError{Op: op, Field: field, Reason: "required"}
	}
	if target == self {
		return "", &ValidationError{Op: op, Field: field, Reason: "cannot target yourself"}
	}
	return target, nil
}
