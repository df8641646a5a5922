// internal/protocol/validate.go
package protocol

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxNicknameLength = 16
	MaxRoomNameLength = 20
	MaxPasswordLength = 20
)

// Field indices reported alongside validation errors so clients can
// highlight the exact offending input.
const (
	MistakeNickname = 0
	MistakeRoomName = 1
	MistakePassword = 2
	MistakeLookup   = 3
)

var rxRoomName = regexp.MustCompile(`^[0-9A-Za-z\s\-]+$`)

// FieldError is a human-readable rejection plus the index of the input
// field that caused it.
type FieldError struct {
	Message string
	Field   int
}

func (e *FieldError) Error() string {
	return e.Message
}

// ValidateNickname checks a trimmed nickname. Returns nil when valid.
func ValidateNickname(nickname string) *FieldError {
	if nickname == "" {
		return &FieldError{"Nickname cannot be empty.", MistakeNickname}
	}
	if utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return &FieldError{"Nickname too long.", MistakeNickname}
	}
	if strings.TrimSpace(nickname) == "" {
		return &FieldError{"Nickname cannot be whitespace.", MistakeNickname}
	}
	return nil
}

// RoomRequest is the create-or-join body of the pre-connection surface.
type RoomRequest struct {
	Nickname string `json:"nickname"`
	RoomName string `json:"roomName"`
	RoomPass string `json:"roomPass"`
	Create   bool   `json:"create"`
}

// Sanitize trims the free-form fields in place. The password is left
// untouched: leading whitespace in a password is deliberate.
func (r *RoomRequest) Sanitize() {
	r.Nickname = strings.TrimSpace(r.Nickname)
	r.RoomName = strings.TrimSpace(r.RoomName)
}

// Validate checks the request. Room-name and password rules only apply
// when creating; a join only needs a valid nickname.
func (r *RoomRequest) Validate() *FieldError {
	if err := ValidateNickname(r.Nickname); err != nil {
		return err
	}
	if !r.Create {
		return nil
	}
	if utf8.RuneCountInString(r.RoomName) > MaxRoomNameLength {
		return &FieldError{"Room name too long.", MistakeRoomName}
	}
	if strings.TrimSpace(r.RoomName) == "" {
		return &FieldError{"Room name cannot be whitespace.", MistakeRoomName}
	}
	if !rxRoomName.MatchString(r.RoomName) {
		return &FieldError{"Room name may only contain letters, numbers, and hyphens.", MistakeRoomName}
	}
	if utf8.RuneCountInString(r.RoomPass) > MaxPasswordLength {
		return &FieldError{"Room password too long.", MistakePassword}
	}
	return nil
}

// JoinRequest is the direct-join body used by players following a
// shared room link.
type JoinRequest struct {
	Nickname string `json:"nickname"`
	RoomID   string `json:"roomID"`
}

func (j *JoinRequest) Sanitize() {
	j.Nickname = strings.TrimSpace(j.Nickname)
	j.RoomID = strings.TrimSpace(j.RoomID)
}

func (j *JoinRequest) Validate() *FieldError {
	return ValidateNickname(j.Nickname)
}

// WSQuery carries the query parameters of a connection attempt.
type WSQuery struct {
	RoomID   string
	Nickname string
}

// NewWSQuery trims both parameters.
func NewWSQuery(roomID, nickname string) WSQuery {
	return WSQuery{RoomID: strings.TrimSpace(roomID), Nickname: strings.TrimSpace(nickname)}
}

// Validate checks the connection query. Returns nil when acceptable.
func (q WSQuery) Validate() *FieldError {
	if q.RoomID == "" {
		return &FieldError{"Room ID cannot be empty.", MistakeLookup}
	}
	return ValidateNickname(q.Nickname)
}
