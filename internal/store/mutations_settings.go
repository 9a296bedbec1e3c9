package store

import (
	"errors"
	"fmt"

	"github.com/ephyr-go/restreamer/internal/argonhash"
)

// PasswordKind selects which of the state document's two password hashes
// a set_password call targets: the dashboard/API password, or the one
// handed to viewers of the public HLS/RTMP output endpoints.
type PasswordKind int

const (
	PasswordMain PasswordKind = iota
	PasswordOutput
)

// ErrNoOldPassword is returned when a password is already set and old is
// empty.
var ErrNoOldPassword = errors.New("store: old password required")

// ErrWrongOldPassword is returned when old does not match the currently
// set password.
var ErrWrongOldPassword = errors.New("store: wrong old password")

// SetPassword implements set_password(kind, old?, new?). An empty new
// clears the password for kind. If a password is already set, old must
// verify against it before the change is applied.
func (s *Store) SetPassword(kind PasswordKind, old, newPassword string) (Result, error) {
	var newHash *string
	if newPassword != "" {
		h, err := argonhash.Hash(newPassword)
		if err != nil {
			return NoChange, fmt.Errorf("hash password: %w", err)
		}
		newHash = &h
	}

	var verifyErr error
	res, err := s.commit(func(draft *State) (Result, error) {
		cur := draft.PasswordHash
		if kind == PasswordOutput {
			cur = draft.PasswordOutputHash
		}
		if cur != nil {
			if old == "" {
				verifyErr = ErrNoOldPassword
				return NoChange, nil
			}
			if err := argonhash.Verify(old, *cur); err != nil {
				verifyErr = ErrWrongOldPassword
				return NoChange, nil
			}
		}
		if kind == PasswordOutput {
			draft.PasswordOutputHash = newHash
		} else {
			draft.PasswordHash = newHash
		}
		return Applied, nil
	})
	if verifyErr != nil {
		return NoChange, verifyErr
	}
	return res, err
}

// SetSettings implements the settings-field mutations of §4.1: title and
// the two confirmation toggles are updated independently, nil meaning
// "leave unchanged".
func (s *Store) SetSettings(title *string, deleteConfirmation, enableConfirmation *bool) Result {
	res, _ := s.commit(func(draft *State) (Result, error) {
		changed := false
		if title != nil && (draft.Settings.Title == nil || *draft.Settings.Title != *title) {
			draft.Settings.Title = title
			changed = true
		}
		if deleteConfirmation != nil && (draft.Settings.DeleteConfirmation == nil || *draft.Settings.DeleteConfirmation != *deleteConfirmation) {
			draft.Settings.DeleteConfirmation = deleteConfirmation
			changed = true
		}
		if enableConfirmation != nil && (draft.Settings.EnableConfirmation == nil || *draft.Settings.EnableConfirmation != *enableConfirmation) {
			draft.Settings.EnableConfirmation = enableConfirmation
			changed = true
		}
		if !changed {
			return NoChange, nil
		}
		return Applied, nil
	})
	return res
}
