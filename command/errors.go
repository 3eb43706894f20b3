package command

import (
	"errors"

	"github.com/goliatone/go-activity/pkg/types"
)

var (
	// ErrUserRequired indicates a track request arrived without a user.
	ErrUserRequired = errors.New("go-activity: track requires user")
	// ErrActivityTypeRequired indicates a track request omitted the activity type.
	ErrActivityTypeRequired = errors.New("go-activity: track requires activity type")
	// ErrInvalidActivityType indicates a type outside the closed set.
	ErrInvalidActivityType = types.ErrInvalidActivityType
	// ErrTrackingDisabled indicates the company policy rejected the event.
	ErrTrackingDisabled = errors.New("go-activity: tracking disabled for company")
	// ErrEntriesRequired occurs when bulk track is invoked with no entries.
	ErrEntriesRequired = errors.New("go-activity: bulk track requires entries")
	// ErrMissingPolicy occurs when no tracking policy was supplied.
	ErrMissingPolicy = errors.New("go-activity: missing tracking policy")
	// ErrMissingTrackCommand occurs when bulk track lacks the single-event pipeline.
	ErrMissingTrackCommand = errors.New("go-activity: missing track command")
)
