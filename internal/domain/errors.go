package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrStaleVoiceSelection = errors.New("selected voice is not among the offered candidates")
	ErrBuildInProgress     = errors.New("a build is already in progress for this session")
	ErrJobTimeout          = errors.New("background job did not resolve within the deadline")
	ErrJobNotStarted       = errors.New("no background job registered for this key")
	ErrNoVoiceSelected     = errors.New("no voice selected for this session")
	ErrSessionNotResumable = errors.New("session phase does not allow this operation")
	ErrCollaboratorFailed  = errors.New("external collaborator call failed")
)
