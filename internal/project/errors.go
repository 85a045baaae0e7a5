package project

import "errors"

var (
	ErrNotFound            = errors.New("project not found")
	ErrInvalidName         = errors.New("project name must be at least 2 characters")
	ErrInvalidSlug         = errors.New("slug must be 3-50 lowercase letters, numbers or hyphens")
	ErrSlugTaken           = errors.New("this slug is already taken")
	ErrForbidden           = errors.New("access denied")
	ErrCollaboratorMissing = errors.New("collaborator not found")
	ErrInvitationMissing   = errors.New("invitation not found")
	ErrInvalidEmail        = errors.New("please enter a valid email address")
	ErrInvalidRole         = errors.New("role must be EDITOR or VIEWER")
	ErrSelfInvite          = errors.New("you cannot invite yourself")
	ErrAlreadyCollaborator = errors.New("this user is already a collaborator")
	ErrAlreadyInvited      = errors.New("an invitation has already been sent to this email")
)
