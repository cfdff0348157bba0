package cases

import (
	"errors"

	"github.com/linesmerrill/dharma-case-api/databases"
)

var (
	// ErrNotFound is returned when no case has the requested id
	ErrNotFound = errors.New("case not found")
	// ErrEmptyUpdate is returned when an update sets no field
	ErrEmptyUpdate = errors.New("update sets no case fields")
	// ErrFieldNotOwned is returned when an actor writes a report owned by another role
	ErrFieldNotOwned = errors.New("field is owned by another role")
	// ErrForbidden is returned when the actor's role may not perform the operation
	ErrForbidden = errors.New("role may not perform this operation")
	// ErrInvalidStatus is returned for an unknown status value
	ErrInvalidStatus = errors.New("unknown case status")
	// ErrStatusRegression is returned when a status change would not move forward
	ErrStatusRegression = errors.New("case status may only move forward")
	// ErrInvalidParticipant is returned when a participant lacks an id or a known role
	ErrInvalidParticipant = errors.New("participant needs an id and a known role")
)

// ErrVersionConflict is returned when a case kept changing underneath a mutation
var ErrVersionConflict = databases.ErrVersionConflict

// ErrInvalidCase is returned when a new case is missing its title
var ErrInvalidCase = errors.New("case needs a title")
