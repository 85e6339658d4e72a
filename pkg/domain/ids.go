// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "bloodlink/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a DonorID where an EmergencyRequestID is expected.
type (
	DonorID            uuid.UUID
	EmergencyRequestID uuid.UUID
)

// NewDonorID returns a fresh random donor identifier.
func NewDonorID() DonorID { return DonorID(uuid.New()) }

// NewEmergencyRequestID returns a fresh random request identifier.
func NewEmergencyRequestID() EmergencyRequestID { return EmergencyRequestID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseDonorID(s string) (DonorID, error) {
	id, err := parseUUID(s, "donor ID")
	return DonorID(id), err
}

func ParseEmergencyRequestID(s string) (EmergencyRequestID, error) {
	id, err := parseUUID(s, "request ID")
	return EmergencyRequestID(id), err
}

func (id DonorID) String() string            { return uuid.UUID(id).String() }
func (id EmergencyRequestID) String() string { return uuid.UUID(id).String() }

func (id DonorID) IsNil() bool            { return uuid.UUID(id) == uuid.Nil }
func (id EmergencyRequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText keeps IDs readable in JSON payloads and map keys.
func (id DonorID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *DonorID) UnmarshalText(b []byte) error {
	parsed, err := ParseDonorID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id EmergencyRequestID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *EmergencyRequestID) UnmarshalText(b []byte) error {
	parsed, err := ParseEmergencyRequestID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}
