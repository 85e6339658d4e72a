package service

import (
	"time"

	"bloodlink/internal/matching"
)

// RegisterCommand carries validated registration input from the handler.
type RegisterCommand struct {
	Name             string
	Phone            string
	Email            string
	BloodGroup       matching.BloodGroup
	DateOfBirth      *time.Time
	Address          string
	City             string
	Area             string
	Coordinates      *matching.Coordinates
	LastDonationDate *time.Time
}
