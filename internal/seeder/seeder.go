package seeder

import (
	"context"
	"fmt"
	"log/slog"

	donormodels "bloodlink/internal/donor/models"
	donorservice "bloodlink/internal/donor/service"
	emergencymodels "bloodlink/internal/emergency/models"
	emergencyservice "bloodlink/internal/emergency/service"
	"bloodlink/internal/location"
	"bloodlink/internal/matching"
	"bloodlink/pkg/requestcontext"
)

// DonorRegistry registers demo donors through the normal validation path.
type DonorRegistry interface {
	Register(ctx context.Context, cmd *donorservice.RegisterCommand) (*donormodels.Donor, error)
}

// RequestIntake creates demo emergency requests.
type RequestIntake interface {
	Create(ctx context.Context, cmd *emergencyservice.CreateCommand) (*emergencymodels.Request, error)
}

// Gazetteer receives the demo place coordinates.
type Gazetteer interface {
	Add(p location.Place)
}

// Seeder populates in-memory stores with demo data
type Seeder struct {
	donors    DonorRegistry
	requests  RequestIntake
	gazetteer Gazetteer
	logger    *slog.Logger
}

// New creates a new seeder. requests and gazetteer may be nil.
func New(donors DonorRegistry, requests RequestIntake, gazetteer Gazetteer, logger *slog.Logger) *Seeder {
	return &Seeder{
		donors:    donors,
		requests:  requests,
		gazetteer: gazetteer,
		logger:    logger,
	}
}

// Places is the demo gazetteer: a few areas in Dhaka and nearby cities.
var Places = []location.Place{
	{City: "Dhaka", Area: "Mirpur", Coordinates: matching.Coordinates{Latitude: 23.8223, Longitude: 90.3654}},
	{City: "Dhaka", Area: "Gulshan", Coordinates: matching.Coordinates{Latitude: 23.7925, Longitude: 90.4078}},
	{City: "Dhaka", Area: "Uttara", Coordinates: matching.Coordinates{Latitude: 23.8759, Longitude: 90.3795}},
	{City: "Dhaka", Area: "Dhanmondi", Coordinates: matching.Coordinates{Latitude: 23.7461, Longitude: 90.3742}},
	{City: "Gazipur", Area: "Tongi", Coordinates: matching.Coordinates{Latitude: 23.8915, Longitude: 90.4023}},
	{City: "Narayanganj", Area: "Fatullah", Coordinates: matching.Coordinates{Latitude: 23.6406, Longitude: 90.4947}},
	{City: "Chattogram", Area: "Agrabad", Coordinates: matching.Coordinates{Latitude: 22.3264, Longitude: 91.8121}},
	{City: "Sylhet", Area: "Zindabazar", Coordinates: matching.Coordinates{Latitude: 24.8949, Longitude: 91.8687}},
}

// SeedAll populates all stores with demo data
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("seeding demo data...")

	s.seedPlaces()

	donors, err := s.seedDonors(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed donors: %w", err)
	}

	requests, err := s.seedRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed emergency requests: %w", err)
	}

	s.logger.Info("demo data seeded successfully",
		"donors", donors,
		"requests", requests,
		"places", len(Places),
	)

	return nil
}

func (s *Seeder) seedPlaces() {
	if s.gazetteer == nil {
		return
	}
	for _, p := range Places {
		s.gazetteer.Add(p)
	}
}

func (s *Seeder) seedDonors(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)

	// lastDonation is days ago; 0 means never donated.
	demoDonors := []struct {
		name         string
		phone        string
		group        matching.BloodGroup
		city         string
		area         string
		lastDonation int
	}{
		{"Rahim Uddin", "+8801711000001", matching.OPos, "Dhaka", "Mirpur", 0},
		{"Karima Begum", "+8801711000002", matching.ONeg, "Dhaka", "Mirpur", 120},
		{"Tanvir Hasan", "+8801711000003", matching.APos, "Dhaka", "Gulshan", 30},
		{"Nusrat Jahan", "+8801711000004", matching.ANeg, "Dhaka", "Uttara", 0},
		{"Sabbir Ahmed", "+8801711000005", matching.BPos, "Dhaka", "Dhanmondi", 95},
		{"Farhana Akter", "+8801711000006", matching.BNeg, "Gazipur", "Tongi", 0},
		{"Imran Hossain", "+8801711000007", matching.ABPos, "Narayanganj", "Fatullah", 200},
		{"Shirin Sultana", "+8801711000008", matching.ABNeg, "Chattogram", "Agrabad", 0},
		{"Mahmud Karim", "+8801711000009", matching.ONeg, "Sylhet", "Zindabazar", 60},
		{"Ayesha Siddiqua", "+8801711000010", matching.OPos, "Dhaka", "Uttara", 91},
	}

	for _, d := range demoDonors {
		cmd := &donorservice.RegisterCommand{
			Name:       d.name,
			Phone:      d.phone,
			BloodGroup: d.group,
			City:       d.city,
			Area:       d.area,
		}
		if coords, ok := placeCoordinates(d.city, d.area); ok {
			cmd.Coordinates = &coords
		}
		if d.lastDonation > 0 {
			last := now.AddDate(0, 0, -d.lastDonation)
			cmd.LastDonationDate = &last
		}

		if _, err := s.donors.Register(ctx, cmd); err != nil {
			return 0, fmt.Errorf("register %s: %w", d.name, err)
		}
	}

	return len(demoDonors), nil
}

func (s *Seeder) seedRequests(ctx context.Context) (int, error) {
	if s.requests == nil {
		return 0, nil
	}

	demoRequests := []struct {
		requester string
		phone     string
		hospital  string
		group     matching.BloodGroup
		city      string
		area      string
		units     int
		urgency   matching.Urgency
	}{
		{"Shafiq Rahman", "+8801811000001", "Dhaka Medical College Hospital", matching.ONeg, "Dhaka", "Mirpur", 2, matching.UrgencyCritical},
		{"Lima Khatun", "+8801811000002", "Tongi General Hospital", matching.BPos, "Gazipur", "Tongi", 1, matching.UrgencyHigh},
		{"Rafiq Islam", "+8801811000003", "Chattogram Medical College", matching.ABPos, "Chattogram", "Agrabad", 3, matching.UrgencyMedium},
	}

	for _, r := range demoRequests {
		if _, err := s.requests.Create(ctx, &emergencyservice.CreateCommand{
			RequesterName: r.requester,
			ContactPhone:  r.phone,
			Hospital:      r.hospital,
			BloodGroup:    r.group,
			City:          r.city,
			Area:          r.area,
			UnitsRequired: r.units,
			Urgency:       r.urgency,
		}); err != nil {
			return 0, fmt.Errorf("create request for %s: %w", r.requester, err)
		}
	}

	return len(demoRequests), nil
}

func placeCoordinates(city, area string) (matching.Coordinates, bool) {
	key := location.Key(city, area)
	for _, p := range Places {
		if location.Key(p.City, p.Area) == key {
			return p.Coordinates, true
		}
	}
	return matching.Coordinates{}, false
}
