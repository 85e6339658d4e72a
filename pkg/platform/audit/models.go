package audit

import "time"

// Event is emitted from service logic to capture workflow actions on donors
// and emergency requests. Keep it transport-agnostic so stores can fan out.
type Event struct {
	Timestamp time.Time
	// Subject is the ID of the entity the action applies to.
	Subject   string
	Action    string
	ActorID   string
	RequestID string
	Reason    string
}

type Action string

const (
	EventDonorRegistered   Action = "donor_registered"
	EventDonorUpdated      Action = "donor_updated"
	EventDonorDeactivated  Action = "donor_deactivated"
	EventDonorReactivated  Action = "donor_reactivated"
	EventDonationRecorded  Action = "donation_recorded"
	EventRequestCreated    Action = "emergency_request_created"
	EventRequestApproved   Action = "emergency_request_approved"
	EventRequestRejected   Action = "emergency_request_rejected"
	EventRequestCompleted  Action = "emergency_request_completed"
	EventDonorSearchServed Action = "donor_search_served"
)
