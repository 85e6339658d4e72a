package matching

import "time"

// DonationCooldownDays is the minimum number of whole days between donations.
const DonationCooldownDays = 90

// IsAvailable reports whether d may donate at now: active, and either never
// donated or donated at least DonationCooldownDays calendar days ago.
func IsAvailable(d Donor, now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.LastDonationDate == nil {
		return true
	}
	return DaysSince(*d.LastDonationDate, now) >= DonationCooldownDays
}

// NextEligibleDate returns the first UTC day on which a donor who last gave
// on lastDonation clears the cooldown.
func NextEligibleDate(lastDonation time.Time) time.Time {
	return utcDay(lastDonation).AddDate(0, 0, DonationCooldownDays)
}

// DaysSince counts whole UTC calendar days from then to now. A donation
// earlier today is 0 days ago; negative when then is after now.
func DaysSince(then, now time.Time) int {
	return int(utcDay(now).Sub(utcDay(then)).Hours() / 24)
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
