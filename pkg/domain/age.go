package domain

import "time"

// MinimumDonorAge is the youngest age, in years, at which a person may register as a donor.
const MinimumDonorAge = 18

// IsOfDonorAge reports whether someone born on birthDate has reached
// MinimumDonorAge at now. Uses calendar arithmetic (AddDate), so the
// birthday itself counts.
func IsOfDonorAge(birthDate, now time.Time) bool {
	eligibleAt := birthDate.UTC().AddDate(MinimumDonorAge, 0, 0)
	return !now.UTC().Before(eligibleAt)
}
