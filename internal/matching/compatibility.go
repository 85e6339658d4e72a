package matching

// compatibleDonors maps a receiver group to the donor groups that may supply it.
var compatibleDonors = map[BloodGroup][]BloodGroup{
	ONeg:  {ONeg},
	OPos:  {ONeg, OPos},
	ANeg:  {ONeg, ANeg},
	APos:  {ONeg, OPos, ANeg, APos},
	BNeg:  {ONeg, BNeg},
	BPos:  {ONeg, OPos, BNeg, BPos},
	ABNeg: {ONeg, ANeg, BNeg, ABNeg},
	ABPos: {ONeg, OPos, ANeg, APos, BNeg, BPos, ABNeg, ABPos},
}

// CompatibleDonors returns the donor groups that may give to receiver.
// The slice is a fresh copy.
func CompatibleDonors(receiver BloodGroup) ([]BloodGroup, error) {
	donors, ok := compatibleDonors[receiver]
	if !ok {
		return nil, invalidBloodGroup(string(receiver))
	}
	out := make([]BloodGroup, len(donors))
	copy(out, donors)
	return out, nil
}

// CompatibleRecipients returns the receiver groups donor may give to,
// in AllBloodGroups order.
func CompatibleRecipients(donor BloodGroup) ([]BloodGroup, error) {
	if !donor.Valid() {
		return nil, invalidBloodGroup(string(donor))
	}
	var out []BloodGroup
	for _, receiver := range allBloodGroups {
		if CanDonateTo(donor, receiver) {
			out = append(out, receiver)
		}
	}
	return out, nil
}

// CanDonateTo reports whether donor blood may be transfused into receiver.
// Unknown groups on either side are never compatible.
func CanDonateTo(donor, receiver BloodGroup) bool {
	for _, g := range compatibleDonors[receiver] {
		if g == donor {
			return true
		}
	}
	return false
}
