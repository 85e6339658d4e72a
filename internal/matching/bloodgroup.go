// Package matching selects and ranks donors for an emergency blood request.
//
// Everything here is a pure function of its inputs: no I/O, no logging, no
// shared mutable state. Callers load candidates and resolve coordinates
// before invoking MatchDonorsForRequest.
package matching

import (
	"fmt"

	dErrors "bloodlink/pkg/domain-errors"
)

// BloodGroup is an ABO type plus Rh factor.
type BloodGroup string

const (
	APos  BloodGroup = "A+"
	ANeg  BloodGroup = "A-"
	BPos  BloodGroup = "B+"
	BNeg  BloodGroup = "B-"
	ABPos BloodGroup = "AB+"
	ABNeg BloodGroup = "AB-"
	OPos  BloodGroup = "O+"
	ONeg  BloodGroup = "O-"
)

var allBloodGroups = [...]BloodGroup{APos, ANeg, BPos, BNeg, ABPos, ABNeg, OPos, ONeg}

// AllBloodGroups returns the eight groups in a fixed order.
func AllBloodGroups() []BloodGroup {
	out := make([]BloodGroup, len(allBloodGroups))
	copy(out, allBloodGroups[:])
	return out
}

// ParseBloodGroup accepts exactly one of the eight canonical tokens.
// Anything else, including lower-case spellings, is rejected.
func ParseBloodGroup(s string) (BloodGroup, error) {
	g := BloodGroup(s)
	if !g.Valid() {
		return "", invalidBloodGroup(s)
	}
	return g, nil
}

func (g BloodGroup) Valid() bool {
	_, ok := compatibleDonors[g]
	return ok
}

func (g BloodGroup) String() string { return string(g) }

func invalidBloodGroup(token string) error {
	return &dErrors.Error{
		Code:    dErrors.CodeInvalidBloodGroup,
		Message: fmt.Sprintf("unrecognized blood group %q", token),
	}
}
