package matching

// Format projects ranked donors into MatchedDonor records, 1:1 and in order.
func Format(ranked []Donor) []MatchedDonor {
	out := make([]MatchedDonor, 0, len(ranked))
	for _, d := range ranked {
		md := MatchedDonor{
			ID:         d.ID,
			Name:       d.Name,
			BloodGroup: d.BloodGroup,
			City:       d.Location.City,
			Area:       d.Location.Area,
			Phone:      d.Phone,
		}
		if c := d.Location.Coordinates; c != nil {
			lat, lon := c.Latitude, c.Longitude
			md.Latitude, md.Longitude = &lat, &lon
		}
		out = append(out, md)
	}
	return out
}
