package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/matching"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/httputil"
)

func ptr[T any](v T) *T { return &v }

func TestRegisterDonorRequest_PrepareAndConvert(t *testing.T) {
	req := &RegisterDonorRequest{
		Name:             "  Karim ",
		Phone:            " 01711-000000 ",
		Email:            " Karim@Example.COM ",
		BloodGroup:       " B- ",
		City:             "Chattogram",
		Area:             "Agrabad",
		LastDonationDate: "2025-01-15",
	}
	require.NoError(t, httputil.PrepareRequest(req))

	cmd, err := req.ToCommand()
	require.NoError(t, err)
	assert.Equal(t, "Karim", cmd.Name)
	assert.Equal(t, "karim@example.com", cmd.Email)
	assert.Equal(t, matching.BNeg, cmd.BloodGroup)
	assert.Nil(t, cmd.Coordinates)
	assert.Nil(t, cmd.DateOfBirth)
	require.NotNil(t, cmd.LastDonationDate)
	assert.Equal(t, 15, cmd.LastDonationDate.Day())
}

func TestRegisterDonorRequest_Validate(t *testing.T) {
	valid := func() *RegisterDonorRequest {
		return &RegisterDonorRequest{Name: "A", Phone: "0171100000", BloodGroup: "O+", City: "Dhaka", Area: "Mirpur"}
	}

	tests := []struct {
		name   string
		mutate func(*RegisterDonorRequest)
		code   dErrors.Code
	}{
		{"bad phone", func(r *RegisterDonorRequest) { r.Phone = "call me" }, dErrors.CodeValidation},
		{"bad email", func(r *RegisterDonorRequest) { r.Email = "nope" }, dErrors.CodeValidation},
		{"unknown group", func(r *RegisterDonorRequest) { r.BloodGroup = "O" }, dErrors.CodeInvalidBloodGroup},
		{"latitude out of range", func(r *RegisterDonorRequest) { r.Latitude, r.Longitude = ptr(91.0), ptr(90.0) }, dErrors.CodeValidation},
		{"bad date", func(r *RegisterDonorRequest) { r.DateOfBirth = "1990/01/01" }, dErrors.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			err := r.Validate()
			assert.True(t, dErrors.HasCode(err, tt.code), "got %v", err)
		})
	}

	assert.NoError(t, valid().Validate())
	var nilReq *RegisterDonorRequest
	assert.True(t, dErrors.HasCode(nilReq.Validate(), dErrors.CodeBadRequest))
}

func TestUpdateDonorRequest(t *testing.T) {
	t.Run("clear with coordinates conflicts", func(t *testing.T) {
		r := &UpdateDonorRequest{Latitude: ptr(23.0), Longitude: ptr(90.0), ClearCoordinates: true}
		assert.Error(t, r.Validate())
	})

	t.Run("patch carries only provided fields", func(t *testing.T) {
		r := &UpdateDonorRequest{Area: ptr(" Tongi ")}
		require.NoError(t, httputil.PrepareRequest(r))
		p := r.ToPatch()
		require.NotNil(t, p.Area)
		assert.Equal(t, "Tongi", *p.Area)
		assert.Nil(t, p.City)
		assert.False(t, p.Empty())
	})

	t.Run("empty body is an empty patch", func(t *testing.T) {
		r := &UpdateDonorRequest{}
		require.NoError(t, r.Validate())
		assert.True(t, r.ToPatch().Empty())
	})
}
