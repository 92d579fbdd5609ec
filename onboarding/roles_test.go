package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/famzila/contract-whisperer-backend/model"
)

func TestMapPartyRoleToUserRole(t *testing.T) {
	cases := map[string]model.UserRole{
		"Employer":         model.RoleEmployer,
		"employee":         model.RoleEmployee,
		"Client":           model.RoleClient,
		"Customer":         model.RoleClient,
		"Vendor":           model.RoleContractor,
		"Service Provider": model.RoleContractor,
		"Freelancer":       model.RoleContractor,
		"Lessor":           model.RoleLandlord,
		"Landlord":         model.RoleLandlord,
		"Lessee":           model.RoleTenant,
		"Tenant ":          model.RoleTenant,
		"Purchaser":        model.RoleBuyer,
		"Disclosing Party": model.RoleDisclosingParty,
		"Receiving Party":  model.RoleReceivingParty,
		"both":             model.RoleBoth,
	}
	for raw, want := range cases {
		assert.Equal(t, want, MapPartyRoleToUserRole(raw), "raw role %q", raw)
	}
}

func TestMapPartyRoleToUserRoleUnknownPassesThroughLowercased(t *testing.T) {
	assert.Equal(t, model.RoleUnknown, MapPartyRoleToUserRole("Unknown"))
	assert.Equal(t, model.UserRole("guarantor"), MapPartyRoleToUserRole("Guarantor"))
}

func TestRoleOptionsForNamedParties(t *testing.T) {
	parties := &model.PartyDetectionResult{
		Confidence: model.PartyConfidenceHigh,
		Parties: &model.DetectedParties{
			Party1: model.Party{Name: "Acme GmbH", Role: "Employer"},
			Party2: model.Party{Name: "Jane Doe", Role: "Employee"},
		},
	}
	opts := RoleOptionsFor(parties)
	if assert.Len(t, opts, 3) {
		assert.Equal(t, "Acme GmbH (Employer)", opts[0].Label)
		assert.Equal(t, model.RoleEmployer, opts[0].Value)
		assert.Equal(t, model.RoleEmployee, opts[1].Value)
		assert.Equal(t, model.RoleBoth, opts[2].Value)
	}
}

func TestRoleOptionsForLowConfidenceFallsBackToGenericList(t *testing.T) {
	opts := RoleOptionsFor(&model.PartyDetectionResult{Confidence: model.PartyConfidenceLow})
	assert.Len(t, opts, 7)
	assert.Equal(t, model.RoleBoth, opts[len(opts)-1].Value)

	assert.Equal(t, opts, RoleOptionsFor(nil))
}
