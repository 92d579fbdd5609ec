package onboarding

import (
	"strings"

	"github.com/famzila/contract-whisperer-backend/model"
)

// RoleOption is one selectable role presented to the user.
type RoleOption struct {
	Label string         `json:"label"`
	Value model.UserRole `json:"value"`
}

var partyRoleAliases = map[string]model.UserRole{
	"employer":         model.RoleEmployer,
	"employee":         model.RoleEmployee,
	"client":           model.RoleClient,
	"customer":         model.RoleClient,
	"contractor":       model.RoleContractor,
	"vendor":           model.RoleContractor,
	"service provider": model.RoleContractor,
	"freelancer":       model.RoleContractor,
	"landlord":         model.RoleLandlord,
	"lessor":           model.RoleLandlord,
	"tenant":           model.RoleTenant,
	"lessee":           model.RoleTenant,
	"partner":          model.RolePartner,
	"buyer":            model.RoleBuyer,
	"purchaser":        model.RoleBuyer,
	"seller":           model.RoleSeller,
	"disclosing party": model.RoleDisclosingParty,
	"receiving party":  model.RoleReceivingParty,
	"both":             model.RoleBoth,
}

// MapPartyRoleToUserRole normalizes a free-form party role coming from the
// AI or the user into a canonical UserRole. Unrecognized roles pass through
// lowercased so downstream prompts still read naturally.
func MapPartyRoleToUserRole(raw string) model.UserRole {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if role, ok := partyRoleAliases[normalized]; ok {
		return role
	}
	return model.UserRole(normalized)
}

// RoleOptionsFor builds the role choices for the role-selection prompt.
// With confidently detected parties the options are the two named parties
// plus a compare-both entry; otherwise a generic list is offered.
func RoleOptionsFor(parties *model.PartyDetectionResult) []RoleOption {
	if parties != nil && parties.Confidence == model.PartyConfidenceHigh && parties.Parties != nil {
		p1, p2 := parties.Parties.Party1, parties.Parties.Party2
		return []RoleOption{
			{Label: p1.Name + " (" + p1.Role + ")", Value: MapPartyRoleToUserRole(p1.Role)},
			{Label: p2.Name + " (" + p2.Role + ")", Value: MapPartyRoleToUserRole(p2.Role)},
			{Label: "Compare both perspectives", Value: model.RoleBoth},
		}
	}
	return []RoleOption{
		{Label: "Employer", Value: model.RoleEmployer},
		{Label: "Employee", Value: model.RoleEmployee},
		{Label: "Client", Value: model.RoleClient},
		{Label: "Contractor", Value: model.RoleContractor},
		{Label: "Landlord", Value: model.RoleLandlord},
		{Label: "Tenant", Value: model.RoleTenant},
		{Label: "Compare both perspectives", Value: model.RoleBoth},
	}
}
