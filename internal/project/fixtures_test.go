package project

import (
	"time"

	"cityinit.org/internal/auth"
	"cityinit.org/internal/estimate"
)

var (
	t0 = time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)

	owner   = Actor{ID: "u-owner", Name: "Owner", Role: auth.RoleInitiator}
	citizen = Actor{ID: "u-citizen", Name: "Citizen", Role: auth.RoleInitiator}
	npo     = Actor{ID: "npo-2", Name: "Blue NPO", Role: auth.RoleNPO, ApprovedNPO: true}
	partner = Actor{ID: "npo-1", Name: "Green NPO", Role: auth.RoleNPO, ApprovedNPO: true}
	pending = Actor{ID: "npo-3", Name: "New NPO", Role: auth.RoleNPO}
	admin   = Actor{ID: "u-admin", Name: "Admin", Role: auth.RoleAdmin}
)

func newActive() Project {
	p, err := New(owner, "p-1", NewProject{
		Title:       "Clean the riverbank",
		Description: "Collect litter along the embankment",
		Type:        "ecology",
		Resources: estimate.Ledger{
			{Name: "Trash bags", Quantity: 10, UnitPrice: 35},
			{Name: "Gloves", Quantity: 20, UnitPrice: 12},
		},
	}, t0)
	if err != nil {
		panic(err)
	}
	return p
}

func withStatus(s Status) Project {
	p := newActive()
	p.Status = s
	if s == StatusNGOPartnered || s == StatusSuccess {
		p.NPOID = partner.ID
	}
	return p
}
