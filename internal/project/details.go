package project

import "cityinit.org/internal/auth"

type stageInfo struct {
	label    string
	progress int
	next     string
}

var stages = map[Status]stageInfo{
	StatusDraft:              {"Draft", 0, "AI review"},
	StatusAIScoring:          {"AI review", 10, "Duplicate check"},
	StatusDuplicateCheck:     {"Duplicate check", 20, "Resource planning"},
	StatusResourceGeneration: {"Resource planning", 30, "Refinement"},
	StatusRefinement:         {"Refinement", 40, "Publication"},
	StatusActive:             {"Looking for a partner", 50, "Partner assigned"},
	StatusNGOPartnered:       {"In progress", 75, "Completion"},
	StatusSuccess:            {"Completed", 100, ""},
	StatusRejected:           {"Rejected", 0, "Appeal"},
	StatusAppealPending:      {"Appeal under review", 0, "Admin decision"},
}

// Collaborator is a person or organisation working on a project.
type Collaborator struct {
	ID   string    `json:"id,omitempty"`
	Name string    `json:"name"`
	Role auth.Role `json:"role"`
}

// BudgetSummary splits the budget into spent and remaining.
type BudgetSummary struct {
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
	Total     float64 `json:"total"`
}

// Details is the expanded project card.
type Details struct {
	View
	Stage            string         `json:"stage"`
	Progress         int            `json:"progress"`
	NextMilestone    string         `json:"nextMilestone"`
	Collaborators    []Collaborator `json:"collaborators"`
	Documents        []string       `json:"documents"`
	BudgetSummary    BudgetSummary  `json:"budgetSummary"`
	ParticipantCount int            `json:"participantCount"`
	PendingJoinCount int            `json:"pendingJoinCount"`
	ResourceCount    int            `json:"resourceCount"`
	Partner          string         `json:"partner,omitempty"`
}

// NewDetails renders the expanded card. The display names may be empty when
// the accounts are gone.
func NewDetails(p Project, a Actor, initiatorName, partnerName string) Details {
	v := NewView(p, a)
	info := stages[v.Status]

	total := v.DisplayBudget
	var spent float64
	if v.Status == StatusSuccess {
		spent = total
	}

	collaborators := []Collaborator{{ID: v.InitiatorID, Name: initiatorName, Role: auth.RoleInitiator}}
	if v.NPOID != "" {
		collaborators = append(collaborators, Collaborator{ID: v.NPOID, Name: partnerName, Role: auth.RoleNPO})
	}
	for _, name := range v.Participants {
		if name == initiatorName {
			continue
		}
		collaborators = append(collaborators, Collaborator{Name: name, Role: auth.RoleInitiator})
	}

	docs := []string{}
	if v.Image != "" {
		docs = append(docs, v.Image)
	}

	return Details{
		View:             v,
		Stage:            info.label,
		Progress:         info.progress,
		NextMilestone:    info.next,
		Collaborators:    collaborators,
		Documents:        docs,
		BudgetSummary:    BudgetSummary{Spent: spent, Remaining: total - spent, Total: total},
		ParticipantCount: len(v.Participants),
		PendingJoinCount: len(v.PendingJoinRequests),
		ResourceCount:    len(v.Resources),
		Partner:          partnerName,
	}
}
