package engine

import (
	"dayflow/internal/models"
)

// fallbackAwaitingField keeps the AwaitingClarification invariant when the
// interpreter reports a followup without naming the missing fields.
const fallbackAwaitingField = "details"

// TurnOutcome is the result of advancing the session state machine with one
// interpreter response.
type TurnOutcome struct {
	// Proposals is the raw proposal batch to run through the pipeline,
	// built from the completed intent. Empty on clarification turns.
	Proposals []models.Proposal

	// AwaitingClarification reports the resulting state.
	AwaitingClarification bool
}

// ApplyInterpreterResponse advances the clarification state machine.
//
// followup: the returned partial intent is merged into the pending intent
// (whole-field replace), awaiting fields and the last question are recorded,
// and any displayed proposals are cleared. The session is (or stays) in
// AwaitingClarification.
//
// intent/proposal: the session resets to the idle shape and the completed
// intents are returned for the pipeline. The machine has no terminal state;
// it cycles for the life of the conversation.
func ApplyInterpreterResponse(state *models.SessionState, resp *models.InterpreterResponse) TurnOutcome {
	switch resp.Mode {
	case models.ModeFollowup:
		if resp.PendingIntent != nil {
			merged := *resp.PendingIntent
			if state.PendingIntent != nil {
				merged = state.PendingIntent.Merge(*resp.PendingIntent)
			}
			state.PendingIntent = &merged
		}

		state.AwaitingFields = resp.AwaitingFields
		if len(state.AwaitingFields) == 0 {
			state.AwaitingFields = []string{fallbackAwaitingField}
		}

		state.LastQuestion = resp.FollowUpQuestion
		if state.LastQuestion == "" {
			state.LastQuestion = resp.AssistantText
		}
		state.LastProposals = nil

		return TurnOutcome{AwaitingClarification: true}

	case models.ModeIntent, models.ModeProposal:
		var proposals []models.Proposal
		if resp.Intent != nil {
			intent := *resp.Intent
			if state.PendingIntent != nil {
				intent = state.PendingIntent.Merge(*resp.Intent)
			}
			proposals = []models.Proposal{intentToProposal(intent)}
		} else if len(resp.Proposals) > 0 {
			proposals = resp.Proposals
		}

		ResetState(state)
		return TurnOutcome{Proposals: proposals}
	}

	// Unknown mode: treat as an implicit rephrase request, trusting none of
	// the partial state.
	state.AwaitingFields = []string{fallbackAwaitingField}
	state.LastQuestion = resp.AssistantText
	state.LastProposals = nil
	return TurnOutcome{AwaitingClarification: true}
}

// ResetState returns the state to the initial empty shape unconditionally.
func ResetState(state *models.SessionState) {
	state.PendingIntent = nil
	state.AwaitingFields = []string{}
	state.LastQuestion = ""
	state.LastProposals = nil
}

func intentToProposal(intent models.SchedulingIntent) models.Proposal {
	pr := models.Proposal{
		Type:            intent.Kind,
		Title:           intent.Title,
		Notes:           intent.Notes,
		Location:        intent.Location,
		DueDate:         intent.DueDate,
		IsAnchor:        intent.IsAnchor,
		DurationMinutes: intent.DurationMinutes,
	}
	if intent.FixedStartAt != nil {
		start := *intent.FixedStartAt
		pr.StartAt = &start
	}
	if intent.FixedEndAt != nil {
		end := *intent.FixedEndAt
		pr.EndAt = &end
	}
	return pr
}
