package agent

import "fmt"

// Stage temperatures follow the intuition that drafting benefits from some
// variety while review and final enforcement should be near-deterministic.
const (
	plannerTemperature   = 0.4
	reviewerTemperature  = 0.25
	finalizerTemperature = 0.0
)

const plannerSystem = `You are Planner. Create a first draft of topical tags and a summary for a blog submission.
Return a draft with:
- tags: exactly 3 short topical tags (2-4 words each if possible)
- summary: ONE sentence, 25 words or fewer
Infer everything from the given title and content; do not hardcode any domain.`

const reviewerSystem = `You are Reviewer. Review the Planner's draft and improve relevance and clarity.
Keep the same shape: exactly 3 topical tags and a one-sentence summary of 25 words or fewer.
Point out and fix anything vague, redundant, or off-topic. Base everything only on the given title and content.`

const finalizerSystem = `You are Finalizer. Produce the final publish JSON from the reviewed draft.
RETURN EXACTLY and ONLY a JSON object with keys: tags, summary.
- tags: an array of exactly 3 topical tags (strings).
- summary: ONE sentence, 25 words max.
NO extra keys, NO commentary, NO markdown, NO surrounding text.`

// buildPrompt assembles the user prompt for a role from the context,
// embedding every prior-stage output the role is allowed to see.
func buildPrompt(role Role, ac *Context) (system, user string, temperature float64) {
	title := ac.Submission.Title
	content := ac.Submission.Content

	switch role {
	case RolePlanner:
		user = fmt.Sprintf("TITLE:\n%s\n\nCONTENT:\n%s\n\nReturn the draft now.", title, content)
		if ac.Guidance != "" {
			user = fmt.Sprintf("IMPORTANT: A previous attempt was rejected: %s. Avoid repeating that mistake.\n\n%s", ac.Guidance, user)
		}
		return plannerSystem, user, plannerTemperature

	case RoleReviewer:
		user = fmt.Sprintf("TITLE:\n%s\n\nCONTENT:\n%s\n\nPLANNER_DRAFT:\n%s\n\nReturn the improved draft now.",
			title, content, ac.PlannerOutput)
		return reviewerSystem, user, reviewerTemperature

	case RoleFinalizer:
		user = fmt.Sprintf("TITLE:\n%s\n\nCONTENT:\n%s\n\nREVIEWED_DRAFT:\n%s\n\nReturn the JSON now.",
			title, content, ac.ReviewerOutput)
		return finalizerSystem, user, finalizerTemperature
	}

	return "", "", 0
}
