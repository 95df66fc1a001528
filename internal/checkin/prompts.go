package checkin

import (
	"time"

	"github.com/exhale-app/exhale/internal/model"
)

var morningPrompts = []string{
	"How are you feeling as the day starts? Notice any urge before it names itself.",
	"What's one thing you can do today instead of reaching for nicotine?",
	"Rate the pull this morning, one to ten. What's behind the number?",
	"What does your body feel like waking up without smoke?",
	"Which moment today is most likely to test you? Plan for it now.",
}

var eveningPrompts = []string{
	"Looking back on today, when was the craving strongest? What did you do?",
	"What went well today that had nothing to do with nicotine?",
	"If today was hard, what would make tomorrow ten percent easier?",
	"Name one trigger you noticed today. Where did it come from?",
	"How do you want to feel when you wake up tomorrow?",
}

var postSessionPrompts = map[string]string{
	"cravings":   "Since our session, how has the craving pattern felt? Any shift?",
	"triggers":   "Have any of the triggers we discussed come up since the session?",
	"stress":     "How has your stress level been since we talked?",
	"identity":   "Have you caught yourself thinking of yourself as a non-smoker since the session?",
	"relapse":    "How are you feeling about the slip we discussed? Be honest, not harsh.",
	"motivation": "Which of the reasons we talked about feels most alive right now?",
}

const defaultPostSessionPrompt = "What has stayed with you from today's session?"

// PromptFor returns the reflection prompt for a check-in. Morning and
// evening prompts rotate by calendar day so consecutive check-ins
// don't repeat; post-session prompts follow the session topic.
func PromptFor(typ model.CheckInType, topicKey string, day time.Time) string {
	switch typ {
	case model.CheckInMorning:
		return morningPrompts[day.YearDay()%len(morningPrompts)]
	case model.CheckInEvening:
		return eveningPrompts[day.YearDay()%len(eveningPrompts)]
	case model.CheckInPostSession:
		if p, ok := postSessionPrompts[topicKey]; ok {
			return p
		}
		return defaultPostSessionPrompt
	}
	return defaultPostSessionPrompt
}

// MilestoneLabel is the human copy for a follow-up milestone, used in
// reminder emails and the interstitial.
func MilestoneLabel(t model.MilestoneType) string {
	switch t {
	case model.MilestoneDay3:
		return "3 days smoke-free"
	case model.MilestoneDay7:
		return "1 week smoke-free"
	case model.MilestoneDay14:
		return "2 weeks smoke-free"
	case model.MilestoneDay30:
		return "1 month smoke-free"
	case model.MilestoneDay90:
		return "3 months smoke-free"
	case model.MilestoneDay180:
		return "6 months smoke-free"
	case model.MilestoneDay365:
		return "1 year smoke-free"
	}
	return string(t)
}
