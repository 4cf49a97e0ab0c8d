package therapy

// SafetyPlan is a personalized coping plan. ImmediateSteps and
// SupportResources are fixed; CopingStrategies vary by modality.
type SafetyPlan struct {
	ImmediateSteps   []string
	CopingStrategies []string
	SupportResources []string
}

// CrisisResponse is the sole response when risk is high or critical:
// templated messaging, the three canonical resources, and a mandatory
// follow-up flag.
type CrisisResponse struct {
	Message          string
	Resources        []string
	FollowUpRequired bool
}

const crisisMessage = "I'm really concerned about what you just shared, and I want you to know you don't have to face this alone. What you're feeling matters, and help is available right now. If you are in immediate danger, please call 911. Otherwise, please reach out to one of the crisis resources below — they are free, confidential, and available 24/7. Would you be willing to contact one of them now?"

var supportResources = []string{
	"988 Suicide & Crisis Lifeline — call or text 988 (24/7)",
	"Crisis Text Line — text HOME to 741741 (24/7)",
	"Emergency services — call 911 or go to the nearest emergency room",
}

var immediateSteps = []string{
	"Move to a safe place and remove anything you could use to hurt yourself",
	"Reach out to one person you trust and tell them how you're feeling",
	"Use one coping strategy from your plan for the next 10 minutes",
	"If the urge stays strong, contact a crisis resource below",
}

// copingStrategies is keyed by the four modalities with dedicated plans;
// every other modality gets the humanistic list.
var copingStrategies = map[Modality][]string{
	ModalityCBT: {
		"Write the distressing thought down and list evidence against it",
		"Rate the urge 1-10, wait 10 minutes, rate it again",
		"Do one small concrete task to interrupt the spiral",
	},
	ModalityHumanistic: {
		"Speak to yourself as you would to a close friend in this moment",
		"Write down three things that have mattered to you this week",
		"Call or sit with someone whose presence feels safe",
	},
	ModalityMindfulness: {
		"5-4-3-2-1 grounding: five things you see, four you feel, three you hear, two you smell, one you taste",
		"Box breathing: in for 4, hold 4, out 4, hold 4, repeated for two minutes",
		"Place a hand on your chest and track the breath without changing it",
	},
	ModalityPsychodynamic: {
		"Journal what this moment reminds you of and who it involves",
		"Name the feeling underneath the urge out loud",
		"Recall one relationship where you felt held, and what that felt like",
	},
}

// PlanGenerator produces crisis messaging and personalized coping plans.
// Every method is total; unknown modalities fall back to the default plan.
type PlanGenerator struct{}

func NewPlanGenerator() *PlanGenerator {
	return &PlanGenerator{}
}

// CrisisResponse is purely templated with no branching on input.
func (g *PlanGenerator) CrisisResponse() CrisisResponse {
	return CrisisResponse{
		Message:          crisisMessage,
		Resources:        cloneStrings(supportResources),
		FollowUpRequired: true,
	}
}

// PersonalizedPlan selects coping strategies by modality. Immediate steps
// and support resources are the same fixed lists for every modality.
func (g *PlanGenerator) PersonalizedPlan(m Modality) SafetyPlan {
	strategies, ok := copingStrategies[m]
	if !ok {
		strategies = copingStrategies[ModalityHumanistic]
	}
	return SafetyPlan{
		ImmediateSteps:   cloneStrings(immediateSteps),
		CopingStrategies: cloneStrings(strategies),
		SupportResources: cloneStrings(supportResources),
	}
}

func cloneStrings(items []string) []string {
	result := make([]string, len(items))
	copy(result, items)
	return result
}
