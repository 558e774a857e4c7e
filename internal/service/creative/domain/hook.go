// internal/service/creative/domain/hook.go
package domain

import "fmt"

// HookCategory is one of the eight canonical persuasion categories hooks are
// scored into.
type HookCategory string

const (
	CategoryCuriosity    HookCategory = "curiosity"
	CategoryFear         HookCategory = "fear"
	CategorySocialProof  HookCategory = "social_proof"
	CategoryUrgency      HookCategory = "urgency"
	CategoryAuthority    HookCategory = "authority"
	CategoryReciprocity  HookCategory = "reciprocity"
	CategoryAspiration   HookCategory = "aspiration"
	CategoryLossAversion HookCategory = "loss_aversion"
)

// EmotionalScore is the coarse emotional-intensity bucket assigned at scoring
// time.
type EmotionalScore string

const (
	EmotionalLow      EmotionalScore = "low"
	EmotionalMedium   EmotionalScore = "medium"
	EmotionalHigh     EmotionalScore = "high"
	EmotionalVeryHigh EmotionalScore = "very_high"
)

const (
	// MaxImpactScore bounds the 0..21 impact scale.
	MaxImpactScore = 21
	// HighImpactFloor is where selection starts treating a hook as high
	// impact.
	HighImpactFloor = 15
)

// Hook is a scored persuasive copy fragment. Hooks are created and scored
// out of band; this service only reads them, and only ever flips Active to
// retire one.
type Hook struct {
	ID             string
	ProductID      string
	Text           string
	Category       HookCategory
	Framework      string
	ImpactScore    int
	EmotionalScore EmotionalScore
	Active         bool
}

// Validate enforces the scoring invariants.
func (h *Hook) Validate() error {
	if h.ImpactScore < 0 || h.ImpactScore > MaxImpactScore {
		return fmt.Errorf("hook %s: impact score %d outside [0,%d]", h.ID, h.ImpactScore, MaxImpactScore)
	}
	if h.Text == "" {
		return fmt.Errorf("hook %s: empty text", h.ID)
	}
	return nil
}

// SelectedHook is the selection-stage snapshot of a hook: the original
// fields, the selection rationale, and the tone-adapted rewrite.
type SelectedHook struct {
	HookID      string       `json:"hook_id"`
	Text        string       `json:"text"`
	Category    HookCategory `json:"category"`
	Framework   string       `json:"framework"`
	ImpactScore int          `json:"impact_score"`
	Reasoning   string       `json:"reasoning"`
	AdaptedText string       `json:"adapted_text"`
}
