// Package agent defines the red/blue/target capability contracts the arena
// orchestrates, plus reference implementations of each variant. The arena's
// turn loop depends only on the interfaces; new variants register through
// the factory functions without touching orchestration code.
package agent

import (
	"context"
	"fmt"

	"github.com/vorion-labs/gauntlet/internal/model"
)

// RedVariant tags an attack-generation strategy.
type RedVariant string

const (
	RedInjector    RedVariant = "injector"
	RedObfuscator  RedVariant = "obfuscator"
	RedJailbreaker RedVariant = "jailbreaker"
)

// BlueVariant tags a detection-analysis strategy.
type BlueVariant string

const (
	BlueSentinel BlueVariant = "sentinel"
	BlueDecoder  BlueVariant = "decoder"
	BlueGuardian BlueVariant = "guardian"
)

// TargetContext is what the red agent knows about the sandboxed target.
type TargetContext struct {
	SystemContext string
	History       []string
}

// AttackContext carries per-turn generation parameters.
type AttackContext struct {
	Turn       int
	Categories []model.AttackCategory
	Mutate     bool
}

// Red generates attack payloads and judges whether an attack achieved its
// goal against the target's response.
type Red interface {
	ID() string
	Variant() RedVariant
	Specialization() model.AttackCategory
	GenerateAttack(ctx context.Context, target TargetContext, attack AttackContext) (*model.AttackPayload, error)
	EvaluateSuccess(ctx context.Context, payload *model.AttackPayload, response string) (bool, error)
}

// Blue analyzes a payload in its conversational context and returns a
// detection verdict. Analyses are read-only and safe to run concurrently.
type Blue interface {
	ID() string
	Variant() BlueVariant
	Analyze(ctx context.Context, content string, conversation []string) (*model.DetectionResult, error)
}

// Target produces the simulated target agent's response to new input given
// accumulated context. The reference implementation is a pattern-matched
// canned-response policy; a model-backed implementation can replace it
// without changing the sandbox contract.
type Target interface {
	Respond(ctx context.Context, systemContext string, history []string, input string) (string, error)
}

// NewRed constructs a red agent by variant tag.
func NewRed(variant string) (Red, error) {
	switch RedVariant(variant) {
	case RedInjector:
		return newInjector(), nil
	case RedObfuscator:
		return newObfuscator(), nil
	case RedJailbreaker:
		return newJailbreaker(), nil
	default:
		return nil, fmt.Errorf("unknown red agent variant %q", variant)
	}
}

// NewBlue constructs a blue agent by variant tag.
func NewBlue(variant string) (Blue, error) {
	switch BlueVariant(variant) {
	case BlueSentinel:
		return newSentinel(), nil
	case BlueDecoder:
		return newDecoder(), nil
	case BlueGuardian:
		return newGuardian(), nil
	default:
		return nil, fmt.Errorf("unknown blue agent variant %q", variant)
	}
}
