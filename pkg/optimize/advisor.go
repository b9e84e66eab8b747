package optimize

import (
	"fmt"

	"github.com/bastecklein/bmloader/pkg/anim"
	"github.com/bastecklein/bmloader/pkg/scene"
)

// RiskLevel grades how likely a merge is to corrupt the model.
type RiskLevel string

const (
	RiskNone     RiskLevel = "none"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskCritical RiskLevel = "critical"
)

// RiskTolerance expresses how much risk the caller accepts.
type RiskTolerance string

const (
	ToleranceLow    RiskTolerance = "low"
	ToleranceMedium RiskTolerance = "medium"
	ToleranceHigh   RiskTolerance = "high"
)

// Advisor decision-table constants. Empirical tuning values from the
// reference behavior, open to recalibration.
const (
	// AdvisorHighInstanceCount: above this many expected scene instances,
	// merging pays for itself almost regardless of model size.
	AdvisorHighInstanceCount = 50
	// AdvisorModerateInstanceCount: above this, merging usually pays off
	// for models with several draw calls.
	AdvisorModerateInstanceCount = 10
	// AdvisorMinDrawCalls: below this many draw calls there is nothing
	// worth merging.
	AdvisorMinDrawCalls = 2

	ConfidenceHigh     = 0.9
	ConfidenceModerate = 0.7
	ConfidenceLow      = 0.4
	ConfidenceNone     = 0.0
)

// UsageContext describes how the model will be used in a broader scene.
type UsageContext struct {
	// ExpectedInstances is how many copies of the model the scene is
	// expected to place.
	ExpectedInstances int
	// Static hints that the caller will never animate the model.
	Static bool
	// Tolerance is the caller's risk appetite.
	Tolerance RiskTolerance
	// TargetGain is the desired fractional draw-call reduction (0..1).
	TargetGain float64
}

// Advice is the advisor's structured recommendation. The advisor never
// mutates the model.
type Advice struct {
	Recommended bool
	Strategy    string
	Risk        RiskLevel
	Confidence  float64
	Reasoning   []string
}

// AdviseMerge evaluates whether a full geometry merge is worthwhile for
// the given model and usage context. Risk is critical whenever any
// animation exists, irrespective of every other factor.
func AdviseMerge(root *scene.Node, tracks map[string]*anim.Track, ctx UsageContext) *Advice {
	drawCalls := DrawCalls(root)

	if HasAnimation(tracks) {
		return &Advice{
			Recommended: false,
			Strategy:    "none",
			Risk:        RiskCritical,
			Confidence:  ConfidenceHigh,
			Reasoning: []string{
				"model defines animation tracks; merged geometry cannot be animated",
				"use conservative instancing instead",
			},
		}
	}

	if drawCalls < AdvisorMinDrawCalls {
		return &Advice{
			Recommended: false,
			Strategy:    "none",
			Risk:        RiskNone,
			Confidence:  ConfidenceHigh,
			Reasoning:   []string{fmt.Sprintf("only %d draw call(s); nothing to merge", drawCalls)},
		}
	}

	adv := &Advice{Strategy: "full-merge"}
	switch {
	case ctx.ExpectedInstances >= AdvisorHighInstanceCount:
		adv.Recommended = true
		adv.Risk = RiskLow
		adv.Confidence = ConfidenceHigh
		adv.Reasoning = append(adv.Reasoning, fmt.Sprintf(
			"%d expected instances at %d draw calls each; merging collapses them per material",
			ctx.ExpectedInstances, drawCalls))
	case ctx.ExpectedInstances >= AdvisorModerateInstanceCount:
		adv.Recommended = true
		adv.Risk = RiskLow
		adv.Confidence = ConfidenceModerate
		adv.Reasoning = append(adv.Reasoning, fmt.Sprintf(
			"%d expected instances; merging likely pays off", ctx.ExpectedInstances))
	default:
		adv.Recommended = false
		adv.Strategy = "conservative-instancing"
		adv.Risk = RiskLow
		adv.Confidence = ConfidenceLow
		adv.Reasoning = append(adv.Reasoning, fmt.Sprintf(
			"only %d expected instance(s); instancing is the safer win", ctx.ExpectedInstances))
	}

	if !ctx.Static {
		// A future animation on a merged model would find stale bindings.
		if adv.Risk == RiskLow {
			adv.Risk = RiskMedium
		}
		adv.Reasoning = append(adv.Reasoning,
			"caller did not declare the model static; merged registry bindings would go stale if animated later")
		if ctx.Tolerance == ToleranceLow {
			adv.Recommended = false
			adv.Reasoning = append(adv.Reasoning, "risk tolerance is low; not recommending a destructive merge")
		}
	}

	return adv
}
