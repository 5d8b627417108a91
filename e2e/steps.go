package e2e

import (
	"github.com/cucumber/godog"

	"intake/e2e/steps/common"
	"intake/e2e/steps/consultation"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register consultation intake and review steps
	consultation.RegisterSteps(ctx, tc)
}
