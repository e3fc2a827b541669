// Package guardrail reviews candidate responses before delivery: a
// company-interest check followed by a fact-grounding confidence check with
// a single recheck attempt.
package guardrail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/prompts"
	"github.com/parleyhq/parley/pkg/llm"
)

var companySchema = llm.JSONSchema{
	Name: "company_interest",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"passed": {"type": "boolean"},
			"violationType": {"type": "string"},
			"severity": {"type": "string", "enum": ["", "low", "medium", "high"]},
			"shouldBlock": {"type": "boolean"},
			"requiresFactCheck": {"type": "boolean"},
			"reasoning": {"type": "string"}
		},
		"required": ["passed", "shouldBlock", "requiresFactCheck"]
	}`),
}

// CompanyChecker is guardrail stage one: does the candidate response harm
// the company or the customer relationship.
type CompanyChecker struct {
	gateway  llm.Gateway
	budgeter *prompts.Budgeter
}

// NewCompanyChecker creates the stage-one checker.
func NewCompanyChecker(gateway llm.Gateway, budgeter *prompts.Budgeter) *CompanyChecker {
	return &CompanyChecker{gateway: gateway, budgeter: budgeter}
}

// Check assesses a candidate response against company interests.
func (c *CompanyChecker) Check(ctx context.Context, org *domain.Organization, msgs []*domain.Message, candidate string) (*domain.CompanyInterestAssessment, error) {
	system := "Review a drafted support response before it reaches the customer.\n" +
		"Flag: unauthorized promises (refunds, discounts, exceptions), statements creating legal exposure, " +
		"disparagement of the company or competitors, leaked internal details, and off-policy commitments.\n" +
		"Set shouldBlock only for violations that must not be delivered.\n" +
		"Set requiresFactCheck when the draft asserts facts (prices, policies, dates, order details) that should be verified against reference material."
	if org != nil && org.Description != "" {
		system += "\n\nAbout the company:\n" + org.Description
	}

	transcript := c.budgeter.TranscriptText(msgs, c.budgeter.InputBudget())
	user := fmt.Sprintf("Conversation:\n%s\n\nDrafted response:\n%s", transcript, candidate)

	a, err := llm.Invoke[domain.CompanyInterestAssessment](ctx, c.gateway, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, companySchema)
	if err != nil {
		return nil, fmt.Errorf("company interest check: %w", err)
	}
	return &a, nil
}
