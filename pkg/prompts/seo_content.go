// Package prompts builds the prompts sent to the generation and review
// models. Prompt text is the contract with the model: changes here change
// the output schema the parsers expect, so both sides live in this module's
// tests.
package prompts

import (
	"fmt"
	"strings"

	"github.com/threecubed/seo-engine/pkg/fda"
	"github.com/threecubed/seo-engine/pkg/models"
)

// GenerationSystemMessage pins the output contract for content generation.
const GenerationSystemMessage = "You are a pharmaceutical SEO expert. Always return valid JSON."

// BuildContentPrompt constructs the structured SEO content generation prompt
// from the submission facts and enrichment summary.
func BuildContentPrompt(sub *models.Submission, summary *fda.Summary) string {
	var b strings.Builder

	b.WriteString("You are an expert pharmaceutical SEO strategist. Generate comprehensive SEO content for:\n\n")
	fmt.Fprintf(&b, "PRODUCT: %s (%s)\n", sub.ProductName, sub.EffectiveGenericName())
	fmt.Fprintf(&b, "INDICATION: %s\n", sub.Indication)
	fmt.Fprintf(&b, "THERAPEUTIC AREA: %s\n", sub.TherapeuticArea)
	if sub.TargetAudience != "" {
		fmt.Fprintf(&b, "TARGET AUDIENCE: %s\n", sub.TargetAudience)
	}

	if summary != nil {
		b.WriteString("\nFDA REGULATORY STATUS:\n")
		fmt.Fprintf(&b, "- FDA Approved: %s\n", yesOrPending(summary.HasApprovedNDA))
		fmt.Fprintf(&b, "- Approval Date: %s\n", orNA(summary.ApprovalDate))
		fmt.Fprintf(&b, "- Application Number: %s\n", orNA(summary.ApplicationNumber))
		fmt.Fprintf(&b, "- Active Clinical Trials: %d\n", summary.ActiveTrials)
		fmt.Fprintf(&b, "- Total Clinical Trials: %d\n", summary.TotalTrials)
		fmt.Fprintf(&b, "- Adverse Events Reported: %d\n", summary.AdverseEventCount)
	}

	b.WriteString(`
Generate the following SEO-optimized content in JSON format:

{
  "seo_title": "Compelling title under 60 characters with product name and benefit",
  "meta_description": "Engaging description under 155 characters with FDA status if approved",
  "primary_keywords": ["5-7 high-volume pharmaceutical search terms"],
  "long_tail_keywords": ["5-7 specific treatment-focused phrases"],
  "h1_tags": ["3 main page headers"],
  "h2_tags": ["5 section headers for content structure"],
  "consumer_questions": [
    {
      "question": "Common patient question",
      "answer": "Medically accurate answer"
    }
  ],
  "competitive_advantages": ["Key differentiators vs competitors"],
  "content_strategy": "300-word SEO strategy overview"
}

Ensure all content is:
- Medically accurate
- FDA compliant (no unsubstantiated claims)
- SEO optimized
- Patient-friendly language`)

	return b.String()
}

func yesOrPending(approved bool) string {
	if approved {
		return "Yes"
	}
	return "Pending"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
