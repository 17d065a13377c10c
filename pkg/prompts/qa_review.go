package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/threecubed/seo-engine/pkg/fda"
	"github.com/threecubed/seo-engine/pkg/models"
)

// BuildReviewPrompt constructs the compliance QA review prompt for generated
// content. The requested JSON schema matches models.QAReview.
func BuildReviewPrompt(content *models.GeneratedContent, sub *models.Submission, summary *fda.Summary) string {
	var b strings.Builder

	b.WriteString("Review this pharmaceutical SEO content for regulatory compliance and accuracy.\n\n")
	b.WriteString("PRODUCT INFORMATION:\n")
	fmt.Fprintf(&b, "- Product: %s (%s)\n", sub.ProductName, sub.EffectiveGenericName())
	fmt.Fprintf(&b, "- Indication: %s\n", sub.Indication)
	fmt.Fprintf(&b, "- Therapeutic Area: %s\n", sub.TherapeuticArea)
	fmt.Fprintf(&b, "- FDA Status: %s\n", fdaStatus(summary))

	b.WriteString("\nCONTENT TO REVIEW:\n")
	contentJSON, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		// Content originates from our own parser; marshal failure means a
		// programming error, but the review can still proceed on the title.
		contentJSON = []byte(content.SEOTitle)
	}
	b.Write(contentJSON)

	b.WriteString(`

Perform a comprehensive quality assurance review and provide scores (0-100) for:
1. Medical Accuracy - Are all medical claims accurate and supported?
2. FDA Compliance - Does content meet FDA marketing guidelines?
3. SEO Effectiveness - Are keywords naturally integrated?
4. Content Quality - Is the content clear, engaging, and professional?
5. Risk Assessment - Are there any potential regulatory risks?

Also provide:
- Specific issues found (if any)
- Required changes (if any)
- Overall recommendation (Approve/Revise/Reject)

Format your response as JSON:
{
  "scores": {
    "medical_accuracy": 0-100,
    "fda_compliance": 0-100,
    "seo_effectiveness": 0-100,
    "content_quality": 0-100,
    "risk_assessment": 0-100
  },
  "overall_score": 0-100,
  "recommendation": "Approve/Revise/Reject",
  "issues": ["List of specific issues found"],
  "required_changes": ["List of required changes"],
  "strengths": ["List of content strengths"],
  "compliance_notes": "FDA compliance observations"
}`)

	return b.String()
}

func fdaStatus(summary *fda.Summary) string {
	if summary != nil && summary.HasApprovedNDA {
		return "FDA Approved"
	}
	return "Not FDA Approved"
}
