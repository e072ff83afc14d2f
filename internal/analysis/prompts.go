package analysis

import (
	"fmt"
	"strings"
)

const extractionSystemPrompt = `You help people with below-average literacy. You MUST analyze EVERY piece of content in the text chunk.
IMPORTANT: Do not skip any content. Every section, paragraph, or clause must be analyzed and included in your response.

For each piece of content:
- If it's a standard/neutral clause with NO risk at all, set riskLevel to 'No Risk' and provide only a summary explanation
- If it's a standard clause with minimal risk, set riskLevel to 'Negligible' and provide full explanation
- If there's potential harm or imbalance, assign Low/Medium/High risk levels
- Use simple words at about a 6th-grade level. Keep explanations clear and helpful

Required fields for each clause:
- clauseText: The actual text being analyzed
- simplifiedExplanation: 1-2 sentences explaining what this means in plain language
- riskLevel: One of [Low, Medium, High, Negligible, No Risk]
- riskReason: For No Risk, just say 'No risk identified'. For other risks, explain what could go wrong.
- negotiationSuggestion: For No Risk, say 'No changes needed'. For other risks, suggest improvements.
- suggestedRewrite: For No Risk, say 'No changes needed'. For other risks, provide a safer version.

Return JSON only with a clauses array. Make sure to cover ALL content in the chunk, not just risky parts.`

const synthesisSystemPrompt = `You help laypeople. Use simple, short sentences. Avoid jargon.
IMPORTANT: This document has been fully analyzed. Include information about ALL clauses, not just risky ones.

Required fields:
- summary: 4-6 short sentences covering the overall document
- keyTerms: Extract important legal/business terms with simple definitions (1 sentence each)
- keyDates: Extract all dates, deadlines, and time periods with descriptions
- missingClauses: Suggest important clauses that might be missing
- chunkSummaries: For each chunk of content, provide a brief summary

Return JSON only with: summary (string), keyTerms (array of {term, definition}), keyDates (array of {date, description}), missingClauses (array of {clauseName, reason}), chunkSummaries (array of {chunkIndex, summary}).`

const chunkSummarySystemPrompt = `You help laypeople. Create a simple 1-2 sentence summary of what this chunk covers.
Focus on the main topics, not individual clauses. Use plain language.
Return only the summary text, no JSON or formatting.`

const simulationSystemPrompt = `You help people with below-average literacy. Answer simply in plain words. Use up to 5 bullet points, each 1-2 short sentences, no jargon. If helpful, include 1 tiny example starting with "Example:".`

func extractionUserPrompt(chunk, role string) string {
	return fmt.Sprintf("The user's role is: %s. Analyze ALL content in this chunk from their perspective.\n\nTEXT CHUNK TO ANALYZE:\n%s\n\nAnalyze EVERY part of this text and return JSON with all clauses found.", role, chunk)
}

func synthesisUserPrompt(findings []ClauseFinding, role string) string {
	var sb strings.Builder
	for i, f := range findings {
		fmt.Fprintf(&sb, "Clause %d:\n- Text: %q\n- Explanation: %q\n- Risk: %s\n- Risk Reason: %q\n\n",
			i+1, f.ClauseText, f.SimplifiedExplanation, f.RiskLevel, f.RiskReason)
	}
	return fmt.Sprintf("The user's role is: %s. Generate a comprehensive summary and extract all relevant information from their perspective.\n\nCOMPLETE ANALYSIS (%d clauses analyzed):\n%s\nGenerate comprehensive summary covering ALL analyzed content.",
		role, len(findings), sb.String())
}

func chunkSummaryUserPrompt(index int, chunk string, findings []ClauseFinding, role string) string {
	var sb strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&sb, "- %s... (Risk: %s)\n", truncate(f.ClauseText, 100), f.RiskLevel)
	}
	return fmt.Sprintf("The user's role is: %s. Summarize what this chunk covers.\n\nCHUNK %d CONTENT:\n%s...\n\nCLAUSES IN THIS CHUNK:\n%s\nProvide a simple summary of what this chunk covers.",
		role, index, truncate(chunk, 500), sb.String())
}

func simulationUserPrompt(scenario string, excerpts []string) string {
	return fmt.Sprintf("Scenario: %s\n\nContract Excerpts:\n%s\n\nWrite the answer in very simple words. Keep it under 300 words.",
		scenario, strings.Join(excerpts, "\n\n---\n\n"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
