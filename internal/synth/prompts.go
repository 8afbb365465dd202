package synth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/TobiSchelling/PostGenerator/internal/content"
)

const (
	PlannerSystem  = "You are an expert curriculum planner."
	ResearchSystem = "You are an expert researcher and LinkedIn content strategist."
	AngleSystem    = "You are an expert content strategist who plans research."
)

const curriculumPrompt = `You are an expert content strategist and educator.
Theme: %s
Target Month: %d/%d (%d days)

Create a progressive %d-day curriculum, one topic per day.
The curriculum should start with foundational concepts and gradually move to advanced topics.

For EACH day, provide:
1. The day number (1 to %d).
2. A compelling title.
3. A clear learning objective.
4. Difficulty level: Beginner for days %s, Intermediate for days %s, Advanced for days %s.
5. Content type (link, article, or forum).
6. 3-5 specific, high-intent search queries that will be used to scrape deep information for that day's post.

Every day's search queries must be distinct from the queries of all other days so that no two days research the same material.
Ensure the topics are distinct and follow a logical learning path.

Respond with a JSON object {"topics": [...]} containing exactly %d topics.`

// CurriculumPrompt builds the planning prompt for a month of numDays days.
func CurriculumPrompt(themeTitle string, month, year, numDays int) string {
	first := (numDays + 2) / 3
	second := (2*numDays + 2) / 3
	return fmt.Sprintf(curriculumPrompt,
		themeTitle, month, year, numDays,
		numDays, numDays,
		dayRange(1, first), dayRange(first+1, second), dayRange(second+1, numDays),
		numDays,
	)
}

func dayRange(from, to int) string {
	if from >= to {
		return fmt.Sprintf("%d", from)
	}
	return fmt.Sprintf("%d-%d", from, to)
}

const researchHeader = `
Topic: %s
Day: %d
Learning Objective: %s
Difficulty: %s

Researched Content:
%s
`

// contentPolicy is the acceptance contract for a synthesized post.
const contentPolicy = `
Create a LinkedIn post following this EXACT structure. Missing ANY section = FAIL.

MANDATORY SECTIONS (in order):
1. Hook (max 3 sentences, must include 2+ numbers)
2. Problem (why old methods failed)
3. Solution (what this approach does differently)
4. How It Works (explain the mechanism with an analogy)
5. Before vs After (STRUCTURED JSON: Populate the ` + "`comparison`" + ` field)
6. Trade-offs (STRUCTURED JSON: Populate the ` + "`tradeoffs`" + ` field)
7. Key Takeaways (exactly 3 bullets, actionable + surprising)
8. Call to Action (personal question, not abstract)

CRITICAL: Each of the body sections MUST have a specific, detailed Company Example populated in its ` + "`example_use_case`" + ` field.

━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

CRITICAL JSON STRUCTURE RULES:

1. For the "Before vs After" section:
   - DO NOT put text in the ` + "`content`" + ` field.
   - INSTEAD, populate the ` + "`comparison`" + ` object with ` + "`items`" + ` (dimension, before, after) and a ` + "`summary`" + `.
   - Example dimensions: Performance, Context, Efficiency, Capabilities.

2. For the "Trade-offs" section:
   - DO NOT put text in the ` + "`content`" + ` field.
   - INSTEAD, populate the ` + "`tradeoffs`" + ` object with ` + "`pros`" + `, ` + "`cons`" + `, ` + "`constraints`" + `, and ` + "`real_world_context`" + `.

3. For all other sections (Problem, Solution, How It Works):
   - Populate the ` + "`content`" + ` field with descriptive text.
   - Populate the ` + "`example_use_case`" + ` field.

━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

CRITICAL HOOK RULES (STRICTLY ENFORCE):

✓ DO:
- Start with concrete scenario: "You do X. Models do Y. How?"
- Include 2+ specific numbers
- Max 3 sentences (preferably 2)
- Conversational tone

✗ DON'T:
- NO semicolons (;) in hook - EVER
- NO academic writing style
- NO marketing fluff ("revolutionary", "game-changing")
- NO sentences over 25 words
- NO vague statements without numbers

TEST YOUR HOOK:
- Contains semicolon? → REJECT, rewrite
- Over 3 sentences? → REJECT, shorten
- No numbers? → REJECT, add metrics
- Sounds like academic paper? → REJECT, make conversational

━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

EXAMPLE RULES (DISTRIBUTED):

You must find 3-4 high-quality company examples.
Instead of listing them in one block, ASSIGN each one to the most relevant section using the ` + "`example_use_case`" + ` field.

CRITICAL: EVERY section (Problem, Solution, etc.) MUST have a populated ` + "`example_use_case`" + `.

For EACH example used:

1. Company/Product Name (specific)
2. Specific Feature (not "their system" - name it)
3. Technical Details (2-3 sentences on HOW)
4. Business Outcome (Explain the impact in plain language - NO specific percentages or dollar amounts unless they appear in the Researched Content above)
5. Time Period (when this happened)

FORMAT TEMPLATE:
"[Company]'s [Product Name] ([Year]):
- Technical approach: [How they use it - 2 details]
- Business outcome: [Explain the qualitative impact, e.g., 'drastically reduced latency', 'improved accuracy on long-range text']
- Key insight: [Interesting detail]"

CRITICAL SOURCE RULE (ANTI-HALLUCINATION):
- DO NOT generate plausible-sounding business metrics (like '$2.3M saved' or '40% reduction').
- Use ONLY qualitative descriptions (e.g., "significant reduction", "faster processing", "more accurate context") for impact and results.
- A currency amount or percentage may appear ONLY if that exact value is present in the Researched Content.
- ACCURACY IS MORE IMPORTANT THAN FORMATTING. Hallucinating numbers = IMMEDIATE FAIL.

━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

TECHNICAL TERMS (Days 1-10 ONLY):

If you mention ANY of these terms, define them IMMEDIATELY:
- ARIMA → "AutoRegressive Integrated Moving Average - a 1970s statistical method that assumes smooth patterns"
- Transformer → "Deep learning architecture from 2017 that uses attention to focus on relevant data"
- RNN → "Recurrent Neural Network - processes sequences step-by-step"
- MAE/RMSE/F1 → Convert to simple language instead of quoting the metric

FORMAT: [Term] → [One sentence definition] → [When/why it's used]

NO jargon dumps. If you use a technical term, explain it in the SAME sentence.

━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

WRITING STYLE (MANDATORY):

Sentence rules:
- Average length: 12-15 words
- Maximum length: 25 words
- NO semicolons anywhere (use periods)
- NO run-on sentences

Paragraph rules:
- Maximum: 2 sentences per paragraph (STRICT LIMIT)
- Total section content: Maximum 4 sentences (STRICT LIMIT)
- Prefer: 1-2 sentences
- Add blank line between paragraphs

Example Rule:
- ` + "`example_use_case`" + ` field MUST be exactly 1 sentence.

Tone:
- Conversational (write like you're explaining to a friend)
- Active voice ("Google built" not "was built by Google")
- Direct ("This works" not "This can potentially work")

━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

KEY TAKEAWAYS FORMAT:

Each takeaway must be ONE of these types:
→ Impactful change: "[Technology] improved [process] by enabling [capability]"
→ Business context: "[Company] solved [problem] using [technology]"
→ Actionable tool: "Start with [specific tool/library name]"

STRICT LIMIT: Exactly 3 takeaways. No more, no less.
Each must include specific product names OR actionable advice.

NO generic statements like "Attention mechanisms are powerful" ← REJECT

━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

CALL TO ACTION:

✗ DON'T ask abstract questions: "What are potential applications in your industry?"

✓ DO ask personal questions:
- "What's the weirdest recommendation you've gotten?"
- "Have you noticed [product] getting better? What changed?"
- "What's the hardest forecasting problem in your work?"

Make it about THEIR experience, not hypothetical scenarios.

━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

FINAL VALIDATION CHECKLIST:

Before submitting, verify:
□ Hook is punchy and has no semicolons
□ All body sections present
□ 3+ company examples with specific products
□ Each example has: qualitative impact + timeframe
□ Before/After comparison included (qualitative)
□ Trade-offs section has benefits + challenges + when not to use
□ All technical terms defined (for Days 1-10)
□ No sentences over 25 words
□ No marketing fluff in hook
□ CTA is personal, not abstract
□ Exactly 3 actionable takeaways

If ANY checkbox is unchecked → FIX before submitting.

━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

JSON STRUCTURE MAPPING (CRITICAL):
- "Hook" content goes to -> ` + "`hook`" + ` field
- "Key Takeaways" content goes to -> ` + "`key_takeaways`" + ` field
- "Call to Action" content goes to -> ` + "`call_to_action`" + ` field
- ALL OTHER BODY CONTENT (Problem, Solution, How it works, Examples, Trade-offs) goes to -> ` + "`sections`" + ` list
- Do NOT put Takeaways or CTA in the ` + "`sections`" + ` list.

Now generate the post following ALL rules above.`

// ResearchPrompt builds the synthesis prompt for one topic over the
// researched context block.
func ResearchPrompt(topic content.DailyTopic, researched string) string {
	return fmt.Sprintf(researchHeader,
		topic.Title, topic.Day, topic.LearningObjective, topic.Difficulty, researched,
	) + contentPolicy
}

const anglePrompt = `Theme: %q
Existing Topics: %s

Task: Generate %d DISTINCT research angles for new content that do not repeat the existing topics.
For each angle, provide:
1. A short name (e.g., "Performance Benchmarks")
2. A specific Google Search query to find a high-quality source.

Respond with a JSON object {"angles": [{"angle": "...", "query": "..."}]}.
Example:
{"angles": [{"angle": "Technical Deep Dive", "query": "RAG vector database benchmarks 2024"}]}`

// AnglePrompt builds the angle planning prompt.
func AnglePrompt(theme string, existingTitles []string, count int) string {
	if existingTitles == nil {
		existingTitles = []string{}
	}
	existing, _ := json.Marshal(existingTitles)
	return fmt.Sprintf(anglePrompt, theme, existing, count)
}

const groundedFindPrompt = `Task: Research the query %q using Google Search.
Find a high-quality, definitive source (article, forum discussion, or documentation).

Return ONLY a JSON object with:
- "title": A compelling title for a post about this resource.
- "type": One of ["link", "article", "forum"].
- "sources": A list of strings, containing the specific URL(s) found.
- "summary": A brief 1-sentence summary of what the source covers.

Ensure the URL is real and comes from the search results.`

// GroundedFindPrompt builds the search-grounded lookup prompt for a query.
func GroundedFindPrompt(query string) string {
	return fmt.Sprintf(groundedFindPrompt, strings.TrimSpace(query))
}
