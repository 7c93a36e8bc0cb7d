package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// --- Summarizer Model Prompts ---
const SummarizerSystemPrompt = "You are a legal research assistant. You read court judgments and produce precise, neutral, structured summaries for practising lawyers. You must output your response as a single valid JSON object."
const SummarizerUserPrompt = `Summarize the court judgment provided below.

Return ONLY a JSON object with exactly these keys:
{
  "date": "Date of the judgment in YYYY-MM-DD format",
  "case_number": "Case number as printed on the judgment",
  "title": "Short case title, e.g. 'A v. B'",
  "parties": "Petitioner(s)/appellant(s) versus respondent(s), with counsel where stated",
  "background": "One paragraph on the facts and the question before the court",
  "chronology": ["Dated events in the order they occurred"],
  "key_points": ["The main legal findings and reasoning"],
  "conclusion": ["The outcome and any directions issued"],
  "judgment_by": ["Name of each judge who delivered the judgment"]
}

Rules:
1.  Every key is mandatory. Use an empty string or empty list only if the judgment truly does not contain the information.
2.  Do not invent facts that are not in the judgment.
3.  Do not include any text before or after the JSON object.

Judgment text:
%s`

// --- Newsletter Model Prompts ---
const NewsletterSystemPrompt = "You are the editor of a daily legal newsletter. You write clear, engaging HTML e-mail content summarising new court judgments for lawyers."
const NewsletterUserPrompt = `Write the newsletter for judgments uploaded on %[2]s using the case summaries provided as JSON below.

Produce a complete HTML document with this structure:
1.  A <title> element containing the newsletter title.
2.  Inside <body>, an <h1> heading with the newsletter title for %[2]s.
3.  A "Featured Case" section for the most significant judgment: an <h2> with its title, a paragraph with the parties, two or three paragraphs covering background, key points and conclusion, and a "Read more" link.
4.  An "Other Judgments" section with a <ul> list of every remaining case: title in <strong>, a one or two sentence summary, and a "Read more" link.

Reference links MUST follow this rule exactly: https://%[1]s/sera-ai/%[2]s/<id>, where <id> is the "id" of the case. The "read_more_url" field of each case already holds this link.

Use only inline styles. Do not include scripts. Return ONLY the HTML document, without markdown fences or commentary.

Cases:
%[3]s`

// VertexClient holds all pre-configured generative models for our app.
// The fallback models are nil when no fallback model name is configured.
type VertexClient struct {
	SummarizerModel         *genai.GenerativeModel
	SummarizerFallbackModel *genai.GenerativeModel
	ComposerModel           *genai.GenerativeModel
	ComposerFallbackModel   *genai.GenerativeModel
	baseClient              *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region, primaryModel, fallbackModel string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if primaryModel == "" {
		return nil, fmt.Errorf("NewVertexClient: primary model cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	c := &VertexClient{
		SummarizerModel: summarizerModel(baseClient, primaryModel),
		ComposerModel:   composerModel(baseClient, primaryModel),
		baseClient:      baseClient,
	}
	if fallbackModel != "" {
		c.SummarizerFallbackModel = summarizerModel(baseClient, fallbackModel)
		c.ComposerFallbackModel = composerModel(baseClient, fallbackModel)
	}
	return c, nil
}

func summarizerModel(client *genai.Client, name string) *genai.GenerativeModel {
	model := client.GenerativeModel(name)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SummarizerSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	model.SafetySettings = permissiveSafety()
	return model
}

func composerModel(client *genai.Client, name string) *genai.GenerativeModel {
	model := client.GenerativeModel(name)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(NewsletterSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "text/plain",
		Temperature:      genai.Ptr[float32](0.4),
	}
	model.SafetySettings = permissiveSafety()
	return model
}

// Judgments routinely describe violent or sexual offences.
func permissiveSafety() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// ModelGenerator adapts a configured model to a plain prompt-in, text-out call.
type ModelGenerator struct {
	model *genai.GenerativeModel
}

func NewModelGenerator(model *genai.GenerativeModel) *ModelGenerator {
	return &ModelGenerator{model: model}
}

// Generate sends prompt as a single text part and returns the concatenated text of the first candidate.
func (g *ModelGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	text := ResponseText(resp)
	if text == "" {
		return "", errors.New("gemini returned an empty response")
	}
	return text, nil
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			content.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(content.String())
}
