package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
	"github.com/stockscout/stockscout/internal/render"
)

// OpenAIClient synthesizes reports against an OpenAI-compatible API.
// Strategies are tried in priority order: deep research agent run,
// standard agent run, chat completion, and finally a locally assembled
// report from the fetched sources. The local path always succeeds, so a
// run never fails for lack of a model.
type OpenAIClient struct {
	cfg          config.OpenAIConfig
	client       *http.Client
	pollInterval time.Duration
	logger       *common.Logger
}

// NewOpenAIClient creates a client from config.
func NewOpenAIClient(logger *common.Logger, cfg *config.OpenAIConfig) *OpenAIClient {
	interval := time.Duration(cfg.PollSeconds) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OpenAIClient{
		cfg:          *cfg,
		client:       &http.Client{Timeout: 120 * time.Second},
		pollInterval: interval,
		logger:       logger,
	}
}

var _ interfaces.Synthesizer = (*OpenAIClient)(nil)

// Synthesize produces a report from the fetched context.
func (c *OpenAIClient) Synthesize(ctx context.Context, req interfaces.SynthesisRequest) (*models.SynthesizedReport, error) {
	prompt := buildPrompt(req)

	if req.DeepResearch {
		if text, err := c.runAgent(ctx, prompt, c.deepPolls()); err == nil {
			return c.assemble(text, req)
		} else {
			c.logger.Warn().Err(err).Msg("deep research path failed, falling back")
		}
	}

	if c.cfg.AgentID != "" {
		if text, err := c.runAgent(ctx, prompt, c.maxPolls()); err == nil {
			return c.assemble(text, req)
		} else {
			c.logger.Warn().Err(err).Msg("agent path failed, falling back")
		}
	}

	if c.cfg.APIKey != "" && c.cfg.Endpoint != "" && c.cfg.Model != "" {
		text, err := c.chatComplete(ctx, c.cfg.Model,
			"You are a helpful financial research assistant.", prompt, 0.2, 2000)
		if err == nil && text != "" {
			return c.assemble(text, req)
		}
		c.logger.Warn().Err(err).Msg("chat completion path failed, falling back")
	}

	c.logger.Info().Msg("synthesizing report locally from fetched sources")
	return localReport(req), nil
}

// assemble wraps raw model output into a synthesized report: title from
// the first heading, rendered HTML, citations from the fetched sources.
func (c *OpenAIClient) assemble(text string, req interfaces.SynthesisRequest) (*models.SynthesizedReport, error) {
	title := titleFromMarkdown(text)
	if title == "" {
		title = defaultTitle(req)
	}
	htmlDoc, err := render.ToHTML(title, text)
	if err != nil {
		return nil, err
	}
	return &models.SynthesizedReport{
		Title:     title,
		Markdown:  text,
		HTML:      htmlDoc,
		Citations: citationsFromContext(req.Context),
	}, nil
}

type tickerResult struct {
	IsStockRelated bool `json:"isStockRelated"`
	Stocks         []struct {
		Symbol string `json:"symbol"`
	} `json:"stocks"`
}

// ExtractTickers pulls recommended stock symbols out of report text.
// Returns nil when the model is not configured or the report is not
// stock-related.
func (c *OpenAIClient) ExtractTickers(ctx context.Context, text string) ([]string, error) {
	if c.cfg.APIKey == "" || c.cfg.Endpoint == "" || c.cfg.Model == "" {
		return nil, nil
	}

	// Bound token usage
	if len(text) > 6000 {
		text = text[:6000]
	}

	system := `You analyse research reports. Determine if the report is about the stock market (individual stocks, equities, ETFs). If it is, extract every stock ticker symbol that the report recommends, analyses, or discusses as an investment.

Respond ONLY with valid JSON, no markdown fences:
{"isStockRelated": true/false, "stocks": [{"symbol": "AAPL"}, ...]}

Rules:
- Use uppercase US ticker symbols (e.g. AAPL, MSFT, TSLA).
- Only include stocks the report substantively discusses, not passing mentions.
- If the report is not about stocks/equities, return isStockRelated=false and empty stocks.`

	raw, err := c.chatComplete(ctx, c.cfg.Model, system, text, 0, 500)
	if err != nil {
		return nil, fmt.Errorf("ticker extraction failed: %w", err)
	}
	raw = stripFences(raw)

	var result tickerResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("ticker extraction returned invalid JSON: %w", err)
	}
	if !result.IsStockRelated {
		return nil, nil
	}

	var symbols []string
	seen := map[string]bool{}
	for _, s := range result.Stocks {
		sym := strings.ToUpper(strings.TrimSpace(s.Symbol))
		if sym != "" && !seen[sym] {
			symbols = append(symbols, sym)
			seen[sym] = true
		}
	}
	return symbols, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) chatComplete(ctx context.Context, model, system, user string, temperature float64, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.post(ctx, "/chat/completions", body, false)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}

type agentRun struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	Status   string `json:"status"`
}

type threadMessages struct {
	Data []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text struct {
				Value string `json:"value"`
			} `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

// runAgent starts an assistant run with the prompt and polls it to
// completion, then returns the assistant's text.
func (c *OpenAIClient) runAgent(ctx context.Context, prompt string, maxPolls int) (string, error) {
	if c.cfg.AgentID == "" || c.cfg.APIKey == "" || c.cfg.Endpoint == "" {
		return "", fmt.Errorf("agent not configured")
	}

	body, err := json.Marshal(map[string]any{
		"assistant_id": c.cfg.AgentID,
		"thread": map[string]any{
			"messages": []chatMessage{{Role: "user", Content: prompt}},
		},
	})
	if err != nil {
		return "", err
	}

	resp, err := c.post(ctx, "/threads/runs", body, true)
	if err != nil {
		return "", fmt.Errorf("failed to start agent run: %w", err)
	}
	var run agentRun
	if err := json.Unmarshal(resp, &run); err != nil {
		return "", fmt.Errorf("failed to decode agent run: %w", err)
	}

	for i := 0; i < maxPolls; i++ {
		switch run.Status {
		case "completed":
			return c.agentText(ctx, run.ThreadID)
		case "failed", "cancelled", "expired":
			return "", fmt.Errorf("agent run status: %s", run.Status)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}

		resp, err := c.get(ctx, fmt.Sprintf("/threads/%s/runs/%s", run.ThreadID, run.ID), true)
		if err != nil {
			return "", fmt.Errorf("failed to poll agent run: %w", err)
		}
		if err := json.Unmarshal(resp, &run); err != nil {
			return "", fmt.Errorf("failed to decode agent run: %w", err)
		}
	}
	return "", fmt.Errorf("agent run did not complete within poll budget")
}

func (c *OpenAIClient) agentText(ctx context.Context, threadID string) (string, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/threads/%s/messages", threadID), true)
	if err != nil {
		return "", fmt.Errorf("failed to list thread messages: %w", err)
	}
	var msgs threadMessages
	if err := json.Unmarshal(resp, &msgs); err != nil {
		return "", fmt.Errorf("failed to decode thread messages: %w", err)
	}
	for _, m := range msgs.Data {
		if m.Role != "assistant" {
			continue
		}
		var parts []string
		for _, part := range m.Content {
			if v := strings.TrimSpace(part.Text.Value); v != "" {
				parts = append(parts, v)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n"), nil
		}
	}
	return "", fmt.Errorf("no assistant response content")
}

func (c *OpenAIClient) post(ctx context.Context, path string, body []byte, assistants bool) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body, assistants)
}

func (c *OpenAIClient) get(ctx context.Context, path string, assistants bool) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, assistants)
}

func (c *OpenAIClient) do(ctx context.Context, method, path string, body []byte, assistants bool) ([]byte, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method,
		strings.TrimRight(c.cfg.Endpoint, "/")+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if assistants {
		req.Header.Set("OpenAI-Beta", "assistants=v2")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("api returned status %d: %s", resp.StatusCode, truncate(buf.String(), 200))
	}
	return buf.Bytes(), nil
}

func (c *OpenAIClient) maxPolls() int {
	if c.cfg.MaxPolls > 0 {
		return c.cfg.MaxPolls
	}
	return 60
}

func (c *OpenAIClient) deepPolls() int {
	if c.cfg.DeepPolls > 0 {
		return c.cfg.DeepPolls
	}
	return 1200
}

// buildPrompt composes the synthesis prompt from the request.
func buildPrompt(req interfaces.SynthesisRequest) string {
	var lines []string
	lines = append(lines, "You are an expert research assistant.", "")
	if req.Prompt != "" {
		lines = append(lines, "User Research Prompt:", req.Prompt, "")
	}
	if len(req.Symbols) > 0 {
		lines = append(lines, fmt.Sprintf("Symbols: %s", strings.Join(req.Symbols, ", ")), "")
	}
	for _, group := range req.Context {
		label := group.Symbol
		if label == "" {
			label = "Prompt research"
		}
		lines = append(lines, fmt.Sprintf("Sources for %s:", label))
		for i, src := range group.Sources {
			lines = append(lines, fmt.Sprintf("[%d] %s — %s", i+1, src.Title, src.URL))
			if src.Excerpt != "" {
				lines = append(lines, "    "+truncate(src.Excerpt, 700))
			}
		}
		lines = append(lines, "")
	}
	lines = append(lines,
		"Output markdown with sections: Overview, Recent Developments, Financials, Risks, Outlook.",
		"Cite sources inline as [n] and provide a Citations list at the end with title + URL.")
	return strings.Join(lines, "\n")
}

// localReport assembles a report directly from the fetched sources,
// with no model involved.
func localReport(req interfaces.SynthesisRequest) *models.SynthesizedReport {
	title := defaultTitle(req)
	var citations []models.Citation
	var sections []string
	sections = append(sections, "# "+title, "", "## Overview", "This is a locally generated summary.")
	if req.Prompt != "" {
		sections = append(sections, "", "## User Prompt", req.Prompt)
	}
	sections = append(sections, "")

	idx := 1
	for _, group := range req.Context {
		label := group.Symbol
		if label == "" {
			label = "Prompt"
		}
		sections = append(sections, fmt.Sprintf("## %s - Recent Sources", label))
		for _, src := range group.Sources {
			u := NormalizeURL(src.URL)
			if u == "" {
				continue
			}
			t := src.Title
			if t == "" {
				t = "Source"
			}
			citations = append(citations, models.Citation{Title: t, URL: u})
			sections = append(sections, fmt.Sprintf("- %s [%d]", t, idx))
			if ex := strings.TrimSpace(src.Excerpt); ex != "" {
				sections = append(sections, "  - "+truncate(ex, 300))
			}
			idx++
		}
		sections = append(sections, "")
	}

	if len(citations) > 0 {
		sections = append(sections, "## Citations")
		for i, cit := range citations {
			sections = append(sections, fmt.Sprintf("[%d] [%s](%s)", i+1, cit.Title, cit.URL))
		}
	}

	md := strings.Join(sections, "\n")
	htmlDoc, _ := render.ToHTML(title, md)
	return &models.SynthesizedReport{
		Title:     title,
		Markdown:  md,
		HTML:      htmlDoc,
		Citations: citations,
	}
}

func defaultTitle(req interfaces.SynthesisRequest) string {
	if len(req.Symbols) > 0 {
		return "Deep Research Report: " + strings.Join(req.Symbols, ", ")
	}
	return "Deep Research Report: Prompted"
}

// titleFromMarkdown returns the first level-one heading, if any.
func titleFromMarkdown(md string) string {
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
	}
	return ""
}

func citationsFromContext(groups []models.SourceGroup) []models.Citation {
	var citations []models.Citation
	seen := map[string]bool{}
	for _, group := range groups {
		for _, src := range group.Sources {
			u := NormalizeURL(src.URL)
			if u == "" || seen[u] {
				continue
			}
			t := src.Title
			if t == "" {
				t = "Source"
			}
			citations = append(citations, models.Citation{Title: t, URL: u})
			seen[u] = true
		}
	}
	return citations
}

var bareDomainRe = regexp.MustCompile(`^[A-Za-z0-9.-]+\.[A-Za-z]{2,}(/.*)?$`)

// NormalizeURL makes a URL absolute and clickable: scheme-relative and
// bare-domain forms get https. Invalid input returns "".
func NormalizeURL(u string) string {
	s := strings.TrimSpace(u)
	if s == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(s, "//"):
		return "https:" + s
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return s
	case strings.HasPrefix(s, "www."):
		return "https://" + s
	case bareDomainRe.MatchString(s):
		return "https://" + s
	}
	return s
}

// stripFences drops a surrounding markdown code fence, which some
// models add around JSON despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if _, rest, ok := strings.Cut(s, "\n"); ok {
		s = rest
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
