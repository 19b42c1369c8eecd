package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
	"github.com/stockscout/stockscout/internal/render"
)

// Execute drives the orchestration through its stages until a terminal
// stage is reached. Each stage checkpoints its output before the next
// stage starts, so a crash costs at most the stage that was running.
func (e *Engine) Execute(ctx context.Context, state *models.OrchestrationState) {
	e.setRunStatus(ctx, state.ID, models.RunStatusRunning, "")

	// A run with neither symbols nor prompt has nothing to research
	if len(state.Input.Symbols) == 0 && strings.TrimSpace(state.Input.Prompt) == "" {
		e.logger.Warn().Str("run_id", state.ID).Msg("run has no symbols and no prompt")
		state.Stage = models.StageCompleted
		e.checkpoint(ctx, state)
		e.finishRun(ctx, state.ID, models.RunStatusNoInput, "")
		return
	}

	for !state.Terminal() {
		var err error
		switch state.Stage {
		case models.StageFetchingContext:
			err = e.fetchStage(ctx, state)
		case models.StageSynthesizing:
			err = e.synthesizeStage(ctx, state)
		case models.StageSaving:
			err = e.saveStage(ctx, state)
		case models.StageEmailing:
			err = e.emailStage(ctx, state)
		default:
			err = fmt.Errorf("unknown orchestration stage %q", state.Stage)
		}

		if err != nil {
			e.logger.Error().
				Err(err).
				Str("run_id", state.ID).
				Str("stage", state.Stage).
				Msg("research run failed")
			state.Stage = models.StageFailed
			state.Error = err.Error()
			e.checkpoint(ctx, state)
			e.finishRun(ctx, state.ID, models.RunStatusFailed, err.Error())
			return
		}
		e.checkpoint(ctx, state)
	}

	e.finishRun(ctx, state.ID, models.RunStatusSucceeded, "")
	e.logger.Info().
		Str("run_id", state.ID).
		Str("report_id", state.ReportID).
		Msg("research run completed")
}

// fetchStage gathers web sources per symbol (or for the free-text
// prompt) and stores them on the checkpoint.
func (e *Engine) fetchStage(ctx context.Context, state *models.OrchestrationState) error {
	var groups []models.SourceGroup

	if len(state.Input.Symbols) > 0 {
		for _, sym := range state.Input.Symbols {
			query := fmt.Sprintf("%s stock latest news earnings financial results analysis", sym)
			sources, err := e.fetchSources(ctx, query)
			if err != nil {
				return fmt.Errorf("fetch context for %s: %w", sym, err)
			}
			groups = append(groups, models.SourceGroup{Symbol: sym, Sources: sources})
		}
	} else {
		sources, err := e.fetchSources(ctx, state.Input.Prompt)
		if err != nil {
			return fmt.Errorf("fetch context for prompt: %w", err)
		}
		groups = append(groups, models.SourceGroup{Prompt: state.Input.Prompt, Sources: sources})
	}

	state.Context = groups
	state.Stage = models.StageSynthesizing
	return nil
}

// excerptLimit bounds how much extracted page text is carried per
// source.
const excerptLimit = 700

// fetchSources searches for the query and enriches each hit with
// extracted page text. Extraction failures fall back to the search
// snippet; results are deduplicated by URL.
func (e *Engine) fetchSources(ctx context.Context, query string) ([]models.Source, error) {
	topK := e.cfg.Search.TopK
	if topK < 1 {
		topK = 6
	}
	results, err := e.searcher.Search(ctx, query, topK)
	if err != nil {
		// A search outage degrades to an empty source list, same as an
		// unconfigured key; synthesis still produces a report from its
		// fallback chain.
		e.logger.Warn().Err(err).Str("query", query).Msg("web search failed, continuing without sources")
		return nil, nil
	}

	seen := map[string]bool{}
	var sources []models.Source
	for _, r := range results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true

		excerpt := r.Excerpt
		if text, err := e.extractor.Extract(ctx, r.URL); err == nil && text != "" {
			if len(text) > excerptLimit {
				text = text[:excerptLimit]
			}
			excerpt = text
		} else if err != nil {
			e.logger.Debug().Err(err).Str("url", r.URL).Msg("page extraction failed, keeping snippet")
		}

		sources = append(sources, models.Source{Title: r.Title, URL: r.URL, Excerpt: excerpt})
	}
	return sources, nil
}

// synthesizeStage turns the fetched context into a finished report.
func (e *Engine) synthesizeStage(ctx context.Context, state *models.OrchestrationState) error {
	report, err := e.synth.Synthesize(ctx, interfaces.SynthesisRequest{
		Prompt:       state.Input.Prompt,
		Symbols:      state.Input.Symbols,
		Context:      state.Context,
		DeepResearch: state.Input.DeepResearch,
	})
	if err != nil {
		return fmt.Errorf("synthesize report: %w", err)
	}
	state.Report = report
	state.Stage = models.StageSaving
	return nil
}

// saveStage uploads the report artifacts and persists the report
// document, then kicks off stock auto-tracking.
func (e *Engine) saveStage(ctx context.Context, state *models.OrchestrationState) error {
	in := state.Input
	rep := state.Report
	if rep == nil {
		return fmt.Errorf("no synthesized report on checkpoint")
	}

	prefix := fmt.Sprintf("%s/%s/%s", in.UserID, in.ScheduleID, state.ID)
	mdPath := prefix + "/report.md"
	htmlPath := prefix + "/report.html"

	if err := e.blobs.Put(ctx, mdPath, "text/markdown; charset=utf-8", []byte(rep.Markdown)); err != nil {
		return fmt.Errorf("upload markdown artifact: %w", err)
	}
	if err := e.blobs.Put(ctx, htmlPath, "text/html; charset=utf-8", []byte(rep.HTML)); err != nil {
		return fmt.Errorf("upload html artifact: %w", err)
	}

	blobPaths := map[string]string{"md": mdPath, "html": htmlPath}
	if in.Email.AttachPDF {
		pdfBytes, err := render.ToPDF(rep.Title, rep.Markdown)
		if err != nil {
			return fmt.Errorf("render pdf artifact: %w", err)
		}
		pdfPath := prefix + "/report.pdf"
		if err := e.blobs.Put(ctx, pdfPath, "application/pdf", pdfBytes); err != nil {
			return fmt.Errorf("upload pdf artifact: %w", err)
		}
		blobPaths["pdf"] = pdfPath
	}

	// The report ID equals the run ID, so a resumed save overwrites its
	// own earlier attempt instead of duplicating the report.
	doc := &models.Report{
		ID:         state.ID,
		RunID:      state.ID,
		ScheduleID: in.ScheduleID,
		UserID:     in.UserID,
		Title:      rep.Title,
		Prompt:     in.Prompt,
		Symbols:    in.Symbols,
		Summary:    render.Summarize(rep.Markdown, 280),
		BlobPaths:  blobPaths,
		Citations:  rep.Citations,
		Status:     models.RunStatusSucceeded,
		CreatedAt:  models.FormatTime(time.Now()),
	}
	if err := e.storage.Reports().Put(ctx, doc); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}
	state.ReportID = doc.ID

	// Best-effort side effect: failures are logged, never fatal
	e.autoTrack(ctx, doc, rep.Markdown)

	if len(in.Email.To) > 0 {
		state.Stage = models.StageEmailing
	} else {
		state.Stage = models.StageCompleted
	}
	return nil
}

// emailStage delivers the report. Email is best-effort: delivery
// failures are logged and the run still completes.
func (e *Engine) emailStage(ctx context.Context, state *models.OrchestrationState) error {
	doc, err := e.storage.Reports().Get(ctx, state.ReportID)
	if err != nil {
		return fmt.Errorf("load report for email: %w", err)
	}

	if err := e.sendReportEmail(ctx, doc, state.Input.Email); err != nil {
		e.logger.Warn().Err(err).Str("run_id", state.ID).Msg("report email not sent")
	}

	state.Stage = models.StageCompleted
	return nil
}

// SendReportEmail delivers an already saved report to the recipients.
// Also used by the re-send endpoint.
func (e *Engine) SendReportEmail(ctx context.Context, reportID string, settings models.EmailSettings) error {
	doc, err := e.storage.Reports().Get(ctx, reportID)
	if err != nil {
		return err
	}
	return e.sendReportEmail(ctx, doc, settings)
}

func (e *Engine) sendReportEmail(ctx context.Context, doc *models.Report, settings models.EmailSettings) error {
	if len(settings.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	ttl := time.Duration(e.cfg.Blob.SignedTTLHrs) * time.Hour
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}

	var links []string
	for _, kind := range []string{"html", "md", "pdf"} {
		path, ok := doc.BlobPaths[kind]
		if !ok {
			continue
		}
		u, err := e.blobs.SignedURL(path, ttl)
		if err != nil {
			continue
		}
		links = append(links, fmt.Sprintf(`<li>%s: <a href="%s">%s</a></li>`, strings.ToUpper(kind), u, u))
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<h2>%s</h2>\n", doc.Title)
	body.WriteString("<p>Your scheduled stock research report is ready.</p>\n")
	if len(links) > 0 {
		body.WriteString("<ul>\n" + strings.Join(links, "\n") + "\n</ul>\n")
	}
	// Embed the report itself when the artifact is retrievable;
	// otherwise the links above stand alone.
	if htmlPath, ok := doc.BlobPaths["html"]; ok {
		if data, _, err := e.blobs.Get(ctx, htmlPath); err == nil {
			body.Write(data)
		}
	}

	msg := interfaces.EmailMessage{
		To:       settings.To,
		Subject:  "[Stock Research] " + doc.Title,
		HTMLBody: body.String(),
	}

	if settings.AttachPDF {
		if pdfPath, ok := doc.BlobPaths["pdf"]; ok {
			if data, _, err := e.blobs.Get(ctx, pdfPath); err == nil {
				msg.Attachments = append(msg.Attachments, interfaces.Attachment{
					Filename:    "report.pdf",
					ContentType: "application/pdf",
					Data:        data,
				})
			}
		}
	}

	return e.email.Send(ctx, msg)
}

// checkpoint persists the orchestration state.
func (e *Engine) checkpoint(ctx context.Context, state *models.OrchestrationState) {
	state.UpdatedAt = models.FormatTime(time.Now())
	if err := e.storage.Orchestrations().Put(ctx, state); err != nil {
		e.logger.Error().Err(err).Str("run_id", state.ID).Msg("failed to checkpoint orchestration")
	}
}

func (e *Engine) setRunStatus(ctx context.Context, runID, status, errMsg string) {
	run, err := e.storage.Runs().Get(ctx, runID)
	if err != nil {
		e.logger.Error().Err(err).Str("run_id", runID).Msg("failed to load run")
		return
	}
	run.Status = status
	run.Error = errMsg
	if err := e.storage.Runs().Put(ctx, run); err != nil {
		e.logger.Error().Err(err).Str("run_id", runID).Msg("failed to update run")
	}
}

func (e *Engine) finishRun(ctx context.Context, runID, status, errMsg string) {
	run, err := e.storage.Runs().Get(ctx, runID)
	if err != nil {
		e.logger.Error().Err(err).Str("run_id", runID).Msg("failed to load run")
		return
	}
	run.Status = status
	run.Error = errMsg
	if created, err := models.ParseTime(run.CreatedAt); err == nil {
		run.DurationMs = time.Since(created).Milliseconds()
	}
	if err := e.storage.Runs().Put(ctx, run); err != nil {
		e.logger.Error().Err(err).Str("run_id", runID).Msg("failed to update run")
	}
}
