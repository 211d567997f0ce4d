package bot

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/external"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/scoring"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
)

// analysisTimeout bounds the whole vision + content-generation pipeline.
const analysisTimeout = 4 * time.Minute

// startAnalysis kicks off the background listing analysis. It runs
// detached from the inbound request: the user gets an immediate ack and a
// push message when the draft is ready.
func (e *Engine) startAnalysis(sessionID, identity string) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
		defer cancel()
		e.runAnalysis(ctx, sessionID, identity)
	}
	if e.syncAnalysis {
		run()
		return
	}
	go run()
}

func (e *Engine) runAnalysis(ctx context.Context, sessionID, identity string) {
	sess, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		e.logger.Error("analysis_session_load_failed", "session_id", sessionID, "error", err.Error())
		return
	}
	if sess.Status != session.StatusProcessing {
		// The user cancelled (or the session errored) between the ack and
		// the goroutine starting; nothing to do.
		e.logger.Info("analysis_skipped", "session_id", sessionID, "status", string(sess.Status))
		return
	}
	draft := sess.Listing

	var (
		analysis    external.VisionAnalysis
		proximities []scoring.Proximity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		analysis, err = e.vision.Analyze(gctx, draft.PhotoURLs, draft.Address)
		return err
	})
	g.Go(func() error {
		if e.scorer != nil && draft.HasLocation {
			proximities = e.scorer.Score(draft.Lat, draft.Lng)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		e.failAnalysis(ctx, sessionID, identity, err)
		return
	}

	// What the user told us beats what the model saw.
	if draft.Bedrooms > 0 {
		analysis.Beds = draft.Bedrooms
	}
	if draft.Bathrooms > 0 {
		analysis.Baths = draft.Bathrooms
	}
	if draft.PropertyType != "" {
		analysis.PropertyType = draft.PropertyType
	}

	content, err := e.content.Generate(ctx, external.ContentInput{
		ListingType:  draft.ListingType,
		PropertyType: draft.PropertyType,
		Ownership:    draft.Ownership,
		Bedrooms:     draft.Bedrooms,
		Bathrooms:    draft.Bathrooms,
		Price:        draft.Price,
		Address:      draft.Address,
		District:     draft.District,
		Analysis:     analysis,
		ImageURLs:    draft.PhotoURLs,
	})
	if err != nil {
		e.failAnalysis(ctx, sessionID, identity, err)
		return
	}

	draft.Title = content.Title
	draft.Description = content.ShortDescription
	draft.HTMLBody = content.HTML
	draft.SuggestedPrice = content.SuggestedPrice
	draft.Amenities = analysis.Amenities
	if len(proximities) > 0 {
		draft.Scores = make(map[string]float64, len(proximities))
		for _, p := range proximities {
			draft.Scores[p.Kind] = p.Score
		}
	}

	if err := e.sessions.SaveListingDraft(ctx, sessionID, draft); err != nil {
		e.failAnalysis(ctx, sessionID, identity, err)
		return
	}
	if err := e.sessions.SetStatus(ctx, sessionID, session.StatusAwaitingConfirmation, ""); err != nil {
		e.failAnalysis(ctx, sessionID, identity, err)
		return
	}
	e.logger.Info("analysis_completed", "session_id", sessionID, "title", draft.Title)

	text := listingSummary(draft) + "\n\n" + msgConfirmHint
	if err := e.gateway.SendText(ctx, identity, text); err != nil {
		e.logger.Error("analysis_push_failed", "session_id", sessionID, "error", err.Error())
	}
}

// failAnalysis parks the session in the error state and tells the user.
func (e *Engine) failAnalysis(ctx context.Context, sessionID, identity string, cause error) {
	e.logger.Error("analysis_failed", "session_id", sessionID, "error", cause.Error())
	if err := e.sessions.SetStatus(ctx, sessionID, session.StatusError, cause.Error()); err != nil {
		e.logger.Error("analysis_error_status_failed", "session_id", sessionID, "error", err.Error())
	}
	text := "I ran into a problem while writing your listing and had to stop. " +
		"Your photos are safe — please start again with *new*."
	if err := e.gateway.SendText(ctx, identity, text); err != nil {
		e.logger.Error("analysis_push_failed", "session_id", sessionID, "error", err.Error())
	}
}
