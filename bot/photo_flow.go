package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/normalize"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/property"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
)

// Photo maintenance flow: pick listing → confirm → view photos → choose
// add/replace/delete → act. The position invariants (contiguous from 1,
// cover promotion, never zero photos) live in the property store; this
// flow just narrates them.

func (e *Engine) handlePhotoSelect(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	p, err := e.selectProperty(ctx, cmd)
	if err != nil {
		return Response{}, err
	}
	if p == nil {
		return Text("I couldn't find that listing. " + msgPickProperty), nil
	}

	sess.Photos.PropertyID = p.ID
	sess.Photos.ListingNumber = p.ListingNumber
	if err := e.sessions.SavePhotoDraft(ctx, sess.ID, sess.Photos); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusPhotoConfirmProperty, ""); err != nil {
		return Response{}, err
	}
	return Textf("Manage the photos of *%s — %s*? (yes/no)", p.ListingNumber, p.Title), nil
}

func (e *Engine) handlePhotoConfirmProperty(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	switch {
	case cmd.Is(normalize.IntentYes) || cmd.Is(normalize.IntentConfirm):
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusPhotoViewCurrent, ""); err != nil {
			return Response{}, err
		}
		return e.renderCurrentPhotos(ctx, sess)
	case cmd.Is(normalize.IntentNo):
		sess.Photos = session.PhotoDraft{}
		if err := e.sessions.SavePhotoDraft(ctx, sess.ID, sess.Photos); err != nil {
			return Response{}, err
		}
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusPhotoSelectProperty, ""); err != nil {
			return Response{}, err
		}
		return e.promptPropertySelection(ctx, "No problem, let's pick another one.")
	}
	return Text("Please reply *yes* to continue or *no* to pick another listing."), nil
}

// renderCurrentPhotos shows the numbered photo set followed by the action
// menu.
func (e *Engine) renderCurrentPhotos(ctx context.Context, sess *session.Session) (Response, error) {
	images, err := e.properties.Images(ctx, sess.Photos.PropertyID)
	if err != nil {
		return Response{}, err
	}

	var resp Response
	resp.AddText(fmt.Sprintf("*%s* currently has %d photo(s):", sess.Photos.ListingNumber, len(images)))
	for _, img := range images {
		caption := fmt.Sprintf("%d of %d", img.Position, len(images))
		if img.Position == 1 {
			caption += " (cover)"
		}
		resp.AddImage(img.URL, caption)
	}
	resp.AddText(photoActionMenu)
	return resp, nil
}

const photoActionMenu = "What would you like to do?\n" +
	"• *add* new photos\n" +
	"• *replace* a photo\n" +
	"• *delete* a photo"

// handlePhotoAction interprets the chosen action. It serves both the
// view-current and select-action states: the first shows the menu, the
// second is where failed attempts land to try again.
func (e *Engine) handlePhotoAction(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	images, err := e.properties.Images(ctx, sess.Photos.PropertyID)
	if err != nil {
		return Response{}, err
	}

	switch {
	case cmd.Is(normalize.IntentActionAdd):
		if len(images) >= e.cfg.MaxPhotos {
			return Textf("This listing already has the maximum of %d photos. "+
				"Delete or replace one instead.", e.cfg.MaxPhotos), nil
		}
		sess.Photos.Action = "add"
		if err := e.savePhotoAction(ctx, sess, session.StatusPhotoCollecting); err != nil {
			return Response{}, err
		}
		return Textf("Send the new photos one by one (room for %d more), then type *done*.",
			e.cfg.MaxPhotos-len(images)), nil

	case cmd.Is(normalize.IntentActionReplace):
		sess.Photos.Action = "replace"
		if err := e.savePhotoAction(ctx, sess, session.StatusPhotoReplaceSelect); err != nil {
			return Response{}, err
		}
		return Textf("Which photo should be replaced? Reply with its number (1–%d).", len(images)), nil

	case cmd.Is(normalize.IntentActionDelete):
		if len(images) <= 1 {
			return Text("A listing must keep at least one photo, so the last one can't be deleted. " +
				"You can *replace* it instead."), nil
		}
		sess.Photos.Action = "delete"
		if err := e.savePhotoAction(ctx, sess, session.StatusPhotoDeleteSelect); err != nil {
			return Response{}, err
		}
		return Textf("Which photo should be deleted? Reply with its number (1–%d).", len(images)), nil
	}
	return Text(photoActionMenu), nil
}

func (e *Engine) savePhotoAction(ctx context.Context, sess *session.Session, next session.Status) error {
	if err := e.sessions.SavePhotoDraft(ctx, sess.ID, sess.Photos); err != nil {
		return err
	}
	return e.sessions.SetStatus(ctx, sess.ID, next, "")
}

func (e *Engine) handlePhotoCollecting(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	// Replace mode: one photo finishes the job.
	if sess.Photos.Action == "replace" {
		if !cmd.HasPhoto {
			return Text("Send the replacement photo."), nil
		}
		url, err := e.media.Rehost(ctx, cmd.PhotoRef)
		if err != nil {
			return Text(msgPhotoFailed), nil
		}
		alt := fmt.Sprintf("Photo %d", sess.Photos.Position)
		if err := e.properties.ReplaceImage(ctx, sess.Photos.PropertyID, sess.Photos.Position, url, alt); err != nil {
			return Response{}, err
		}
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusCompleted, ""); err != nil {
			return Response{}, err
		}
		e.logger.Info("photo_replaced", "property_id", sess.Photos.PropertyID, "position", sess.Photos.Position)
		return Textf("Photo %d of *%s* replaced ✅", sess.Photos.Position, sess.Photos.ListingNumber), nil
	}

	// Add mode: keep collecting until done or the cap.
	if cmd.Is(normalize.IntentDone) {
		if len(sess.Photos.AddedURLs) == 0 {
			return Text("You haven't sent any photos yet. Send at least one, or type *cancel*."), nil
		}
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusCompleted, ""); err != nil {
			return Response{}, err
		}
		return Textf("Added %d photo(s) to *%s* ✅", len(sess.Photos.AddedURLs), sess.Photos.ListingNumber), nil
	}
	if !cmd.HasPhoto {
		return Text("Send the photos one by one, then type *done*."), nil
	}

	images, err := e.properties.Images(ctx, sess.Photos.PropertyID)
	if err != nil {
		return Response{}, err
	}
	if len(images) >= e.cfg.MaxPhotos {
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusCompleted, ""); err != nil {
			return Response{}, err
		}
		return Textf("The listing is at the maximum of %d photos now, so we're done here ✅", e.cfg.MaxPhotos), nil
	}

	url, err := e.media.Rehost(ctx, cmd.PhotoRef)
	if err != nil {
		return Text(msgPhotoFailed), nil
	}
	alt := fmt.Sprintf("Photo %d", len(images)+1)
	position, err := e.properties.AddImage(ctx, sess.Photos.PropertyID, url, alt)
	if err != nil {
		return Response{}, err
	}
	sess.Photos.AddedURLs = append(sess.Photos.AddedURLs, url)
	if err := e.sessions.SavePhotoDraft(ctx, sess.ID, sess.Photos); err != nil {
		return Response{}, err
	}
	e.logger.Info("photo_added", "property_id", sess.Photos.PropertyID, "position", position)
	return Textf("Photo saved at position %d. More, or type *done*.", position), nil
}

func (e *Engine) handlePhotoReplaceSelect(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	position, resp, err := e.validatePhotoPosition(ctx, sess, cmd)
	if err != nil || position == 0 {
		return resp, err
	}
	sess.Photos.Position = position
	if err := e.savePhotoAction(ctx, sess, session.StatusPhotoCollecting); err != nil {
		return Response{}, err
	}
	return Textf("Okay — send the new photo for position %d.", position), nil
}

func (e *Engine) handlePhotoDeleteSelect(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	position, resp, err := e.validatePhotoPosition(ctx, sess, cmd)
	if err != nil || position == 0 {
		return resp, err
	}
	sess.Photos.Position = position
	if err := e.savePhotoAction(ctx, sess, session.StatusPhotoConfirmDelete); err != nil {
		return Response{}, err
	}
	note := ""
	if position == 1 {
		note = " That's the cover image; the next photo will become the new cover."
	}
	return Textf("Delete photo %d of *%s*?%s (yes/no)", position, sess.Photos.ListingNumber, note), nil
}

func (e *Engine) handlePhotoConfirmDelete(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	switch {
	case cmd.Is(normalize.IntentYes) || cmd.Is(normalize.IntentConfirm):
		err := e.properties.DeleteImage(ctx, sess.Photos.PropertyID, sess.Photos.Position)
		if errors.Is(err, property.ErrLastImage) {
			if serr := e.sessions.SetStatus(ctx, sess.ID, session.StatusPhotoSelectAction, ""); serr != nil {
				return Response{}, serr
			}
			return Text("That's the only photo left, so it can't be deleted. " + photoActionMenu), nil
		}
		if err != nil {
			return Response{}, err
		}
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusCompleted, ""); err != nil {
			return Response{}, err
		}
		e.logger.Info("photo_deleted", "property_id", sess.Photos.PropertyID, "position", sess.Photos.Position)
		msg := fmt.Sprintf("Photo %d deleted ✅", sess.Photos.Position)
		if sess.Photos.Position == 1 {
			msg += " The next photo is the new cover."
		}
		return Text(msg), nil

	case cmd.Is(normalize.IntentNo):
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusPhotoSelectAction, ""); err != nil {
			return Response{}, err
		}
		return Text("Nothing deleted. " + photoActionMenu), nil
	}
	return Text("Please reply *yes* to delete or *no* to keep it."), nil
}

// validatePhotoPosition checks a numeric reply against the listing's
// current photo count. A zero position with a non-empty response means
// the caller should just return the reprompt.
func (e *Engine) validatePhotoPosition(ctx context.Context, sess *session.Session, cmd normalize.Command) (int, Response, error) {
	images, err := e.properties.Images(ctx, sess.Photos.PropertyID)
	if err != nil {
		return 0, Response{}, err
	}
	if !cmd.HasNumber || cmd.Number < 1 || cmd.Number > int64(len(images)) {
		return 0, Textf("Please reply with a photo number from 1 to %d.", len(images)), nil
	}
	return int(cmd.Number), Response{}, nil
}
