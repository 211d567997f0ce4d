package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/internal/phonenum"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/normalize"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/property"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
)

// Owner-contact update flow: pick listing → confirm → name → phone →
// company → commission → persist.

func (e *Engine) handleOwnerSelect(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	p, err := e.selectProperty(ctx, cmd)
	if err != nil {
		return Response{}, err
	}
	if p == nil {
		return Text("I couldn't find that listing. " + msgPickProperty), nil
	}

	sess.Owner.PropertyID = p.ID
	sess.Owner.ListingNumber = p.ListingNumber
	if err := e.sessions.SaveOwnerDraft(ctx, sess.ID, sess.Owner); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusOwnerConfirmProperty, ""); err != nil {
		return Response{}, err
	}
	return Textf("Update the owner details for *%s — %s*? (yes/no)", p.ListingNumber, p.Title), nil
}

func (e *Engine) handleOwnerConfirm(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	switch {
	case cmd.Is(normalize.IntentYes) || cmd.Is(normalize.IntentConfirm):
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusOwnerAwaitingName, ""); err != nil {
			return Response{}, err
		}
		return Text("What is the owner's full name?"), nil
	case cmd.Is(normalize.IntentNo):
		sess.Owner = session.OwnerDraft{}
		if err := e.sessions.SaveOwnerDraft(ctx, sess.ID, sess.Owner); err != nil {
			return Response{}, err
		}
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusOwnerSelectProperty, ""); err != nil {
			return Response{}, err
		}
		return e.promptPropertySelection(ctx, "No problem, let's pick another one.")
	}
	return Text("Please reply *yes* to continue or *no* to pick another listing."), nil
}

func (e *Engine) handleOwnerName(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	name := strings.TrimSpace(cmd.Text)
	if len([]rune(name)) < 2 || cmd.HasNumber {
		return Text("That doesn't look like a name. What is the owner's full name?"), nil
	}
	sess.Owner.Name = name
	if err := e.sessions.SaveOwnerDraft(ctx, sess.ID, sess.Owner); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusOwnerAwaitingPhone, ""); err != nil {
		return Response{}, err
	}
	return Textf("And %s's phone number?", firstName(name)), nil
}

func (e *Engine) handleOwnerPhone(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	number, err := phonenum.Normalize(cmd.Text)
	if err != nil {
		return Text("That phone number doesn't look right. " +
			"Send it like 0812345678 or +66812345678."), nil
	}
	sess.Owner.Phone = number.E164()
	if err := e.sessions.SaveOwnerDraft(ctx, sess.ID, sess.Owner); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusOwnerAwaitingCompany, ""); err != nil {
		return Response{}, err
	}
	return Text("Which company or agency, if any? Type *skip* if there isn't one."), nil
}

func (e *Engine) handleOwnerCompany(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	if !cmd.Is(normalize.IntentSkip) {
		sess.Owner.Company = strings.TrimSpace(cmd.Text)
		if err := e.sessions.SaveOwnerDraft(ctx, sess.ID, sess.Owner); err != nil {
			return Response{}, err
		}
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusOwnerAwaitingCommission, ""); err != nil {
		return Response{}, err
	}
	return Text("What commission percentage was agreed? e.g. 3 or 3.5"), nil
}

func (e *Engine) handleOwnerCommission(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	commission, ok := parseCommission(cmd)
	if !ok {
		return Text("Commission should be a percentage between 0 and 100, e.g. 3 or 3.5."), nil
	}
	sess.Owner.Commission = commission
	if err := e.sessions.SaveOwnerDraft(ctx, sess.ID, sess.Owner); err != nil {
		return Response{}, err
	}

	fields := property.OwnerFields{
		Name:       sess.Owner.Name,
		Phone:      sess.Owner.Phone,
		Company:    sess.Owner.Company,
		Commission: sess.Owner.Commission,
	}
	if err := e.properties.UpdateOwner(ctx, sess.Owner.PropertyID, fields); err != nil {
		e.logger.Error("owner_update_failed", "session_id", sess.ID, "property_id", sess.Owner.PropertyID, "error", err.Error())
		if serr := e.sessions.SetStatus(ctx, sess.ID, session.StatusError, err.Error()); serr != nil {
			return Response{}, serr
		}
		return Text("I couldn't save the owner details. Please start over with *owner*."), nil
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusCompleted, ""); err != nil {
		return Response{}, err
	}
	e.logger.Info("owner_updated", "session_id", sess.ID, "property_id", sess.Owner.PropertyID)

	return Text("Owner details saved ✅\n\n" + ownerSummary(sess.Owner)), nil
}

func parseCommission(cmd normalize.Command) (float64, bool) {
	text := strings.TrimSuffix(strings.TrimSpace(cmd.Text), "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, false
	}
	if v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

func ownerSummary(d session.OwnerDraft) string {
	lines := []string{
		fmt.Sprintf("Listing: %s", d.ListingNumber),
		fmt.Sprintf("Owner: %s", d.Name),
		fmt.Sprintf("Phone: %s", d.Phone),
	}
	if d.Company != "" {
		lines = append(lines, fmt.Sprintf("Company: %s", d.Company))
	}
	lines = append(lines, fmt.Sprintf("Commission: %.4g%%", d.Commission))
	return strings.Join(lines, "\n")
}

func firstName(full string) string {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return full
	}
	return parts[0]
}
