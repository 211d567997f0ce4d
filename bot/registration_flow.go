package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/external"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/internal/phonenum"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/normalize"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/property"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
)

// Regulatory registration flow. Phone is collected first so a returning
// owner with an identity document on file skips straight to the address
// document.

func (e *Engine) handleRegPhone(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	number, err := phonenum.Normalize(cmd.Text)
	if err != nil {
		return Text("That phone number doesn't look right. " +
			"Send it like 0812345678 or +66812345678."), nil
	}
	sess.Registration.Phone = number.E164()

	known, err := e.properties.FindIdentityByPhone(ctx, sess.Registration.Phone)
	if err != nil && !errors.Is(err, property.ErrNotFound) {
		return Response{}, err
	}
	if known != nil {
		sess.Registration.FirstName = known.FirstName
		sess.Registration.LastName = known.LastName
		sess.Registration.NationalID = known.NationalID
		sess.Registration.IDDocumentURL = known.IDDocumentURL
		sess.Registration.ReusedIdentity = true
		if err := e.sessions.SaveRegistrationDraft(ctx, sess.ID, sess.Registration); err != nil {
			return Response{}, err
		}
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusAwaitingAddressDocument, ""); err != nil {
			return Response{}, err
		}
		e.logger.Info("registration_identity_reused", "session_id", sess.ID)
		return Textf("Welcome back, %s! 👋 Your ID is already on file.\n\n%s",
			known.FirstName, msgAskAddressDoc), nil
	}

	if err := e.sessions.SaveRegistrationDraft(ctx, sess.ID, sess.Registration); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusAwaitingIDDocument, ""); err != nil {
		return Response{}, err
	}
	return Text("Thanks. Now send a clear photo of the owner's ID card or passport."), nil
}

const msgAskAddressDoc = "Please send a photo of a proof-of-address document " +
	"(house registration book or a recent utility bill)."

func (e *Engine) handleIDDocument(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	if !cmd.HasPhoto {
		return Text("I need a photo of the ID card or passport to continue."), nil
	}
	url, err := e.media.Rehost(ctx, cmd.PhotoRef)
	if err != nil {
		return Text(msgPhotoFailed), nil
	}
	fields, err := e.documents.Extract(ctx, url, external.DocumentID)
	if err != nil {
		e.logger.Warn("id_document_extract_failed", "session_id", sess.ID, "error", err.Error())
		return Text("I couldn't read that document. Please send a sharper, well-lit photo."), nil
	}

	sess.Registration.IDDocumentURL = url
	sess.Registration.FirstName = fields.FirstName
	sess.Registration.LastName = fields.LastName
	sess.Registration.NationalID = fields.NationalID
	if err := e.sessions.SaveRegistrationDraft(ctx, sess.ID, sess.Registration); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusConfirmIDData, ""); err != nil {
		return Response{}, err
	}
	return Text(idConfirmText(sess.Registration)), nil
}

func idConfirmText(d session.RegistrationDraft) string {
	return fmt.Sprintf("Here's what I read:\n\n"+
		"First name: %s\nLast name: %s\nID number: %s\n\n"+
		"Is this correct? Reply *yes*, or correct a field like:\n"+
		"first name: Somchai", d.FirstName, d.LastName, d.NationalID)
}

func (e *Engine) handleConfirmID(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	if cmd.Is(normalize.IntentYes) || cmd.Is(normalize.IntentConfirm) {
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusAwaitingAddressDocument, ""); err != nil {
			return Response{}, err
		}
		return Text("Great. " + msgAskAddressDoc), nil
	}
	if applyIDCorrections(&sess.Registration, cmd.Text) {
		if err := e.sessions.SaveRegistrationDraft(ctx, sess.ID, sess.Registration); err != nil {
			return Response{}, err
		}
		return Text(idConfirmText(sess.Registration)), nil
	}
	return Text("Reply *yes* if everything is correct, or correct a field like:\n" +
		"first name: Somchai\nlast name: Jaidee\nid: 1103700123456"), nil
}

// applyIDCorrections parses "field: value" correction lines. Returns
// whether anything matched.
func applyIDCorrections(d *session.RegistrationDraft, text string) bool {
	applied := false
	for _, line := range strings.Split(text, "\n") {
		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch normalizeFieldName(field) {
		case "first name", "firstname", "first":
			d.FirstName = value
			applied = true
		case "last name", "lastname", "last", "surname":
			d.LastName = value
			applied = true
		case "id", "id number", "national id", "nationalid":
			d.NationalID = value
			applied = true
		}
	}
	return applied
}

func normalizeFieldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (e *Engine) handleAddressDocument(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	if !cmd.HasPhoto {
		return Text(msgAskAddressDoc), nil
	}
	url, err := e.media.Rehost(ctx, cmd.PhotoRef)
	if err != nil {
		return Text(msgPhotoFailed), nil
	}
	fields, err := e.documents.Extract(ctx, url, external.DocumentAddress)
	if err != nil {
		e.logger.Warn("address_document_extract_failed", "session_id", sess.ID, "error", err.Error())
		return Text("I couldn't read that document. Please send a sharper, well-lit photo."), nil
	}

	sess.Registration.AddressDocURL = url
	sess.Registration.Address = fields.Address
	sess.Registration.PostalCode = fields.PostalCode
	if err := e.sessions.SaveRegistrationDraft(ctx, sess.ID, sess.Registration); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusConfirmAddressData, ""); err != nil {
		return Response{}, err
	}
	return Text(addressConfirmText(sess.Registration)), nil
}

func addressConfirmText(d session.RegistrationDraft) string {
	return fmt.Sprintf("Here's the address I read:\n\n"+
		"%s\nPostal code: %s\n\n"+
		"Is this correct? Reply *yes*, send a 5-digit postal code to fix it, "+
		"or correct the address like:\naddress: 123/4 Moo 5, Rawai", d.Address, d.PostalCode)
}

var postalCodePattern = regexp.MustCompile(`^\d{5}$`)

func (e *Engine) handleConfirmAddress(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	if cmd.Is(normalize.IntentYes) || cmd.Is(normalize.IntentConfirm) {
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusAwaitingAccommodationName, ""); err != nil {
			return Response{}, err
		}
		return Text("Almost done! What is the accommodation's name as it should appear on the registration?"), nil
	}

	applied := false
	text := strings.TrimSpace(cmd.Text)
	if postalCodePattern.MatchString(text) {
		sess.Registration.PostalCode = text
		applied = true
	} else {
		for _, line := range strings.Split(text, "\n") {
			field, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			switch normalizeFieldName(field) {
			case "address":
				sess.Registration.Address = value
				applied = true
			case "postal code", "postalcode", "postcode", "zip":
				if postalCodePattern.MatchString(value) {
					sess.Registration.PostalCode = value
					applied = true
				}
			}
		}
	}
	if !applied {
		return Text("Reply *yes* if the address is correct, send the 5-digit postal code, " +
			"or correct it like:\naddress: 123/4 Moo 5, Rawai"), nil
	}

	if err := e.sessions.SaveRegistrationDraft(ctx, sess.ID, sess.Registration); err != nil {
		return Response{}, err
	}
	return Text(addressConfirmText(sess.Registration)), nil
}

func (e *Engine) handleAccommodationName(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	name := strings.TrimSpace(cmd.Text)
	if len([]rune(name)) < 2 {
		return Text("What is the accommodation's name? At least 2 characters."), nil
	}
	sess.Registration.AccommodationName = name
	if err := e.sessions.SaveRegistrationDraft(ctx, sess.ID, sess.Registration); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusConfirmRegistration, ""); err != nil {
		return Response{}, err
	}
	return Text(registrationSummary(sess.Registration)), nil
}

func registrationSummary(d session.RegistrationDraft) string {
	var b strings.Builder
	b.WriteString("Please review the registration:\n\n")
	fmt.Fprintf(&b, "Owner: %s %s\n", d.FirstName, d.LastName)
	fmt.Fprintf(&b, "ID number: %s\n", d.NationalID)
	fmt.Fprintf(&b, "Phone: %s\n", d.Phone)
	fmt.Fprintf(&b, "Address: %s, %s\n", d.Address, d.PostalCode)
	fmt.Fprintf(&b, "Accommodation: %s\n", d.AccommodationName)
	if d.ReusedIdentity {
		b.WriteString("(identity documents reused from your previous registration)\n")
	}
	b.WriteString("\nReply *confirm* to submit, or *cancel* to abandon.")
	return b.String()
}

func (e *Engine) handleConfirmRegistration(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	if !cmd.Is(normalize.IntentConfirm) && !cmd.Is(normalize.IntentYes) {
		return Text(registrationSummary(sess.Registration)), nil
	}

	req := &property.RegistrationRequest{
		ID:                uuid.NewString(),
		SessionID:         sess.ID,
		ChannelIdentity:   sess.ChannelIdentity,
		Phone:             sess.Registration.Phone,
		FirstName:         sess.Registration.FirstName,
		LastName:          sess.Registration.LastName,
		NationalID:        sess.Registration.NationalID,
		Address:           sess.Registration.Address,
		PostalCode:        sess.Registration.PostalCode,
		AccommodationName: sess.Registration.AccommodationName,
		IDDocumentURL:     sess.Registration.IDDocumentURL,
		AddressDocURL:     sess.Registration.AddressDocURL,
		Status:            property.RegistrationPending,
	}
	if err := e.properties.CreateRegistration(ctx, req); err != nil {
		return Response{}, err
	}
	sess.Registration.RequestID = req.ID
	if err := e.sessions.SaveRegistrationDraft(ctx, sess.ID, sess.Registration); err != nil {
		return Response{}, err
	}

	receipt, err := e.workflow.Dispatch(ctx, external.RegistrationPayload{
		RequestID:         req.ID,
		Phone:             req.Phone,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		NationalID:        req.NationalID,
		Address:           req.Address,
		PostalCode:        req.PostalCode,
		AccommodationName: req.AccommodationName,
		IDDocumentURL:     req.IDDocumentURL,
		AddressDocURL:     req.AddressDocURL,
	})
	if err != nil || !receipt.Accepted {
		if err != nil {
			e.logger.Error("registration_dispatch_failed", "session_id", sess.ID, "request_id", req.ID, "error", err.Error())
		} else {
			e.logger.Error("registration_dispatch_rejected", "session_id", sess.ID, "request_id", req.ID)
		}
		if serr := e.properties.SetRegistrationStatus(ctx, req.ID, property.RegistrationFailed, ""); serr != nil {
			return Response{}, serr
		}
		if serr := e.sessions.SetStatus(ctx, sess.ID, session.StatusCompleted, ""); serr != nil {
			return Response{}, serr
		}
		return Text("Your registration is saved, but the automatic submission failed. " +
			"Our team will process it manually and keep you posted."), nil
	}

	if err := e.properties.SetRegistrationStatus(ctx, req.ID, property.RegistrationDispatched, receipt.ExternalID); err != nil {
		return Response{}, err
	}
	sess.Registration.ExternalID = receipt.ExternalID
	if err := e.sessions.SaveRegistrationDraft(ctx, sess.ID, sess.Registration); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusExternalProcessing, ""); err != nil {
		return Response{}, err
	}
	e.logger.Info("registration_dispatched", "session_id", sess.ID, "request_id", req.ID, "external_id", receipt.ExternalID)

	return Text("Submitted! 📨 The registration is being processed — " +
		"I'll message you as soon as it completes."), nil
}

func (e *Engine) handleExternalProcessing(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	return Text("Your registration is still being processed. I'll message you when it's done — " +
		"no need to do anything."), nil
}

// CompleteRegistration is called by the workflow callback when the
// external processing finishes. It flips the request and its session to
// completed and notifies the owner.
func (e *Engine) CompleteRegistration(ctx context.Context, externalID string) error {
	req, err := e.properties.GetRegistrationByExternalID(ctx, externalID)
	if err != nil {
		return fmt.Errorf("resolve registration %s: %w", externalID, err)
	}
	if req.Status == property.RegistrationCompleted {
		return nil
	}
	if err := e.properties.SetRegistrationStatus(ctx, req.ID, property.RegistrationCompleted, ""); err != nil {
		return err
	}
	e.logger.Info("registration_completed", "request_id", req.ID, "external_id", externalID)

	// Close the waiting session, if it is still around.
	if req.SessionID != "" {
		sess, err := e.sessions.GetByID(ctx, req.SessionID)
		if err == nil && sess.Status == session.StatusExternalProcessing {
			if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusCompleted, ""); err != nil {
				return err
			}
		}
	}

	if req.ChannelIdentity != "" {
		text := fmt.Sprintf("Good news! 🎉 The registration for *%s* has been completed.",
			req.AccommodationName)
		if err := e.gateway.SendText(ctx, req.ChannelIdentity, text); err != nil {
			e.logger.Error("registration_notify_failed", "request_id", req.ID, "error", err.Error())
		}
	}
	return nil
}
