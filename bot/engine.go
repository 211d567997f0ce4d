package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/external"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/finalize"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/normalize"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/property"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/scoring"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
)

// Config bounds the engine's conversational behavior.
type Config struct {
	MinPhotos   int // photos required before a listing can advance
	MaxPhotos   int // hard cap per listing
	PageSize    int // search results per page
	RecentLimit int // entries in numbered property pick lists
}

func (c *Config) applyDefaults() {
	if c.MinPhotos <= 0 {
		c.MinPhotos = 8
	}
	if c.MaxPhotos <= 0 {
		c.MaxPhotos = 20
	}
	if c.PageSize <= 0 {
		c.PageSize = 5
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = 5
	}
}

// Options wires the engine's dependencies.
type Options struct {
	Sessions   *session.Store
	Properties *property.Store
	Finalizer  *finalize.Finalizer
	Normalizer *normalize.Normalizer
	Media      Rehoster
	Vision     external.VisionAnalyzer
	Documents  external.DocumentExtractor
	Geocoder   external.Geocoder
	Content    external.ContentGenerator
	Workflow   external.WorkflowTrigger
	Gateway    external.Gateway
	Scorer     *scoring.Scorer
	Logger     *slog.Logger
	Config     Config
}

// Engine owns the dispatcher and the five flows. One call to HandleEvent
// processes exactly one inbound event; serialization per channel identity
// is the caller's job (the per-identity workers in the server).
type Engine struct {
	sessions   *session.Store
	properties *property.Store
	finalizer  *finalize.Finalizer
	normalizer *normalize.Normalizer
	media      Rehoster
	vision     external.VisionAnalyzer
	documents  external.DocumentExtractor
	geocoder   external.Geocoder
	content    external.ContentGenerator
	workflow   external.WorkflowTrigger
	gateway    external.Gateway
	scorer     *scoring.Scorer
	logger     *slog.Logger
	cfg        Config

	handlers map[session.Status]stateHandler
	now      func() time.Time

	// syncAnalysis runs the background analysis inline instead of in a
	// goroutine; only set by tests.
	syncAnalysis bool
}

func New(opts Options) (*Engine, error) {
	switch {
	case opts.Sessions == nil:
		return nil, errors.New("bot: session store is required")
	case opts.Properties == nil:
		return nil, errors.New("bot: property store is required")
	case opts.Finalizer == nil:
		return nil, errors.New("bot: finalizer is required")
	case opts.Gateway == nil:
		return nil, errors.New("bot: gateway is required")
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.New(nil, opts.Logger)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Config.applyDefaults()

	e := &Engine{
		sessions:   opts.Sessions,
		properties: opts.Properties,
		finalizer:  opts.Finalizer,
		normalizer: opts.Normalizer,
		media:      opts.Media,
		vision:     opts.Vision,
		documents:  opts.Documents,
		geocoder:   opts.Geocoder,
		content:    opts.Content,
		workflow:   opts.Workflow,
		gateway:    opts.Gateway,
		scorer:     opts.Scorer,
		logger:     opts.Logger,
		cfg:        opts.Config,
		now:        time.Now,
	}
	e.handlers = map[session.Status]stateHandler{
		session.StatusAwaitingListingType:  e.handleListingType,
		session.StatusAwaitingPropertyType: e.handlePropertyType,
		session.StatusAwaitingOwnership:    e.handleOwnership,
		session.StatusAwaitingPhotos:       e.handleFirstPhoto,
		session.StatusCollectingPhotos:     e.handleCollectingPhotos,
		session.StatusAwaitingMorePhotos:   e.handleMorePhotos,
		session.StatusAwaitingLocation:     e.handleLocation,
		session.StatusAwaitingPrice:        e.handlePrice,
		session.StatusAwaitingBedrooms:     e.handleBedrooms,
		session.StatusAwaitingBathrooms:    e.handleBathrooms,
		session.StatusProcessing:           e.handleProcessing,
		session.StatusAwaitingConfirmation: e.handleConfirmation,

		session.StatusOwnerSelectProperty:     e.handleOwnerSelect,
		session.StatusOwnerConfirmProperty:    e.handleOwnerConfirm,
		session.StatusOwnerAwaitingName:       e.handleOwnerName,
		session.StatusOwnerAwaitingPhone:      e.handleOwnerPhone,
		session.StatusOwnerAwaitingCompany:    e.handleOwnerCompany,
		session.StatusOwnerAwaitingCommission: e.handleOwnerCommission,

		session.StatusSearchAwaitingQuery:  e.handleSearchQuery,
		session.StatusSearchShowingResults: e.handleSearchResults,

		session.StatusPhotoSelectProperty:  e.handlePhotoSelect,
		session.StatusPhotoConfirmProperty: e.handlePhotoConfirmProperty,
		session.StatusPhotoViewCurrent:     e.handlePhotoAction,
		session.StatusPhotoSelectAction:    e.handlePhotoAction,
		session.StatusPhotoCollecting:      e.handlePhotoCollecting,
		session.StatusPhotoReplaceSelect:   e.handlePhotoReplaceSelect,
		session.StatusPhotoDeleteSelect:    e.handlePhotoDeleteSelect,
		session.StatusPhotoConfirmDelete:   e.handlePhotoConfirmDelete,

		session.StatusAwaitingRegPhone:          e.handleRegPhone,
		session.StatusAwaitingIDDocument:        e.handleIDDocument,
		session.StatusConfirmIDData:             e.handleConfirmID,
		session.StatusAwaitingAddressDocument:   e.handleAddressDocument,
		session.StatusConfirmAddressData:        e.handleConfirmAddress,
		session.StatusAwaitingAccommodationName: e.handleAccommodationName,
		session.StatusConfirmRegistration:       e.handleConfirmRegistration,
		session.StatusExternalProcessing:        e.handleExternalProcessing,
	}
	return e, nil
}

// HandleEvent normalizes one inbound event and routes it. Errors returned
// here are infrastructure failures; user mistakes produce reprompts, not
// errors.
func (e *Engine) HandleEvent(ctx context.Context, ev normalize.InboundEvent) (Response, error) {
	cmd := e.normalizer.Normalize(ctx, ev)
	resp, err := e.dispatch(ctx, ev.From, ev.SenderName, cmd)
	if err != nil {
		e.logger.Error("event_failed", "identity", ev.From, "error", err.Error())
		return Text(msgInternalError), err
	}
	return resp, nil
}

// flowEntry maps a flow to its initial status and first prompt.
type flowEntry struct {
	status session.Status
	prompt string
}

var flowEntries = map[session.Flow]flowEntry{
	session.FlowListing:      {session.StatusAwaitingListingType, msgAskListingType},
	session.FlowOwnerUpdate:  {session.StatusOwnerSelectProperty, ""}, // prompt is built from recent listings
	session.FlowSearch:       {session.StatusSearchAwaitingQuery, msgAskSearchQuery},
	session.FlowPhotos:       {session.StatusPhotoSelectProperty, ""},
	session.FlowRegistration: {session.StatusAwaitingRegPhone, msgAskRegPhone},
}

// menuNumbers maps bare digits to flow entries, honored only when no
// session is active so in-flow numeric answers are never hijacked.
var menuNumbers = map[int64]session.Flow{
	1: session.FlowListing,
	2: session.FlowOwnerUpdate,
	3: session.FlowSearch,
	4: session.FlowPhotos,
	5: session.FlowRegistration,
}

func (e *Engine) dispatch(ctx context.Context, identity, senderName string, cmd normalize.Command) (Response, error) {
	// Global commands first: these win over whatever the session is doing.
	switch {
	case cmd.Is(normalize.IntentStart):
		return e.enterFlow(ctx, identity, senderName, session.FlowListing)
	case cmd.Is(normalize.IntentOwnerUpdate):
		return e.enterFlow(ctx, identity, senderName, session.FlowOwnerUpdate)
	case cmd.Is(normalize.IntentSearch):
		return e.enterFlow(ctx, identity, senderName, session.FlowSearch)
	case cmd.Is(normalize.IntentPhotos):
		return e.enterFlow(ctx, identity, senderName, session.FlowPhotos)
	case cmd.Is(normalize.IntentRegistration):
		return e.enterFlow(ctx, identity, senderName, session.FlowRegistration)
	case cmd.Is(normalize.IntentMenu):
		sess, err := e.sessions.GetActive(ctx, identity)
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			return Response{}, err
		}
		if err == nil {
			if err := e.sessions.Cancel(ctx, sess.ID); err != nil {
				return Response{}, err
			}
		}
		return Text(menuText(senderName)), nil
	case cmd.Is(normalize.IntentHelp):
		return Text(msgHelp), nil
	case cmd.Is(normalize.IntentCancel):
		sess, err := e.sessions.GetActive(ctx, identity)
		if errors.Is(err, session.ErrNotFound) {
			return Text(msgNothingToCancel + "\n\n" + menuText(senderName)), nil
		}
		if err != nil {
			return Response{}, err
		}
		if err := e.sessions.Cancel(ctx, sess.ID); err != nil {
			return Response{}, err
		}
		e.logger.Info("session_cancelled", "session_id", sess.ID, "status", string(sess.Status))
		return Text(msgCancelled + "\n\n" + menuText(senderName)), nil
	}

	sess, err := e.sessions.GetActive(ctx, identity)
	if errors.Is(err, session.ErrNotFound) {
		return e.handleIdle(ctx, identity, senderName, cmd)
	}
	if err != nil {
		return Response{}, err
	}

	if sess.Expired(e.now()) {
		if err := e.sessions.Cancel(ctx, sess.ID); err != nil {
			return Response{}, err
		}
		e.logger.Info("session_expired", "session_id", sess.ID, "status", string(sess.Status))
		return Text(msgSessionExpired + "\n\n" + menuText(senderName)), nil
	}

	handler, ok := e.handlers[sess.Status]
	if !ok {
		// A status with no handler means a deploy skew or corrupted row;
		// park the session and start over.
		e.logger.Error("unhandled_status", "session_id", sess.ID, "status", string(sess.Status))
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusError, "unhandled status "+string(sess.Status)); err != nil {
			return Response{}, err
		}
		return Text(msgInternalError + "\n\n" + menuText(senderName)), nil
	}
	return handler(ctx, sess, cmd)
}

// handleIdle covers input with no active session: numbered menu entry, a
// stray confirm for an already finished listing, or the greeting.
func (e *Engine) handleIdle(ctx context.Context, identity, senderName string, cmd normalize.Command) (Response, error) {
	if cmd.HasNumber {
		if flow, ok := menuNumbers[cmd.Number]; ok {
			return e.enterFlow(ctx, identity, senderName, flow)
		}
	}
	if cmd.Is(normalize.IntentConfirm) || cmd.Is(normalize.IntentYes) {
		latest, err := e.sessions.GetLatest(ctx, identity)
		if err == nil && latest.Status == session.StatusCompleted && latest.Listing.PropertyID != "" {
			return Textf(msgAlreadyCompleted, latest.Listing.ListingNumber), nil
		}
	}
	return Text(greetingText(senderName)), nil
}

func (e *Engine) enterFlow(ctx context.Context, identity, senderName string, flow session.Flow) (Response, error) {
	entry := flowEntries[flow]
	sess, err := e.sessions.Create(ctx, identity, senderName, entry.status)
	if err != nil {
		return Response{}, err
	}
	e.logger.Info("flow_started", "session_id", sess.ID, "flow", string(flow), "identity", identity)

	switch flow {
	case session.FlowOwnerUpdate:
		return e.promptPropertySelection(ctx, msgOwnerIntro)
	case session.FlowPhotos:
		return e.promptPropertySelection(ctx, msgPhotosIntro)
	}
	return Text(entry.prompt), nil
}

// promptPropertySelection renders the shared numbered pick list of recent
// listings used by the owner-update and photo flows.
func (e *Engine) promptPropertySelection(ctx context.Context, intro string) (Response, error) {
	recent, err := e.properties.Recent(ctx, e.cfg.RecentLimit)
	if err != nil {
		return Response{}, err
	}
	if len(recent) == 0 {
		return Text(intro + "\n\n" + msgNoListingsYet), nil
	}
	text := intro + "\n\n" + msgPickProperty + "\n"
	for i, p := range recent {
		text += fmt.Sprintf("%d. %s — %s\n", i+1, p.ListingNumber, p.Title)
	}
	text += "\n" + msgPickPropertyHint
	return Text(text), nil
}

// selectProperty resolves a pick-list index or a free-form listing-number
// token to a property. Returns nil with no error when the input matched
// neither, so the caller can reprompt.
func (e *Engine) selectProperty(ctx context.Context, cmd normalize.Command) (*property.Property, error) {
	if cmd.HasNumber && cmd.Number >= 1 && cmd.Number <= int64(e.cfg.RecentLimit) {
		recent, err := e.properties.Recent(ctx, e.cfg.RecentLimit)
		if err != nil {
			return nil, err
		}
		if int(cmd.Number) <= len(recent) {
			return &recent[cmd.Number-1], nil
		}
	}
	number, err := property.CanonicalListingNumber(cmd.Text)
	if err != nil {
		return nil, nil
	}
	p, err := e.properties.GetByListingNumber(ctx, number)
	if errors.Is(err, property.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
