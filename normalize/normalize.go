// Package normalize turns one raw inbound chat event into a Command the
// dispatcher and flow handlers can branch on. Normalization never fails:
// unrecognized input yields a Command with a nil intent and the handlers
// reprompt.
package normalize

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/internal/maplink"
)

// Intent is a recognized command keyword.
type Intent string

const (
	IntentStart         Intent = "start"
	IntentMenu          Intent = "menu"
	IntentHelp          Intent = "help"
	IntentCancel        Intent = "cancel"
	IntentYes           Intent = "yes"
	IntentNo            Intent = "no"
	IntentConfirm       Intent = "confirm"
	IntentDone          Intent = "done"
	IntentSkip          Intent = "skip"
	IntentNext          Intent = "next"
	IntentPrev          Intent = "prev"
	IntentOwnerUpdate   Intent = "owner_update"
	IntentSearch        Intent = "search"
	IntentPhotos        Intent = "photos"
	IntentRegistration  Intent = "registration"
	IntentActionAdd     Intent = "action_add"
	IntentActionReplace Intent = "action_replace"
	IntentActionDelete  Intent = "action_delete"
)

// EventType mirrors the channel's message kinds.
type EventType string

const (
	EventText        EventType = "text"
	EventPhoto       EventType = "photo"
	EventLocation    EventType = "location"
	EventButton      EventType = "button"
	EventInteractive EventType = "interactive"
)

// InboundEvent is one raw channel event, already decoded from the webhook
// payload but not yet interpreted.
type InboundEvent struct {
	Type          EventType
	From          string // channel identity
	SenderName    string
	Text          string
	PhotoRef      string // channel media id
	MediaURL      string
	Lat           float64
	Lng           float64
	LocationName  string
	LocationAddr  string
	ButtonPayload string
}

// Command is the normalized interpretation of one inbound event. Intent is
// nil when nothing in the fixed table matched.
type Command struct {
	Intent       *Intent
	Text         string
	HasPhoto     bool
	PhotoRef     string
	HasLocation  bool
	Lat          float64
	Lng          float64
	LocationName string
	LocationAddr string
	HasNumber    bool
	Number       int64
}

// Keyword table. Agents work in English and Thai; both map onto the same
// intents.
var intentTable = map[string]Intent{
	"/start": IntentStart, "start": IntentStart, "new": IntentStart,
	"new listing": IntentStart, "list": IntentStart, "ลงประกาศ": IntentStart,
	"เริ่ม": IntentStart,

	"menu": IntentMenu, "/menu": IntentMenu, "main menu": IntentMenu, "เมนู": IntentMenu,

	"help": IntentHelp, "/help": IntentHelp, "ช่วยเหลือ": IntentHelp,

	"cancel": IntentCancel, "/cancel": IntentCancel, "stop": IntentCancel,
	"quit": IntentCancel, "exit": IntentCancel, "ยกเลิก": IntentCancel,

	"yes": IntentYes, "y": IntentYes, "ok": IntentYes, "ใช่": IntentYes, "ตกลง": IntentYes,
	"no": IntentNo, "n": IntentNo, "ไม่": IntentNo, "ไม่ใช่": IntentNo,

	"confirm": IntentConfirm, "publish": IntentConfirm, "ยืนยัน": IntentConfirm,
	"done": IntentDone, "finish": IntentDone, "finished": IntentDone, "เสร็จ": IntentDone,
	"skip": IntentSkip, "ข้าม": IntentSkip,

	"next": IntentNext, "more": IntentNext, "ถัดไป": IntentNext,
	"prev": IntentPrev, "previous": IntentPrev, "back": IntentPrev, "ก่อนหน้า": IntentPrev,

	"owner": IntentOwnerUpdate, "owner update": IntentOwnerUpdate,
	"update owner": IntentOwnerUpdate, "เจ้าของ": IntentOwnerUpdate,

	"search": IntentSearch, "find": IntentSearch, "ค้นหา": IntentSearch,

	"photos": IntentPhotos, "photo": IntentPhotos, "manage photos": IntentPhotos, "รูปภาพ": IntentPhotos,

	"register": IntentRegistration, "registration": IntentRegistration,
	"sha": IntentRegistration, "จดทะเบียน": IntentRegistration,

	"add": IntentActionAdd, "เพิ่ม": IntentActionAdd,
	"replace": IntentActionReplace, "เปลี่ยน": IntentActionReplace,
	"delete": IntentActionDelete, "remove": IntentActionDelete, "ลบ": IntentActionDelete,
}

// Normalizer resolves inbound events to Commands. The map-link resolver is
// the only part that can touch the network.
type Normalizer struct {
	maps   *maplink.Resolver
	logger *slog.Logger
}

func New(maps *maplink.Resolver, logger *slog.Logger) *Normalizer {
	if maps == nil {
		maps = maplink.NewResolver(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{maps: maps, logger: logger}
}

// Normalize resolves in fixed order: intent table, map-link extraction,
// integer fallback. Photo and native-location events are tagged from the
// event type directly.
func (n *Normalizer) Normalize(ctx context.Context, ev InboundEvent) Command {
	cmd := Command{Text: strings.TrimSpace(ev.Text)}

	switch ev.Type {
	case EventPhoto:
		cmd.HasPhoto = true
		cmd.PhotoRef = ev.PhotoRef
		return cmd
	case EventLocation:
		cmd.HasLocation = true
		cmd.Lat = ev.Lat
		cmd.Lng = ev.Lng
		cmd.LocationName = ev.LocationName
		cmd.LocationAddr = ev.LocationAddr
		return cmd
	case EventButton, EventInteractive:
		if ev.ButtonPayload != "" {
			cmd.Text = strings.TrimSpace(ev.ButtonPayload)
		}
	}

	lowered := strings.ToLower(cmd.Text)
	if intent, ok := intentTable[lowered]; ok {
		cmd.Intent = &intent
		return cmd
	}

	if maplink.IsMapURL(cmd.Text) {
		coords, err := n.maps.Extract(ctx, cmd.Text)
		if err == nil {
			cmd.HasLocation = true
			cmd.Lat = coords.Lat
			cmd.Lng = coords.Lng
			return cmd
		}
		n.logger.Debug("maplink_extract_failed", "error", err.Error())
	}

	if num, err := strconv.ParseInt(strings.ReplaceAll(cmd.Text, ",", ""), 10, 64); err == nil {
		cmd.HasNumber = true
		cmd.Number = num
	}
	return cmd
}

// Is reports whether the command carries the given intent.
func (c Command) Is(intent Intent) bool {
	return c.Intent != nil && *c.Intent == intent
}
