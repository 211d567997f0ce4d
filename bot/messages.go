package bot

import "fmt"

// All user-facing copy lives here so the flow handlers stay readable and
// the wording can be reviewed in one place.

const (
	msgInternalError = "Something went wrong on our side. Please try again in a moment."

	msgNothingToCancel = "There is nothing to cancel right now."
	msgCancelled       = "Okay, I've cancelled that. Nothing was saved."
	msgSessionExpired  = "That conversation expired, so I've closed it. Let's start fresh."

	msgHelp = "Here's what I can do:\n" +
		"• *new* — create a property listing (photos, location, price)\n" +
		"• *owner* — update an owner's contact details\n" +
		"• *search* — find listings by owner, title or area\n" +
		"• *photos* — add, replace or delete listing photos\n" +
		"• *register* — submit an accommodation registration\n\n" +
		"You can type *cancel* at any point to abandon what we're doing, " +
		"or *menu* to come back here."

	msgAskListingType = "Let's create a new listing! 🏡\n\n" +
		"Is this property for sale or for rent?\n" +
		"1. For sale\n" +
		"2. For rent"

	msgAskSearchQuery = "What should I search for? You can use an owner's name, " +
		"a company, a project title or an area (at least 2 characters)."

	msgAskRegPhone = "Let's register your accommodation. 📋\n\n" +
		"First, what is the owner's phone number?"

	msgOwnerIntro  = "Let's update an owner's contact details. 👤"
	msgPhotosIntro = "Let's manage listing photos. 📷"

	msgNoListingsYet    = "There are no listings yet. Create one first with *new*."
	msgPickProperty     = "Which property? Reply with a number from the list, or send a listing number like PP-000412:"
	msgPickPropertyHint = "Or type *cancel* to stop."

	msgAlreadyCompleted = "That listing is already published as %s — nothing more to confirm. Type *menu* to see what else I can do."
)

func greetingText(name string) string {
	hello := "Hello!"
	if name != "" {
		hello = fmt.Sprintf("Hello %s!", name)
	}
	return hello + " I'm the PropPulse assistant. 🏝\n\n" + menuBody
}

func menuText(name string) string {
	header := "Main menu:"
	if name != "" {
		header = fmt.Sprintf("Main menu, %s:", name)
	}
	return header + "\n\n" + menuBody
}

const menuBody = "1. Create a new listing\n" +
	"2. Update owner contact details\n" +
	"3. Search the directory\n" +
	"4. Manage listing photos\n" +
	"5. Register an accommodation\n\n" +
	"Reply with a number, or type *help* for details."
