package runtime

import (
	"github.com/aretw0/fieldbot/pkg/domain"
)

const (
	exampleRequest = "account:98xxxxxxxxx\ndevice:PNP111_A_G_C610"
	requestFormat  = "account:YOUR_ACCOUNT\ndevice:YOUR_DEVICE_CODE"
)

func welcome() domain.Reply {
	return domain.NewReply().
		Text("✨ ").Bold("Welcome to Field Bot!").Text(" ✨").Line().
		Blank().
		Text("Please choose an operation:").Line().
		Text("- ").Bold(domain.ButtonSearch).Text(": Search Site").Line().
		Text("- ").Bold(domain.ButtonChangeDevice).Text(": Change device for account").Line().
		Blank().
		Text("You can type /back at any time to return to this menu.").Line().
		Options(domain.MainMenu...).
		Build()
}

func menuHint() domain.Reply {
	return domain.NewReply().
		Text("Please choose an operation from the menu, or type /help.").Line().
		Options(domain.MainMenu...).
		Build()
}

func helpText() domain.Reply {
	b := domain.NewReply().
		Text("ℹ️ ").Bold("Field Bot Help").Text(" ℹ️").Line().
		Blank().
		Bold(domain.ButtonSearch + ":").Line().
		Text("Send any search term to find matching records in the site database. /back").Line().
		Blank().
		Bold(domain.ButtonChangeDevice + ":").Line().
		Text("Send your request in this format:").Line()
	codeBlock(b, requestFormat)
	b.Blank().Text("Example:").Line()
	codeBlock(b, exampleRequest)
	return b.Build()
}

func searchPrompt() domain.Reply {
	return domain.NewReply().
		Text("🔍 ").Bold("Search Site Mode").Line().
		Blank().
		Text("Enter your search term (SITE, IP, etc.)").Line().
		Text("Type /back to return to main menu.").Line().
		Build()
}

func changePrompt() domain.Reply {
	b := domain.NewReply().
		Text("🔄 ").Bold("Change Device Mode").Line().
		Blank().
		Text("Send your request in this format:").Line()
	codeBlock(b, requestFormat)
	b.Blank().Text("Example:").Line()
	codeBlock(b, exampleRequest)
	return b.Blank().
		Text("Type /back to return to main menu.").Line().
		Build()
}

func formatError() domain.Reply {
	b := domain.NewReply().
		Text("⚠️ ").Bold("Invalid Format").Text(" ⚠️").Line().
		Blank().
		Text("Please use:").Line()
	codeBlock(b, requestFormat)
	b.Blank().Bold("Example:").Line()
	codeBlock(b, exampleRequest)
	return b.Build()
}

func dataUnavailable() domain.Reply {
	w := welcome()
	return domain.NewReply().
		Text("❌ Failed to load data. Please try again later.").Line().
		Blank().
		Lines(w.Lines...).
		Options(w.Options...).
		Build()
}

func processingError(err error) domain.Reply {
	return domain.NewReply().
		Text("❌ ").Bold("Error Processing Request").Text(" ❌").Line().
		Blank().
		Code(err.Error()).Line().
		Build()
}

func changeResult(req domain.ChangeRequest, outcome domain.Outcome) domain.Reply {
	return domain.NewReply().
		Bold("Request Status:").Text(" " + outcome.Label()).Line().
		Blank().
		Text("🔹 ").Bold("Account:").Text(" ").Code(req.Account).Line().
		Text("🔹 ").Bold("Device Code:").Text(" ").Code(req.DeviceCode).Line().
		Blank().
		Text("The request has been processed by the API. /back").Line().
		Build()
}

func codeBlock(b *domain.ReplyBuilder, text string) {
	start := 0
	for i := 0; i <= len(text); i++ {
		if i == len(text) || text[i] == '\n' {
			b.Code(text[start:i]).Line()
			start = i + 1
		}
	}
}
