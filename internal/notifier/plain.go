package notifier

import (
	"regexp"
	"strings"

	"github.com/slack-go/slack"
)

var slackLink = regexp.MustCompile(`<([^|<>]+)\|([^<>]+)>`) //nolint:gochecknoglobals // compiled once

// PlainText flattens a message into text for channels that cannot render blocks.
// Images become their URLs and the channel ping is dropped.
func PlainText(msg Message) string {
	var lines []string

	for _, block := range msg.Blocks {
		switch b := block.(type) {
		case *slack.HeaderBlock:
			lines = append(lines, b.Text.Text)
		case *slack.SectionBlock:
			lines = append(lines, plainMarkdown(b.Text.Text))
		case *slack.ImageBlock:
			lines = append(lines, b.ImageURL)
		case *slack.DividerBlock:
			lines = append(lines, "――――――")
		case *slack.ContextBlock:
			var parts []string
			for _, el := range b.ContextElements.Elements {
				switch e := el.(type) {
				case *slack.TextBlockObject:
					if e.Text != channelPing {
						parts = append(parts, plainMarkdown(e.Text))
					}
				case *slack.ImageBlockElement:
					parts = append(parts, e.ImageURL)
				}
			}
			if len(parts) > 0 {
				lines = append(lines, strings.Join(parts, " "))
			}
		}
	}

	return msg.Summary + "\n\n" + strings.Join(lines, "\n")
}

func plainMarkdown(text string) string {
	text = slackLink.ReplaceAllString(text, "$2: $1")
	text = strings.NewReplacer(`\_`, `_`, `\*`, `*`, `\~`, `~`, "\\`", "`").Replace(text)

	return text
}
