package notifier

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Houeta/shopwatch/internal/models"
	"github.com/slack-go/slack"
)

const (
	emojiShells  = ":shells:"
	emojiTrolley = ":tw_shopping_trolley:"
	emojiNew     = ":new:"
	emojiTrash   = ":win10-trash:"

	noDescription = "_no description_"
	channelPing   = "pinging <!channel>"

	// Slack rejects header blocks longer than this.
	maxHeaderRunes = 150
	// Each side of a long description transition is clipped to this.
	maxDetailsRunes = 500
)

var markdownEscaper = strings.NewReplacer( //nolint:gochecknoglobals // immutable replacer
	`_`, `\_`,
	`*`, `\*`,
	`~`, `\~`,
	"`", "\\`",
)

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// FormatPrices renders a price map: one region as "P (Region)", every known region at the
// same price as "P (all regions)", anything else as "Region P, Region P" in region order.
func FormatPrices(prices models.Prices) string {
	regions := prices.Regions()

	switch len(regions) {
	case 0:
		return "no price"
	case 1:
		return fmt.Sprintf("%d (%s)", prices[regions[0]], regions[0])
	}

	if price, ok := prices.Uniform(); ok {
		return fmt.Sprintf("%d (all regions)", price)
	}

	parts := make([]string, 0, len(regions))
	for _, r := range regions {
		parts = append(parts, fmt.Sprintf("%s %d", r, prices[r]))
	}

	return strings.Join(parts, ", ")
}

// FormatStock renders the remaining stock.
func FormatStock(stock *uint32) string {
	switch {
	case stock == nil:
		return "Unlimited"
	case *stock == 0:
		return "Out of stock"
	default:
		return fmt.Sprintf("%d left", *stock)
	}
}

// transition renders "old → new", or just new when both render the same.
func transition(old, cur string) string {
	if old == cur {
		return cur
	}

	return old + " → " + cur
}

func descriptionLine(desc string) string {
	if desc == "" {
		return ""
	}

	return "_" + escapeMarkdown(desc) + "_\n"
}

func descriptionChange(old, cur string) string {
	switch {
	case old == "" && cur == "":
		return ""
	case old == cur:
		return descriptionLine(cur)
	}

	side := func(desc string) string {
		if desc == "" {
			return noDescription
		}
		return escapeMarkdown(desc)
	}

	return side(old) + " → " + side(cur) + "\n"
}

func clip(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	return string([]rune(text)[:limit-1]) + "…"
}

// detailsChange renders the long description only when it changed.
func detailsChange(old, cur string) string {
	if old == cur {
		return ""
	}

	side := func(desc string) string {
		if desc == "" {
			return noDescription
		}
		return escapeMarkdown(clip(desc, maxDetailsRunes))
	}

	return "*Details:* " + side(old) + " → " + side(cur) + "\n"
}

func accessoriesEqual(old, cur []models.Accessory) bool {
	if len(old) != len(cur) {
		return false
	}
	for i := range old {
		if !old[i].Equal(cur[i]) {
			return false
		}
	}

	return true
}

// accessoriesChange lists the current accessories with name and price transitions against
// old. Accessories that disappeared are struck through at the end.
func accessoriesChange(old, cur []models.Accessory) string {
	if accessoriesEqual(old, cur) {
		return accessoriesLine(cur)
	}

	previous := make(map[int64]models.Accessory, len(old))
	for _, acc := range old {
		previous[acc.ID] = acc
	}

	parts := make([]string, 0, len(cur)+len(old))
	for _, acc := range cur {
		was, ok := previous[acc.ID]
		if !ok {
			parts = append(parts, fmt.Sprintf("%s (%s) %s", escapeMarkdown(acc.Name), FormatPrices(acc.Prices), emojiNew))
			continue
		}
		delete(previous, acc.ID)

		parts = append(parts, fmt.Sprintf("%s (%s)",
			transition(escapeMarkdown(was.Name), escapeMarkdown(acc.Name)),
			transition(FormatPrices(was.Prices), FormatPrices(acc.Prices)),
		))
	}

	for _, acc := range old {
		if _, gone := previous[acc.ID]; gone {
			parts = append(parts, "~"+escapeMarkdown(acc.Name)+"~")
		}
	}

	return "*Accessories:* " + strings.Join(parts, ", ") + "\n"
}

func accessoriesLine(accessories []models.Accessory) string {
	if len(accessories) == 0 {
		return ""
	}

	parts := make([]string, 0, len(accessories))
	for _, acc := range accessories {
		parts = append(parts, fmt.Sprintf("%s (%s)", escapeMarkdown(acc.Name), FormatPrices(acc.Prices)))
	}

	return "*Accessories:* " + strings.Join(parts, ", ") + "\n"
}

func buyButton(url string) string {
	return fmt.Sprintf("<%s|*%s Buy*>", url, emojiTrolley)
}

func headerBlock(text string) *slack.HeaderBlock {
	return slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, clip(text, maxHeaderRunes), true, false))
}

func markdownSection(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}

func imageBlock(url, title string) *slack.ImageBlock {
	return slack.NewImageBlock(url, "Image for "+title, "", nil)
}

func itemHeader(emoji, title, prices string) *slack.HeaderBlock {
	return headerBlock(fmt.Sprintf("%s %s (%s %s)", emoji, title, emojiShells, prices))
}

func renderNewItem(item models.ShopItem) []slack.Block {
	body := descriptionLine(item.Description) +
		"*Stock:* " + FormatStock(item.Stock) + "\n" +
		accessoriesLine(item.Accessories) +
		"\n" + buyButton(item.BuyURL)

	return []slack.Block{
		itemHeader(emojiNew, item.Title, FormatPrices(item.Prices)),
		markdownSection(body),
		imageBlock(item.ImageURL, item.Title),
	}
}

func renderRemovedItem(item models.ShopItem) []slack.Block {
	body := descriptionLine(item.Description)
	if body == "" {
		body = noDescription
	}

	return []slack.Block{
		itemHeader(emojiTrash, item.Title, FormatPrices(item.Prices)),
		markdownSection(body),
		imageBlock(item.ImageURL, item.Title),
	}
}

func renderUpdatedItem(change models.ItemChange) []slack.Block {
	old, cur := change.Old, change.New

	title := transition(old.Title, cur.Title)

	price := FormatPrices(cur.Prices)
	if !old.Prices.Equal(cur.Prices) {
		price = FormatPrices(old.Prices) + " → " + price
	}

	stock := transition(FormatStock(old.Stock), FormatStock(cur.Stock))

	body := descriptionChange(old.Description, cur.Description) +
		detailsChange(old.LongDescription, cur.LongDescription) +
		"*Stock:* " + stock + "\n" +
		accessoriesChange(old.Accessories, cur.Accessories) +
		"\n" + buyButton(cur.BuyURL)

	blocks := []slack.Block{
		headerBlock(fmt.Sprintf("%s (%s %s)", title, emojiShells, price)),
		markdownSection(body),
	}

	if old.ImageURL == cur.ImageURL {
		return append(blocks, imageBlock(cur.ImageURL, cur.Title))
	}

	return append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, "*Old:*", false, false),
		slack.NewImageBlockElement(old.ImageURL, "Old image for "+cur.Title),
		slack.NewTextBlockObject(slack.MarkdownType, "→ *New:*", false, false),
		slack.NewImageBlockElement(cur.ImageURL, "New image for "+cur.Title),
	))
}

func renderChannelPing() slack.Block {
	return slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, channelPing, false, false))
}
