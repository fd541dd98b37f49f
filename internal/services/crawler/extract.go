package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/Houeta/shopwatch/internal/models"
	"github.com/Houeta/shopwatch/internal/parser"
)

const outOfStockText = "out of stock"

var digitRun = regexp.MustCompile(`\d+`)

// parseListing extracts every item card of a listing page.
func parseListing(doc parser.Document) ([]RawItem, error) {
	cards := doc.FindAll(".shop-item-card")
	items := make([]RawItem, 0, len(cards))

	for idx, card := range cards {
		item, err := parseCard(card)
		if err != nil {
			return nil, fmt.Errorf("item card %d: %w", idx, err)
		}
		items = append(items, item)
	}

	return items, nil
}

func parseCard(card parser.Node) (RawItem, error) {
	title, err := requireOne(card, "h4")
	if err != nil {
		return RawItem{}, err
	}

	description, err := requireOne(card, "p.shop-item-card__description")
	if err != nil {
		return RawItem{}, err
	}

	priceNode, err := requireOne(card, "span.shop-item-card__price")
	if err != nil {
		return RawItem{}, err
	}
	price, err := parsePrice(priceNode.Text())
	if err != nil {
		return RawItem{}, err
	}

	imageURL, err := requireAttr(card, "div.shop-item-card__image > img", "src")
	if err != nil {
		return RawItem{}, err
	}

	href, err := requireAttr(card, "div.shop-item-card__order-button > a.btn", "href")
	if err != nil {
		return RawItem{}, err
	}
	id, err := parseItemID(href)
	if err != nil {
		return RawItem{}, err
	}

	return RawItem{
		ID:          id,
		Title:       title.Text(),
		Description: description.Text(),
		Price:       price,
		ImageURL:    imageURL,
		BuyURL:      href,
	}, nil
}

// parsePrice keeps only the digits of text, so "1,200 shells" reads as 1200.
func parsePrice(text string) (uint32, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)

	price, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price %q: %w", text, err)
	}

	return uint32(price), nil
}

func parseItemID(href string) (models.ItemID, error) {
	parsed, err := url.Parse(href)
	if err != nil {
		return 0, fmt.Errorf("failed to parse order link %q: %w", href, err)
	}

	raw := parsed.Query().Get("shop_item_id")
	if raw == "" {
		return 0, fmt.Errorf("%w: shop_item_id in %q", ErrMissingElement, href)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse shop item id %q: %w", raw, err)
	}

	return models.ItemID(id), nil
}

// parseDetail extracts the optional fields of an item page.
func parseDetail(doc parser.Document) (Detail, error) {
	var detail Detail

	if desc, ok := doc.FindOne(".shop-item-detail__description"); ok {
		detail.LongDescription = desc.Text()
	}

	if stock, ok := doc.FindOne(".shop-item-detail__stock"); ok {
		count, err := parseStock(stock.Text())
		if err != nil {
			return Detail{}, err
		}
		detail.Stock = count
	}

	seen := make(map[int64]struct{})
	for _, row := range doc.FindAll(".shop-item-detail__accessory") {
		accessory, err := parseAccessory(row)
		if err != nil {
			return Detail{}, err
		}
		if _, dup := seen[accessory.ID]; dup {
			continue
		}
		seen[accessory.ID] = struct{}{}
		detail.Accessories = append(detail.Accessories, accessory)
	}

	return detail, nil
}

// parseStock reads a stock indicator. Text without any count means the stock is not tracked.
func parseStock(text string) (*uint32, error) {
	if strings.Contains(strings.ToLower(text), outOfStockText) {
		zero := uint32(0)
		return &zero, nil
	}

	digits := digitRun.FindString(text)
	if digits == "" {
		return nil, nil //nolint:nilnil // untracked stock
	}

	count, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stock %q: %w", text, err)
	}
	value := uint32(count)

	return &value, nil
}

func parseAccessory(row parser.Node) (RawAccessory, error) {
	rawID, ok := row.Attr("data-accessory-id")
	if !ok {
		return RawAccessory{}, fmt.Errorf("%w: .shop-item-detail__accessory[data-accessory-id]", ErrMissingElement)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil {
		return RawAccessory{}, fmt.Errorf("failed to parse accessory id %q: %w", rawID, err)
	}

	name, err := requireOne(row, ".shop-item-detail__accessory-name")
	if err != nil {
		return RawAccessory{}, err
	}

	priceNode, err := requireOne(row, ".shop-item-detail__accessory-price")
	if err != nil {
		return RawAccessory{}, err
	}
	price, err := parsePrice(priceNode.Text())
	if err != nil {
		return RawAccessory{}, fmt.Errorf("accessory %d: %w", id, err)
	}

	return RawAccessory{ID: id, Name: name.Text(), Price: price}, nil
}
