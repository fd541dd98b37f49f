// Package fixtures builds storefront pages for tests.
package fixtures

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Card describes one item card on a listing page.
type Card struct {
	ID          int64
	Title       string
	Description string
	Price       string
	ImageSrc    string
}

// Accessory describes one accessory row on a detail page.
type Accessory struct {
	ID    int64
	Name  string
	Price string
}

// Detail describes an item detail page. Empty Stock omits the indicator.
type Detail struct {
	LongDescription string
	Stock           string
	Accessories     []Accessory
}

// ShopHTML renders the landing page carrying the CSRF token.
func ShopHTML(token string) string {
	return fmt.Sprintf(`<html><head><meta name="csrf-token" content="%s"></head><body></body></html>`, token)
}

// ListingHTML renders a listing page whose region selector shows activeCode.
func ListingHTML(activeCode string, cards ...Card) string {
	var b strings.Builder
	b.WriteString(`<html><head><meta name="csrf-token" content="tok"></head><body>`)
	b.WriteString(`<select name="region">`)
	for _, code := range []string{"US", "EU", "UK", "IN", "CA", "AU", "XX"} {
		selected := ""
		if code == activeCode {
			selected = " selected"
		}
		fmt.Fprintf(&b, `<option value="%s"%s>%s</option>`, code, selected, code)
	}
	b.WriteString(`</select>`)

	for _, c := range cards {
		fmt.Fprintf(&b, `
<div class="shop-item-card">
  <div class="shop-item-card__image"><img src="%s"></div>
  <h4>%s</h4>
  <p class="shop-item-card__description">%s</p>
  <span class="shop-item-card__price">%s</span>
  <div class="shop-item-card__order-button"><a class="btn" href="%s">Order</a></div>
</div>`, c.ImageSrc, c.Title, c.Description, c.Price, OrderPath(c.ID))
	}
	b.WriteString(`</body></html>`)

	return b.String()
}

// OrderPath is the relative link of an item's detail page.
func OrderPath(id int64) string {
	return fmt.Sprintf("/shop/order?shop_item_id=%d", id)
}

// DetailHTML renders an item detail page.
func DetailHTML(d Detail) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	if d.LongDescription != "" {
		fmt.Fprintf(&b, `<div class="shop-item-detail__description">%s</div>`, d.LongDescription)
	}
	if d.Stock != "" {
		fmt.Fprintf(&b, `<span class="shop-item-detail__stock">%s</span>`, d.Stock)
	}
	for _, a := range d.Accessories {
		fmt.Fprintf(&b, `<label class="shop-item-detail__accessory" data-accessory-id="%d">
  <span class="shop-item-detail__accessory-name">%s</span>
  <span class="shop-item-detail__accessory-price">%s</span>
</label>`, a.ID, a.Name, a.Price)
	}
	b.WriteString(`</body></html>`)

	return b.String()
}

// BlobImageURL builds an active storage style URL whose signed segment encodes blobID.
func BlobImageURL(blobID int64) string {
	payload := fmt.Sprintf(`{"_rails":{"data":%d,"pur":"blob_id"}}`, blobID)
	return "https://shop.test/rails/active_storage/representations/redirect/" +
		base64.StdEncoding.EncodeToString([]byte(payload)) + "--0f3b2c/eyJfcmFpbHMiOnt9fQ==--aa/image.png"
}
