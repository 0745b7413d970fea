package templates

import (
	"strings"
	"testing"

	"github.com/oksasatya/house-marketplace/config"
	"github.com/oksasatya/house-marketplace/internal/domain/entity"
)

func TestRenderListingPublished(t *testing.T) {
	cfg := &config.Config{AppName: "house-marketplace", CompanyName: "House Marketplace", PublicBaseURL: "https://example.com"}
	owner := &entity.User{Name: "Jane", Email: "jane@example.com"}
	l := &entity.Listing{ID: "abc", Type: entity.ListingRent, Name: "Cosy loft in the centre", ImgURLs: []string{"https://img/1.jpg"}}

	data := NewListingPublishedData(cfg, owner, l)
	text, html, err := Render("universal", data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, body := range []string{text, html} {
		if !strings.Contains(body, "Cosy loft in the centre") || !strings.Contains(body, "https://example.com/category/rent/abc") {
			t.Fatalf("listing details missing from body:\n%s", body)
		}
	}
}

func TestRenderContactOwnerEscapesMessage(t *testing.T) {
	cfg := &config.Config{AppName: "house-marketplace"}
	owner := &entity.User{Name: "Jane", Email: "jane@example.com"}
	l := &entity.Listing{ID: "abc", Type: entity.ListingSale, Name: "Villa with sea view"}

	data := NewContactOwnerData(cfg, owner, l, WithSender("Bob", "bob@example.com", "<script>x</script>"))
	_, html, err := Render("universal", data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("message was not escaped:\n%s", html)
	}
}
