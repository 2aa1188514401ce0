package scraper

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"auction_tracker/identity"
	"auction_tracker/models"
)

// parseHTML walks listing cards using the configured selector groups. It
// reports how many containers matched so callers can tell "page with no
// cards" from "cards we could not read".
func (f *Fetcher) parseHTML(body []byte, state string) ([]models.Listing, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}

	sel := f.cfg.Selectors
	cards := doc.Find(sel.Container)
	var listings []models.Listing

	cards.Each(func(i int, card *goquery.Selection) {
		title := firstText(card, sel.Title)
		href, _ := card.Find(sel.Link).First().Attr("href")
		href = identity.ResolveURL(f.cfg.BaseURL, href)
		id := identity.ExtractID(href)
		if id == "" || title == "" || href == "" {
			return
		}

		priceText := firstText(card, sel.Price)
		if priceText == "" {
			priceText = "0"
		}
		location := firstText(card, sel.Location)
		if location == "" {
			location = state
		}

		listings = append(listings, models.Listing{
			ID:          identity.Prefixed(f.source, id),
			Source:      f.source,
			Title:       title,
			URL:         href,
			Location:    location,
			EndTime:     firstText(card, sel.EndTime),
			Price:       ParsePrice(priceText),
			Description: title,
		})
	})

	return listings, cards.Length(), nil
}

func firstText(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(s.Find(selector).First().Text())
}
