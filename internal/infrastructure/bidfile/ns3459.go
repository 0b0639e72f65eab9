package bidfile

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/bidlens/backend/internal/domain"
	"golang.org/x/text/encoding/charmap"
)

// NS3459 document fragments. Field tags use local names only so the decoder
// matches them regardless of the schema namespace version.

type ns3459Post struct {
	Postnr      string            `xml:"Postnr"`
	Tekst       ns3459Tekst       `xml:"Tekst"`
	Prisinfo    *ns3459Prisinfo   `xml:"Prisinfo"`
	Postnrdeler ns3459PostnrDeler `xml:"Postnrdeler"`
	Kode        *ns3459Kode       `xml:"Kode"`
}

type ns3459Tekst struct {
	OriginalFormat string `xml:"OriginalFormat,attr"`
	Uformatert     string `xml:"Uformatert"`
	Chardata       string `xml:",chardata"`
}

type ns3459Prisinfo struct {
	Opsjon     string `xml:"Opsjon,attr"`
	Enhet      string `xml:"Enhet"`
	Mengde     string `xml:"Mengde"`
	Enhetspris string `xml:"Enhetspris"`
	Sum        string `xml:"Sum"`
}

type ns3459PostnrDeler struct {
	Deler []ns3459Postnrdel `xml:"Postnrdel"`
}

type ns3459Postnrdel struct {
	Type string `xml:"Type"`
	Kode string `xml:"Kode"`
}

type ns3459Kode struct {
	ID        string           `xml:"ID"`
	Kodetekst *ns3459Kodetekst `xml:"Kodetekst"`
}

type ns3459Kodetekst struct {
	Overskrift string        `xml:"Overskrift"`
	Uformatert []string      `xml:"Uformatert"`
	Tekst      []ns3459Tekst `xml:"Tekst"`
}

type ns3459PostnrdelKode struct {
	Type string `xml:"Type"`
	Kode string `xml:"Kode"`
	Navn string `xml:"Navn"`
}

type ns3459Avsender struct {
	Firma struct {
		Navn string `xml:"Navn"`
	} `xml:"Firma"`
}

// chapterPartType marks the postnr segment carrying the chapter code in the
// NS3459 position-number plan.
const chapterPartType = "Type1"

// parseNS3459 walks the XML token stream and extracts every Post element
// plus the sender company name and the chapter name plan. Token walking
// keeps the reader independent of where the schema nests the post list.
func (r *Reader) parseNS3459(file domain.BidFile) (*domain.ProviderBid, error) {
	decoder := xml.NewDecoder(bytes.NewReader(file.Data))
	decoder.CharsetReader = charsetReader

	var (
		posts        []ns3459Post
		provider     string
		chapterNames = map[string]string{}
	)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, domain.NewFileError(file.Name, fmt.Errorf("%w: %v", domain.ErrFormat, err))
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "Post":
			var post ns3459Post
			if err := decoder.DecodeElement(&post, &start); err != nil {
				return nil, domain.NewFileError(file.Name, fmt.Errorf("%w: %v", domain.ErrFormat, err))
			}
			posts = append(posts, post)
		case "PostnrdelKode":
			var code ns3459PostnrdelKode
			if err := decoder.DecodeElement(&code, &start); err != nil {
				continue
			}
			if code.Type != chapterPartType {
				continue
			}
			kode := strings.TrimSpace(code.Kode)
			navn := strings.TrimSpace(code.Navn)
			if kode != "" && navn != "" {
				if _, seen := chapterNames[kode]; !seen {
					chapterNames[kode] = navn
				}
			}
		case "Avsender":
			var sender ns3459Avsender
			if err := decoder.DecodeElement(&sender, &start); err != nil {
				continue
			}
			if provider == "" {
				provider = strings.TrimSpace(sender.Firma.Navn)
			}
		}
	}

	if len(posts) == 0 {
		return nil, domain.NewFileError(file.Name, fmt.Errorf("%w: no posts found", domain.ErrFormat))
	}

	if provider == "" {
		provider = filenameStem(file.Name)
	}

	bid := &domain.ProviderBid{Provider: provider}
	for _, post := range posts {
		item, warning := convertPost(post, chapterNames)
		if warning != "" {
			bid.Warnings = append(bid.Warnings, fmt.Sprintf("%s: %s", file.Name, warning))
		}
		if item == nil {
			continue
		}
		bid.Items = append(bid.Items, *item)
	}

	if r.debug {
		log.Printf("[BIDFILE] %s: parsed %d posts (provider %q, %d chapter names)",
			file.Name, len(bid.Items), provider, len(chapterNames))
	}

	return bid, nil
}

// convertPost maps one Post element onto the canonical line item schema.
// Returns a nil item with a warning string when the post is unusable.
func convertPost(post ns3459Post, chapterNames map[string]string) (*domain.LineItem, string) {
	identifier := strings.TrimSpace(post.Postnr)
	if identifier == "" {
		return nil, "skipped post without a position number"
	}

	item := domain.LineItem{
		Identifier:      identifier,
		UnitPriceSource: domain.SourceGiven,
		SumSource:       domain.SourceGiven,
		ChapterSource:   domain.SourceGiven,
	}

	if post.Prisinfo != nil {
		item.Unit = strings.TrimSpace(post.Prisinfo.Enhet)
		if qty, err := parseNumber(post.Prisinfo.Mengde); err == nil {
			item.Quantity = qty
		}
		item.UnitPrice, _ = parseOptionalNumber(post.Prisinfo.Enhetspris)
		item.SumAmount, _ = parseOptionalNumber(post.Prisinfo.Sum)
		item.IsOption = isTruthy(post.Prisinfo.Opsjon)
	}
	if item.SumAmount != nil && *item.SumAmount == 0 {
		// NS3459 writers emit 0 for "not summed"; rederive from the parts.
		item.SumAmount = nil
	}

	for _, part := range post.Postnrdeler.Deler {
		if strings.TrimSpace(part.Type) == chapterPartType {
			item.Chapter = strings.TrimSpace(part.Kode)
			break
		}
	}
	deriveChapter(&item)
	item.ChapterName = chapterNames[item.Chapter]

	var title string
	if post.Kode != nil {
		item.Code = strings.TrimSpace(post.Kode.ID)
		if post.Kode.Kodetekst != nil {
			title = strings.TrimSpace(post.Kode.Kodetekst.Overskrift)
		}
	}

	mainText := normalizeLineBreaks(post.Tekst.Uformatert)
	item.Specification = assembleSpecification(title, mainText, post.Kode)
	item.Description = title
	if item.Description == "" {
		item.Description = firstLine(item.Specification)
	}
	if item.Description == "" {
		item.Description = mainText
	}

	deriveAmounts(&item)
	return &item, ""
}

// assembleSpecification joins the code title, the post text, and every
// non-RTF code text fragment, deduplicated case-insensitively in first-seen
// order.
func assembleSpecification(title, mainText string, kode *ns3459Kode) string {
	var parts []string
	seen := map[string]bool{}

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		key := strings.ToLower(s)
		if seen[key] {
			return
		}
		seen[key] = true
		parts = append(parts, s)
	}

	add(title)
	add(mainText)

	if kode != nil && kode.Kodetekst != nil {
		for _, fragment := range kode.Kodetekst.Uformatert {
			add(normalizeLineBreaks(fragment))
		}
		for _, tekst := range kode.Kodetekst.Tekst {
			if tekst.OriginalFormat == "RTF" {
				continue
			}
			add(normalizeLineBreaks(tekst.Uformatert))
			add(normalizeLineBreaks(tekst.Chardata))
		}
	}

	return strings.Join(parts, "\n\n")
}

func normalizeLineBreaks(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

// charsetReader lets the decoder handle the ISO-8859-1 encoded documents
// older NS3459 exporters still produce.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "iso-8859-1", "latin1", "windows-1252":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	default:
		return input, nil
	}
}
