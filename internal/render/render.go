// Package render turns an ad into the HTML-formatted chat message sent to
// receivers.
package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JakeFAU/adfiller/internal/ad"
)

// Defaults match the chat transport's message and photo caption limits.
const (
	DefaultLimit        = 4096
	DefaultCaptionLimit = 1024
	DefaultMargin       = 50
)

// Message is a rendered ad. PhotoURL is empty for text-only delivery; when it
// is set, Caption is the same message fitted to the caption limit.
type Message struct {
	Text     string
	Caption  string
	PhotoURL string
}

// Renderer formats ads within a character limit.
type Renderer struct {
	limit        int
	captionLimit int
	margin       int
}

// New returns a Renderer. Non-positive values select the defaults.
func New(limit, margin int) *Renderer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if margin <= 0 {
		margin = DefaultMargin
	}
	return &Renderer{limit: limit, captionLimit: min(limit, DefaultCaptionLimit), margin: margin}
}

// Render builds the message for a. Text and Caption never exceed their
// limits, counted in characters, and never end inside an entity or tag.
func (r *Renderer) Render(a ad.Ad) Message {
	msg := Message{Text: r.compose(a, r.limit)}
	if a.ImagesCount > 0 {
		if thumb, ok := a.FirstThumb(); ok {
			msg.PhotoURL = thumb
			msg.Caption = r.compose(a, r.captionLimit)
		}
	}
	return msg
}

func (r *Renderer) compose(a ad.Ad, limit int) string {
	var head strings.Builder
	fmt.Fprintf(&head, "%s <b>%s</b>\n", Emojis(a.Title), html.EscapeString(a.Title))
	if a.Price != nil {
		head.WriteString("\n" + EmojiPrice + " " + strconv.FormatFloat(*a.Price, 'f', -1, 64))
		if a.Currency != nil {
			head.WriteString(" " + html.EscapeString(*a.Currency))
		}
		head.WriteString("\n")
	}

	// The description is cut before escaping so a cut never splits an entity.
	raw := ""
	if a.Description != a.Title && utf8.RuneCountInString(a.Description) > 3 {
		raw = a.Description
	}
	tail := r.tail(a)

	if raw != "" {
		headLen := utf8.RuneCountInString(head.String())
		if extra := escapedLen(raw) + headLen + r.margin - limit; extra > 0 {
			raw = cutEscaped(raw, extra)
		}
		// The tail can outgrow the margin; trim the description further.
		total := headLen + escapedLen(raw) + 2 + utf8.RuneCountInString(tail)
		if over := total - limit; over > 0 {
			raw = cutEscaped(raw, over)
		}
	}

	text := head.String()
	if raw != "" {
		text += "\n" + html.EscapeString(raw) + "\n"
	}
	return clampHTML(text+tail, limit)
}

func (r *Renderer) tail(a ad.Ad) string {
	var b strings.Builder
	if a.Name != nil {
		b.WriteString("\n" + EmojiName + " <b>" + html.EscapeString(*a.Name) + "</b>")
	}
	if a.Phone != nil {
		phones := PhoneNumbers(*a.Phone)
		for _, n := range phones {
			b.WriteString("\n" + EmojiPhone + " " + n)
		}
		if a.ImagesCount > 0 {
			for _, n := range phones {
				if strings.HasPrefix(n, "+535") {
					fmt.Fprintf(&b, "\n%s <a href=\"wa.me/%s\">WhatsApp</a>", EmojiWhatsApp, n[1:])
				}
			}
		}
	}
	if a.ProvinceName != "" || a.MunicipalityName != nil {
		b.WriteString("\n\n" + EmojiLocation + " " + html.EscapeString(a.ProvinceName))
		if a.MunicipalityName != nil {
			b.WriteString("-" + html.EscapeString(*a.MunicipalityName))
		}
	}
	if len(a.Tags) > 0 {
		b.WriteString("\n" + EmojiTag + " " + html.EscapeString(strings.Join(a.Tags, " ")))
	}
	return b.String()
}

// escapedLen is the rune count of html.EscapeString(s).
func escapedLen(s string) int {
	n := 0
	for _, r := range s {
		n += escapedRuneLen(r)
	}
	return n
}

func escapedRuneLen(r rune) int {
	switch r {
	case '<', '>':
		return 4
	case '&', '\'', '"':
		return 5
	default:
		return 1
	}
}

// cutEscaped drops trailing runes of s until its escaped form is at least n
// characters shorter.
func cutEscaped(s string, n int) string {
	runes := []rune(s)
	for n > 0 && len(runes) > 0 {
		n -= escapedRuneLen(runes[len(runes)-1])
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

// clampHTML cuts markup to at most limit runes. The cut backs off to before a
// partial entity or tag, and to before the first tag left unclosed.
func clampHTML(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	runes = runes[:limit]
	if amp := lastIndex(runes, '&'); amp >= 0 && lastIndex(runes, ';') < amp {
		runes = runes[:amp]
	}
	if lt := lastIndex(runes, '<'); lt >= 0 && lastIndex(runes, '>') < lt {
		runes = runes[:lt]
	}
	var open []int
	for i := 0; i < len(runes); i++ {
		if runes[i] != '<' {
			continue
		}
		end := i + 1
		for runes[end] != '>' {
			end++
		}
		if runes[i+1] == '/' {
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		} else {
			open = append(open, i)
		}
		i = end
	}
	if len(open) > 0 {
		runes = runes[:open[0]]
	}
	return string(runes)
}

func lastIndex(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
