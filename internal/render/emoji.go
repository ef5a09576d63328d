package render

import "strings"

// Decorations used in rendered messages.
const (
	EmojiPhone    = "\U0001F4DE"
	EmojiName     = "\U0001F464"
	EmojiPrice    = "\U0001F4B0"
	EmojiWhatsApp = "\U0001F4AC"
	EmojiLocation = "\U0001F3E0"
	EmojiTag      = "\U0001F4CC"
)

const (
	emojiBuy      = "\U0001F6D2"
	emojiSell     = "\U0001F514"
	emojiSearch   = "\U0001F50D"
	emojiDeal     = "\U0001F525"
	emojiNew      = "\U0001F195"
	emojiStar     = "\U00002B50"
	emojiRepair   = "\U0001F527"
	emojiExchange = "\U0001F501"
)

var wordEmojis = map[string]string{
	"compra":     emojiBuy,
	"compro":     emojiBuy,
	"compram":    emojiBuy,
	"compramos":  emojiBuy,
	"venta":      emojiSell,
	"vendo":      emojiSell,
	"vende":      emojiSell,
	"venden":     emojiSell,
	"tengo":      emojiSell,
	"busco":      emojiSearch,
	"necesito":   emojiSearch,
	"rebaja":     emojiDeal,
	"ganga":      emojiDeal,
	"remate":     emojiDeal,
	"new":        emojiNew,
	"[new]":      emojiNew,
	"(new)":      emojiNew,
	"nuevo":      emojiNew,
	"nueva":      emojiNew,
	"nuevos":     emojiNew,
	"nuevas":     emojiNew,
	"original":   emojiStar,
	"originales": emojiStar,
	"arreglamos": emojiRepair,
	"reparacion": emojiRepair,
	"reparación": emojiRepair,
	"cambio":     emojiExchange,
	"cambia":     emojiExchange,
	"permuto":    emojiExchange,
	"permuta":    emojiExchange,
	"permutar":   emojiExchange,
}

// Emojis returns the concatenated emojis for the keywords found in text, in
// word order.
func Emojis(text string) string {
	var b strings.Builder
	for _, word := range strings.Split(text, " ") {
		b.WriteString(wordEmojis[strings.ToLower(strings.TrimSpace(word))])
	}
	return b.String()
}
