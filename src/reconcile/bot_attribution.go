package reconcile

import (
	"fmt"
	"strings"

	"terminal-bridge/src/interfaces"
	"terminal-bridge/src/models"
)

const (
	unknownBotID  = "unknown"
	botCommentTag = "_bot_"
)

// AttributionRules carries the heuristics used when the live registry has no match.
type AttributionRules struct {
	CommentPrefix string
	MagicMin      int64
	MagicMax      int64
}

// -----------------------------------------------------------------------------

// AttributeBot classifies an order as bot-originated. Resolution order: live
// registry by magic number, bot id embedded in the comment, reserved magic
// range. Returns nil for manual trades.
func AttributeBot(magic int64, comment string, live interfaces.IBotDirectory, rules AttributionRules) *models.MBotAttribution {
	if live != nil && magic != 0 {
		if botID, name, ok := live.LookupMagic(magic); ok {
			return &models.MBotAttribution{BotID: botID, BotName: name, MagicNumber: magic}
		}
	}

	if rules.CommentPrefix != "" && strings.Contains(comment, rules.CommentPrefix) {
		if _, rest, found := strings.Cut(comment, botCommentTag); found {
			part, _, _ := strings.Cut(rest, "_")
			if part != "" {
				return &models.MBotAttribution{
					BotID:       "bot_" + part,
					BotName:     "Bot " + part,
					MagicNumber: magic,
				}
			}
		}
	}

	if magic >= rules.MagicMin && magic <= rules.MagicMax && rules.MagicMax > 0 {
		return &models.MBotAttribution{
			BotID:       unknownBotID,
			BotName:     fmt.Sprintf("%s Bot", rules.CommentPrefix),
			MagicNumber: magic,
		}
	}

	return nil
}
