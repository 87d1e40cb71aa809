package metadata

import (
	"fmt"
	"math/rand"
	"strings"

	"brainrot-pipeline/types"
)

// Titles are picked at random per content type so repeated runs with the same
// character do not produce identical uploads.
var titleTemplates = map[types.ContentType][]string{
	types.ContentStorytelling: {
		"%[1]s's INSANE Adventure Goes WRONG 😱 #shorts",
		"%[1]s VS The World (BRAINROT STORY) 💀",
		"%[1]s Has The Most OHIO Moment Ever 🤣 #brainrot",
	},
	types.ContentDance: {
		"%[1]s Dance Battle Goes CRAZY 🔥 #shorts",
		"%[1]s Has ULTIMATE Rizz On The Dance Floor 💃",
		"%[1]s Sigma Dance That BROKE The Internet 😤",
	},
	types.ContentTop5: {
		"Top 5 %[2]s ft. %[1]s 🔥 #brainrot",
		"TOP 5 MOST OHIO %[2]s RANKED 💀 #shorts",
		"Ranking The MOST GYATT %[2]s (No Cap) 🗣️",
	},
}

var baseTags = []string{
	"brainrot", "skibidi", "ohio", "sigma", "rizz", "gyatt",
	"shorts", "viral", "meme", "funny", "animated",
}

// Title builds an upload title for the run.
func Title(rng *rand.Rand, contentType types.ContentType, character, topic string) string {
	options, ok := titleTemplates[contentType]
	if !ok {
		options = titleTemplates[types.ContentStorytelling]
	}
	return fmt.Sprintf(options[rng.Intn(len(options))], character, topic)
}

// Description builds the upload description from the generated script.
func Description(character, script string) string {
	var sb strings.Builder
	sb.WriteString(script)
	sb.WriteString(fmt.Sprintf("\n\nFeaturing: %s in the most brainrot content on the internet!", character))
	sb.WriteString("\n\nWatch daily brainrot videos - Subscribe NOW! 🔔")
	sb.WriteString(fmt.Sprintf("\n\n#brainrot #%s #shorts #viral #sigma #ohio #skibidi #rizz #gyatt #meme",
		strings.ReplaceAll(character, " ", "")))
	return sb.String()
}

// Tags builds the caller tag list for the run.
func Tags(contentType types.ContentType, character string) []string {
	tags := []string{
		strings.ToLower(strings.ReplaceAll(character, " ", "")),
		string(contentType),
	}
	return append(tags, baseTags...)
}
