package roster

import (
	"fmt"
	"math/rand"

	"brainrot-pipeline/types"
)

// Character is one entry in the fixed meme character roster.
type Character struct {
	Name  string
	Style string // visual style hints appended to every image prompt
}

// Characters is the fixed roster used for random selection. Selection is
// independent across runs; recently used characters are not excluded.
var Characters = []Character{
	{Name: "Skibidi Toilet", Style: "toilet head, waving, bathroom chaos"},
	{Name: "Sigma Cat", Style: "cool cat, sunglasses, sigma face, anime style"},
	{Name: "Baby Gronk", Style: "young football player, rizz pose, stadium"},
	{Name: "Fanum", Style: "streamer character, gaming setup, hoodie"},
	{Name: "Kai Cenat", Style: "energetic streamer, streaming chair, hype pose"},
	{Name: "Based Gigachad", Style: "ultra chad face, muscular, confident pose"},
	{Name: "NPC Girl", Style: "anime NPC character, pink hair, repetitive gestures"},
	{Name: "Rizz God", Style: "charismatic character, smooth pose, glowing aura"},
}

// Top5Topics is the fixed topic roster for the top5 content type.
var Top5Topics = []string{
	"Most Brainrot Moments in History",
	"Sigma Moves That Hit Different",
	"Ohio Events That Should Not Exist",
	"Ultimate Rizz Techniques",
	"Peak Skibidi Moments",
	"Most Gyatt Moments Ever",
	"Bussin Brainrot Clips",
	"No Cap Best Memes of the Year",
}

// Selection is the randomly chosen input triple for one run.
type Selection struct {
	Character   Character
	ContentType types.ContentType
	Topic       string
}

// Pick chooses a character, a content type from the enabled subset, and a
// top5 topic, each uniformly at random.
func Pick(rng *rand.Rand, enabled []types.ContentType) Selection {
	if len(enabled) == 0 {
		enabled = types.AllContentTypes
	}
	return Selection{
		Character:   Characters[rng.Intn(len(Characters))],
		ContentType: enabled[rng.Intn(len(enabled))],
		Topic:       Top5Topics[rng.Intn(len(Top5Topics))],
	}
}

// ImagePrompts returns the fixed image prompt set for a content type:
// 5 prompts for storytelling, 4 for dance, 3 for top5. Prompt counts do not
// scale with script length.
func ImagePrompts(contentType types.ContentType, c Character) []string {
	base := fmt.Sprintf("%s, %s, vibrant colors, digital art, cartoon style, high quality", c.Name, c.Style)

	switch contentType {
	case types.ContentDance:
		return []string{
			base + ", dance battle arena, crowd watching",
			base + ", epic dance move, motion blur",
			base + ", neon lights, dance floor",
			base + ", victory dance pose, spotlight",
		}
	case types.ContentTop5:
		return []string{
			base + ", number 5 ranking, scoreboard",
			base + ", number 3 highlight, action",
			base + ", number 1 champion, trophy, celebration",
		}
	default: // storytelling
		return []string{
			base + ", beginning of story, establishing shot",
			base + ", exciting action scene, dynamic pose",
			base + ", climax moment, dramatic lighting",
			base + ", victory celebration, confetti",
			base + ", conclusion scene, happy ending",
		}
	}
}
