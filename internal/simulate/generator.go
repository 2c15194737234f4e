package simulate

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hush/internal/domain/biomarker"
)

// typing describes the keystroke rhythm of a profile.
type typing struct {
	meanMS      float64
	jitterMS    float64
	backspaceP  float64
	words       []string
	minInterval float64
}

var profiles = map[Profile]typing{ //nolint:gochecknoglobals // fixed profiles
	ProfileCalm: {
		meanMS:      180,
		jitterMS:    20,
		backspaceP:  0.02,
		words:       []string{"calm", "grateful", "happy", "hopeful", "relieved", "content"},
		minInterval: 10,
	},
	ProfileAgitated: {
		meanMS:      140,
		jitterMS:    200,
		backspaceP:  0.25,
		words:       []string{"anxious", "stressed", "overwhelmed", "upset", "angry", "scared"},
		minInterval: 10,
	},
}

var prompts = []string{ //nolint:gochecknoglobals // fixed prompts
	"How are you feeling right now?",
	"What stood out about today?",
	"What is on your mind?",
}

var templates = []string{ //nolint:gochecknoglobals // fixed templates
	"Today I felt %s and a bit %s about the week ahead.",
	"Work was long but I ended the day %s, maybe even %s.",
	"I keep noticing that I am %s. Mostly %s, if I am honest.",
}

// Generator produces deterministic synthetic entries for a seed.
type Generator struct {
	rng   *rand.Rand
	start time.Time
}

// NewGenerator creates a generator. Keystroke timestamps start at start.
func NewGenerator(seed uint64, start time.Time) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), start: start}
}

// Generate returns n entries alternating between calm and agitated.
func (g *Generator) Generate(n int) []Entry {
	out := make([]Entry, n)
	for i := range out {
		p := ProfileCalm
		if i%2 == 1 {
			p = ProfileAgitated
		}
		out[i] = g.entry(p)
	}
	return out
}

func (g *Generator) entry(p Profile) Entry {
	t := profiles[p]
	tmpl := templates[g.rng.IntN(len(templates))]
	w1 := t.words[g.rng.IntN(len(t.words))]
	w2 := t.words[g.rng.IntN(len(t.words))]
	content := fmt.Sprintf(tmpl, w1, w2)

	return Entry{
		ID:      uuid.NewString(),
		Profile: p,
		Prompt:  prompts[g.rng.IntN(len(prompts))],
		Content: content,
		Keys:    g.keys(t, content),
	}
}

// keys types content with the profile's rhythm, inserting a wrong key and
// a backspace at the profile's correction rate.
func (g *Generator) keys(t typing, content string) []Key {
	keys := make([]Key, 0, len(content)*2)
	at := g.start
	press := func(k string) {
		d := t.meanMS + (g.rng.Float64()*2-1)*t.jitterMS
		if d < t.minInterval {
			d = t.minInterval
		}
		at = at.Add(time.Duration(d * float64(time.Millisecond)))
		keys = append(keys, Key{Key: k, TS: at.UnixMilli()})
	}
	for _, r := range content {
		if g.rng.Float64() < t.backspaceP {
			press("x")
			press(biomarker.BackspaceKey)
		}
		press(string(r))
	}
	g.start = at.Add(time.Second)
	return keys
}
