// Package sentiment scores free text against a small affect lexicon.
//
// The score is a negativity value in [0,1]: 0 is positive, 1 is negative.
// There is no negation handling; "not happy" counts as a positive match.
package sentiment

import (
	"math"
	"strings"
)

const (
	rawClamp = 10
)

var negativeWords = wordSet( //nolint:gochecknoglobals // fixed lexicon
	"sad", "angry", "upset", "depressed", "anxious", "lonely", "hate", "bad",
	"hurt", "helpless", "overwhelmed", "stressed", "panic", "fear", "scared",
)

var positiveWords = wordSet( //nolint:gochecknoglobals // fixed lexicon
	"happy", "grateful", "good", "calm", "peace", "relieved", "hopeful", "okay",
	"well", "better", "content", "satisfied", "joy", "love",
)

// punctuation is replaced by spaces before tokenizing.
var punctuation = strings.NewReplacer( //nolint:gochecknoglobals // immutable replacer
	`"`, " ", `'`, " ", "`", " ", "-", " ", "–", " ", "—", " ",
	"(", " ", ")", " ", ":", " ", ";", " ", ",", " ", ".", " ",
	"!", " ", "?", " ", "/", " ", `\`, " ",
)

// Result carries the score together with what produced it.
type Result struct {
	Score    float64  `json:"score"`
	Raw      int      `json:"raw"`
	Tokens   int      `json:"tokens"`
	Positive []string `json:"positive,omitempty"`
	Negative []string `json:"negative,omitempty"`
}

// Score returns the negativity score of text.
func Score(text string) float64 {
	return Analyze(text).Score
}

// Analyze scores text and reports the matched words.
func Analyze(text string) Result {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return Result{}
	}

	res := Result{Tokens: len(tokens)}
	for _, t := range tokens {
		if _, ok := negativeWords[t]; ok {
			res.Raw--
			res.Negative = append(res.Negative, t)
		}
		if _, ok := positiveWords[t]; ok {
			res.Raw++
			res.Positive = append(res.Positive, t)
		}
	}

	clamped := math.Max(-rawClamp, math.Min(rawClamp, float64(res.Raw)))
	normalized := (-clamped + rawClamp) / (2 * rawClamp)
	res.Score = math.Max(0, math.Min(1, normalized))
	return res
}

// Tokenize lowercases text, strips punctuation and splits on whitespace.
func Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return strings.Fields(punctuation.Replace(strings.ToLower(text)))
}

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
