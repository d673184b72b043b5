package sentiment

import (
	"context"
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/models"
	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
	"github.com/sentencizer/sentencizer"
)

const maxPhraseWords = 4

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]+>`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1")
	input = urlPattern.ReplaceAllString(input, "")
	return strings.Join(strings.Fields(input), " ")
}

// ConvertMarkdownToText renders markdown and strips the resulting HTML tags
// and links, leaving plain text.
func ConvertMarkdownToText(input string) string {
	input = RemoveLinks(input)
	// renderers keep state, and smartypants would mangle apostrophes
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{})
	output := blackfriday.Run([]byte(input),
		blackfriday.WithNoExtensions(),
		blackfriday.WithRenderer(renderer))
	plainText := html.UnescapeString(tagPattern.ReplaceAllString(string(output), " "))
	return strings.Join(strings.Fields(plainText), " ")
}

// LocalAnalyzer scores text offline with VADER. Compound scores are mapped
// from [-1, 1] onto the [0, 1] range the remote service uses.
type LocalAnalyzer struct {
	analyzer  *govader.SentimentIntensityAnalyzer
	segmenter sentencizer.Segmenter
}

func NewLocalAnalyzer() *LocalAnalyzer {
	return &LocalAnalyzer{
		analyzer:  govader.NewSentimentIntensityAnalyzer(),
		segmenter: sentencizer.NewSegmenter("en"),
	}
}

// sentences splits text for scoring. The segmenter compiles each sentence
// into a regexp, so the text must be valid UTF-8 first.
func (l *LocalAnalyzer) sentences(text string) []string {
	plain := ConvertMarkdownToText(strings.ToValidUTF8(text, "\uFFFD"))
	if plain == "" {
		return nil
	}
	var out []string
	for _, s := range l.segmenter.Segment(plain) {
		if s = strings.TrimSpace(s); len(s) >= 2 {
			out = append(out, s)
		}
	}
	return out
}

func (l *LocalAnalyzer) GetSentiment(ctx context.Context, text string) (models.SentimentResult, error) {
	if err := ctx.Err(); err != nil {
		return models.SentimentResult{}, err
	}

	sentences := l.sentences(text)
	if len(sentences) == 0 {
		return models.SentimentResult{Score: 0.5}, nil
	}

	var total float64
	for _, s := range sentences {
		total += l.analyzer.PolarityScores(s).Compound
	}
	return models.SentimentResult{Score: NormalizeCompound(total / float64(len(sentences)))}, nil
}

// GetKeyPhrases returns the short sentences of text, which in customer
// feedback are usually the salient points ("Great price." "Slow shipping.").
func (l *LocalAnalyzer) GetKeyPhrases(ctx context.Context, text string) (models.KeyPhraseResult, error) {
	if err := ctx.Err(); err != nil {
		return models.KeyPhraseResult{}, err
	}

	phrases := []string{}
	seen := map[string]bool{}
	for _, s := range l.sentences(text) {
		phrase := strings.TrimFunc(s, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSpace(r)
		})
		words := len(strings.Fields(phrase))
		if words == 0 || words > maxPhraseWords {
			continue
		}
		key := strings.ToLower(phrase)
		if seen[key] {
			continue
		}
		seen[key] = true
		phrases = append(phrases, phrase)
	}
	return models.KeyPhraseResult{KeyPhrases: phrases}, nil
}

// NormalizeCompound maps a VADER compound score onto [0, 1].
func NormalizeCompound(compound float64) float64 {
	score := (compound + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
