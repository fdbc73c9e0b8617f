package sales

import (
	"slices"
	"strings"
	"unicode"
)

// Topic is the flat subject classification used when no sales intent has its own template.
type Topic string

const (
	TopicNone      Topic = "none"
	TopicPortfolio Topic = "portfolio"
	TopicServices  Topic = "services"
	TopicContact   Topic = "contact"
	TopicAbout     Topic = "about"
	TopicGreeting  Topic = "greeting"
)

// TopicRule matches when any Keywords entry is a substring of the input or any Words entry
// is a whole word of it.
type TopicRule struct {
	Topic    Topic
	Keywords []string
	Words    []string
}

// TopicClassifier maps lower-cased input to a topic, TopicNone when nothing matches.
type TopicClassifier interface {
	ClassifyTopic(lower string) Topic
}

// DefaultTopicRules is evaluated in order. Greetings match whole words only, so "this"
// never reads as "hi".
func DefaultTopicRules() []TopicRule {
	return []TopicRule{
		{Topic: TopicPortfolio, Keywords: []string{"portfolio", "work", "project", "example", "case stud"}},
		{Topic: TopicServices, Keywords: []string{"service", "help", "offer"}},
		{Topic: TopicContact, Keywords: []string{"contact", "schedule", "call", "meeting", "book"}},
		{Topic: TopicAbout, Keywords: []string{"who", "about", "background"}},
		{Topic: TopicGreeting, Words: []string{"hello", "hi", "hey", "hiya", "howdy"}},
	}
}

type KeywordTopicClassifier struct {
	rules []TopicRule
}

func NewKeywordTopicClassifier(rules []TopicRule) *KeywordTopicClassifier {
	if rules == nil {
		rules = DefaultTopicRules()
	}
	return &KeywordTopicClassifier{rules: rules}
}

func (c *KeywordTopicClassifier) ClassifyTopic(lower string) Topic {
	var words []string
	for _, r := range c.rules {
		if containsAny(lower, r.Keywords...) {
			return r.Topic
		}
		if len(r.Words) == 0 {
			continue
		}
		if words == nil {
			words = strings.FieldsFunc(lower, func(c rune) bool {
				return !unicode.IsLetter(c) && !unicode.IsNumber(c)
			})
		}
		for _, w := range r.Words {
			if slices.Contains(words, w) {
				return r.Topic
			}
		}
	}
	return TopicNone
}
