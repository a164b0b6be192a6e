package usecase

import (
	"strings"
	"sync"

	"github.com/satriahrh/santoryu/domain"
	"github.com/satriahrh/santoryu/domain/entities"
)

// Fixed fault replies
const (
	FaultCommunication = "Tch... something's interfering with my communication. Speak up!"
	FaultNotRight      = "Hmph... something's not right here."
	FaultFocus         = "Something's interfering with my focus..."
	FaultWentWrong     = "Tch... something went wrong."
)

// RandomSource picks an index in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

type keywordRule struct {
	category entities.Category
	keywords []string
}

// keywordRules are checked in order; the first rule with a keyword contained
// in the lowercased text wins
var keywordRules = []keywordRule{
	{entities.CategoryGreeting, []string{"hello", "hi", "hey", "greetings"}},
	{entities.CategoryHelp, []string{"help", "assist", "support", "need you"}},
	{entities.CategoryCombat, []string{"fight", "battle", "strong", "challenge", "sword"}},
	{entities.CategoryDirection, []string{"where", "direction", "lost", "way"}},
}

// ReplyService maps transcribed text to an in-character reply
type ReplyService struct {
	pool *entities.PhrasePool

	mu  sync.Mutex
	rnd RandomSource
}

// NewReplyService creates a reply service over pool. rnd is shared by every
// connection and is only used under the service's lock.
func NewReplyService(pool *entities.PhrasePool, rnd RandomSource) *ReplyService {
	return &ReplyService{pool: pool, rnd: rnd}
}

// Select returns the reply for text. It never returns an empty string.
func (s *ReplyService) Select(text string) string {
	lower := strings.ToLower(text)

	for _, rule := range keywordRules {
		if containsAny(lower, rule.keywords) {
			return s.pick(rule.category)
		}
	}

	if strings.Contains(text, "?") {
		return s.pick(entities.CategoryAcknowledge) + " " + s.pick(entities.CategoryCombat)
	}

	return s.pickFrom(entities.CategoryAcknowledge, entities.CategoryGeneric)
}

// FaultMessage returns the reply spoken for a failed turn
func (s *ReplyService) FaultMessage(kind domain.ErrorKind) string {
	switch kind {
	case domain.ErrorKindEmptyInput, domain.ErrorKindNoSpeechDetected:
		return s.pick(entities.CategoryConfusion)
	case domain.ErrorKindTranscriptionService:
		return FaultCommunication
	case domain.ErrorKindAudioDecode, domain.ErrorKindAudioTooLarge:
		return FaultFocus
	case domain.ErrorKindConnectionFault:
		return FaultWentWrong
	default:
		return FaultNotRight
	}
}

func (s *ReplyService) pick(category entities.Category) string {
	return s.pickFrom(category)
}

// pickFrom draws uniformly from the concatenation of the given categories
func (s *ReplyService) pickFrom(categories ...entities.Category) string {
	total := 0
	for _, category := range categories {
		total += s.pool.Len(category)
	}

	s.mu.Lock()
	i := s.rnd.Intn(total)
	s.mu.Unlock()

	for _, category := range categories {
		n := s.pool.Len(category)
		if i < n {
			return s.pool.At(category, i)
		}
		i -= n
	}
	// unreachable: i < total
	return s.pool.At(categories[0], 0)
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
