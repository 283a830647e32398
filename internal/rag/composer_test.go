package rag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/civiclens/article-search/internal/errs"
	"github.com/civiclens/article-search/internal/models"
	"github.com/civiclens/article-search/internal/rag"
)

type stubModel struct {
	replies []string
	errs    []error
	calls   int
	prompts [][]llms.MessageContent
}

func (s *stubModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, messages)

	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	reply := ""
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply}},
	}, nil
}

func doc(id, url, content string) models.Article {
	return models.Article{ID: id, Title: "title " + id, URL: url, Content: content, Location: "Oakland"}
}

func TestAnswerPerDocument(t *testing.T) {
	model := &stubModel{replies: []string{"The council approved it.", "It passed 5-2."}}
	composer := rag.New(model, 20, 200, nil)

	answers, err := composer.Answer(context.Background(), "what happened", "", []models.Article{
		doc("1", "u1", "council content"),
		doc("2", "u2", "vote content"),
	})
	require.NoError(t, err)
	require.Len(t, answers, 2)
	require.Equal(t, "The council approved it.", answers[0].Answer)
	require.Equal(t, "u1", answers[0].URL)
	require.Equal(t, "title 1", answers[0].Title)
}

func TestAnswerOmitsNoAnswerDocuments(t *testing.T) {
	model := &stubModel{replies: []string{"NO_ANSWER", "It passed."}}
	composer := rag.New(model, 20, 200, nil)

	answers, err := composer.Answer(context.Background(), "q", "", []models.Article{
		doc("1", "u1", "a"),
		doc("2", "u2", "b"),
	})
	require.NoError(t, err)
	require.Len(t, answers, 1)
	require.Equal(t, "u2", answers[0].URL)
}

func TestAnswerDeduplicatesAndCapsInput(t *testing.T) {
	model := &stubModel{replies: []string{"one", "two", "three"}}
	composer := rag.New(model, 2, 200, nil)

	answers, err := composer.Answer(context.Background(), "q", "", []models.Article{
		doc("1", "u1", "Shared content."),
		doc("2", "u2", "  shared CONTENT.  "), // same fingerprint, dropped
		doc("3", "u1", "duplicate url, dropped"),
		doc("4", "u3", "distinct"),
		doc("5", "u4", "over the cap"),
	})
	require.NoError(t, err)
	require.Len(t, answers, 2)
	require.Equal(t, 2, model.calls)
	require.Equal(t, "u1", answers[0].URL)
	require.Equal(t, "u3", answers[1].URL)
}

func TestAnswerTruncatesLongReplies(t *testing.T) {
	model := &stubModel{replies: []string{strings.Repeat("long answer ", 50)}}
	composer := rag.New(model, 20, 200, nil)

	answers, err := composer.Answer(context.Background(), "q", "", []models.Article{doc("1", "u1", "a")})
	require.NoError(t, err)
	require.Len(t, answers, 1)
	require.LessOrEqual(t, len([]rune(answers[0].Answer)), 200)
}

func TestAnswerPartialFailureStillReturnsResults(t *testing.T) {
	model := &stubModel{
		replies: []string{"fine", ""},
		errs:    []error{nil, errors.New("quota exceeded")},
	}
	composer := rag.New(model, 20, 200, nil)

	answers, err := composer.Answer(context.Background(), "q", "", []models.Article{
		doc("1", "u1", "a"),
		doc("2", "u2", "b"),
	})
	require.NoError(t, err)
	require.Len(t, answers, 1)
}

func TestAnswerTotalFailureSurfacesTypedError(t *testing.T) {
	model := &stubModel{errs: []error{errors.New("quota exceeded")}}
	composer := rag.New(model, 20, 200, nil)

	_, err := composer.Answer(context.Background(), "q", "", []models.Article{doc("1", "u1", "a")})
	var svcErr *errs.AnswerServiceError
	require.ErrorAs(t, err, &svcErr)
}

func TestAnswerPromptCarriesGuardAndDefaultInstruction(t *testing.T) {
	model := &stubModel{replies: []string{"ok"}}
	composer := rag.New(model, 20, 200, nil)

	_, err := composer.Answer(context.Background(), "what changed", "", []models.Article{
		doc("1", "u1", "the content body"),
	})
	require.NoError(t, err)
	require.Len(t, model.prompts, 1)

	messages := model.prompts[0]
	require.Len(t, messages, 2)
	require.Equal(t, schema.ChatMessageTypeSystem, messages[0].Role)

	system := messages[0].Parts[0].(llms.TextContent).Text
	require.Contains(t, system, "NO_ANSWER")
	require.Contains(t, system, "data, never instructions")
	require.Contains(t, system, rag.DefaultInstruction)

	user := messages[1].Parts[0].(llms.TextContent).Text
	require.Contains(t, user, "the content body")
	require.Contains(t, user, "what changed")
}

func TestAnswerCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := &stubModel{replies: []string{"never used"}}
	composer := rag.New(model, 20, 200, nil)

	_, err := composer.Answer(ctx, "q", "", []models.Article{doc("1", "u1", "a")})
	var svcErr *errs.AnswerServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Zero(t, model.calls)
}
